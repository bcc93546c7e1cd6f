package repo

import (
	"github.com/KNICEX/market-sentry/internal/entity"
	"gorm.io/gorm"
)

func InitTables(db *gorm.DB) error {
	return db.AutoMigrate(&entity.AlertLog{}, &entity.ConfigRecord{})
}
