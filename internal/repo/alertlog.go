package repo

import (
	"context"

	"github.com/KNICEX/market-sentry/internal/entity"
	"gorm.io/gorm"
)

// AlertLogRepo is the append-only audit log of alert deliveries.
type AlertLogRepo interface {
	Append(ctx context.Context, log entity.AlertLog) (int64, error)
	FindBySymbol(ctx context.Context, symbol string, limit int) ([]entity.AlertLog, error)
	FindUnsent(ctx context.Context, limit int) ([]entity.AlertLog, error)
}

type alertLogRepo struct {
	db *gorm.DB
}

func NewAlertLogRepo(db *gorm.DB) AlertLogRepo {
	return &alertLogRepo{
		db: db,
	}
}

func (r *alertLogRepo) Append(ctx context.Context, log entity.AlertLog) (int64, error) {
	err := r.db.WithContext(ctx).Create(&log).Error
	if err != nil {
		return 0, err
	}
	return log.Id, nil
}

func (r *alertLogRepo) FindBySymbol(ctx context.Context, symbol string, limit int) ([]entity.AlertLog, error) {
	var logs []entity.AlertLog
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("created_at desc").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *alertLogRepo) FindUnsent(ctx context.Context, limit int) ([]entity.AlertLog, error) {
	var logs []entity.AlertLog
	err := r.db.WithContext(ctx).
		Where("sent = ?", false).
		Order("created_at desc").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
