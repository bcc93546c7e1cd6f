package entity

import (
	"time"
)

// AlertLog 告警投递审计记录
type AlertLog struct {
	Id            int64  `gorm:"primaryKey;autoIncrement"`
	Symbol        string `gorm:"index"`
	Kind          string `gorm:"index"`
	Content       string
	Price         string
	ChangePercent string
	Volume        string
	Sent          bool `gorm:"index"`
	Error         string
	TriggeredAt   time.Time `gorm:"index"`
	CreatedAt     time.Time `gorm:"index"`
}
