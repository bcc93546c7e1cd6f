package entity

import (
	"time"
)

// ConfigRecord 监控配置持久化记录, Backup 标记覆盖前的备份行
type ConfigRecord struct {
	Id        int64  `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"index"`
	Version   string
	Payload   string
	Backup    bool      `gorm:"index"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time `gorm:"index"`
}
