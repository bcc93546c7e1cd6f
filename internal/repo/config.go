package repo

import (
	"context"
	"errors"

	"github.com/KNICEX/market-sentry/internal/entity"
	"gorm.io/gorm"
)

var ErrConfigNotFound = errors.New("config record not found")

// ConfigRepo stores named configuration payloads with last-write-wins
// semantics. Save keeps a backup row of the previous payload before
// overwriting.
type ConfigRepo interface {
	Load(ctx context.Context, name string) (entity.ConfigRecord, error)
	Save(ctx context.Context, name, version, payload string) error
}

type configRepo struct {
	db *gorm.DB
}

func NewConfigRepo(db *gorm.DB) ConfigRepo {
	return &configRepo{
		db: db,
	}
}

func (r *configRepo) Load(ctx context.Context, name string) (entity.ConfigRecord, error) {
	var record entity.ConfigRecord
	err := r.db.WithContext(ctx).
		Where("name = ? AND backup = ?", name, false).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.ConfigRecord{}, ErrConfigNotFound
	}
	if err != nil {
		return entity.ConfigRecord{}, err
	}
	return record, nil
}

func (r *configRepo) Save(ctx context.Context, name, version, payload string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current entity.ConfigRecord
		err := tx.Where("name = ? AND backup = ?", name, false).First(&current).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&entity.ConfigRecord{
				Name:    name,
				Version: version,
				Payload: payload,
			}).Error
		case err != nil:
			return err
		}

		backup := entity.ConfigRecord{
			Name:    current.Name,
			Version: current.Version,
			Payload: current.Payload,
			Backup:  true,
		}
		if err := tx.Create(&backup).Error; err != nil {
			return err
		}

		return tx.Model(&entity.ConfigRecord{}).
			Where("id = ?", current.Id).
			Updates(map[string]any{
				"version": version,
				"payload": payload,
			}).Error
	})
}
