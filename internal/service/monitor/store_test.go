package monitor

import (
	"context"
	"testing"

	"github.com/KNICEX/market-sentry/internal/entity"
	"github.com/KNICEX/market-sentry/internal/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memConfigRepo mimics the gorm repo's last-write-wins contract in memory.
type memConfigRepo struct {
	records map[string]entity.ConfigRecord
	backups []entity.ConfigRecord
}

func newMemConfigRepo() *memConfigRepo {
	return &memConfigRepo{
		records: make(map[string]entity.ConfigRecord),
	}
}

func (r *memConfigRepo) Load(ctx context.Context, name string) (entity.ConfigRecord, error) {
	record, ok := r.records[name]
	if !ok {
		return entity.ConfigRecord{}, repo.ErrConfigNotFound
	}
	return record, nil
}

func (r *memConfigRepo) Save(ctx context.Context, name, version, payload string) error {
	if current, ok := r.records[name]; ok {
		current.Backup = true
		r.backups = append(r.backups, current)
	}
	r.records[name] = entity.ConfigRecord{
		Name:    name,
		Version: version,
		Payload: payload,
	}
	return nil
}

func TestConfigStoreRoundTrip(t *testing.T) {
	store := NewConfigStore(newMemConfigRepo())
	ctx := context.Background()

	cfg := DefaultConfig()
	cfg.Version = "42"
	require.NoError(t, store.Save(ctx, ConfigName, cfg))

	loaded, err := store.Load(ctx, ConfigName)
	require.NoError(t, err)
	assert.Equal(t, "42", loaded.Version)
	assert.Equal(t, cfg.SummaryWindowSeconds, loaded.SummaryWindowSeconds)
	require.Len(t, loaded.UpThresholds, len(cfg.UpThresholds))
	assert.True(t, cfg.UpThresholds[0].Value.Equal(loaded.UpThresholds[0].Value))
}

func TestConfigStoreMissing(t *testing.T) {
	store := NewConfigStore(newMemConfigRepo())
	_, err := store.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, repo.ErrConfigNotFound)
}

func TestConfigStoreRejectsUnknownShape(t *testing.T) {
	mem := newMemConfigRepo()
	mem.records[ConfigName] = entity.ConfigRecord{
		Name:    ConfigName,
		Payload: `{"summary_window_seconds": 60, "legacy_thresholds": [1, 2]}`,
	}

	store := NewConfigStore(mem)
	_, err := store.Load(context.Background(), ConfigName)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfigStoreRejectsInvalidPayload(t *testing.T) {
	mem := newMemConfigRepo()
	mem.records[ConfigName] = entity.ConfigRecord{
		Name:    ConfigName,
		Payload: `{"version": "1", "summary_window_seconds": 0}`,
	}

	store := NewConfigStore(mem)
	_, err := store.Load(context.Background(), ConfigName)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfigStoreSaveRejectsInvalid(t *testing.T) {
	store := NewConfigStore(newMemConfigRepo())
	cfg := DefaultConfig()
	cfg.SummaryWindowSeconds = -1
	assert.ErrorIs(t, store.Save(context.Background(), ConfigName, cfg), ErrInvalidConfig)
}

func TestConfigStoreBackupBeforeOverwrite(t *testing.T) {
	mem := newMemConfigRepo()
	store := NewConfigStore(mem)
	ctx := context.Background()

	first := DefaultConfig()
	first.Version = "1"
	require.NoError(t, store.Save(ctx, ConfigName, first))
	require.Empty(t, mem.backups)

	second := DefaultConfig()
	second.Version = "2"
	require.NoError(t, store.Save(ctx, ConfigName, second))

	require.Len(t, mem.backups, 1)
	assert.Equal(t, "1", mem.backups[0].Version)
	assert.True(t, mem.backups[0].Backup)

	loaded, err := store.Load(ctx, ConfigName)
	require.NoError(t, err)
	assert.Equal(t, "2", loaded.Version)
}
