package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/KNICEX/market-sentry/internal/repo"
	"github.com/shopspring/decimal"
)

const ConfigName = "breakthrough"

// ConfigStore persists BreakthroughConfig through the config repo as one
// versioned JSON schema. A payload that fails to decode or validate is a hard
// error, never a silent fallback to some looser shape.
type ConfigStore struct {
	repo repo.ConfigRepo
}

func NewConfigStore(r repo.ConfigRepo) *ConfigStore {
	return &ConfigStore{repo: r}
}

func (s *ConfigStore) Load(ctx context.Context, name string) (BreakthroughConfig, error) {
	record, err := s.repo.Load(ctx, name)
	if err != nil {
		return BreakthroughConfig{}, err
	}

	var cfg BreakthroughConfig
	dec := json.NewDecoder(bytes.NewReader([]byte(record.Payload)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return BreakthroughConfig{}, fmt.Errorf("%w: decode %q: %v", ErrInvalidConfig, name, err)
	}
	if err := cfg.Validate(); err != nil {
		return BreakthroughConfig{}, err
	}
	return cfg, nil
}

func (s *ConfigStore) Save(ctx context.Context, name string, cfg BreakthroughConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return s.repo.Save(ctx, name, cfg.Version, string(payload))
}

// DefaultConfig is used when no persisted configuration exists yet.
func DefaultConfig() BreakthroughConfig {
	return BreakthroughConfig{
		Version: "1",
		UpThresholds: []Threshold{
			{Value: decimal.NewFromInt(5), Enabled: true, Description: "5% pump"},
			{Value: decimal.NewFromInt(10), Enabled: true, Description: "10% pump"},
		},
		DownThresholds: []Threshold{
			{Value: decimal.NewFromInt(-5), Enabled: true, Description: "5% dump"},
			{Value: decimal.NewFromInt(-10), Enabled: true, Description: "10% dump"},
		},
		NewHighWindows: []Window{
			{Days: 7, Enabled: true, Description: "7d high"},
			{Days: 30, Enabled: true, Description: "30d high"},
		},
		NewLowWindows: []Window{
			{Days: 7, Enabled: true, Description: "7d low"},
			{Days: 30, Enabled: true, Description: "30d low"},
		},
		SummaryWindowSeconds: 60,
		Notification: NotificationConfig{
			MessageTemplate: "",
			RetryCount:      2,
			RetryInterval:   time.Second,
		},
	}
}
