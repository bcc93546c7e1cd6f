package monitor

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var ErrInvalidConfig = errors.New("invalid breakthrough config")

// Threshold 涨跌幅阈值
type Threshold struct {
	Value       decimal.Decimal `json:"value"` // percent, negative for down-thresholds
	Enabled     bool            `json:"enabled"`
	Description string          `json:"description"`
}

// Window 新高/新低窗口定义
type Window struct {
	Days        int    `json:"days"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description"`
}

// NotificationConfig 告警投递配置
type NotificationConfig struct {
	WebhookURL      string        `json:"webhook_url"`
	MessageTemplate string        `json:"message_template"`
	RetryCount      int           `json:"retry_count"`
	RetryInterval   time.Duration `json:"retry_interval"`
}

// BreakthroughConfig is the runtime configuration value object. Swapped
// wholesale on update; a copy is taken at the start of each poll cycle.
type BreakthroughConfig struct {
	Version              string             `json:"version"`
	UpThresholds         []Threshold        `json:"up_thresholds"`
	DownThresholds       []Threshold        `json:"down_thresholds"`
	NewHighWindows       []Window           `json:"new_high_windows"`
	NewLowWindows        []Window           `json:"new_low_windows"`
	SummaryWindowSeconds int                `json:"summary_window_seconds"`
	Notification         NotificationConfig `json:"notification"`
}

func (c BreakthroughConfig) Validate() error {
	if c.SummaryWindowSeconds <= 0 {
		return fmt.Errorf("%w: summary window must be positive, got %d",
			ErrInvalidConfig, c.SummaryWindowSeconds)
	}
	return nil
}

func (c BreakthroughConfig) SummaryWindow() time.Duration {
	return time.Duration(c.SummaryWindowSeconds) * time.Second
}

// enabledThresholds de-duplicates by value, drops disabled entries and sorts:
// up-thresholds descending, down-thresholds ascending.
func enabledThresholds(ts []Threshold, descending bool) []Threshold {
	ts = lo.Filter(ts, func(item Threshold, index int) bool {
		return item.Enabled
	})
	ts = lo.UniqBy(ts, func(item Threshold) string {
		return item.Value.String()
	})
	sort.Slice(ts, func(i, j int) bool {
		if descending {
			return ts[i].Value.GreaterThan(ts[j].Value)
		}
		return ts[i].Value.LessThan(ts[j].Value)
	})
	return ts
}

// enabledWindows de-duplicates by day count, drops disabled entries and sorts
// ascending.
func enabledWindows(ws []Window) []Window {
	ws = lo.Filter(ws, func(item Window, index int) bool {
		return item.Enabled
	})
	ws = lo.UniqBy(ws, func(item Window) int {
		return item.Days
	})
	sort.Slice(ws, func(i, j int) bool {
		return ws[i].Days < ws[j].Days
	})
	return ws
}

// ruleSet is the normalized, evaluation-ready view of one config snapshot.
type ruleSet struct {
	up          []Threshold
	down        []Threshold
	highWindows []Window
	lowWindows  []Window
}

func newRuleSet(cfg BreakthroughConfig) ruleSet {
	return ruleSet{
		up:          enabledThresholds(cfg.UpThresholds, true),
		down:        enabledThresholds(cfg.DownThresholds, false),
		highWindows: enabledWindows(cfg.NewHighWindows),
		lowWindows:  enabledWindows(cfg.NewLowWindows),
	}
}

func (r ruleSet) windowDays() []int {
	days := make([]int, 0, len(r.highWindows)+len(r.lowWindows))
	for _, w := range r.highWindows {
		days = append(days, w.Days)
	}
	for _, w := range r.lowWindows {
		days = append(days, w.Days)
	}
	return lo.Uniq(days)
}

// EventKind 突破事件类型
type EventKind string

const (
	EventPercentUp   EventKind = "percent-up"
	EventPercentDown EventKind = "percent-down"
	EventNewHigh     EventKind = "new-high"
	EventNewLow      EventKind = "new-low"
)

// BreakthroughEvent is immutable once created.
type BreakthroughEvent struct {
	Symbol        string          `json:"symbol"`
	Kind          EventKind       `json:"kind"`
	Price         decimal.Decimal `json:"price"`
	Threshold     decimal.Decimal `json:"threshold"` // crossed threshold or pre-update extremum
	ChangePercent decimal.Decimal `json:"change_percent"`
	Volume        decimal.Decimal `json:"volume"`
	Description   string          `json:"description"`
	WindowDays    int             `json:"window_days,omitempty"` // new-high / new-low only
	Timestamp     time.Time       `json:"timestamp"`
}

type Status string

const (
	StatusStopped Status = "stopped"
	StatusRunning Status = "running"
	StatusError   Status = "error"
)

// Subscriber receives engine notifications. Callbacks run synchronously on
// the emitting loop and must not block.
type Subscriber interface {
	OnBreakthrough(event BreakthroughEvent)
	OnStatusChange(status Status)
	OnError(err error)
}
