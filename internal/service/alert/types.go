package alert

import (
	"context"
	"time"

	"github.com/KNICEX/market-sentry/internal/service/monitor"
	"github.com/shopspring/decimal"
)

// Message is one rendered alert, ready for delivery.
type Message struct {
	Symbol        string
	Text          string
	Kind          monitor.EventKind
	Price         decimal.Decimal
	ChangePercent decimal.Decimal
	Volume        decimal.Decimal
	Timestamp     time.Time
}

// Log is the audit record of one delivery attempt.
type Log struct {
	Message
	Sent  bool
	Error string
}

// LogSink persists audit records. Append failures must never abort delivery;
// the pipeline logs them and moves on.
type LogSink interface {
	Append(ctx context.Context, entry Log) error
}

// NopLogSink discards audit records.
type NopLogSink struct{}

func (NopLogSink) Append(context.Context, Log) error {
	return nil
}
