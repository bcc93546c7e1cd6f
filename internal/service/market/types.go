package market

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrMalformedResponse means the endpoint answered but the body could not
	// be decoded. Not retryable: the payload is broken on every endpoint.
	ErrMalformedResponse = errors.New("malformed market data response")

	// ErrRetriesExhausted wraps the last transport error after all attempts
	// of one operation failed.
	ErrRetriesExhausted = errors.New("market data retries exhausted")
)

// TickData 单个交易对的24h行情快照
type TickData struct {
	Symbol        string
	LastPrice     decimal.Decimal
	OpenPrice     decimal.Decimal
	HighPrice     decimal.Decimal
	LowPrice      decimal.Decimal
	Volume        decimal.Decimal
	QuoteVolume   decimal.Decimal
	ChangePercent decimal.Decimal
	CapturedAt    time.Time
}

// Candle 单根K线
type Candle struct {
	OpenTime  time.Time
	CloseTime time.Time
	Open      decimal.Decimal
	Close     decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Volume    decimal.Decimal
}

type Interval string

func (i Interval) ToString() string {
	return string(i)
}

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval1d  Interval = "1d"
)

// MarketService 市场数据服务接口
type MarketService interface {
	FetchInstrumentSymbols(ctx context.Context) (map[string]struct{}, error)
	FetchAllTickers(ctx context.Context) ([]TickData, error)
	FetchCandles(ctx context.Context, req FetchCandlesReq) ([]Candle, error)
}

type FetchCandlesReq struct {
	Symbol             string
	Interval           Interval
	StartTime, EndTime time.Time
	Limit              int
}

// Metrics counts in-flight work owned by one client instance. Implementations
// must be safe for concurrent use.
type Metrics interface {
	Increment(tag string)
	Decrement(tag string)
}

type NopMetrics struct{}

func (NopMetrics) Increment(string) {}
func (NopMetrics) Decrement(string) {}

// LogMetrics keeps per-tag gauges and logs every change. Good enough for a
// single-process monitor; swap in something real for fleet deployments.
type LogMetrics struct {
	mu     sync.Mutex
	gauges map[string]int64
}

func NewLogMetrics() *LogMetrics {
	return &LogMetrics{
		gauges: make(map[string]int64),
	}
}

func (m *LogMetrics) Increment(tag string) {
	m.mu.Lock()
	m.gauges[tag]++
	v := m.gauges[tag]
	m.mu.Unlock()
	slog.Debug("metric increment", "tag", tag, "value", v)
}

func (m *LogMetrics) Decrement(tag string) {
	m.mu.Lock()
	m.gauges[tag]--
	v := m.gauges[tag]
	m.mu.Unlock()
	slog.Debug("metric decrement", "tag", tag, "value", v)
}

// Gauge returns the current value for tag.
func (m *LogMetrics) Gauge(tag string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gauges[tag]
}
