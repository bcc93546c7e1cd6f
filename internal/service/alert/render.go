package alert

import (
	"strings"

	"github.com/KNICEX/market-sentry/internal/service/monitor"
	"github.com/shopspring/decimal"
)

const (
	TimeLayout = "2006-01-02 15:04:05"

	DefaultTemplate = "[{type}] {symbol} price {price} change {change}% volume {volume} at {time}"
)

var (
	thousand = decimal.NewFromInt(1_000)
	million  = decimal.NewFromInt(1_000_000)
	billion  = decimal.NewFromInt(1_000_000_000)
)

// Render substitutes the six supported placeholders into the template:
// {symbol}, {type}, {price} (8dp), {change} (2dp), {volume} (K/M/B scaled)
// and {time}.
func Render(template string, event monitor.BreakthroughEvent) string {
	if template == "" {
		template = DefaultTemplate
	}
	r := strings.NewReplacer(
		"{symbol}", event.Symbol,
		"{type}", string(event.Kind),
		"{price}", event.Price.StringFixed(8),
		"{change}", event.ChangePercent.StringFixed(2),
		"{volume}", HumanizeVolume(event.Volume),
		"{time}", event.Timestamp.Format(TimeLayout),
	)
	return r.Replace(template)
}

// HumanizeVolume scales a volume into a short human figure: 12.5K, 3.40M, 1.02B.
func HumanizeVolume(v decimal.Decimal) string {
	abs := v.Abs()
	switch {
	case abs.GreaterThanOrEqual(billion):
		return v.Div(billion).StringFixed(2) + "B"
	case abs.GreaterThanOrEqual(million):
		return v.Div(million).StringFixed(2) + "M"
	case abs.GreaterThanOrEqual(thousand):
		return v.Div(thousand).StringFixed(2) + "K"
	default:
		return v.String()
	}
}
