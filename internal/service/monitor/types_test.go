package monitor

import (
	"testing"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRejectsNonPositiveSummaryWindow(t *testing.T) {
	cfg := BreakthroughConfig{SummaryWindowSeconds: 0}
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg.SummaryWindowSeconds = -5
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg.SummaryWindowSeconds = 60
	assert.NoError(t, cfg.Validate())
}

func TestEnabledThresholdsNormalization(t *testing.T) {
	ts := []Threshold{
		{Value: decimal.NewFromInt(5), Enabled: true},
		{Value: decimal.NewFromInt(10), Enabled: true},
		{Value: decimal.NewFromInt(5), Enabled: true}, // duplicate
		{Value: decimal.NewFromInt(20), Enabled: false},
	}

	up := enabledThresholds(ts, true)
	require.Len(t, up, 2)
	assert.Equal(t, "10", up[0].Value.String())
	assert.Equal(t, "5", up[1].Value.String())

	down := enabledThresholds([]Threshold{
		{Value: decimal.NewFromInt(-10), Enabled: true},
		{Value: decimal.NewFromInt(-5), Enabled: true},
	}, false)
	require.Len(t, down, 2)
	assert.Equal(t, "-10", down[0].Value.String())
}

func TestEnabledWindowsNormalization(t *testing.T) {
	ws := enabledWindows([]Window{
		{Days: 30, Enabled: true},
		{Days: 7, Enabled: true},
		{Days: 7, Enabled: true},
		{Days: 90, Enabled: false},
	})
	assert.Equal(t, []int{7, 30}, lo.Map(ws, func(item Window, index int) int {
		return item.Days
	}))
}

func TestRuleSetWindowDaysMergesHighAndLow(t *testing.T) {
	cfg := BreakthroughConfig{
		NewHighWindows: []Window{
			{Days: 7, Enabled: true},
			{Days: 30, Enabled: true},
		},
		NewLowWindows: []Window{
			{Days: 7, Enabled: true},
			{Days: 90, Enabled: true},
		},
		SummaryWindowSeconds: 60,
	}
	rules := newRuleSet(cfg)
	assert.ElementsMatch(t, []int{7, 30, 90}, rules.windowDays())
}
