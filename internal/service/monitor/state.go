package monitor

import (
	"github.com/shopspring/decimal"
)

// symbolState holds the rolling per-instrument extrema. The highs and lows are
// running extrema seeded at first sight of the symbol, not true calendar
// windows; they only reset when the process restarts.
type symbolState struct {
	lastPrice    decimal.Decimal
	highByWindow map[int]decimal.Decimal
	lowByWindow  map[int]decimal.Decimal
}

// stateArena owns all per-symbol state. Mutated only by the poll loop, so it
// needs no locking.
type stateArena struct {
	symbols map[string]*symbolState
}

func newStateArena() *stateArena {
	return &stateArena{
		symbols: make(map[string]*symbolState),
	}
}

// observe records the first sight of a symbol. Returns the state and whether
// the symbol was already known; on first sight the last price and every
// requested window are seeded to the current price.
func (a *stateArena) observe(symbol string, price decimal.Decimal, windowDays []int) (*symbolState, bool) {
	st, known := a.symbols[symbol]
	if !known {
		st = &symbolState{
			lastPrice:    price,
			highByWindow: make(map[int]decimal.Decimal),
			lowByWindow:  make(map[int]decimal.Decimal),
		}
		for _, days := range windowDays {
			st.highByWindow[days] = price
			st.lowByWindow[days] = price
		}
		a.symbols[symbol] = st
	}
	return st, known
}

// updateExtrema folds the current price into every requested window, seeding
// windows that were enabled after the symbol was first seen.
func (st *symbolState) updateExtrema(price decimal.Decimal, windowDays []int) {
	for _, days := range windowDays {
		high, ok := st.highByWindow[days]
		if !ok || price.GreaterThan(high) {
			st.highByWindow[days] = price
		}
		low, ok := st.lowByWindow[days]
		if !ok || price.LessThan(low) {
			st.lowByWindow[days] = price
		}
	}
}
