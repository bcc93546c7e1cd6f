package binance

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/KNICEX/market-sentry/internal/service/market"
	"github.com/KNICEX/market-sentry/pkg/decimalx"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var _ market.MarketService = (*Client)(nil)

const (
	pathExchangeInfo = "/fapi/v1/exchangeInfo"
	pathTicker24h    = "/fapi/v1/ticker/24hr"
	pathKlines       = "/fapi/v1/klines"
)

type exchangeInfoResp struct {
	Symbols []exchangeSymbol `json:"symbols"`
}

type exchangeSymbol struct {
	Symbol       string `json:"symbol"`
	Status       string `json:"status"`
	ContractType string `json:"contractType"`
	QuoteAsset   string `json:"quoteAsset"`
}

func (s exchangeSymbol) tradable() bool {
	return s.Status == "TRADING" && s.ContractType == "PERPETUAL" && s.QuoteAsset == "USDT"
}

type tickerRow struct {
	Symbol             string           `json:"symbol"`
	LastPrice          decimalx.Lenient `json:"lastPrice"`
	OpenPrice          decimalx.Lenient `json:"openPrice"`
	HighPrice          decimalx.Lenient `json:"highPrice"`
	LowPrice           decimalx.Lenient `json:"lowPrice"`
	Volume             decimalx.Lenient `json:"volume"`
	QuoteVolume        decimalx.Lenient `json:"quoteVolume"`
	PriceChangePercent decimalx.Lenient `json:"priceChangePercent"`
}

// FetchInstrumentSymbols returns the currently tradable USDT perpetual set.
func (c *Client) FetchInstrumentSymbols(ctx context.Context) (map[string]struct{}, error) {
	var info exchangeInfoResp
	err := c.get(ctx, "fetchInstrumentSymbols", pathExchangeInfo, nil, func(body []byte) error {
		return json.Unmarshal(body, &info)
	})
	if err != nil {
		return nil, err
	}

	tradable := lo.Filter(info.Symbols, func(item exchangeSymbol, index int) bool {
		return item.tradable()
	})
	if len(tradable) == 0 {
		slog.Warn("exchange info returned no tradable symbols")
	}
	return lo.SliceToMap(tradable, func(item exchangeSymbol) (string, struct{}) {
		return item.Symbol, struct{}{}
	}), nil
}

// FetchAllTickers returns a 24h snapshot for every tradable instrument.
// Tickers for delisted or non-trading symbols are silently dropped.
func (c *Client) FetchAllTickers(ctx context.Context) ([]market.TickData, error) {
	symbols, err := c.FetchInstrumentSymbols(ctx)
	if err != nil {
		return nil, err
	}

	var rows []tickerRow
	err = c.get(ctx, "fetchAllTickers", pathTicker24h, nil, func(body []byte) error {
		return json.Unmarshal(body, &rows)
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	active := lo.Filter(rows, func(item tickerRow, index int) bool {
		_, ok := symbols[item.Symbol]
		return ok
	})
	ticks := lo.Map(active, func(item tickerRow, index int) market.TickData {
		return market.TickData{
			Symbol:        item.Symbol,
			LastPrice:     item.LastPrice.Decimal,
			OpenPrice:     item.OpenPrice.Decimal,
			HighPrice:     item.HighPrice.Decimal,
			LowPrice:      item.LowPrice.Decimal,
			Volume:        item.Volume.Decimal,
			QuoteVolume:   item.QuoteVolume.Decimal,
			ChangePercent: item.PriceChangePercent.Decimal,
			CapturedAt:    now,
		}
	})
	if len(ticks) == 0 {
		slog.Warn("ticker snapshot is empty")
	}
	return ticks, nil
}

// FetchCandles loads klines for one symbol. Rows arrive as positional JSON
// arrays: [openTime, open, high, low, close, volume, closeTime, ...].
func (c *Client) FetchCandles(ctx context.Context, req market.FetchCandlesReq) ([]market.Candle, error) {
	params := map[string]string{
		"symbol": req.Symbol,
	}
	if req.Interval.ToString() != "" {
		params["interval"] = req.Interval.ToString()
	}
	if !req.StartTime.IsZero() {
		params["startTime"] = strconv.FormatInt(req.StartTime.UnixMilli(), 10)
	}
	if !req.EndTime.IsZero() {
		params["endTime"] = strconv.FormatInt(req.EndTime.UnixMilli(), 10)
	}
	if req.Limit > 0 {
		params["limit"] = strconv.Itoa(req.Limit)
	}

	var raw [][]json.RawMessage
	err := c.get(ctx, "fetchCandles", pathKlines, params, func(body []byte) error {
		return json.Unmarshal(body, &raw)
	})
	if err != nil {
		return nil, err
	}

	candles := make([]market.Candle, 0, len(raw))
	for _, row := range raw {
		if len(row) < 7 {
			continue
		}
		var openTime, closeTime int64
		if err := json.Unmarshal(row[0], &openTime); err != nil {
			continue
		}
		if err := json.Unmarshal(row[6], &closeTime); err != nil {
			continue
		}
		candles = append(candles, market.Candle{
			OpenTime:  time.UnixMilli(openTime),
			CloseTime: time.UnixMilli(closeTime),
			Open:      lenientField(row[1]),
			High:      lenientField(row[2]),
			Low:       lenientField(row[3]),
			Close:     lenientField(row[4]),
			Volume:    lenientField(row[5]),
		})
	}
	return candles, nil
}

func lenientField(raw json.RawMessage) decimal.Decimal {
	var l decimalx.Lenient
	_ = json.Unmarshal(raw, &l)
	return l.Decimal
}
