package ioc

import (
	"time"

	"github.com/KNICEX/market-sentry/internal/service/market"
	"github.com/KNICEX/market-sentry/internal/service/market/binance"
	"github.com/spf13/viper"
)

func InitMarketClient(metrics market.Metrics) *binance.Client {
	type Config struct {
		Endpoints        []string `mapstructure:"endpoints"`
		RequestSpacingMs int      `mapstructure:"request_spacing_ms"`
		MaxAttempts      int      `mapstructure:"max_attempts"`
	}

	var cfg Config
	if err := viper.UnmarshalKey("market", &cfg); err != nil {
		panic(err)
	}

	endpoints := cfg.Endpoints
	if len(endpoints) == 0 {
		endpoints = binance.DefaultEndpoints
	}

	opts := []binance.Option{
		binance.WithMetrics(metrics),
	}
	if cfg.RequestSpacingMs > 0 {
		opts = append(opts, binance.WithRequestSpacing(time.Duration(cfg.RequestSpacingMs)*time.Millisecond))
	}
	if cfg.MaxAttempts > 0 {
		opts = append(opts, binance.WithMaxAttempts(cfg.MaxAttempts))
	}

	cli, err := binance.NewClient(endpoints, opts...)
	if err != nil {
		panic(err)
	}
	return cli
}
