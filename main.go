package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/KNICEX/market-sentry/internal/entity"
	"github.com/KNICEX/market-sentry/internal/repo"
	"github.com/KNICEX/market-sentry/internal/service/alert"
	"github.com/KNICEX/market-sentry/internal/service/market"
	"github.com/KNICEX/market-sentry/internal/service/monitor"
	"github.com/KNICEX/market-sentry/internal/service/notification"
	"github.com/KNICEX/market-sentry/ioc"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func initViper() {

	// --config=./config/xxx.yaml
	file := pflag.String("config", "./config/config.dev.yaml", "specify config file")
	pflag.Parse()

	viper.SetConfigFile(*file)
	err := viper.ReadInConfig()
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s \n", err))
	}
}

// gormLogSink bridges the dispatch pipeline's audit records into the gorm
// repo.
type gormLogSink struct {
	repo repo.AlertLogRepo
}

func (s gormLogSink) Append(ctx context.Context, entry alert.Log) error {
	_, err := s.repo.Append(ctx, entity.AlertLog{
		Symbol:        entry.Symbol,
		Kind:          string(entry.Kind),
		Content:       entry.Text,
		Price:         entry.Price.String(),
		ChangePercent: entry.ChangePercent.StringFixed(2),
		Volume:        entry.Volume.String(),
		Sent:          entry.Sent,
		Error:         entry.Error,
		TriggeredAt:   entry.Timestamp,
	})
	return err
}

func loadConfig(ctx context.Context, store *monitor.ConfigStore) monitor.BreakthroughConfig {
	cfg, err := store.Load(ctx, monitor.ConfigName)
	if err == nil {
		return cfg
	}
	if !errors.Is(err, repo.ErrConfigNotFound) {
		panic(err)
	}

	cfg = monitor.DefaultConfig()
	cfg.Notification.WebhookURL = viper.GetString("notify.webhook_url")
	cfg.Notification.MessageTemplate = viper.GetString("notify.message_template")
	if err := store.Save(ctx, monitor.ConfigName, cfg); err != nil {
		slog.Error("failed to persist default config", "error", err)
	}
	return cfg
}

func main() {
	initViper()

	db := ioc.InitDB()
	if err := repo.InitTables(db); err != nil {
		panic(err)
	}

	metrics := market.NewLogMetrics()
	marketCli := ioc.InitMarketClient(metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := monitor.NewConfigStore(repo.NewConfigRepo(db))
	cfg := loadConfig(ctx, store)

	pipeline := alert.NewPipeline(
		notification.NewWebhookService(),
		cfg.Notification,
		alert.WithLogSink(gormLogSink{repo: repo.NewAlertLogRepo(db)}),
	)

	engine := monitor.NewEngine(marketCli, pipeline, cfg)
	unsubscribe := engine.Subscribe(monitor.ConsoleSubscriber{})
	defer unsubscribe()

	if err := engine.Start(); err != nil {
		panic(err)
	}

	<-ctx.Done()
	slog.Info("shutdown signal received")

	done := make(chan struct{})
	go func() {
		engine.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		slog.Warn("engine did not stop in time")
	}
}
