package alert

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/KNICEX/market-sentry/internal/service/monitor"
	"github.com/KNICEX/market-sentry/internal/service/notification"
)

var _ monitor.Dispatcher = (*Pipeline)(nil)

// Pipeline accumulates alert messages and flushes them as one batch per
// summary window. Producers only touch the mutex-guarded queue; delivery
// never blocks an enqueue.
type Pipeline struct {
	webhook notification.WebhookService
	logSink LogSink

	mu          sync.Mutex
	queue       []Message
	notifyCfg   monitor.NotificationConfig
	lastSummary time.Time

	now func() time.Time
}

type PipelineOption func(p *Pipeline)

func WithLogSink(sink LogSink) PipelineOption {
	return func(p *Pipeline) {
		p.logSink = sink
	}
}

func WithPipelineClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		p.now = now
	}
}

func NewPipeline(webhook notification.WebhookService, notifyCfg monitor.NotificationConfig, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		webhook:   webhook,
		logSink:   NopLogSink{},
		notifyCfg: notifyCfg,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.lastSummary = p.now()
	return p
}

// UpdateNotificationConfig swaps delivery settings; takes effect on the next
// flush.
func (p *Pipeline) UpdateNotificationConfig(cfg monitor.NotificationConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifyCfg = cfg
}

// Reset restarts the summary window, typically at engine start.
func (p *Pipeline) Reset(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastSummary = now
}

// Enqueue renders the event into a message and appends it to the queue.
func (p *Pipeline) Enqueue(event monitor.BreakthroughEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, Message{
		Symbol:        event.Symbol,
		Text:          Render(p.notifyCfg.MessageTemplate, event),
		Kind:          event.Kind,
		Price:         event.Price,
		ChangePercent: event.ChangePercent,
		Volume:        event.Volume,
		Timestamp:     event.Timestamp,
	})
}

// QueueLen reports the number of pending messages.
func (p *Pipeline) QueueLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// FlushIfDue drains and delivers the queue once the summary window elapsed.
// A failed batch is put back at the head of the queue and retried one window
// later; ordering against messages that arrived meanwhile is not guaranteed.
func (p *Pipeline) FlushIfDue(ctx context.Context, window time.Duration) bool {
	p.mu.Lock()
	now := p.now()
	if now.Sub(p.lastSummary) < window {
		p.mu.Unlock()
		return false
	}
	batch := p.queue
	p.queue = nil
	p.lastSummary = now
	p.mu.Unlock()

	if len(batch) == 0 {
		return false
	}

	if p.SendBatch(ctx, batch) {
		return true
	}

	p.mu.Lock()
	p.queue = append(batch, p.queue...)
	p.mu.Unlock()
	return false
}

// SendBatch delivers messages one at a time; failures are independent and a
// partial failure makes the whole batch report false. Every attempt lands in
// the audit log.
func (p *Pipeline) SendBatch(ctx context.Context, batch []Message) bool {
	p.mu.Lock()
	cfg := p.notifyCfg
	p.mu.Unlock()

	if cfg.WebhookURL == "" {
		slog.Warn("webhook url not configured, dropping flush", "batch_size", len(batch))
		return false
	}

	allOK := true
	for _, msg := range batch {
		err := p.sendOne(ctx, cfg, msg)
		p.appendLog(ctx, Log{
			Message: msg,
			Sent:    err == nil,
			Error:   errText(err),
		})
		if err != nil {
			allOK = false
			slog.Error("alert delivery failed",
				"symbol", msg.Symbol, "kind", msg.Kind, "error", err)
		}
	}
	return allOK
}

// sendOne posts one message, retrying per the notification settings.
func (p *Pipeline) sendOne(ctx context.Context, cfg monitor.NotificationConfig, msg Message) error {
	body := map[string]any{
		"content":   msg.Text,
		"timestamp": p.now().Format(TimeLayout),
	}

	var err error
	attempts := cfg.RetryCount + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		err = p.webhook.Send(ctx, cfg.WebhookURL, body)
		if err == nil {
			return nil
		}
		if attempt == attempts || ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.RetryInterval):
		}
	}
	return err
}

func (p *Pipeline) appendLog(ctx context.Context, entry Log) {
	if err := p.logSink.Append(ctx, entry); err != nil {
		slog.Error("failed to append alert audit log",
			"symbol", entry.Symbol, "error", err)
	}
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
