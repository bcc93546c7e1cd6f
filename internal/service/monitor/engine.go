package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KNICEX/market-sentry/internal/schedule"
	"github.com/KNICEX/market-sentry/internal/service/market"
	"github.com/shopspring/decimal"
)

// Dispatcher is the alert pipeline as the engine sees it: events go in on the
// poll loop, the flush loop asks it to deliver once the summary window passed.
type Dispatcher interface {
	Enqueue(event BreakthroughEvent)
	FlushIfDue(ctx context.Context, window time.Duration) bool
	Reset(now time.Time)
}

const (
	defaultPollInterval  = time.Second
	defaultFlushInterval = time.Second
	defaultCycleBackoff  = 5 * time.Second
)

var hundred = decimal.NewFromInt(100)

// Engine polls the market, evaluates breakthrough rules per instrument and
// feeds triggered events to subscribers and the dispatcher.
type Engine struct {
	marketSvc  market.MarketService
	dispatcher Dispatcher

	mu     sync.RWMutex
	cfg    BreakthroughConfig
	status Status
	cancel context.CancelFunc
	wg     sync.WaitGroup

	subMu   sync.Mutex
	subs    map[int64]Subscriber
	nextSub int64

	arena    *stateArena
	inFlight atomic.Bool

	pollInterval  time.Duration
	flushInterval time.Duration
	cycleBackoff  time.Duration
	now           func() time.Time
}

type EngineOption func(e *Engine)

func WithPollInterval(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.pollInterval = d
	}
}

func WithFlushInterval(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.flushInterval = d
	}
}

func WithCycleBackoff(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.cycleBackoff = d
	}
}

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

func NewEngine(marketSvc market.MarketService, dispatcher Dispatcher, cfg BreakthroughConfig, opts ...EngineOption) *Engine {
	e := &Engine{
		marketSvc:     marketSvc,
		dispatcher:    dispatcher,
		cfg:           cfg,
		status:        StatusStopped,
		subs:          make(map[int64]Subscriber),
		arena:         newStateArena(),
		pollInterval:  defaultPollInterval,
		flushInterval: defaultFlushInterval,
		cycleBackoff:  defaultCycleBackoff,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Subscribe registers a subscriber and returns its unsubscribe func.
func (e *Engine) Subscribe(sub Subscriber) func() {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	e.nextSub++
	id := e.nextSub
	e.subs[id] = sub
	return func() {
		e.subMu.Lock()
		delete(e.subs, id)
		e.subMu.Unlock()
	}
}

func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

// Start validates the configuration and launches the poll and flush loops.
// An invalid configuration is fatal: the engine lands in Error status and the
// only way out is another Start with a valid config.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.status == StatusRunning {
		e.mu.Unlock()
		return fmt.Errorf("engine already running")
	}

	if err := e.cfg.Validate(); err != nil {
		e.status = StatusError
		e.mu.Unlock()
		e.publishError(err)
		e.publishStatus(StatusError)
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.status = StatusRunning
	e.mu.Unlock()

	e.dispatcher.Reset(e.now())

	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		schedule.Every(ctx, e.pollInterval, e.cycleBackoff, schedule.TaskFunc{
			TaskName: "breakthrough poll",
			Fn:       e.runCycle,
		})
	}()
	go func() {
		defer e.wg.Done()
		schedule.Every(ctx, e.flushInterval, e.cycleBackoff, schedule.TaskFunc{
			TaskName: "alert flush",
			Fn:       e.runFlush,
		})
	}()

	e.publishStatus(StatusRunning)
	slog.Info("breakthrough engine started",
		"poll_interval", e.pollInterval, "summary_window", e.configCopy().SummaryWindow())
	return nil
}

// Stop cancels both loops and waits for them to exit. Queued alerts are not
// flushed.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.status != StatusRunning {
		e.mu.Unlock()
		return
	}
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()

	cancel()
	e.wg.Wait()

	e.mu.Lock()
	e.status = StatusStopped
	e.mu.Unlock()

	e.publishStatus(StatusStopped)
	slog.Info("breakthrough engine stopped")
}

// UpdateConfig swaps the configuration wholesale; it takes effect on the next
// poll cycle.
func (e *Engine) UpdateConfig(cfg BreakthroughConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
	slog.Info("breakthrough config updated", "version", cfg.Version)
	return nil
}

func (e *Engine) configCopy() BreakthroughConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// runCycle is one poll pass: fetch a snapshot, evaluate every instrument,
// publish and enqueue whatever triggered.
func (e *Engine) runCycle(ctx context.Context) error {
	if !e.inFlight.CompareAndSwap(false, true) {
		return nil
	}
	defer e.inFlight.Store(false)

	ticks, err := e.marketSvc.FetchAllTickers(ctx)
	if err != nil {
		err = fmt.Errorf("fetch ticker snapshot: %w", err)
		e.publishError(err)
		return err
	}
	if len(ticks) == 0 {
		slog.Debug("empty ticker snapshot, skipping cycle")
		return nil
	}

	cfg := e.configCopy()
	rules := newRuleSet(cfg)
	windowDays := rules.windowDays()

	triggered := 0
	for _, tick := range ticks {
		for _, event := range e.evaluate(tick, rules, windowDays) {
			triggered++
			e.publishBreakthrough(event)
			e.dispatcher.Enqueue(event)
		}
	}
	slog.Debug("poll cycle done",
		"instruments", len(ticks), "triggered", triggered,
		"up_thresholds", len(rules.up), "down_thresholds", len(rules.down),
		"high_windows", len(rules.highWindows), "low_windows", len(rules.lowWindows))
	return nil
}

func (e *Engine) runFlush(ctx context.Context) error {
	e.dispatcher.FlushIfDue(ctx, e.configCopy().SummaryWindow())
	return nil
}

// evaluate runs every rule against one instrument and advances its rolling
// state. First sight of a symbol only seeds the state.
func (e *Engine) evaluate(tick market.TickData, rules ruleSet, windowDays []int) []BreakthroughEvent {
	price := tick.LastPrice
	st, known := e.arena.observe(tick.Symbol, price, windowDays)
	if !known {
		return nil
	}

	var events []BreakthroughEvent
	ts := e.now()

	if st.lastPrice.IsPositive() {
		change := price.Sub(st.lastPrice).Div(st.lastPrice).Mul(hundred)
		for _, th := range rules.up {
			if change.GreaterThanOrEqual(th.Value) {
				events = append(events, BreakthroughEvent{
					Symbol:        tick.Symbol,
					Kind:          EventPercentUp,
					Price:         price,
					Threshold:     th.Value,
					ChangePercent: change,
					Volume:        tick.Volume,
					Description:   th.Description,
					Timestamp:     ts,
				})
			}
		}
		for _, th := range rules.down {
			if change.LessThanOrEqual(th.Value) {
				events = append(events, BreakthroughEvent{
					Symbol:        tick.Symbol,
					Kind:          EventPercentDown,
					Price:         price,
					Threshold:     th.Value,
					ChangePercent: change,
					Volume:        tick.Volume,
					Description:   th.Description,
					Timestamp:     ts,
				})
			}
		}
	}

	// extremum checks run against the pre-update values; the crossed extremum
	// is recorded on the event before the state absorbs the new price
	for _, w := range rules.highWindows {
		prev, ok := st.highByWindow[w.Days]
		if ok && prev.IsPositive() && price.GreaterThan(prev) {
			events = append(events, BreakthroughEvent{
				Symbol:        tick.Symbol,
				Kind:          EventNewHigh,
				Price:         price,
				Threshold:     prev,
				ChangePercent: price.Sub(prev).Div(prev).Mul(hundred),
				Volume:        tick.Volume,
				Description:   w.Description,
				WindowDays:    w.Days,
				Timestamp:     ts,
			})
		}
	}
	for _, w := range rules.lowWindows {
		prev, ok := st.lowByWindow[w.Days]
		if ok && prev.IsPositive() && price.LessThan(prev) {
			events = append(events, BreakthroughEvent{
				Symbol:        tick.Symbol,
				Kind:          EventNewLow,
				Price:         price,
				Threshold:     prev,
				ChangePercent: price.Sub(prev).Div(prev).Mul(hundred),
				Volume:        tick.Volume,
				Description:   w.Description,
				WindowDays:    w.Days,
				Timestamp:     ts,
			})
		}
	}

	st.updateExtrema(price, windowDays)
	st.lastPrice = price
	return events
}

func (e *Engine) snapshotSubs() []Subscriber {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	subs := make([]Subscriber, 0, len(e.subs))
	for _, s := range e.subs {
		subs = append(subs, s)
	}
	return subs
}

func (e *Engine) publishBreakthrough(event BreakthroughEvent) {
	for _, s := range e.snapshotSubs() {
		s.OnBreakthrough(event)
	}
}

func (e *Engine) publishStatus(status Status) {
	for _, s := range e.snapshotSubs() {
		s.OnStatusChange(status)
	}
}

func (e *Engine) publishError(err error) {
	for _, s := range e.snapshotSubs() {
		s.OnError(err)
	}
}

// ConsoleSubscriber logs every notification, the default when nothing else is
// registered.
type ConsoleSubscriber struct{}

func (ConsoleSubscriber) OnBreakthrough(event BreakthroughEvent) {
	slog.Info("breakthrough detected",
		"symbol", event.Symbol, "kind", event.Kind,
		"price", event.Price, "change_percent", event.ChangePercent.StringFixed(2))
}

func (ConsoleSubscriber) OnStatusChange(status Status) {
	slog.Info("engine status changed", "status", status)
}

func (ConsoleSubscriber) OnError(err error) {
	slog.Error("engine error", "error", err)
}
