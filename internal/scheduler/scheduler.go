// Package scheduler runs the polling loops that keep the pair roster,
// indicator snapshots and pair metadata fresh.
//
// Each loop is driven by a gocron interval job and protected by its own
// reentrancy guard: a tick that fires while the previous body is still
// running is skipped, never queued.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"

	"pumpwatch/internal/indicator"
	"pumpwatch/internal/logger"
	"pumpwatch/internal/metrics"
	"pumpwatch/internal/model"
)

// Loop names, used as log and metric labels.
const (
	LoopIngest     = "pair_ingest"
	LoopIndicators = "indicators"
	LoopMetadata   = "pair_metadata"
	LoopMarketCap  = "market_cap"
)

// Config tunes the loops. Zero values fall back to the defaults below,
// except MarketCapInterval where zero disables the loop.
type Config struct {
	IngestInterval    time.Duration
	IndicatorInterval time.Duration
	MetadataInterval  time.Duration
	MarketCapInterval time.Duration

	// Throttle is the delay between consecutive upstream calls inside a cycle.
	Throttle time.Duration

	RSIPeriod        int
	CandleLimit      int
	LongWindowFactor int
	MarketCapBatch   int
	Thresholds       indicator.Thresholds
}

func (c Config) withDefaults() Config {
	if c.IngestInterval <= 0 {
		c.IngestInterval = 15 * time.Second
	}
	if c.IndicatorInterval <= 0 {
		c.IndicatorInterval = 5 * time.Minute
	}
	if c.MetadataInterval <= 0 {
		c.MetadataInterval = 10 * time.Minute
	}
	if c.Throttle < 0 {
		c.Throttle = 0
	}
	if c.RSIPeriod <= 0 {
		c.RSIPeriod = indicator.DefaultRSIPeriod
	}
	if c.CandleLimit <= 0 {
		c.CandleLimit = 299
	}
	if c.LongWindowFactor <= 0 {
		c.LongWindowFactor = 12
	}
	if c.MarketCapBatch <= 0 {
		c.MarketCapBatch = 10
	}
	if c.Thresholds == (indicator.Thresholds{}) {
		c.Thresholds = indicator.DefaultThresholds
	}
	return c
}

// Deps are the collaborators the loops drive. Feed, Metrics and Health are
// optional; a nil Market disables the market-cap loop.
type Deps struct {
	Listing    model.ListingSource
	Pairs      model.PairSource
	Candles    model.CandleSource
	Market     model.MarketSnapshotSource
	PairStore  model.PairStore
	Indicators model.IndicatorStore
	Alerts     model.AlertSink
	Feed       model.FeedPublisher

	Metrics *metrics.Metrics
	Health  *metrics.HealthStatus
}

// ErrStopped is returned by Start once the scheduler has been stopped.
var ErrStopped = errors.New("scheduler: already stopped")

// CycleResult summarizes one loop body run.
type CycleResult struct {
	Processed int
	Succeeded int
	Failed    int
	Skipped   int
	Message   string
}

type loop struct {
	name     string
	interval time.Duration
	body     func(ctx context.Context) (CycleResult, error)
	running  atomic.Bool
}

// Scheduler owns the loops and their guards. Multiple schedulers can coexist.
type Scheduler struct {
	cfg  Config
	deps Deps
	cron *gocron.Scheduler
	now  func() time.Time

	loops []*loop
	byKey map[string]*loop

	mu      sync.Mutex
	base    context.Context
	started bool
	stopped bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

// New builds a scheduler. Nothing runs until Start.
func New(cfg Config, deps Deps) *Scheduler {
	s := &Scheduler{
		cfg:   cfg.withDefaults(),
		deps:  deps,
		cron:  gocron.NewScheduler(time.UTC),
		now:   time.Now,
		base:  context.Background(),
		stop:  make(chan struct{}),
		byKey: make(map[string]*loop),
	}

	s.register(LoopIngest, s.cfg.IngestInterval, s.ingestPairs)
	s.register(LoopIndicators, s.cfg.IndicatorInterval, s.refreshIndicators)
	s.register(LoopMetadata, s.cfg.MetadataInterval, s.refreshMetadata)
	if s.cfg.MarketCapInterval > 0 && deps.Market != nil {
		s.register(LoopMarketCap, s.cfg.MarketCapInterval, s.refreshMarketCaps)
	}
	return s
}

func (s *Scheduler) register(name string, every time.Duration, body func(context.Context) (CycleResult, error)) {
	l := &loop{name: name, interval: every, body: body}
	s.loops = append(s.loops, l)
	s.byKey[name] = l
}

// Loops returns the names of the registered loops.
func (s *Scheduler) Loops() []string {
	names := make([]string, len(s.loops))
	for i, l := range s.loops {
		names[i] = l.name
	}
	return names
}

// Start schedules every loop. A second call is a no-op; a call after Stop
// fails. ctx is the parent of every cycle context; cancelling it aborts
// in-flight calls, Stop does not.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return nil
	}

	s.base = ctx
	for _, l := range s.loops {
		l := l
		if _, err := s.cron.Every(l.interval).Do(func() { s.runGuarded(l) }); err != nil {
			s.cron.Clear()
			return fmt.Errorf("schedule %s: %w", l.name, err)
		}
		slog.Info("loop scheduled", "loop", l.name, "interval", l.interval.String())
	}
	s.cron.StartAsync()
	s.started = true
	if s.deps.Health != nil {
		s.deps.Health.SetSchedulerRunning(true)
	}
	return nil
}

// Stop halts the ticks, lets each running body finish its current item and
// waits for it to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.stop)
	s.mu.Unlock()

	s.cron.Stop()
	s.wg.Wait()
	if s.deps.Health != nil {
		s.deps.Health.SetSchedulerRunning(false)
	}
	slog.Info("scheduler stopped")
}

// RunOnce runs one guarded cycle of the named loop synchronously. Returns
// false if the loop is unknown, already running, or the scheduler is stopped.
func (s *Scheduler) RunOnce(name string) bool {
	l, ok := s.byKey[name]
	if !ok {
		return false
	}
	return s.runGuarded(l)
}

func (s *Scheduler) runGuarded(l *loop) bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	s.wg.Add(1)
	base := s.base
	s.mu.Unlock()
	defer s.wg.Done()

	if !l.running.CompareAndSwap(false, true) {
		slog.Warn("tick skipped: previous run still in progress", "loop", l.name)
		if s.deps.Metrics != nil {
			s.deps.Metrics.LoopSkipsTotal.WithLabelValues(l.name).Inc()
		}
		return false
	}
	defer l.running.Store(false)

	start := s.now()
	ctx := logger.WithCycle(base, l.name, start)
	res, err := l.body(ctx)
	elapsed := time.Since(start)

	s.record(l.name, res, err, elapsed)
	attrs := append(logger.Attrs(ctx),
		"processed", res.Processed,
		"succeeded", res.Succeeded,
		"failed", res.Failed,
		"skipped", res.Skipped,
		"duration_ms", elapsed.Milliseconds(),
	)
	if res.Message != "" {
		attrs = append(attrs, "message", res.Message)
	}
	if err != nil {
		slog.Error("cycle failed", append(attrs, "error", err)...)
	} else {
		slog.Info("cycle complete", attrs...)
	}
	return true
}

func (s *Scheduler) record(name string, res CycleResult, err error, elapsed time.Duration) {
	if m := s.deps.Metrics; m != nil {
		m.LoopRunsTotal.WithLabelValues(name, metrics.Outcome(err)).Inc()
		m.LoopDuration.WithLabelValues(name).Observe(elapsed.Seconds())
		m.LoopItemsTotal.WithLabelValues(name, "succeeded").Add(float64(res.Succeeded))
		m.LoopItemsTotal.WithLabelValues(name, "failed").Add(float64(res.Failed))
		m.LoopItemsTotal.WithLabelValues(name, "skipped").Add(float64(res.Skipped))
		if err == nil {
			m.LoopLastSuccess.WithLabelValues(name).Set(float64(s.now().Unix()))
		}
	}
	if err == nil && s.deps.Health != nil {
		s.deps.Health.MarkCycle(name, s.now())
	}
}

// throttle waits between upstream calls. Returns false once Stop was called.
func (s *Scheduler) throttle(ctx context.Context) bool {
	select {
	case <-s.stop:
		return false
	default:
	}
	if s.cfg.Throttle <= 0 {
		return true
	}
	t := time.NewTimer(s.cfg.Throttle)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-s.stop:
		return false
	case <-ctx.Done():
		return false
	}
}

// abortsCycle reports errors that make the rest of the batch pointless.
func abortsCycle(err error) bool {
	var cfgErr *model.ConfigurationError
	var storeErr *model.StoreUnavailableError
	return errors.As(err, &cfgErr) || errors.As(err, &storeErr)
}
