// Package notification delivers RSI alerts to external channels
// (Telegram, batch email, webhooks, the live feed).
package notification

import (
	"context"
	"log"
	"sync"
	"time"

	"pumpwatch/internal/model"
)

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Name identifies the channel in logs and metrics.
	Name() string

	// Send delivers an alert. An unconfigured channel returns nil without sending.
	Send(ctx context.Context, alert model.AlertEvent) error
}

// LogNotifier logs alerts (useful for development).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Name() string { return "log" }

func (n *LogNotifier) Send(ctx context.Context, alert model.AlertEvent) error {
	log.Printf("[notify] %s %s rsi5m=%s rsi1h=%s mc=%s ca=%s",
		alert.Action, alert.Symbol, alert.RSIShort, alert.RSILong, alert.MarketCap, alert.TokenContractAddress)
	return nil
}

const (
	defaultQueueSize   = 256
	defaultSendTimeout = 15 * time.Second
)

// Dispatcher fans alerts out to every notifier from a background worker.
// It implements model.AlertSink: Enqueue never blocks, and delivery errors
// are logged and reported through OnDelivery, never returned to the caller.
type Dispatcher struct {
	notifiers []Notifier
	queue     chan model.AlertEvent
	timeout   time.Duration

	// OnDelivery is called after each channel attempt (for metrics).
	OnDelivery func(channel string, err error)
	// OnDrop is called when the queue is full (for metrics).
	OnDrop func()

	startOnce sync.Once
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewDispatcher creates a dispatcher. queueSize <= 0 uses the default.
func NewDispatcher(queueSize int, notifiers ...Notifier) *Dispatcher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Dispatcher{
		notifiers: notifiers,
		queue:     make(chan model.AlertEvent, queueSize),
		timeout:   defaultSendTimeout,
	}
}

// SetSendTimeout bounds each channel attempt.
func (d *Dispatcher) SetSendTimeout(t time.Duration) { d.timeout = t }

// Start launches the worker. Calling it again is a no-op.
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		ctx, d.cancel = context.WithCancel(ctx)
		d.wg.Add(1)
		go d.run(ctx)
	})
}

// Stop stops the worker and waits for the in-flight alert to finish.
// Queued alerts that were not started are dropped.
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
}

// Enqueue hands an alert to the worker. Returns false if the queue is full.
func (d *Dispatcher) Enqueue(alert model.AlertEvent) bool {
	select {
	case d.queue <- alert:
		return true
	default:
		log.Printf("[notify] queue full, dropping alert for %s", alert.Symbol)
		if d.OnDrop != nil {
			d.OnDrop()
		}
		return false
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case alert := <-d.queue:
			d.Dispatch(ctx, alert)
		}
	}
}

// Dispatch delivers one alert to every notifier synchronously. A failing
// channel does not stop the others. Returns the number of channels that
// accepted the alert.
func (d *Dispatcher) Dispatch(ctx context.Context, alert model.AlertEvent) int {
	ok := 0
	for _, n := range d.notifiers {
		sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
		err := n.Send(sendCtx, alert)
		cancel()

		if err != nil {
			log.Printf("[notify] %s delivery failed for %s: %v", n.Name(), alert.Symbol, err)
		} else {
			ok++
		}
		if d.OnDelivery != nil {
			d.OnDelivery(n.Name(), err)
		}
	}
	return ok
}
