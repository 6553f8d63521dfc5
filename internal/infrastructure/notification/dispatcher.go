package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"hostelhub.backend/internal/domain/entities"
	"hostelhub.backend/internal/infrastructure/metrics"
	"hostelhub.backend/pkg/logger"
)

// ErrQueueFull is reported when an event is dropped because the buffer is full.
var ErrQueueFull = errors.New("notification queue full")

// Handler delivers one event to one sink.
type Handler func(ctx context.Context, event entities.NotificationEvent) error

type subscription struct {
	name    string
	types   map[entities.NotificationType]bool
	handler Handler
}

// Dispatcher fans events out to subscribed handlers on a background worker.
// Notify never blocks and never returns delivery errors; failures are
// logged and counted.
type Dispatcher struct {
	mu      sync.RWMutex
	subs    []subscription
	queue   chan queued
	metrics *metrics.Metrics
	timeout time.Duration

	closeMu sync.RWMutex
	closed  bool
	done    chan struct{}
}

type queued struct {
	ctx   context.Context
	event entities.NotificationEvent
}

// NewDispatcher starts a dispatcher with the given buffer size.
func NewDispatcher(buffer int, m *metrics.Metrics) *Dispatcher {
	if buffer <= 0 {
		buffer = 1
	}
	d := &Dispatcher{
		queue:   make(chan queued, buffer),
		metrics: m,
		timeout: 5 * time.Second,
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// Subscribe registers handler for the listed event types, or for every
// type when none are given.
func (d *Dispatcher) Subscribe(name string, handler Handler, types ...entities.NotificationType) {
	sub := subscription{name: name, handler: handler}
	if len(types) > 0 {
		sub.types = make(map[entities.NotificationType]bool, len(types))
		for _, t := range types {
			sub.types[t] = true
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs = append(d.subs, sub)
}

// Notify enqueues event for delivery.
func (d *Dispatcher) Notify(ctx context.Context, event entities.NotificationEvent) {
	d.closeMu.RLock()
	defer d.closeMu.RUnlock()
	if d.closed {
		d.fail(ctx, "dispatcher", event, errors.New("dispatcher closed"))
		return
	}

	// Keep request-scoped values for logging, drop the request's deadline.
	item := queued{ctx: context.WithoutCancel(ctx), event: event}
	select {
	case d.queue <- item:
	default:
		d.fail(ctx, "dispatcher", event, ErrQueueFull)
	}
}

// Close stops accepting events and waits for queued ones to be delivered
// or for ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.closeMu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.closeMu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for item := range d.queue {
		d.deliver(item.ctx, item.event)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, event entities.NotificationEvent) {
	d.mu.RLock()
	subs := append([]subscription(nil), d.subs...)
	d.mu.RUnlock()

	for _, sub := range subs {
		if sub.types != nil && !sub.types[event.Type] {
			continue
		}
		hctx, cancel := context.WithTimeout(ctx, d.timeout)
		err := safeCall(hctx, sub.handler, event)
		cancel()
		if err != nil {
			d.fail(ctx, sub.name, event, err)
		}
	}
}

func (d *Dispatcher) fail(ctx context.Context, sink string, event entities.NotificationEvent, err error) {
	d.metrics.IncrementNotificationFailure(string(event.Type))
	logger.Warn(ctx, "Notification delivery failed",
		zap.String("sink", sink),
		zap.String("type", string(event.Type)),
		zap.String("user_id", event.UserID.String()),
		zap.Error(err),
	)
}

func safeCall(ctx context.Context, h Handler, event entities.NotificationEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("notification handler panicked")
		}
	}()
	return h(ctx, event)
}
