package checkout

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/imrishuroy/checkout-orderflow/internal/orders"
	"github.com/imrishuroy/checkout-orderflow/internal/provider"
)

const (
	DefaultPollTimeout  = 30 * time.Second
	DefaultPollInterval = 500 * time.Millisecond
)

// ErrPollTimeout is logged when an order does not settle before the poll deadline.
var ErrPollTimeout = errors.New("polling timed out")

// Clock abstracts time for the poller.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// StatusFetcher retrieves the current state of an order.
type StatusFetcher interface {
	GetOrderStatus(ctx context.Context, orderID string) (*provider.Order, error)
}

// OrderHandler receives every order the poller fetches.
type OrderHandler func(ctx context.Context, order *provider.Order)

// Poller re-fetches order status until the order is paid or failed, or the deadline passes.
// It runs at most one task per order.
type Poller struct {
	fetch    StatusFetcher
	handle   OrderHandler
	logger   *zap.Logger
	clock    Clock
	timeout  time.Duration
	interval time.Duration

	mu    sync.Mutex
	tasks map[string]*PollTask
}

type PollerOption func(*Poller)

func WithClock(c Clock) PollerOption {
	return func(p *Poller) { p.clock = c }
}

func WithPollTimeout(d time.Duration) PollerOption {
	return func(p *Poller) { p.timeout = d }
}

func WithPollInterval(d time.Duration) PollerOption {
	return func(p *Poller) { p.interval = d }
}

func NewPoller(fetch StatusFetcher, handle OrderHandler, logger *zap.Logger, opts ...PollerOption) *Poller {
	p := &Poller{
		fetch:    fetch,
		handle:   handle,
		logger:   logger,
		clock:    systemClock{},
		timeout:  DefaultPollTimeout,
		interval: DefaultPollInterval,
		tasks:    map[string]*PollTask{},
	}
	for _, o := range opts {
		o(p)
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	return p
}

// PollTask is a running poll for one order.
type PollTask struct {
	OrderID string

	cancel context.CancelFunc
	done   chan struct{}
	err    error
	last   *provider.Order
}

// Cancel stops the task after its in-flight fetch, if any.
func (t *PollTask) Cancel() { t.cancel() }

func (t *PollTask) Done() <-chan struct{} { return t.done }

// Wait blocks until the task stops and returns why: nil for a settled order,
// ErrPollTimeout, or the context error after Cancel.
func (t *PollTask) Wait() error {
	<-t.done
	return t.err
}

// Last returns the most recently fetched order. Only valid after Done is closed.
func (t *PollTask) Last() *provider.Order {
	<-t.done
	return t.last
}

// Start polls orderID in the background. If a task for orderID is still running it is
// returned instead of starting a second one.
func (p *Poller) Start(ctx context.Context, orderID string) *PollTask {
	p.mu.Lock()
	defer p.mu.Unlock()

	if t, ok := p.tasks[orderID]; ok {
		select {
		case <-t.done:
		default:
			return t
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	t := &PollTask{OrderID: orderID, cancel: cancel, done: make(chan struct{})}
	p.tasks[orderID] = t

	go func() {
		defer close(t.done)
		defer p.forget(t)
		defer cancel()
		t.err = p.run(ctx, t)
	}()
	return t
}

// forget drops t from the running set unless a newer task replaced it.
func (p *Poller) forget(t *PollTask) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tasks[t.OrderID] == t {
		delete(p.tasks, t.OrderID)
	}
}

func (p *Poller) run(ctx context.Context, t *PollTask) error {
	start := p.clock.Now()
	log := p.logger.With(zap.String("order_id", t.OrderID))

	for {
		order, err := p.fetch.GetOrderStatus(ctx, t.OrderID)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil && order == nil {
			err = ErrNoOrder
		}
		if err != nil {
			log.Warn("fetch order status", zap.Error(err))
		} else {
			t.last = order
			if p.handle != nil {
				p.handle(ctx, order)
			}
			if settled(order) {
				return nil
			}
		}

		if p.clock.Now().Sub(start) >= p.timeout {
			log.Warn("order status polling stopped", zap.Error(ErrPollTimeout),
				zap.Duration("timeout", p.timeout), zap.String("status", orders.Status(t.last)))
			return ErrPollTimeout
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.clock.After(p.interval):
		}
	}
}

func settled(o *provider.Order) bool {
	switch orders.Status(o) {
	case orders.StatusPaid, orders.StatusFailed:
		return true
	}
	return false
}
