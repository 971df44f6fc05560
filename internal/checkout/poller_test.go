package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/imrishuroy/checkout-orderflow/internal/orders"
	"github.com/imrishuroy/checkout-orderflow/internal/provider"
)

// fakeClock jumps forward by d on every After call.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

type fakeStatus struct {
	clock    Clock
	statuses []string // the last one repeats
	err      error
	release  chan struct{}

	mu          sync.Mutex
	calls       []time.Time
	inflight    int
	maxInflight int
}

func (f *fakeStatus) GetOrderStatus(ctx context.Context, id string) (*provider.Order, error) {
	f.mu.Lock()
	f.inflight++
	if f.inflight > f.maxInflight {
		f.maxInflight = f.inflight
	}
	f.calls = append(f.calls, f.clock.Now())
	n := len(f.calls)
	f.mu.Unlock()

	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
		}
	}

	f.mu.Lock()
	f.inflight--
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	status := f.statuses[len(f.statuses)-1]
	if n <= len(f.statuses) {
		status = f.statuses[n-1]
	}
	return orderWithStatus(status), nil
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)
	return zap.New(core), logs
}

func TestPoller_SpacingAndNoOverlap(t *testing.T) {
	clock := newFakeClock()
	fetch := &fakeStatus{clock: clock, statuses: []string{orders.StatusCreated}}
	logger, _ := observedLogger()

	p := NewPoller(fetch, nil, logger, WithClock(clock))
	err := p.Start(context.Background(), "or_1").Wait()
	require.ErrorIs(t, err, ErrPollTimeout)

	require.Greater(t, len(fetch.calls), 2)
	for i := 1; i < len(fetch.calls); i++ {
		gap := fetch.calls[i].Sub(fetch.calls[i-1])
		assert.GreaterOrEqual(t, gap, DefaultPollInterval, "call %d", i)
	}
	assert.Equal(t, 1, fetch.maxInflight)
}

func TestPoller_TimeoutLogsOnce(t *testing.T) {
	clock := newFakeClock()
	start := clock.Now()
	fetch := &fakeStatus{clock: clock, statuses: []string{orders.StatusPending}}
	logger, logs := observedLogger()

	var handled int
	p := NewPoller(fetch, func(ctx context.Context, o *provider.Order) { handled++ }, logger,
		WithClock(clock), WithPollTimeout(2*time.Second), WithPollInterval(300*time.Millisecond))

	task := p.Start(context.Background(), "or_1")
	require.ErrorIs(t, task.Wait(), ErrPollTimeout)

	last := fetch.calls[len(fetch.calls)-1]
	assert.LessOrEqual(t, last.Sub(start), 2*time.Second+300*time.Millisecond)
	assert.Equal(t, len(fetch.calls), handled)

	timeouts := logs.FilterMessage("order status polling stopped")
	require.Equal(t, 1, timeouts.Len())
	assert.Equal(t, zapcore.WarnLevel, timeouts.All()[0].Level)
	assert.Equal(t, orders.StatusPending, task.Last().Metadata["status"])
}

func TestPoller_StopsOnSettledOrder(t *testing.T) {
	for _, final := range []string{orders.StatusPaid, orders.StatusFailed} {
		t.Run(final, func(t *testing.T) {
			clock := newFakeClock()
			fetch := &fakeStatus{clock: clock, statuses: []string{orders.StatusCreated, orders.StatusPending, final}}
			logger, logs := observedLogger()

			var seen []string
			p := NewPoller(fetch, func(ctx context.Context, o *provider.Order) {
				seen = append(seen, orders.Status(o))
			}, logger, WithClock(clock))

			require.NoError(t, p.Start(context.Background(), "or_1").Wait())
			assert.Equal(t, []string{orders.StatusCreated, orders.StatusPending, final}, seen)
			assert.Zero(t, logs.FilterMessage("order status polling stopped").Len())
		})
	}
}

func TestPoller_CapturedIsNotFinal(t *testing.T) {
	clock := newFakeClock()
	fetch := &fakeStatus{clock: clock, statuses: []string{orders.StatusCaptured}}
	logger, _ := observedLogger()

	p := NewPoller(fetch, nil, logger, WithClock(clock), WithPollTimeout(time.Second))
	assert.ErrorIs(t, p.Start(context.Background(), "or_1").Wait(), ErrPollTimeout)
}

func TestPoller_FetchErrorsKeepPolling(t *testing.T) {
	clock := newFakeClock()
	fetch := &fakeStatus{clock: clock, err: errors.New("connection refused")}
	logger, logs := observedLogger()

	p := NewPoller(fetch, nil, logger, WithClock(clock), WithPollTimeout(time.Second), WithPollInterval(250*time.Millisecond))
	require.ErrorIs(t, p.Start(context.Background(), "or_1").Wait(), ErrPollTimeout)

	assert.Len(t, fetch.calls, 5)
	assert.Equal(t, 5, logs.FilterMessage("fetch order status").Len())
	assert.Equal(t, 1, logs.FilterMessage("order status polling stopped").Len())
}

func TestPoller_OneTaskPerOrderAndCancel(t *testing.T) {
	clock := newFakeClock()
	fetch := &fakeStatus{clock: clock, statuses: []string{orders.StatusCreated}, release: make(chan struct{})}
	logger, _ := observedLogger()

	p := NewPoller(fetch, nil, logger, WithClock(clock))
	first := p.Start(context.Background(), "or_1")
	second := p.Start(context.Background(), "or_1")
	assert.Same(t, first, second)

	first.Cancel()
	assert.ErrorIs(t, first.Wait(), context.Canceled)
	assert.Equal(t, 1, fetch.maxInflight)

	third := p.Start(context.Background(), "or_1")
	assert.NotSame(t, first, third)
	third.Cancel()
	<-third.Done()
}

func TestPoller_ForgetsFinishedTasks(t *testing.T) {
	clock := newFakeClock()
	fetch := &fakeStatus{clock: clock, statuses: []string{orders.StatusPaid}}
	logger, _ := observedLogger()

	p := NewPoller(fetch, nil, logger, WithClock(clock))
	for _, id := range []string{"or_1", "or_2", "or_1"} {
		require.NoError(t, p.Start(context.Background(), id).Wait())
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Empty(t, p.tasks)
}

type fetchFunc func(ctx context.Context, id string) (*provider.Order, error)

func (f fetchFunc) GetOrderStatus(ctx context.Context, id string) (*provider.Order, error) {
	return f(ctx, id)
}

func TestPoller_MissingOrderIsAFetchError(t *testing.T) {
	clock := newFakeClock()
	logger, logs := observedLogger()

	var handled int
	p := NewPoller(fetchFunc(func(ctx context.Context, id string) (*provider.Order, error) {
		return nil, nil
	}), func(ctx context.Context, o *provider.Order) { handled++ }, logger,
		WithClock(clock), WithPollTimeout(time.Second), WithPollInterval(500*time.Millisecond))

	require.ErrorIs(t, p.Start(context.Background(), "or_1").Wait(), ErrPollTimeout)
	assert.Zero(t, handled)
	assert.Equal(t, 3, logs.FilterMessage("fetch order status").Len())
}
