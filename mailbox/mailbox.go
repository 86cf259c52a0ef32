package mailbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/errors"
)

// DefaultCapacity is the queue length of a mailbox.
const DefaultCapacity = 128

const instrumentationName = "github.com/wippyai/opc-classic/mailbox"

type options struct {
	capacity int
	timeout  time.Duration
	meter    metric.MeterProvider
}

// Option configures a Mailbox.
type Option func(*options)

// WithCapacity sets the queue length. Values below 1 select
// DefaultCapacity.
func WithCapacity(n int) Option {
	return func(o *options) { o.capacity = n }
}

// WithTimeout bounds how long Call waits for a reply. Zero waits for as
// long as the caller's context allows.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithMeterProvider sets the provider of the queue depth instrument.
// Defaults to the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meter = mp }
}

// Mailbox owns an object of type T on a dedicated, apartment-initialized
// worker. It is safe for concurrent use.
type Mailbox[T any] struct {
	name    string
	timeout time.Duration
	reqs    chan func(T)
	done    chan struct{}

	mu     sync.RWMutex
	closed bool

	depth metric.Int64UpDownCounter
	attrs metric.MeasurementOption
}

// Start launches a worker, enters the apartment on its thread and calls
// init there to build the object. release, when not nil, runs on the
// worker after the last request once the mailbox is closed. An init
// failure is returned and no worker is left running.
func Start[T any](name string, init func() (T, error), release func(T), opts ...Option) (*Mailbox[T], error) {
	o := options{capacity: DefaultCapacity, meter: otel.GetMeterProvider()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.capacity < 1 {
		o.capacity = DefaultCapacity
	}

	m := &Mailbox[T]{
		name:    name,
		timeout: o.timeout,
		reqs:    make(chan func(T), o.capacity),
		done:    make(chan struct{}),
		attrs:   metric.WithAttributes(attribute.String("opcda.mailbox", name)),
	}
	depth, err := o.meter.Meter(instrumentationName).Int64UpDownCounter("opcda.mailbox.depth",
		metric.WithUnit("{request}"),
		metric.WithDescription("Requests queued on a mailbox worker"),
	)
	if err != nil || depth == nil {
		Logger().Warn("mailbox depth instrument unavailable",
			zap.String("mailbox", name),
			zap.Error(err))
		depth = noop.Int64UpDownCounter{}
	}
	m.depth = depth

	ready := make(chan error, 1)
	go m.run(init, release, ready)
	if err := <-ready; err != nil {
		return nil, err
	}
	Logger().Debug("mailbox started",
		zap.String("mailbox", name),
		zap.Int("capacity", o.capacity))
	return m, nil
}

func (m *Mailbox[T]) run(init func() (T, error), release func(T), ready chan<- error) {
	defer close(m.done)

	apt, err := com.Enter()
	if err != nil {
		ready <- err
		return
	}
	defer apt.Release()

	obj, err := init()
	if err != nil {
		ready <- err
		return
	}
	ready <- nil
	if tid, ok := com.ThreadID(); ok {
		Logger().Debug("mailbox worker pinned",
			zap.String("mailbox", m.name),
			zap.Uint64("thread", tid))
	}

	for job := range m.reqs {
		m.depth.Add(context.Background(), -1, m.attrs)
		job(obj)
	}
	if release != nil {
		release(obj)
	}
	Logger().Debug("mailbox stopped", zap.String("mailbox", m.name))
}

// Name returns the name given to Start.
func (m *Mailbox[T]) Name() string { return m.name }

// Done is closed when the worker has exited.
func (m *Mailbox[T]) Done() <-chan struct{} { return m.done }

// Close stops accepting requests, lets the worker finish the queued ones,
// runs release and waits for the worker to exit. Close is idempotent.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.reqs)
	}
	m.mu.Unlock()
	<-m.done
}

// send enqueues job. It blocks while the queue is full.
func (m *Mailbox[T]) send(ctx context.Context, job func(T)) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return errors.MailboxClosed(m.name)
	}
	if err := ctx.Err(); err != nil {
		return errors.Cancelled(errors.PhaseMailbox, err)
	}
	m.depth.Add(ctx, 1, m.attrs)
	select {
	case m.reqs <- job:
		return nil
	case <-ctx.Done():
		m.depth.Add(ctx, -1, m.attrs)
		return errors.Cancelled(errors.PhaseMailbox, ctx.Err())
	}
}

// Future is the pending reply of a submitted request.
type Future[R any] struct {
	done chan struct{}
	val  R
	err  error
}

func (f *Future[R]) resolve(v R, err error) {
	f.val, f.err = v, err
	close(f.done)
}

// Done is closed once the reply is available.
func (f *Future[R]) Done() <-chan struct{} { return f.done }

// Wait returns the reply, or a cancelled error if ctx ends first.
func (f *Future[R]) Wait(ctx context.Context) (R, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero R
		return zero, errors.Cancelled(errors.PhaseMailbox, ctx.Err())
	}
}

// Submit queues fn for execution on the worker and returns its future. A
// panic in fn is recovered and reported as the reply's error.
func Submit[T, R any](ctx context.Context, m *Mailbox[T], fn func(T) (R, error)) (*Future[R], error) {
	f := &Future[R]{done: make(chan struct{})}
	job := func(obj T) {
		var (
			v   R
			err error
		)
		defer func() {
			if r := recover(); r != nil {
				Logger().Error("mailbox request panicked",
					zap.String("mailbox", m.name),
					zap.Any("panic", r))
				err = errors.New(errors.PhaseMailbox, errors.KindForeign).
					Detail("request panicked: %v", r).
					Build()
			}
			f.resolve(v, err)
		}()
		v, err = fn(obj)
	}
	if err := m.send(ctx, job); err != nil {
		return nil, err
	}
	return f, nil
}

// Call submits fn and waits for its reply, bounded by ctx and the
// mailbox timeout.
func Call[T, R any](ctx context.Context, m *Mailbox[T], fn func(T) (R, error)) (R, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	f, err := Submit(ctx, m, fn)
	if err != nil {
		var zero R
		return zero, err
	}
	return f.Wait(ctx)
}

// Do is Call for requests without a result.
func Do[T any](ctx context.Context, m *Mailbox[T], fn func(T) error) error {
	_, err := Call(ctx, m, func(obj T) (struct{}, error) {
		return struct{}{}, fn(obj)
	})
	return err
}

func (m *Mailbox[T]) String() string {
	return fmt.Sprintf("mailbox(%s)", m.name)
}
