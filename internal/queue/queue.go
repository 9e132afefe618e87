package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Work is one unit of staffing mutation. The returned value is delivered
// to the caller's Future.
type Work func(ctx context.Context) (any, error)

// Info describes a queued operation. It is what Status reports and what
// interceptors can read from the work context.
type Info struct {
	ID         string    `json:"id"`
	ActorID    string    `json:"actorId"`
	GuildID    string    `json:"guildId"`
	Elevated   bool      `json:"elevated"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// Status is a point-in-time view of the queue.
type Status struct {
	Length     int    `json:"length"`
	Processing bool   `json:"processing"`
	Current    *Info  `json:"current,omitempty"`
	Pending    []Info `json:"pending"`
}

type operation struct {
	info   Info
	ctx    context.Context
	work   Work
	future *Future
	timer  *time.Timer
}

// Queue serializes staffing operations. The zero value is not usable;
// construct with New.
type Queue struct {
	mu           sync.Mutex
	pending      []*operation
	current      *operation
	processing   bool
	timeout      time.Duration
	interceptors []Interceptor

	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// Option configures a Queue.
type Option func(*Queue)

// WithTimeout sets how long an operation may wait before it is rejected.
// Zero disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(q *Queue) { q.timeout = d }
}

// WithLogger sets the logger used for worker diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) { q.logger = l }
}

// WithClock overrides the clock used for EnqueuedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// WithIDGenerator overrides operation ID generation (default UUIDv7).
func WithIDGenerator(gen func() string) Option {
	return func(q *Queue) { q.newID = gen }
}

// WithInterceptors installs interceptors around every operation.
func WithInterceptors(i ...Interceptor) Option {
	return func(q *Queue) { q.interceptors = append(q.interceptors, i...) }
}

// New creates an idle queue.
func New(opts ...Option) *Queue {
	q := &Queue{
		logger: slog.Default(),
		now:    time.Now,
		newID:  func() string { return uuid.Must(uuid.NewV7()).String() },
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Use appends interceptors. They apply to operations enqueued afterwards;
// the first interceptor is the outermost.
func (q *Queue) Use(i ...Interceptor) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.interceptors = append(q.interceptors, i...)
}

// SetTimeout changes the wait timeout for operations enqueued afterwards.
func (q *Queue) SetTimeout(d time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.timeout = d
}

// Enqueue submits work and returns immediately. Elevated work is placed
// ahead of every ordinary operation still waiting, behind earlier elevated
// work.
//
// The work runs with a context that keeps ctx's values but not its
// cancellation: a caller that stops waiting does not abort queued work.
func (q *Queue) Enqueue(ctx context.Context, work Work, actorID, guildID string, elevated bool) *Future {
	if ctx == nil {
		ctx = context.Background()
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	op := &operation{
		info: Info{
			ID:         q.newID(),
			ActorID:    actorID,
			GuildID:    guildID,
			Elevated:   elevated,
			EnqueuedAt: q.now(),
		},
		work: chain(work, q.interceptors),
	}
	op.ctx = withInfo(context.WithoutCancel(ctx), op.info)
	op.future = newFuture(op.info.ID)

	q.insert(op)

	if q.timeout > 0 {
		timeout := q.timeout
		op.timer = time.AfterFunc(timeout, func() { q.expire(op, timeout) })
	}

	if !q.processing {
		q.processing = true
		go q.drain()
	}

	return op.future
}

// insert places op according to the ordering invariant. Caller holds mu.
func (q *Queue) insert(op *operation) {
	if !op.info.Elevated {
		q.pending = append(q.pending, op)
		return
	}
	idx := len(q.pending)
	for i, p := range q.pending {
		if !p.info.Elevated {
			idx = i
			break
		}
	}
	q.pending = append(q.pending, nil)
	copy(q.pending[idx+1:], q.pending[idx:])
	q.pending[idx] = op
}

// drain is the single worker. It runs operations until the list is empty.
func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.processing = false
			q.current = nil
			q.mu.Unlock()
			return
		}
		op := q.pending[0]
		// Nil out the slot so the backing array does not retain the operation.
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.current = op
		q.mu.Unlock()

		if op.timer != nil {
			op.timer.Stop()
		}

		value, err := q.run(op)
		if err != nil {
			q.logger.Debug("queued operation failed",
				"operation", op.info.ID,
				"actor", op.info.ActorID,
				"guild", op.info.GuildID,
				"error", err,
			)
		}
		op.future.settle(value, err)

		q.mu.Lock()
		q.current = nil
		q.mu.Unlock()
	}
}

// run executes one operation, turning a panic into an error so the worker
// keeps going.
func (q *Queue) run(op *operation) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("queued operation panicked",
				"operation", op.info.ID,
				"actor", op.info.ActorID,
				"panic", r,
			)
			value, err = nil, newPanicError(op, r)
		}
	}()
	return op.work(op.ctx)
}

// expire removes op if it is still waiting and rejects it.
func (q *Queue) expire(op *operation, waited time.Duration) {
	if !q.remove(op) {
		return
	}
	q.logger.Warn("queued operation timed out",
		"operation", op.info.ID,
		"actor", op.info.ActorID,
		"guild", op.info.GuildID,
		"waited", waited,
	)
	op.future.settle(nil, newTimeoutError(op, waited.String()))
}

func (q *Queue) remove(op *operation) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, p := range q.pending {
		if p == op {
			copy(q.pending[i:], q.pending[i+1:])
			q.pending[len(q.pending)-1] = nil
			q.pending = q.pending[:len(q.pending)-1]
			return true
		}
	}
	return false
}

// Len returns the number of operations waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Status returns the queue length, whether a worker is active and the
// waiting operations in run order.
func (q *Queue) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	st := Status{
		Length:     len(q.pending),
		Processing: q.processing,
		Pending:    make([]Info, 0, len(q.pending)),
	}
	if q.current != nil {
		cur := q.current.info
		st.Current = &cur
	}
	for _, op := range q.pending {
		st.Pending = append(st.Pending, op.info)
	}
	return st
}

// HasOperationsForUser reports whether actorID has an operation waiting
// or running.
func (q *Queue) HasOperationsForUser(actorID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.current != nil && q.current.info.ActorID == actorID {
		return true
	}
	for _, op := range q.pending {
		if op.info.ActorID == actorID {
			return true
		}
	}
	return false
}

// Clear rejects every waiting operation with ErrCodeCleared and returns how
// many were dropped. An operation already running is left to finish.
func (q *Queue) Clear() int {
	q.mu.Lock()
	dropped := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, op := range dropped {
		if op.timer != nil {
			op.timer.Stop()
		}
		op.future.settle(nil, newClearedError(op))
	}
	if len(dropped) > 0 {
		q.logger.Info("queue cleared", "dropped", len(dropped))
	}
	return len(dropped)
}

// Submit enqueues fn and waits for its typed result.
func Submit[T any](ctx context.Context, q *Queue, actorID, guildID string, elevated bool, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	f := q.Enqueue(ctx, func(ctx context.Context) (any, error) {
		return fn(ctx)
	}, actorID, guildID, elevated)
	v, err := f.Wait(ctx)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("queue: operation %s returned %T, want %T", f.ID(), v, zero)
	}
	return typed, nil
}
