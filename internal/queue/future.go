package queue

import (
	"context"
	"sync"
)

// Future is the pending result of a queued operation.
type Future struct {
	id    string
	done  chan struct{}
	once  sync.Once
	value any
	err   error
}

func newFuture(id string) *Future {
	return &Future{id: id, done: make(chan struct{})}
}

// ID returns the operation ID.
func (f *Future) ID() string { return f.id }

// Done is closed once the operation has settled.
func (f *Future) Done() <-chan struct{} { return f.done }

// Wait blocks until the operation settles or ctx is done. Giving up on ctx
// does not cancel the operation; it stays queued and runs later.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// settle records the outcome. Only the first call has any effect.
func (f *Future) settle(value any, err error) bool {
	settled := false
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
		settled = true
	})
	return settled
}
