package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/staffsync/internal/audit"
)

// gate blocks the worker until released, so tests can stage the pending list.
type gate struct {
	started chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{started: make(chan struct{}), release: make(chan struct{})}
}

func (g *gate) work(ctx context.Context) (any, error) {
	close(g.started)
	<-g.release
	return "gate", nil
}

func waitDone(t *testing.T, f *Future) (any, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v, err := f.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded, "operation never settled")
	return v, err
}

func TestQueue_ElevatedRunsFirst(t *testing.T) {
	q := New()
	ctx := context.Background()
	g := newGate()
	blocker := q.Enqueue(ctx, g.work, "system", "g", false)
	<-g.started

	var mu sync.Mutex
	var order []string
	record := func(name string) Work {
		return func(context.Context) (any, error) {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return name, nil
		}
	}

	futures := []*Future{
		q.Enqueue(ctx, record("normal1"), "user", "g", false),
		q.Enqueue(ctx, record("owner1"), "owner", "g", true),
		q.Enqueue(ctx, record("owner2"), "owner", "g", true),
		q.Enqueue(ctx, record("normal2"), "user", "g", false),
	}

	st := q.Status()
	assert.Equal(t, 4, st.Length)
	assert.True(t, st.Processing)
	require.NotNil(t, st.Current)
	assert.Equal(t, "system", st.Current.ActorID)

	close(g.release)
	_, err := waitDone(t, blocker)
	require.NoError(t, err)
	for _, f := range futures {
		_, err := waitDone(t, f)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"owner1", "owner2", "normal1", "normal2"}, order)
}

func TestQueue_ElevatedDoesNotPreemptRunning(t *testing.T) {
	q := New()
	ctx := context.Background()

	var mu sync.Mutex
	var order []string
	started := make(chan struct{})
	release := make(chan struct{})
	normal1 := q.Enqueue(ctx, func(context.Context) (any, error) {
		close(started)
		<-release
		mu.Lock()
		defer mu.Unlock()
		order = append(order, "normal1")
		return nil, nil
	}, "user", "g", false)
	<-started

	record := func(name string) Work {
		return func(context.Context) (any, error) {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return name, nil
		}
	}
	futures := []*Future{
		normal1,
		q.Enqueue(ctx, record("owner1"), "owner", "g", true),
		q.Enqueue(ctx, record("owner2"), "owner", "g", true),
		q.Enqueue(ctx, record("normal2"), "user", "g", false),
	}

	close(release)
	for _, f := range futures {
		_, err := waitDone(t, f)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"normal1", "owner1", "owner2", "normal2"}, order)
}

func TestQueue_FailureIsolation(t *testing.T) {
	q := New()
	ctx := context.Background()
	boom := errors.New("boom")

	f1 := q.Enqueue(ctx, func(context.Context) (any, error) { return nil, boom }, "a", "g", false)
	f2 := q.Enqueue(ctx, func(context.Context) (any, error) { panic("kaboom") }, "a", "g", false)
	f3 := q.Enqueue(ctx, func(context.Context) (any, error) { return 42, nil }, "a", "g", false)

	_, err := waitDone(t, f1)
	assert.ErrorIs(t, err, boom)

	_, err = waitDone(t, f2)
	assert.True(t, IsPanic(err))

	v, err := waitDone(t, f3)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestQueue_Clear(t *testing.T) {
	q := New()
	ctx := context.Background()
	g := newGate()
	running := q.Enqueue(ctx, g.work, "a", "g", false)
	<-g.started

	f1 := q.Enqueue(ctx, func(context.Context) (any, error) { return 1, nil }, "b", "g", false)
	f2 := q.Enqueue(ctx, func(context.Context) (any, error) { return 2, nil }, "c", "g", true)

	assert.Equal(t, 2, q.Clear())
	assert.Equal(t, 0, q.Len())

	_, err := waitDone(t, f1)
	assert.True(t, IsCleared(err))
	_, err = waitDone(t, f2)
	assert.True(t, IsCleared(err))

	close(g.release)
	v, err := waitDone(t, running)
	require.NoError(t, err)
	assert.Equal(t, "gate", v)
}

func TestQueue_Timeout(t *testing.T) {
	q := New(WithTimeout(20 * time.Millisecond))
	ctx := context.Background()
	g := newGate()
	running := q.Enqueue(ctx, g.work, "a", "g", false)
	<-g.started

	ran := false
	waiting := q.Enqueue(ctx, func(context.Context) (any, error) { ran = true; return nil, nil }, "b", "g", false)

	_, err := waitDone(t, waiting)
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	assert.Equal(t, 0, q.Len())

	close(g.release)
	_, err = waitDone(t, running)
	require.NoError(t, err, "running operations are not subject to the timeout")
	assert.False(t, ran)
}

func TestQueue_HasOperationsForUser(t *testing.T) {
	q := New()
	ctx := context.Background()
	g := newGate()
	running := q.Enqueue(ctx, g.work, "alice", "g", false)
	<-g.started
	pending := q.Enqueue(ctx, func(context.Context) (any, error) { return nil, nil }, "bob", "g", false)

	assert.True(t, q.HasOperationsForUser("alice"))
	assert.True(t, q.HasOperationsForUser("bob"))
	assert.False(t, q.HasOperationsForUser("carol"))

	close(g.release)
	waitDone(t, running)
	waitDone(t, pending)
	assert.Eventually(t, func() bool { return !q.Status().Processing }, time.Second, time.Millisecond)
	assert.False(t, q.HasOperationsForUser("bob"))
}

func TestQueue_WaitCancelDoesNotCancelWork(t *testing.T) {
	q := New()
	g := newGate()
	running := q.Enqueue(context.Background(), g.work, "a", "g", false)
	<-g.started

	done := make(chan struct{})
	f := q.Enqueue(context.Background(), func(ctx context.Context) (any, error) {
		defer close(done)
		return nil, ctx.Err()
	}, "b", "g", false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	close(g.release)
	waitDone(t, running)
	<-done
	_, err = waitDone(t, f)
	assert.NoError(t, err)
}

func TestSubmit_Typed(t *testing.T) {
	q := New()
	got, err := Submit(context.Background(), q, "a", "g", false, func(ctx context.Context) (string, error) {
		info, ok := InfoFromContext(ctx)
		if !ok {
			return "", errors.New("no operation info")
		}
		return info.ActorID + "@" + info.GuildID, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "a@g", got)
}

func TestInterceptors_AuditOnSuccessOnly(t *testing.T) {
	rec := &audit.Memory{}
	q := New(WithInterceptors(Audit(rec, audit.ActionStaffHired, func(v any) (string, audit.Details) {
		return v.(string), audit.Details{Reason: "hired"}
	})))
	ctx := context.Background()

	_, err := Submit(ctx, q, "owner", "g", true, func(context.Context) (string, error) { return "u1", nil })
	require.NoError(t, err)
	_, err = Submit(ctx, q, "owner", "g", true, func(context.Context) (string, error) { return "", errors.New("limit reached") })
	require.Error(t, err)
	_, err = Submit(ctx, q, "owner", "g", true, func(context.Context) (string, error) { panic("nil rank table") })
	assert.True(t, IsPanic(err), "the queue turns a panic under interceptors into an error: %v", err)

	entries := rec.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "u1", entries[0].TargetID)
	assert.Equal(t, "owner", entries[0].ActorID)
	assert.Equal(t, "g", entries[0].GuildID)
	assert.Equal(t, audit.ActionStaffHired, entries[0].Action)
}

func TestInterceptors_Order(t *testing.T) {
	var trace []string
	tag := func(name string) Interceptor {
		return func(next Work) Work {
			return func(ctx context.Context) (any, error) {
				trace = append(trace, name+">")
				v, err := next(ctx)
				trace = append(trace, "<"+name)
				return v, err
			}
		}
	}
	w := Wrap(func(context.Context) (any, error) {
		trace = append(trace, "work")
		return nil, nil
	}, tag("outer"), tag("inner"))

	_, err := w(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"outer>", "inner>", "work", "<inner", "<outer"}, trace)
}
