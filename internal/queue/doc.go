// Package queue implements the operation queue that serializes every
// staffing mutation.
//
// ARCHITECTURE:
//
// Single Worker Drain:
// Callers submit work with Enqueue and receive a Future. The queue keeps
// an ordered in-memory list and runs at most one unit of work at a time.
// A worker goroutine is started when work arrives on an idle queue and
// exits once the list is empty.
//
// Ordering:
//   - Elevated operations are dequeued before ordinary ones
//   - Within a priority class, operations run in enqueue order
//
// Failure Isolation:
// Errors and panics from one operation settle only that operation's
// future. The worker moves on to the next operation; nothing is retried.
//
// Timeouts:
// An operation still waiting when the configured timeout elapses is removed
// and rejected with ErrCodeTimeout. Running operations are never
// interrupted.
//
// The queue holds no locks on the repositories. Mutual exclusion is
// cooperative: it only holds if every staffing writer goes through the same
// Queue. One Queue serves every guild in the process.
package queue
