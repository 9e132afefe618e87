package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/staffsync/internal/audit"
)

// Interceptor wraps a unit of work. Interceptors are composed around the
// work closure at enqueue time, outermost first.
type Interceptor func(next Work) Work

type infoKey struct{}

func withInfo(ctx context.Context, info Info) context.Context {
	return context.WithValue(ctx, infoKey{}, info)
}

// InfoFromContext returns the operation the work is running as.
func InfoFromContext(ctx context.Context) (Info, bool) {
	info, ok := ctx.Value(infoKey{}).(Info)
	return info, ok
}

func chain(work Work, interceptors []Interceptor) Work {
	for i := len(interceptors) - 1; i >= 0; i-- {
		work = interceptors[i](work)
	}
	return work
}

// Logging logs the start, duration and outcome of every operation.
func Logging(logger *slog.Logger) Interceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Work) Work {
		return func(ctx context.Context) (any, error) {
			info, _ := InfoFromContext(ctx)
			start := time.Now()
			logger.Debug("operation started", "operation", info.ID, "actor", info.ActorID, "guild", info.GuildID, "elevated", info.Elevated)
			v, err := next(ctx)
			if err != nil {
				logger.Warn("operation failed", "operation", info.ID, "actor", info.ActorID, "duration", time.Since(start), "error", err)
				return v, err
			}
			logger.Debug("operation finished", "operation", info.ID, "duration", time.Since(start))
			return v, nil
		}
	}
}

// Describe turns a successful result into the audit target and details.
type Describe func(result any) (targetID string, details audit.Details)

// Audit records one entry with the given action after the wrapped work
// succeeds. A failure to record is logged and does not fail the operation.
func Audit(rec audit.Recorder, action audit.Action, describe Describe) Interceptor {
	return func(next Work) Work {
		return func(ctx context.Context) (any, error) {
			v, err := next(ctx)
			if err != nil {
				return v, err
			}
			info, _ := InfoFromContext(ctx)
			entry := audit.Entry{
				GuildID:   info.GuildID,
				Action:    action,
				ActorID:   info.ActorID,
				Timestamp: time.Now(),
			}
			if describe != nil {
				entry.TargetID, entry.Details = describe(v)
			}
			if recErr := rec.Record(ctx, entry); recErr != nil {
				slog.Default().Warn("audit record failed", "operation", info.ID, "action", action, "error", recErr)
			}
			return v, nil
		}
	}
}

// Wrap composes interceptors around a single work closure, for callers that
// need per-operation wrapping rather than queue-wide.
func Wrap(work Work, interceptors ...Interceptor) Work {
	return chain(work, interceptors)
}
