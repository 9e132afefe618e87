// Package audit defines the audit record emitted by every resolution and
// repair, and the Recorder collaborator that persists it.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Action is the audit action taxonomy.
type Action string

const (
	ActionRoleConflictResolved Action = "ROLE_CONFLICT_RESOLVED"
	ActionIntegrityRepair      Action = "INTEGRITY_REPAIR"
	ActionStaffHired           Action = "STAFF_HIRED"
	ActionStaffFired           Action = "STAFF_FIRED"
	ActionStaffPromoted        Action = "STAFF_PROMOTED"
)

// Details carries the reason for an action plus optional before/after state.
type Details struct {
	Reason   string         `json:"reason"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Before   any            `json:"before,omitempty"`
	After    any            `json:"after,omitempty"`
}

// Entry is one audit record.
type Entry struct {
	ID        string    `json:"id"`
	GuildID   string    `json:"guildId"`
	Action    Action    `json:"action"`
	ActorID   string    `json:"actorId"`
	TargetID  string    `json:"targetId,omitempty"`
	Details   Details   `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}

// Recorder persists audit entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Memory is an in-process Recorder. It is used by tests and by dry runs
// where nothing should reach the database.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

func (m *Memory) Record(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

// Entries returns a copy of everything recorded so far.
func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Logged wraps a Recorder so every entry is mirrored to the structured
// logger. A nil inner recorder only logs.
type Logged struct {
	Inner  Recorder
	Logger *slog.Logger
}

func (l Logged) Record(ctx context.Context, e Entry) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("audit",
		"action", e.Action,
		"guild", e.GuildID,
		"actor", e.ActorID,
		"target", e.TargetID,
		"reason", e.Details.Reason,
	)
	if l.Inner == nil {
		return nil
	}
	return l.Inner.Record(ctx, e)
}
