package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/staffsync/internal/audit"
)

// AuditLog persists audit entries in the audit_log table.
// It implements audit.Recorder.
type AuditLog struct {
	store *Store
}

// NewAuditLog returns the audit recorder backed by s.
func NewAuditLog(s *Store) *AuditLog {
	return &AuditLog{store: s}
}

// Record appends an entry. Missing IDs and timestamps are filled in.
func (a *AuditLog) Record(ctx context.Context, e audit.Entry) error {
	if e.ID == "" {
		e.ID = uuid.Must(uuid.NewV7()).String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	details, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Errorf("record audit: %w", err)
	}
	_, err = a.store.db.ExecContext(ctx, `
		INSERT INTO audit_log
		(id, guild_id, action, actor_id, target_id, details, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID,
		e.GuildID,
		string(e.Action),
		e.ActorID,
		nullable(e.TargetID),
		string(details),
		e.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record audit: %w", err)
	}
	return nil
}

// List returns the guild's most recent entries, newest first.
// A limit of zero or less returns everything.
func (a *AuditLog) List(ctx context.Context, guildID string, limit int) ([]audit.Entry, error) {
	query := `
		SELECT id, guild_id, action, actor_id, target_id, details, ts
		FROM audit_log
		WHERE guild_id = ?
		ORDER BY seq DESC
	`
	args := []any{guildID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := a.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()

	var out []audit.Entry
	for rows.Next() {
		var (
			e        audit.Entry
			action   string
			target   sql.NullString
			details  string
			tsString string
		)
		if err := rows.Scan(&e.ID, &e.GuildID, &action, &e.ActorID, &target, &details, &tsString); err != nil {
			return nil, fmt.Errorf("list audit: scan: %w", err)
		}
		e.Action = audit.Action(action)
		if target.Valid {
			e.TargetID = target.String
		}
		if err := json.Unmarshal([]byte(details), &e.Details); err != nil {
			return nil, fmt.Errorf("list audit %s: decode details: %w", e.ID, err)
		}
		ts, err := time.Parse(time.RFC3339Nano, tsString)
		if err != nil {
			return nil, fmt.Errorf("list audit %s: parse ts: %w", e.ID, err)
		}
		e.Timestamp = ts
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
