package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/staffsync/internal/domain"
)

// ErrNotFound is returned when a document ID does not exist in a collection.
// It is the same sentinel the repository contract uses.
var ErrNotFound = domain.ErrNotFound

// Collection is a typed view of one entity type in the documents table.
// It implements domain.Repository[T].
type Collection[T domain.Document] struct {
	store *Store
	name  domain.EntityType
	now   func() time.Time
}

// NewCollection returns the repository for the named collection.
func NewCollection[T domain.Document](s *Store, name domain.EntityType) *Collection[T] {
	return &Collection[T]{store: s, name: name, now: time.Now}
}

// Add inserts a new document. Adding an ID that already exists fails.
func (c *Collection[T]) Add(ctx context.Context, doc T) error {
	if doc.DocID() == "" {
		return fmt.Errorf("add %s: id is required", c.name)
	}
	if doc.DocGuildID() == "" {
		return fmt.Errorf("add %s %s: guild id is required", c.name, doc.DocID())
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("add %s %s: %w", c.name, doc.DocID(), err)
	}
	ts := c.now().UTC().Format(time.RFC3339Nano)
	_, err = c.store.db.ExecContext(ctx, `
		INSERT INTO documents
		(collection, id, guild_id, user_id, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		string(c.name),
		doc.DocID(),
		doc.DocGuildID(),
		doc.DocUserID(),
		string(body),
		ts,
		ts,
	)
	if err != nil {
		return fmt.Errorf("add %s %s: %w", c.name, doc.DocID(), err)
	}
	return nil
}

// FindByID returns the document with the given ID or ErrNotFound.
func (c *Collection[T]) FindByID(ctx context.Context, id string) (T, error) {
	var zero T
	var body string
	err := c.store.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND id = ?`,
		string(c.name), id,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("find %s %s: %w", c.name, id, err)
	}
	return c.decode(body)
}

// FindByGuildID returns every document in the guild, oldest first.
func (c *Collection[T]) FindByGuildID(ctx context.Context, guildID string) ([]T, error) {
	return c.query(ctx, `
		SELECT body FROM documents
		WHERE collection = ? AND guild_id = ?
		ORDER BY seq ASC
	`, string(c.name), guildID)
}

// FindByUserID returns the guild's documents belonging to userID, oldest first.
func (c *Collection[T]) FindByUserID(ctx context.Context, guildID, userID string) ([]T, error) {
	return c.query(ctx, `
		SELECT body FROM documents
		WHERE collection = ? AND guild_id = ? AND user_id = ?
		ORDER BY seq ASC
	`, string(c.name), guildID, userID)
}

// Update merges patch into the stored document. Nil patch values delete
// the field. The merged body must still decode as T.
func (c *Collection[T]) Update(ctx context.Context, id string, patch domain.Patch) error {
	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update %s %s: begin tx: %w", c.name, id, err)
	}
	defer tx.Rollback() // No-op if committed

	var body string
	err = tx.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND id = ?`,
		string(c.name), id,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update %s %s: %w", c.name, id, err)
	}

	merged, err := applyPatch(body, patch)
	if err != nil {
		return fmt.Errorf("update %s %s: %w", c.name, id, err)
	}
	doc, err := c.decode(merged)
	if err != nil {
		return fmt.Errorf("update %s %s: %w", c.name, id, err)
	}
	if doc.DocID() != id {
		return fmt.Errorf("update %s %s: id cannot be changed", c.name, id)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE documents
		SET body = ?, guild_id = ?, user_id = ?, updated_at = ?
		WHERE collection = ? AND id = ?
	`,
		merged,
		doc.DocGuildID(),
		doc.DocUserID(),
		c.now().UTC().Format(time.RFC3339Nano),
		string(c.name),
		id,
	)
	if err != nil {
		return fmt.Errorf("update %s %s: %w", c.name, id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update %s %s: commit: %w", c.name, id, err)
	}
	return nil
}

func (c *Collection[T]) query(ctx context.Context, query string, args ...any) ([]T, error) {
	rows, err := c.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", c.name, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("query %s: scan: %w", c.name, err)
		}
		doc, err := c.decode(body)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", c.name, err)
	}
	return out, nil
}

func (c *Collection[T]) decode(body string) (T, error) {
	var doc T
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return doc, fmt.Errorf("decode %s: %w", c.name, err)
	}
	return doc, nil
}

// applyPatch merges patch into a JSON object body.
func applyPatch(body string, patch domain.Patch) (string, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(body), &obj); err != nil {
		return "", fmt.Errorf("decode body: %w", err)
	}
	if obj == nil {
		obj = make(map[string]any)
	}
	for k, v := range patch {
		if v == nil {
			delete(obj, k)
			continue
		}
		obj[k] = v
	}
	merged, err := json.Marshal(obj)
	if err != nil {
		return "", fmt.Errorf("encode body: %w", err)
	}
	return string(merged), nil
}

// Repositories returns the repository bundle for every collection.
func Repositories(s *Store) domain.Repositories {
	return domain.Repositories{
		Staff:        NewCollection[domain.Staff](s, domain.EntityStaff),
		Cases:        NewCollection[domain.Case](s, domain.EntityCase),
		Applications: NewCollection[domain.Application](s, domain.EntityApplication),
		Jobs:         NewCollection[domain.Job](s, domain.EntityJob),
		Retainers:    NewCollection[domain.Retainer](s, domain.EntityRetainer),
		Feedback:     NewCollection[domain.Feedback](s, domain.EntityFeedback),
		Reminders:    NewCollection[domain.Reminder](s, domain.EntityReminder),
	}
}
