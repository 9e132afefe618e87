package domain

import (
	"context"
	"errors"
)

// ErrNotFound is returned by repositories when no record has the given ID.
var ErrNotFound = errors.New("not found")

// Patch is a partial update keyed by JSON field name. A nil value removes
// the field from the stored document.
type Patch map[string]any

// Repository is the storage contract the core consumes for one collection.
type Repository[T Document] interface {
	FindByGuildID(ctx context.Context, guildID string) ([]T, error)
	FindByID(ctx context.Context, id string) (T, error)
	FindByUserID(ctx context.Context, guildID, userID string) ([]T, error)
	Update(ctx context.Context, id string, patch Patch) error
	Add(ctx context.Context, doc T) error
}

// Repositories bundles one repository per collection.
type Repositories struct {
	Staff        Repository[Staff]
	Cases        Repository[Case]
	Applications Repository[Application]
	Jobs         Repository[Job]
	Retainers    Repository[Retainer]
	Feedback     Repository[Feedback]
	Reminders    Repository[Reminder]
}
