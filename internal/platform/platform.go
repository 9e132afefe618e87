// Package platform defines the chat-platform collaborator the staffing
// core consumes: a guild with a live member list, per-member role
// assignments and the ability to change roles and message members.
package platform

import (
	"context"
	"errors"
)

// ErrMemberNotFound is returned when a user is not a member of the guild.
var ErrMemberNotFound = errors.New("member not found")

// Role is a platform role as the member currently holds it. Position is the
// platform's own ordering and is informational only; staff rank comes from
// the rank table.
type Role struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Position int    `json:"position,omitempty" yaml:"position,omitempty"`
}

// Member is a snapshot of one guild member.
type Member struct {
	UserID   string `json:"userId" yaml:"user_id"`
	Username string `json:"username" yaml:"username"`
	Roles    []Role `json:"roles" yaml:"roles"`
}

// HasRole reports whether the member holds roleID.
func (m Member) HasRole(roleID string) bool {
	for _, r := range m.Roles {
		if r.ID == roleID {
			return true
		}
	}
	return false
}

// Guild is the live view of one community.
type Guild interface {
	ID() string
	OwnerID(ctx context.Context) (string, error)
	Members(ctx context.Context) ([]Member, error)
	Member(ctx context.Context, userID string) (Member, error)
	Roles(ctx context.Context) ([]Role, error)
	AddRole(ctx context.Context, userID, roleID string) error
	RemoveRole(ctx context.Context, userID, roleID string) error
	SendDirect(ctx context.Context, userID, message string) error
}
