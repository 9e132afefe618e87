// Package memory implements platform.Guild in process. It backs tests and
// offline runs against a guild snapshot file.
package memory

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/roach88/staffsync/internal/platform"
)

// Snapshot is the on-disk form of a guild.
type Snapshot struct {
	GuildID string           `yaml:"guild_id"`
	OwnerID string           `yaml:"owner_id"`
	Roles   []platform.Role  `yaml:"roles"`
	Members []SnapshotMember `yaml:"members"`
}

// SnapshotMember lists the member's roles by name; names resolve against
// Snapshot.Roles.
type SnapshotMember struct {
	UserID   string   `yaml:"user_id"`
	Username string   `yaml:"username"`
	Roles    []string `yaml:"roles"`
}

// Message is a direct message captured by the guild.
type Message struct {
	UserID string
	Text   string
}

// Guild is a mutable in-memory guild.
type Guild struct {
	mu       sync.Mutex
	id       string
	ownerID  string
	roles    []platform.Role
	order    []string
	members  map[string]*platform.Member
	messages []Message

	// Failure injection for tests. Keys are role IDs / user IDs.
	FailRemove map[string]error
	FailFetch  map[string]error
	FailDirect error
}

// NewGuild creates an empty guild.
func NewGuild(id, ownerID string) *Guild {
	return &Guild{
		id:         id,
		ownerID:    ownerID,
		members:    make(map[string]*platform.Member),
		FailRemove: make(map[string]error),
		FailFetch:  make(map[string]error),
	}
}

// LoadSnapshot reads a YAML guild snapshot file.
func LoadSnapshot(path string) (*Guild, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML builds a guild from snapshot YAML.
func FromYAML(data []byte) (*Guild, error) {
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("invalid guild snapshot: %w", err)
	}
	if snap.GuildID == "" {
		return nil, fmt.Errorf("invalid guild snapshot: guild_id is required")
	}
	g := NewGuild(snap.GuildID, snap.OwnerID)
	byName := make(map[string]platform.Role, len(snap.Roles))
	for _, r := range snap.Roles {
		g.DefineRole(r)
		byName[r.Name] = r
	}
	for _, m := range snap.Members {
		member := platform.Member{UserID: m.UserID, Username: m.Username}
		for _, name := range m.Roles {
			r, ok := byName[name]
			if !ok {
				return nil, fmt.Errorf("invalid guild snapshot: member %s has undefined role %q", m.UserID, name)
			}
			member.Roles = append(member.Roles, r)
		}
		g.AddMember(member)
	}
	return g, nil
}

// Snapshot returns the guild's current state in snapshot form.
func (g *Guild) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	snap := Snapshot{
		GuildID: g.id,
		OwnerID: g.ownerID,
		Roles:   append([]platform.Role(nil), g.roles...),
	}
	for _, id := range g.order {
		m := g.members[id]
		sm := SnapshotMember{UserID: m.UserID, Username: m.Username, Roles: []string{}}
		for _, r := range m.Roles {
			sm.Roles = append(sm.Roles, r.Name)
		}
		snap.Members = append(snap.Members, sm)
	}
	return snap
}

// SaveSnapshot writes the guild's current state to path.
func (g *Guild) SaveSnapshot(path string) error {
	data, err := yaml.Marshal(g.Snapshot())
	if err != nil {
		return fmt.Errorf("encode guild snapshot: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// DefineRole registers a guild role so it can be granted by ID.
func (g *Guild) DefineRole(r platform.Role) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.roles = append(g.roles, r)
}

// AddMember adds or replaces a member. Member order is insertion order.
func (g *Guild) AddMember(m platform.Member) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.members[m.UserID]; !ok {
		g.order = append(g.order, m.UserID)
	}
	cp := m
	cp.Roles = append([]platform.Role(nil), m.Roles...)
	g.members[m.UserID] = &cp
}

// Messages returns every direct message sent so far.
func (g *Guild) Messages() []Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Message(nil), g.messages...)
}

func (g *Guild) ID() string { return g.id }

func (g *Guild) OwnerID(context.Context) (string, error) { return g.ownerID, nil }

func (g *Guild) Members(context.Context) ([]platform.Member, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]platform.Member, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, copyMember(g.members[id]))
	}
	return out, nil
}

func (g *Guild) Member(_ context.Context, userID string) (platform.Member, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.FailFetch[userID]; err != nil {
		return platform.Member{}, err
	}
	m, ok := g.members[userID]
	if !ok {
		return platform.Member{}, platform.ErrMemberNotFound
	}
	return copyMember(m), nil
}

func (g *Guild) Roles(context.Context) ([]platform.Role, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]platform.Role(nil), g.roles...), nil
}

func (g *Guild) AddRole(_ context.Context, userID, roleID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.members[userID]
	if !ok {
		return platform.ErrMemberNotFound
	}
	if m.HasRole(roleID) {
		return nil
	}
	for _, r := range g.roles {
		if r.ID == roleID {
			m.Roles = append(m.Roles, r)
			return nil
		}
	}
	return fmt.Errorf("role %s not defined in guild %s", roleID, g.id)
}

func (g *Guild) RemoveRole(_ context.Context, userID, roleID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.FailRemove[roleID]; err != nil {
		return err
	}
	m, ok := g.members[userID]
	if !ok {
		return platform.ErrMemberNotFound
	}
	kept := m.Roles[:0]
	for _, r := range m.Roles {
		if r.ID != roleID {
			kept = append(kept, r)
		}
	}
	m.Roles = kept
	return nil
}

func (g *Guild) SendDirect(_ context.Context, userID, message string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailDirect != nil {
		return g.FailDirect
	}
	g.messages = append(g.messages, Message{UserID: userID, Text: message})
	return nil
}

func copyMember(m *platform.Member) platform.Member {
	cp := *m
	cp.Roles = append([]platform.Role(nil), m.Roles...)
	return cp
}
