package testutil

import (
	"github.com/roach88/staffsync/internal/config"
	"github.com/roach88/staffsync/internal/platform"
	"github.com/roach88/staffsync/internal/platform/memory"
)

// GuildID and OwnerID identify the guild FirmGuild builds.
const (
	GuildID = "guild-1"
	OwnerID = "owner-1"
)

// Non-staff roles FirmGuild defines alongside the ladder.
var (
	RoleClient = platform.Role{ID: "role-client", Name: "Client", Position: 1}
	RoleBot    = platform.Role{ID: "role-bot", Name: "Bot", Position: 2}
)

// RoleID returns the id FirmGuild gives the rank with the given key.
func RoleID(rankKey string) string { return "role-" + rankKey }

// FirmGuild returns an empty in-memory guild with one role per rank of the
// default ladder plus RoleClient and RoleBot.
func FirmGuild() *GuildBuilder {
	g := memory.NewGuild(GuildID, OwnerID)
	b := &GuildBuilder{Guild: g, byName: make(map[string]platform.Role)}
	b.define(RoleClient)
	b.define(RoleBot)
	for _, r := range config.Default().Ranks {
		b.define(platform.Role{ID: RoleID(r.Key), Name: r.Name, Position: 10 + r.Level})
	}
	return b
}

// GuildBuilder adds members to an in-memory guild by role name.
type GuildBuilder struct {
	Guild  *memory.Guild
	byName map[string]platform.Role
}

func (b *GuildBuilder) define(r platform.Role) {
	b.Guild.DefineRole(r)
	b.byName[r.Name] = r
}

// Role returns a defined role by name, or an undefined role whose id and
// name are both name.
func (b *GuildBuilder) Role(name string) platform.Role {
	if r, ok := b.byName[name]; ok {
		return r
	}
	return platform.Role{ID: name, Name: name}
}

// Member adds a member holding the named roles and returns the builder.
func (b *GuildBuilder) Member(userID, username string, roleNames ...string) *GuildBuilder {
	m := platform.Member{UserID: userID, Username: username}
	for _, n := range roleNames {
		m.Roles = append(m.Roles, b.Role(n))
	}
	b.Guild.AddMember(m)
	return b
}

// Build returns the guild.
func (b *GuildBuilder) Build() *memory.Guild { return b.Guild }
