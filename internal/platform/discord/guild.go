// Package discord adapts a discordgo session to platform.Guild.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/roach88/staffsync/internal/platform"
)

// memberPageSize is the largest page the members endpoint returns.
const memberPageSize = 1000

// Guild is a live Discord guild.
type Guild struct {
	session *discordgo.Session
	guildID string
	roles   map[string]platform.Role
}

// Open creates a bot session for token and binds it to guildID. The session
// only uses the REST API; no gateway connection is opened.
func Open(token, guildID string) (*Guild, error) {
	if token == "" {
		return nil, errors.New("discord: bot token is required")
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: new session: %w", err)
	}
	return New(s, guildID), nil
}

// New wraps an existing session.
func New(s *discordgo.Session, guildID string) *Guild {
	return &Guild{session: s, guildID: guildID}
}

func (g *Guild) ID() string { return g.guildID }

func (g *Guild) OwnerID(ctx context.Context) (string, error) {
	guild, err := g.session.Guild(g.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("discord: fetch guild %s: %w", g.guildID, err)
	}
	return guild.OwnerID, nil
}

func (g *Guild) Roles(ctx context.Context) ([]platform.Role, error) {
	roles, err := g.roleIndex(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]platform.Role, 0, len(roles))
	for _, r := range roles {
		out = append(out, r)
	}
	return out, nil
}

// Members pages through the full member list in ascending user ID order.
func (g *Guild) Members(ctx context.Context) ([]platform.Member, error) {
	roles, err := g.roleIndex(ctx)
	if err != nil {
		return nil, err
	}
	var (
		out   []platform.Member
		after string
	)
	for {
		page, err := g.session.GuildMembers(g.guildID, after, memberPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("discord: list members of %s: %w", g.guildID, err)
		}
		for _, m := range page {
			out = append(out, toMember(m, roles))
		}
		if len(page) < memberPageSize {
			return out, nil
		}
		after = page[len(page)-1].User.ID
	}
}

func (g *Guild) Member(ctx context.Context, userID string) (platform.Member, error) {
	roles, err := g.roleIndex(ctx)
	if err != nil {
		return platform.Member{}, err
	}
	m, err := g.session.GuildMember(g.guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		if isNotFound(err) {
			return platform.Member{}, platform.ErrMemberNotFound
		}
		return platform.Member{}, fmt.Errorf("discord: fetch member %s: %w", userID, err)
	}
	return toMember(m, roles), nil
}

func (g *Guild) AddRole(ctx context.Context, userID, roleID string) error {
	if err := g.session.GuildMemberRoleAdd(g.guildID, userID, roleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: add role %s to %s: %w", roleID, userID, err)
	}
	return nil
}

func (g *Guild) RemoveRole(ctx context.Context, userID, roleID string) error {
	if err := g.session.GuildMemberRoleRemove(g.guildID, userID, roleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: remove role %s from %s: %w", roleID, userID, err)
	}
	return nil
}

func (g *Guild) SendDirect(ctx context.Context, userID, message string) error {
	ch, err := g.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord: open dm with %s: %w", userID, err)
	}
	if _, err := g.session.ChannelMessageSend(ch.ID, message, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: send dm to %s: %w", userID, err)
	}
	return nil
}

// roleIndex fetches the guild's roles once per Guild value.
func (g *Guild) roleIndex(ctx context.Context) (map[string]platform.Role, error) {
	if g.roles != nil {
		return g.roles, nil
	}
	roles, err := g.session.GuildRoles(g.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("discord: list roles of %s: %w", g.guildID, err)
	}
	idx := make(map[string]platform.Role, len(roles))
	for _, r := range roles {
		idx[r.ID] = platform.Role{ID: r.ID, Name: r.Name, Position: r.Position}
	}
	g.roles = idx
	return idx, nil
}

func toMember(m *discordgo.Member, roles map[string]platform.Role) platform.Member {
	out := platform.Member{UserID: m.User.ID, Username: m.User.Username}
	if m.Nick != "" {
		out.Username = m.Nick
	}
	for _, id := range m.Roles {
		r, ok := roles[id]
		if !ok {
			r = platform.Role{ID: id}
		}
		out.Roles = append(out.Roles, r)
	}
	return out
}

func isNotFound(err error) bool {
	var rest *discordgo.RESTError
	return errors.As(err, &rest) && rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound
}
