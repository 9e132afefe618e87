package discord

import (
	"errors"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/staffsync/internal/platform"
)

func TestToMember(t *testing.T) {
	roles := map[string]platform.Role{
		"r1": {ID: "r1", Name: "Paralegal", Position: 3},
	}
	m := toMember(&discordgo.Member{
		User:  &discordgo.User{ID: "u1", Username: "alice"},
		Nick:  "Alice Q.",
		Roles: []string{"r1", "r-gone"},
	}, roles)

	assert.Equal(t, "u1", m.UserID)
	assert.Equal(t, "Alice Q.", m.Username, "nickname wins")
	require.Len(t, m.Roles, 2)
	assert.Equal(t, "Paralegal", m.Roles[0].Name)
	assert.Equal(t, platform.Role{ID: "r-gone"}, m.Roles[1], "unknown roles keep their id")
}

func TestToMember_NoNick(t *testing.T) {
	m := toMember(&discordgo.Member{User: &discordgo.User{ID: "u1", Username: "alice"}}, nil)
	assert.Equal(t, "alice", m.Username)
	assert.Empty(t, m.Roles)
}

func TestIsNotFound(t *testing.T) {
	notFound := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}}
	forbidden := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusForbidden}}

	assert.True(t, isNotFound(notFound))
	assert.False(t, isNotFound(forbidden))
	assert.False(t, isNotFound(errors.New("network down")))
}

func TestOpen_RequiresToken(t *testing.T) {
	_, err := Open("", "g1")
	assert.Error(t, err)

	g, err := Open("token", "g1")
	require.NoError(t, err)
	assert.Equal(t, "g1", g.ID())
}
