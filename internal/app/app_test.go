package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/staffsync/internal/platform/memory"
	"github.com/roach88/staffsync/internal/testutil"
)

func testOptions(t *testing.T) Options {
	t.Helper()
	dir := t.TempDir()
	return Options{
		ConfigPath: filepath.Join(dir, "missing.yml"),
		Database:   filepath.Join(dir, "staffsync.db"),
	}
}

func withGuildFile(t *testing.T, opts Options, b *testutil.GuildBuilder) Options {
	t.Helper()
	opts.GuildFile = filepath.Join(t.TempDir(), "guild.yml")
	require.NoError(t, b.Build().SaveSnapshot(opts.GuildFile))
	return opts
}

func TestOpen_WithoutGuild(t *testing.T) {
	a, err := Open(context.Background(), testOptions(t))
	require.NoError(t, err)
	defer a.Close()

	assert.Empty(t, a.GuildID())
	_, err = a.Guild()
	assert.ErrorIs(t, err, ErrNoGuild)
	_, err = a.Staffing()
	assert.ErrorIs(t, err, ErrNoGuild)
	assert.NoError(t, a.Persist(), "nothing to persist")
}

func TestOpen_GuildFile(t *testing.T) {
	opts := withGuildFile(t, testOptions(t), testutil.FirmGuild().Member("u1", "alice", "Paralegal"))

	a, err := Open(context.Background(), opts)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, testutil.GuildID, a.GuildID())
	_, err = a.Staffing()
	assert.NoError(t, err)
	assert.Len(t, a.Ranks.Ranks(), 7)
}

func TestOpen_GuildMismatch(t *testing.T) {
	opts := withGuildFile(t, testOptions(t), testutil.FirmGuild())
	opts.GuildID = "other-guild"

	_, err := Open(context.Background(), opts)
	assert.ErrorContains(t, err, "does not match")
}

func TestOpen_DiscordNeedsGuildID(t *testing.T) {
	opts := testOptions(t)
	opts.DiscordToken = "token"

	_, err := Open(context.Background(), opts)
	assert.ErrorContains(t, err, "--guild is required")
}

func TestResolveConflicts_Persists(t *testing.T) {
	ctx := context.Background()
	opts := withGuildFile(t, testOptions(t), testutil.FirmGuild().
		Member("u1", "alice", "Paralegal", "Of Counsel"))

	a, err := Open(ctx, opts)
	require.NoError(t, err)
	defer a.Close()

	g, err := a.Guild()
	require.NoError(t, err)
	conflicts, err := a.Engine.Scan(ctx, g, nil)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)

	results, err := a.ResolveConflicts(ctx, testutil.OwnerID, conflicts, false, nil)
	require.NoError(t, err)
	assert.True(t, results["u1"].Resolved)
	require.NoError(t, a.Persist())

	reloaded, err := memory.LoadSnapshot(opts.GuildFile)
	require.NoError(t, err)
	alice, err := reloaded.Member(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, alice.HasRole(testutil.RoleID("paralegal")))
	assert.True(t, alice.HasRole(testutil.RoleID("of_counsel")))

	entries, err := a.AuditLog.List(ctx, testutil.GuildID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, testutil.OwnerID, entries[0].ActorID)
}

func TestRepairIssues_Empty(t *testing.T) {
	ctx := context.Background()
	a, err := Open(ctx, testOptions(t))
	require.NoError(t, err)
	defer a.Close()

	res, err := a.RepairIssues(ctx, "cli", nil)
	require.NoError(t, err)
	assert.Zero(t, res.TotalIssuesFound)
}
