package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/staffsync/internal/audit"
	"github.com/roach88/staffsync/internal/domain"
	"github.com/roach88/staffsync/internal/integrity"
	"github.com/roach88/staffsync/internal/platform/memory"
	"github.com/roach88/staffsync/internal/testutil"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "staffsync", cmd.Use)
	assert.Contains(t, cmd.Long, "STAFFSYNC_")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"roles", "scan"},
		{"roles", "resolve"},
		{"roles", "report"},
		{"integrity", "scan"},
		{"integrity", "repair"},
		{"staff", "hire"},
		{"staff", "fire"},
		{"staff", "promote"},
		{"staff", "list"},
		{"audit", "list"},
	}

	for _, path := range commands {
		t.Run(path[0]+"_"+path[1], func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err)
			require.NotNil(t, subCmd)
			assert.Equal(t, path[1], subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	actorFlag := cmd.PersistentFlags().Lookup("actor")
	require.NotNil(t, actorFlag)
	assert.Equal(t, "cli", actorFlag.DefValue)
}

func TestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()

	resolveCmd, _, err := cmd.Find([]string{"roles", "resolve"})
	require.NoError(t, err)
	assert.NotNil(t, resolveCmd.Flags().Lookup("notify"))

	fireCmd, _, err := cmd.Find([]string{"staff", "fire"})
	require.NoError(t, err)
	assert.NotNil(t, fireCmd.Flags().Lookup("reason"))

	listCmd, _, err := cmd.Find([]string{"audit", "list"})
	require.NoError(t, err)
	limitFlag := listCmd.Flags().Lookup("limit")
	require.NotNil(t, limitFlag)
	assert.Equal(t, "20", limitFlag.DefValue)
}

// cliEnv is a temp database plus a guild snapshot file.
type cliEnv struct {
	dir       string
	db        string
	guildFile string
}

func newCLIEnv(t *testing.T, b *testutil.GuildBuilder) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	env := &cliEnv{
		dir:       dir,
		db:        filepath.Join(dir, "staffsync.db"),
		guildFile: filepath.Join(dir, "guild.yml"),
	}
	require.NoError(t, b.Build().SaveSnapshot(env.guildFile))
	return env
}

// run executes the CLI against env and returns stdout and the exit code.
func (e *cliEnv) run(t *testing.T, args ...string) (string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{
		"--config", filepath.Join(e.dir, "missing.yml"),
		"--db", e.db,
		"--guild-file", e.guildFile,
	}, args...))
	err := cmd.Execute()
	return stdout.String(), GetExitCode(err)
}

func (e *cliEnv) guild(t *testing.T) *memory.Guild {
	t.Helper()
	g, err := memory.LoadSnapshot(e.guildFile)
	require.NoError(t, err)
	return g
}

func decodeData(t *testing.T, out string, v any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status, out)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

func conflictedFirm() *testutil.GuildBuilder {
	return testutil.FirmGuild().
		Member("u-alice", "alice", "Paralegal", "Senior Partner").
		Member("u-bob", "bob", "Junior Associate").
		Member("u-carol", "carol", "Client")
}

func TestInvalidFormat(t *testing.T) {
	env := newCLIEnv(t, conflictedFirm())
	_, code := env.run(t, "--format", "xml", "roles", "scan")
	assert.Equal(t, ExitCommandError, code)
}

func TestRolesScan_JSON(t *testing.T) {
	env := newCLIEnv(t, conflictedFirm())

	out, code := env.run(t, "--format", "json", "roles", "scan")
	require.Equal(t, ExitSuccess, code, out)

	var result struct {
		GuildID   string `json:"guildId"`
		Conflicts []struct {
			UserID   string `json:"userId"`
			Severity string `json:"severity"`
		} `json:"conflicts"`
	}
	decodeData(t, out, &result)
	assert.Equal(t, testutil.GuildID, result.GuildID)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "u-alice", result.Conflicts[0].UserID)
	assert.Equal(t, "HIGH", result.Conflicts[0].Severity)
}

func TestRolesScan_NoConflicts(t *testing.T) {
	env := newCLIEnv(t, testutil.FirmGuild().Member("u-bob", "bob", "Junior Associate"))

	out, code := env.run(t, "roles", "scan")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "No role conflicts")
}

func TestRolesResolve_WritesSnapshotAndAudit(t *testing.T) {
	env := newCLIEnv(t, conflictedFirm())

	out, code := env.run(t, "--format", "json", "roles", "resolve")
	require.Equal(t, ExitSuccess, code, out)

	var result ResolveResult
	decodeData(t, out, &result)
	assert.Equal(t, 1, result.Conflicts)
	assert.Equal(t, 1, result.Resolved)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, "Senior Partner", result.Resolutions["u-alice"].KeptRole)
	assert.Equal(t, []string{"Paralegal"}, result.Resolutions["u-alice"].RemovedRoles)
	assert.Equal(t, 1, result.Stats.Successful)

	alice, err := env.guild(t).Member(context.Background(), "u-alice")
	require.NoError(t, err)
	assert.True(t, alice.HasRole(testutil.RoleID("senior_partner")))
	assert.False(t, alice.HasRole(testutil.RoleID("paralegal")))

	out, code = env.run(t, "--format", "json", "audit", "list")
	require.Equal(t, ExitSuccess, code, out)
	var entries []audit.Entry
	decodeData(t, out, &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionRoleConflictResolved, entries[0].Action)
	assert.Equal(t, "cli", entries[0].ActorID)
	assert.Equal(t, "u-alice", entries[0].TargetID)

	// A second run finds nothing left to do.
	out, code = env.run(t, "roles", "resolve")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "No role conflicts")
}

func TestRolesReport_Text(t *testing.T) {
	env := newCLIEnv(t, conflictedFirm())

	out, code := env.run(t, "roles", "report")
	require.Equal(t, ExitSuccess, code, out)
	assert.Contains(t, out, "Members scanned:          3")
	assert.Contains(t, out, "Conflicts found:          1")
}

func TestStaff_HireListFire(t *testing.T) {
	env := newCLIEnv(t, conflictedFirm())

	out, code := env.run(t, "--format", "json", "staff", "hire", "u-carol", "paralegal")
	require.Equal(t, ExitSuccess, code, out)
	var hired domain.Staff
	decodeData(t, out, &hired)
	assert.Equal(t, "u-carol", hired.UserID)
	assert.Equal(t, "carol", hired.Username)
	assert.Equal(t, domain.StaffActive, hired.Status)
	assert.Equal(t, 1, hired.HierarchyLevel)
	assert.Equal(t, "cli", hired.HiredBy)

	carol, err := env.guild(t).Member(context.Background(), "u-carol")
	require.NoError(t, err)
	assert.True(t, carol.HasRole(testutil.RoleID("paralegal")))

	out, code = env.run(t, "staff", "list")
	require.Equal(t, ExitSuccess, code, out)
	assert.Contains(t, out, "u-carol")

	out, code = env.run(t, "--format", "json", "staff", "fire", "u-carol", "--reason", "left the firm")
	require.Equal(t, ExitSuccess, code, out)
	var fired domain.Staff
	decodeData(t, out, &fired)
	assert.Equal(t, domain.StaffTerminated, fired.Status)

	out, code = env.run(t, "--format", "json", "staff", "list")
	require.Equal(t, ExitSuccess, code, out)
	var current []domain.Staff
	decodeData(t, out, &current)
	assert.Empty(t, current)

	out, code = env.run(t, "--format", "json", "staff", "list", "--all")
	require.Equal(t, ExitSuccess, code, out)
	var all []domain.Staff
	decodeData(t, out, &all)
	assert.Len(t, all, 1)

	out, code = env.run(t, "--format", "json", "audit", "list", "--limit", "1")
	require.Equal(t, ExitSuccess, code, out)
	var entries []audit.Entry
	decodeData(t, out, &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionStaffFired, entries[0].Action)
}

func TestStaff_UnknownRankIsFailure(t *testing.T) {
	env := newCLIEnv(t, conflictedFirm())

	out, code := env.run(t, "--format", "json", "staff", "hire", "u-carol", "janitor")
	assert.Equal(t, ExitFailure, code)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeStaffing, resp.Error.Code)
	assert.Equal(t, map[string]any{"reason": "UNKNOWN_RANK"}, resp.Error.Details)
}

func TestIntegrityScan_Clean(t *testing.T) {
	env := newCLIEnv(t, conflictedFirm())

	out, code := env.run(t, "--format", "json", "integrity", "scan")
	require.Equal(t, ExitSuccess, code, out)
	var report integrity.Report
	decodeData(t, out, &report)
	assert.Equal(t, testutil.GuildID, report.GuildID)
	assert.Empty(t, report.Issues)

	out, code = env.run(t, "integrity", "repair")
	require.Equal(t, ExitSuccess, code, out)
	assert.Contains(t, out, "Repaired:        0")
}

func TestNoGuild(t *testing.T) {
	dir := t.TempDir()
	var stdout bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{
		"--config", filepath.Join(dir, "missing.yml"),
		"--db", filepath.Join(dir, "staffsync.db"),
		"roles", "scan",
	})

	err := cmd.Execute()
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout.String(), ErrCodeNoGuild)
}
