package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Validates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Len(t, cfg.Ranks, 7)
	assert.Equal(t, 30*time.Second, cfg.QueueTimeout())
	assert.Equal(t, 30*time.Second, cfg.CacheTTL())

	mp, ok := cfg.Rank("managing_partner")
	require.True(t, ok)
	assert.Equal(t, 7, mp.Level)
	assert.Equal(t, 1, mp.Limit)

	_, ok = cfg.Rank("janitor")
	assert.False(t, ok)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "staffsync.yml")
	data := `
database: /var/lib/staffsync/firm.db
queue:
  timeout_ms: 0
notify:
  enabled: false
  message: ""
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/staffsync/firm.db", cfg.Database)
	assert.Equal(t, time.Duration(0), cfg.QueueTimeout())
	assert.False(t, cfg.Notify.Enabled)
	assert.Len(t, cfg.Ranks, 7, "ranks keep their defaults")
	assert.Equal(t, 3, cfg.Severity.HighGap)
}

func TestDefault_NotifyMessageNamesKeptRole(t *testing.T) {
	assert.Contains(t, Default().Notify.Message, NotifyRolePlaceholder)
}

func TestFromYAML_CustomLadder(t *testing.T) {
	cfg, err := FromYAML([]byte(`
ranks:
  - {key: clerk, name: Clerk, level: 1}
  - {key: judge, name: Judge, level: 2, aliases: [Justice], limit: 1}
`))
	require.NoError(t, err)
	require.Len(t, cfg.Ranks, 2)
	assert.Equal(t, []string{"Justice"}, cfg.Ranks[1].Aliases)
}

func TestFromYAML_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "malformed yaml",
			yaml: "ranks: [",
			want: "invalid config yaml",
		},
		{
			name: "bad rank key",
			yaml: `
ranks:
  - {key: Clerk, name: Clerk, level: 1}
  - {key: judge, name: Judge, level: 2}
`,
			want: "invalid config",
		},
		{
			name: "single rank",
			yaml: `
ranks:
  - {key: clerk, name: Clerk, level: 1}
`,
			want: "invalid config",
		},
		{
			name: "zero level",
			yaml: `
ranks:
  - {key: clerk, name: Clerk, level: 0}
  - {key: judge, name: Judge, level: 2}
`,
			want: "invalid config",
		},
		{
			name: "duplicate key",
			yaml: `
ranks:
  - {key: clerk, name: Clerk, level: 1}
  - {key: clerk, name: Judge, level: 2}
`,
			want: `duplicate rank key "clerk"`,
		},
		{
			name: "shared level",
			yaml: `
ranks:
  - {key: clerk, name: Clerk, level: 1}
  - {key: judge, name: Judge, level: 1}
`,
			want: "share level 1",
		},
		{
			name: "medium gap not below high gap",
			yaml: `
severity:
  high_gap: 2
  medium_gap: 2
  escalate_top_rank: true
`,
			want: "medium_gap (2) must be below",
		},
		{
			name: "negative timeout",
			yaml: `
queue:
  timeout_ms: -1
`,
			want: "invalid config",
		},
		{
			name: "printf style notify message",
			yaml: `
notify:
  enabled: true
  message: "You keep the %s role."
`,
			want: "write {role} where the kept role name goes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromYAML([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
