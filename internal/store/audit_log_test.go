package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/staffsync/internal/audit"
)

func TestAuditLog_RecordList(t *testing.T) {
	ctx := context.Background()
	log := NewAuditLog(createTestStore(t))

	ts := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	entry := audit.Entry{
		ID:       "a1",
		GuildID:  "g1",
		Action:   audit.ActionRoleConflictResolved,
		ActorID:  "owner-1",
		TargetID: "u1",
		Details: audit.Details{
			Reason:   "resolved role conflict",
			Metadata: map[string]any{"keptRole": "Senior Partner"},
		},
		Timestamp: ts,
	}
	require.NoError(t, log.Record(ctx, entry))

	got, err := log.List(ctx, "g1", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, entry, got[0])
}

func TestAuditLog_FillsIDAndTimestamp(t *testing.T) {
	ctx := context.Background()
	log := NewAuditLog(createTestStore(t))

	require.NoError(t, log.Record(ctx, audit.Entry{GuildID: "g1", Action: audit.ActionIntegrityRepair, ActorID: "cli"}))

	got, err := log.List(ctx, "g1", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].Timestamp.IsZero())
	assert.Empty(t, got[0].TargetID)
}

func TestAuditLog_NewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	log := NewAuditLog(createTestStore(t))

	for i := 1; i <= 5; i++ {
		require.NoError(t, log.Record(ctx, audit.Entry{
			ID:      fmt.Sprintf("a%d", i),
			GuildID: "g1",
			Action:  audit.ActionStaffHired,
			ActorID: "cli",
		}))
	}
	require.NoError(t, log.Record(ctx, audit.Entry{ID: "other", GuildID: "g2", Action: audit.ActionStaffHired, ActorID: "cli"}))

	got, err := log.List(ctx, "g1", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a5", got[0].ID)
	assert.Equal(t, "a4", got[1].ID)
	assert.Equal(t, "a3", got[2].ID)

	all, err := log.List(ctx, "g1", -1)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	none, err := log.List(ctx, "g3", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAuditLog_DuplicateID(t *testing.T) {
	ctx := context.Background()
	log := NewAuditLog(createTestStore(t))

	e := audit.Entry{ID: "a1", GuildID: "g1", Action: audit.ActionStaffFired, ActorID: "cli"}
	require.NoError(t, log.Record(ctx, e))
	assert.Error(t, log.Record(ctx, e))
}
