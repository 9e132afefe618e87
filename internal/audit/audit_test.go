package audit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingRecorder struct{ err error }

func (f failingRecorder) Record(context.Context, Entry) error { return f.err }

func TestMemory_EntriesIsCopy(t *testing.T) {
	var m Memory
	require.NoError(t, m.Record(context.Background(), Entry{ID: "a1"}))

	got := m.Entries()
	got[0].ID = "changed"
	assert.Equal(t, "a1", m.Entries()[0].ID)
}

func TestLogged_MirrorsToLogger(t *testing.T) {
	var buf bytes.Buffer
	inner := &Memory{}
	rec := Logged{Inner: inner, Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	err := rec.Record(context.Background(), Entry{
		GuildID:  "g1",
		Action:   ActionStaffPromoted,
		ActorID:  "owner-1",
		TargetID: "u1",
		Details:  Details{Reason: "promoted to of_counsel"},
	})
	require.NoError(t, err)

	assert.Len(t, inner.Entries(), 1)
	out := buf.String()
	assert.Contains(t, out, "action=STAFF_PROMOTED")
	assert.Contains(t, out, "target=u1")
	assert.Contains(t, out, `reason="promoted to of_counsel"`)
}

func TestLogged_NilInnerOnlyLogs(t *testing.T) {
	var buf bytes.Buffer
	rec := Logged{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	require.NoError(t, rec.Record(context.Background(), Entry{Action: ActionStaffHired}))
	assert.Contains(t, buf.String(), "action=STAFF_HIRED")
}

func TestLogged_PropagatesInnerError(t *testing.T) {
	boom := errors.New("disk full")
	rec := Logged{Inner: failingRecorder{err: boom}, Logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))}

	assert.ErrorIs(t, rec.Record(context.Background(), Entry{}), boom)
}
