package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/staffsync/internal/config"
)

func defaultTable(t *testing.T) *RankTable {
	t.Helper()
	table, err := RankTableFromConfig(config.Default())
	require.NoError(t, err)
	return table
}

func TestRankTable_LookupNamesAndAliases(t *testing.T) {
	table := defaultTable(t)

	tests := []struct {
		name string
		want string
	}{
		{"Managing Partner", "managing_partner"},
		{"managing   partner", "managing_partner"},
		{"MP", "managing_partner"},
		{"Partner", "senior_partner"},
		{"PARALEGAL", "paralegal"},
		{"Ｐａｒａｌｅｇａｌ", "paralegal"}, // full-width
		{"Associate", "senior_associate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := table.Lookup(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.want, r.Key)
		})
	}
}

func TestRankTable_UnknownNameIsNotStaff(t *testing.T) {
	table := defaultTable(t)
	_, ok := table.Lookup("Client")
	assert.False(t, ok)
	_, ok = table.Lookup("")
	assert.False(t, ok)
}

func TestRankTable_TopAndOrder(t *testing.T) {
	table := defaultTable(t)
	assert.Equal(t, "managing_partner", table.Top().Key)

	ranks := table.Ranks()
	require.Len(t, ranks, 7)
	for i := 1; i < len(ranks); i++ {
		assert.Less(t, ranks[i-1].Level, ranks[i].Level)
	}
}

func TestNewRankTable_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		ranks []Rank
	}{
		{"empty", nil},
		{"duplicate key", []Rank{{Key: "a", Name: "A", Level: 1}, {Key: "a", Name: "B", Level: 2}}},
		{"duplicate level", []Rank{{Key: "a", Name: "A", Level: 1}, {Key: "b", Name: "B", Level: 1}}},
		{"alias collides with name", []Rank{{Key: "a", Name: "A", Level: 1}, {Key: "b", Name: "B", Level: 2, Aliases: []string{" a "}}}},
		{"zero level", []Rank{{Key: "a", Name: "A", Level: 0}}},
		{"blank name", []Rank{{Key: "a", Name: "  ", Level: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRankTable(tt.ranks)
			assert.Error(t, err)
		})
	}
}
