package roles

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/staffsync/internal/config"
)

// Rank is one rung of the staff hierarchy.
type Rank struct {
	Key     string   `json:"key"`
	Name    string   `json:"name"`
	Level   int      `json:"level"`
	Aliases []string `json:"aliases,omitempty"`
	Limit   int      `json:"limit,omitempty"`
}

// RankTable maps platform role names to ranks. Every rank answers to its
// display name and its aliases; lookups are insensitive to case, Unicode
// width/compatibility forms and repeated whitespace.
type RankTable struct {
	ranks  []Rank // ascending by level
	byName map[string]Rank
	byKey  map[string]Rank
}

// NewRankTable validates ranks and builds the lookup table. Keys, levels
// and normalized names (including aliases) must be unique.
func NewRankTable(ranks []Rank) (*RankTable, error) {
	if len(ranks) == 0 {
		return nil, fmt.Errorf("rank table: at least one rank is required")
	}
	t := &RankTable{
		byName: make(map[string]Rank),
		byKey:  make(map[string]Rank, len(ranks)),
	}
	levels := make(map[int]string, len(ranks))
	for _, r := range ranks {
		if r.Key == "" {
			return nil, fmt.Errorf("rank table: rank %q has empty key", r.Name)
		}
		if strings.TrimSpace(r.Name) == "" {
			return nil, fmt.Errorf("rank table: rank %s has empty name", r.Key)
		}
		if r.Level < 1 {
			return nil, fmt.Errorf("rank table: rank %s has level %d, want >= 1", r.Key, r.Level)
		}
		if _, dup := t.byKey[r.Key]; dup {
			return nil, fmt.Errorf("rank table: duplicate rank key %s", r.Key)
		}
		if other, dup := levels[r.Level]; dup {
			return nil, fmt.Errorf("rank table: ranks %s and %s share level %d", other, r.Key, r.Level)
		}
		levels[r.Level] = r.Key
		t.byKey[r.Key] = r

		for _, name := range append([]string{r.Name}, r.Aliases...) {
			n := NormalizeName(name)
			if n == "" {
				return nil, fmt.Errorf("rank table: rank %s has an empty alias", r.Key)
			}
			if other, dup := t.byName[n]; dup {
				return nil, fmt.Errorf("rank table: name %q maps to both %s and %s", name, other.Key, r.Key)
			}
			t.byName[n] = r
		}
		t.ranks = append(t.ranks, r)
	}
	sort.Slice(t.ranks, func(i, j int) bool { return t.ranks[i].Level < t.ranks[j].Level })
	return t, nil
}

// RankTableFromConfig builds the table from the configured ladder.
func RankTableFromConfig(cfg *config.Config) (*RankTable, error) {
	ranks := make([]Rank, 0, len(cfg.Ranks))
	for _, r := range cfg.Ranks {
		ranks = append(ranks, Rank{
			Key:     r.Key,
			Name:    r.Name,
			Level:   r.Level,
			Aliases: r.Aliases,
			Limit:   r.Limit,
		})
	}
	return NewRankTable(ranks)
}

// Lookup maps a platform role name to a rank. Unknown names are not staff
// roles.
func (t *RankTable) Lookup(roleName string) (Rank, bool) {
	r, ok := t.byName[NormalizeName(roleName)]
	return r, ok
}

// ByKey returns the rank with the given key.
func (t *RankTable) ByKey(key string) (Rank, bool) {
	r, ok := t.byKey[key]
	return r, ok
}

// Top returns the most senior rank.
func (t *RankTable) Top() Rank {
	return t.ranks[len(t.ranks)-1]
}

// Ranks returns the ladder from most junior to most senior.
func (t *RankTable) Ranks() []Rank {
	return append([]Rank(nil), t.ranks...)
}

// NormalizeName canonicalizes a role name for comparison. It is safe for
// concurrent use; a cases.Caser is not, so each call folds with its own.
func NormalizeName(name string) string {
	n := norm.NFKC.String(name)
	n = cases.Fold().String(n)
	return strings.Join(strings.Fields(n), " ")
}
