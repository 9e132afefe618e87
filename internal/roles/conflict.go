package roles

import (
	"sort"
	"time"

	"github.com/roach88/staffsync/internal/platform"
)

// Assignment is a platform role the member holds, mapped to its rank.
type Assignment struct {
	RoleID         string `json:"roleId"`
	RoleName       string `json:"roleName"`
	RankKey        string `json:"rankKey"`
	HierarchyLevel int    `json:"hierarchyLevel"`
}

// Conflict is a member holding roles of two or more staff ranks.
// ConflictingRoles holds one role per rank, ordered from most to least
// senior, and always has at least two entries; HighestRole is its first
// element. RedundantRoles are further roles the member holds for a rank
// already in ConflictingRoles (an alias held next to the rank's own role).
type Conflict struct {
	UserID           string       `json:"userId"`
	Username         string       `json:"username"`
	GuildID          string       `json:"guildId"`
	ConflictingRoles []Assignment `json:"conflictingRoles"`
	RedundantRoles   []Assignment `json:"redundantRoles,omitempty"`
	HighestRole      Assignment   `json:"highestRole"`
	Severity         Severity     `json:"severity"`
	DetectedAt       time.Time    `json:"detectedAt"`
}

// RoleNames returns the names of every conflicting role, most senior first.
func (c Conflict) RoleNames() []string {
	names := make([]string, 0, len(c.ConflictingRoles))
	for _, a := range c.ConflictingRoles {
		names = append(names, a.RoleName)
	}
	return names
}

// Extra returns the roles resolution would remove: every role of a rank
// below the highest. Roles of the highest rank are kept, aliases included.
func (c Conflict) Extra() []Assignment {
	out := make([]Assignment, 0, len(c.ConflictingRoles)+len(c.RedundantRoles))
	for _, a := range c.ConflictingRoles {
		if a.RankKey != c.HighestRole.RankKey {
			out = append(out, a)
		}
	}
	for _, a := range c.RedundantRoles {
		if a.RankKey != c.HighestRole.RankKey {
			out = append(out, a)
		}
	}
	return out
}

// Resolution is the outcome of resolving one conflict.
type Resolution struct {
	Resolved     bool     `json:"resolved"`
	RemovedRoles []string `json:"removedRoles"`
	KeptRole     string   `json:"keptRole"`
	Error        string   `json:"error,omitempty"`
}

// StaffAssignments maps the member's roles through the rank table and
// returns the staff roles, most senior first. Roles that are not staff
// ranks are ignored. Equal levels keep the member's role order.
func StaffAssignments(table *RankTable, m platform.Member) []Assignment {
	var out []Assignment
	seen := make(map[string]bool, len(m.Roles))
	for _, r := range m.Roles {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		rank, ok := table.Lookup(r.Name)
		if !ok {
			continue
		}
		out = append(out, Assignment{
			RoleID:         r.ID,
			RoleName:       r.Name,
			RankKey:        rank.Key,
			HierarchyLevel: rank.Level,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].HierarchyLevel > out[j].HierarchyLevel
	})
	return out
}

// ByRank keeps one assignment per rank from staff, preferring the role
// named after the rank over an alias. The other roles of an already seen
// rank are returned as redundant. Order is preserved.
func ByRank(table *RankTable, staff []Assignment) (ranks, redundant []Assignment) {
	idx := make(map[string]int, len(staff))
	for _, a := range staff {
		i, ok := idx[a.RankKey]
		if !ok {
			idx[a.RankKey] = len(ranks)
			ranks = append(ranks, a)
			continue
		}
		if canonical(table, a) && !canonical(table, ranks[i]) {
			redundant = append(redundant, ranks[i])
			ranks[i] = a
			continue
		}
		redundant = append(redundant, a)
	}
	return ranks, redundant
}

func canonical(table *RankTable, a Assignment) bool {
	rank, ok := table.ByKey(a.RankKey)
	return ok && NormalizeName(a.RoleName) == NormalizeName(rank.Name)
}

// Detect returns the member's conflict, or nil when the member's roles map
// to zero or one staff rank. It never fails: unknown role names are simply
// not staff roles.
func Detect(table *RankTable, th Thresholds, guildID string, m platform.Member, now time.Time) *Conflict {
	ranks, redundant := ByRank(table, StaffAssignments(table, m))
	if len(ranks) < 2 {
		return nil
	}
	return &Conflict{
		UserID:           m.UserID,
		Username:         m.Username,
		GuildID:          guildID,
		ConflictingRoles: ranks,
		RedundantRoles:   redundant,
		HighestRole:      ranks[0],
		Severity:         th.Score(ranks[0].HierarchyLevel, ranks[1].HierarchyLevel, table.Top().Level),
		DetectedAt:       now,
	}
}
