package roles

import (
	"sort"
	"sync"
	"time"
)

// Record is one past resolution.
type Record struct {
	UserID       string    `json:"userId"`
	Severity     Severity  `json:"severity"`
	Resolved     bool      `json:"resolved"`
	RemovedRoles []string  `json:"removedRoles"`
	KeptRole     string    `json:"keptRole"`
	At           time.Time `json:"at"`
}

// RoleCount is a role name and how often it was removed.
type RoleCount struct {
	Role  string `json:"role"`
	Count int    `json:"count"`
}

// Stats summarizes a guild's resolution history.
type Stats struct {
	Total            int         `json:"total"`
	Successful       int         `json:"successful"`
	Failed           int         `json:"failed"`
	MostRemovedRoles []RoleCount `json:"mostRemovedRoles"`
}

// History is an append-only, per-guild table of resolutions. It lives for
// the process lifetime and is not persisted.
type History struct {
	mu      sync.Mutex
	byGuild map[string][]Record
}

// NewHistory returns an empty history table.
func NewHistory() *History {
	return &History{byGuild: make(map[string][]Record)}
}

// Append adds a record to the guild's history.
func (h *History) Append(guildID string, r Record) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.byGuild[guildID] = append(h.byGuild[guildID], r)
}

// Records returns a copy of the guild's history, oldest first.
func (h *History) Records(guildID string) []Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Record(nil), h.byGuild[guildID]...)
}

// Clear drops the guild's history.
func (h *History) Clear(guildID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.byGuild, guildID)
}

// maxTopRoles caps MostRemovedRoles.
const maxTopRoles = 5

// Statistics summarizes the guild's history. MostRemovedRoles is sorted by
// count descending, then name.
func (h *History) Statistics(guildID string) Stats {
	records := h.Records(guildID)
	st := Stats{Total: len(records)}
	counts := make(map[string]int)
	for _, r := range records {
		if r.Resolved {
			st.Successful++
		} else {
			st.Failed++
		}
		for _, role := range r.RemovedRoles {
			counts[role]++
		}
	}
	for role, n := range counts {
		st.MostRemovedRoles = append(st.MostRemovedRoles, RoleCount{Role: role, Count: n})
	}
	sort.Slice(st.MostRemovedRoles, func(i, j int) bool {
		a, b := st.MostRemovedRoles[i], st.MostRemovedRoles[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Role < b.Role
	})
	if len(st.MostRemovedRoles) > maxTopRoles {
		st.MostRemovedRoles = st.MostRemovedRoles[:maxTopRoles]
	}
	return st
}
