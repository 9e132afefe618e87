package integrity

import (
	"context"
	"errors"
	"time"

	"github.com/roach88/staffsync/internal/domain"
)

// Severity grades an integrity issue.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// ErrAlreadyRepaired is returned by a repair action that found nothing left
// to fix. Repair counts such issues as skipped.
var ErrAlreadyRepaired = errors.New("already repaired")

// RepairFunc fixes one issue.
type RepairFunc func(ctx context.Context) error

// Issue is one detected violation. CanAutoRepair implies Repair is set.
type Issue struct {
	ID            string            `json:"id"`
	Severity      Severity          `json:"severity"`
	GuildID       string            `json:"guildId"`
	EntityType    domain.EntityType `json:"entityType"`
	EntityID      string            `json:"entityId"`
	Field         string            `json:"field,omitempty"`
	Rule          string            `json:"rule"`
	Message       string            `json:"message"`
	CanAutoRepair bool              `json:"canAutoRepair"`
	Repair        RepairFunc        `json:"-"`
}

// IssueID fingerprints the identity of an issue.
func IssueID(rule string, entityType domain.EntityType, entityID, field string) string {
	return domain.Fingerprint(domain.DomainIssue, map[string]string{
		"rule":       rule,
		"entityType": string(entityType),
		"entityId":   entityID,
		"field":      field,
	})
}

// Report is the result of one guild scan.
type Report struct {
	GuildID         string                    `json:"guildId"`
	ScannedAt       time.Time                 `json:"scannedAt"`
	EntitiesScanned int                       `json:"entitiesScanned"`
	Issues          []Issue                   `json:"issues"`
	BySeverity      map[Severity]int          `json:"bySeverity"`
	ByEntity        map[domain.EntityType]int `json:"byEntity"`
}

// Repairable returns the issues that carry a repair action.
func (r *Report) Repairable() []Issue {
	var out []Issue
	for _, is := range r.Issues {
		if is.CanAutoRepair {
			out = append(out, is)
		}
	}
	return out
}

// Critical returns the number of critical issues.
func (r *Report) Critical() int { return r.BySeverity[SeverityCritical] }

func newReport(guildID string, at time.Time) *Report {
	return &Report{
		GuildID:    guildID,
		ScannedAt:  at,
		Issues:     []Issue{},
		BySeverity: make(map[Severity]int),
		ByEntity:   make(map[domain.EntityType]int),
	}
}

func (r *Report) add(issues ...Issue) {
	for _, is := range issues {
		r.Issues = append(r.Issues, is)
		r.BySeverity[is.Severity]++
		r.ByEntity[is.EntityType]++
	}
}

// FailedRepair names an issue whose repair action failed.
type FailedRepair struct {
	IssueID string `json:"issueId"`
	Error   string `json:"error"`
}

// RepairResult summarizes a repair pass.
type RepairResult struct {
	TotalIssuesFound int            `json:"totalIssuesFound"`
	IssuesRepaired   int            `json:"issuesRepaired"`
	IssuesFailed     int            `json:"issuesFailed"`
	IssuesSkipped    int            `json:"issuesSkipped"`
	FailedRepairs    []FailedRepair `json:"failedRepairs"`
}
