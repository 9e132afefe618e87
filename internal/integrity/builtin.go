package integrity

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/staffsync/internal/domain"
)

// Built-in rule names.
const (
	RuleStaffStatus          = "staff-status"
	RuleStaffHierarchyLevel  = "staff-hierarchy-level"
	RuleCaseLeadAttorney     = "case-lead-attorney"
	RuleCaseAssignedLawyers  = "case-assigned-lawyers"
	RuleApplicationJob       = "application-job"
	RuleApplicationClosedJob = "application-closed-job"
	RuleJobRoleKey           = "job-role-key"
	RuleRetainerLawyer       = "retainer-lawyer"
	RuleFeedbackTarget       = "feedback-target"
	RuleReminderCase         = "reminder-case"
)

// BuiltinRules returns the built-in rule set.
func BuiltinRules() []Rule {
	return []Rule{
		{
			Name:        RuleStaffStatus,
			Description: "Staff status must be one of active, inactive, on_leave or terminated",
			EntityType:  domain.EntityStaff,
			Priority:    10,
			Validate:    validateStaffStatus,
		},
		{
			Name:        RuleStaffHierarchyLevel,
			Description: "Staff hierarchy level must match the level of the staff rank",
			EntityType:  domain.EntityStaff,
			Priority:    20,
			Validate:    validateStaffLevel,
		},
		{
			Name:        RuleCaseLeadAttorney,
			Description: "Case lead attorney must be an existing staff member",
			EntityType:  domain.EntityCase,
			Priority:    10,
			Validate:    validateCaseLead,
		},
		{
			Name:        RuleCaseAssignedLawyers,
			Description: "Assigned lawyers must be existing, active staff members",
			EntityType:  domain.EntityCase,
			Priority:    20,
			Validate:    validateCaseLawyers,
		},
		{
			Name:        RuleApplicationJob,
			Description: "Application must reference an existing job",
			EntityType:  domain.EntityApplication,
			Priority:    10,
			Validate:    validateApplicationJob,
		},
		{
			Name:        RuleApplicationClosedJob,
			Description: "Pending applications must target an open job",
			EntityType:  domain.EntityApplication,
			Priority:    20,
			Validate:    validateApplicationOpenJob,
		},
		{
			Name:        RuleJobRoleKey,
			Description: "Job role key must name a staff rank",
			EntityType:  domain.EntityJob,
			Priority:    10,
			Validate:    validateJobRoleKey,
		},
		{
			Name:        RuleRetainerLawyer,
			Description: "Retainer lawyer must be an existing staff member",
			EntityType:  domain.EntityRetainer,
			Priority:    10,
			Validate:    validateRetainerLawyer,
		},
		{
			Name:        RuleFeedbackTarget,
			Description: "Feedback target must be an existing staff member",
			EntityType:  domain.EntityFeedback,
			Priority:    10,
			Validate:    validateFeedbackTarget,
		},
		{
			Name:        RuleReminderCase,
			Description: "Reminder case must exist",
			EntityType:  domain.EntityReminder,
			Priority:    10,
			Validate:    validateReminderCase,
		},
	}
}

func validateStaffStatus(_ context.Context, doc domain.Document, env *Env) []Issue {
	s, ok := doc.(domain.Staff)
	if !ok || domain.ValidStaffStatuses[s.Status] {
		return nil
	}
	repo := env.Repos.Staff
	return []Issue{{
		Severity:      SeverityCritical,
		Field:         "status",
		Message:       fmt.Sprintf("staff %s has invalid status %q", s.Username, s.Status),
		CanAutoRepair: true,
		Repair: func(ctx context.Context) error {
			cur, err := repo.FindByID(ctx, s.ID)
			if err != nil {
				return err
			}
			if domain.ValidStaffStatuses[cur.Status] {
				return ErrAlreadyRepaired
			}
			return repo.Update(ctx, s.ID, domain.Patch{"status": string(domain.StaffActive)})
		},
	}}
}

func validateStaffLevel(_ context.Context, doc domain.Document, env *Env) []Issue {
	s, ok := doc.(domain.Staff)
	if !ok || env.Ranks == nil {
		return nil
	}
	rank, known := env.Ranks.ByKey(s.Role)
	if !known || rank.Level == s.HierarchyLevel {
		return nil
	}
	repo := env.Repos.Staff
	return []Issue{{
		Severity:      SeverityWarning,
		Field:         "hierarchyLevel",
		Message:       fmt.Sprintf("staff %s has level %d but rank %s is level %d", s.Username, s.HierarchyLevel, rank.Name, rank.Level),
		CanAutoRepair: true,
		Repair: func(ctx context.Context) error {
			cur, err := repo.FindByID(ctx, s.ID)
			if err != nil {
				return err
			}
			if cur.Role != s.Role || cur.HierarchyLevel == rank.Level {
				return ErrAlreadyRepaired
			}
			return repo.Update(ctx, s.ID, domain.Patch{"hierarchyLevel": rank.Level})
		},
	}}
}

func validateCaseLead(_ context.Context, doc domain.Document, env *Env) []Issue {
	c, ok := doc.(domain.Case)
	if !ok || c.LeadAttorneyID == "" {
		return nil
	}
	if _, found := env.StaffRef(c.LeadAttorneyID); found {
		return nil
	}
	repo := env.Repos.Cases
	dangling := c.LeadAttorneyID
	return []Issue{{
		Severity:      SeverityCritical,
		Field:         "leadAttorneyId",
		Message:       fmt.Sprintf("case %s lead attorney %s is not a staff member", c.CaseNumber, dangling),
		CanAutoRepair: true,
		Repair: func(ctx context.Context) error {
			cur, err := repo.FindByID(ctx, c.ID)
			if err != nil {
				return err
			}
			if cur.LeadAttorneyID != dangling {
				return ErrAlreadyRepaired
			}
			return repo.Update(ctx, c.ID, domain.Patch{"leadAttorneyId": nil})
		},
	}}
}

func validateCaseLawyers(_ context.Context, doc domain.Document, env *Env) []Issue {
	c, ok := doc.(domain.Case)
	if !ok {
		return nil
	}
	var issues []Issue
	repo := env.Repos.Cases
	seen := make(map[string]bool, len(c.AssignedLawyerIDs))
	for _, ref := range c.AssignedLawyerIDs {
		// One issue per lawyer; the field, and so the issue id, is per id.
		if seen[ref] {
			continue
		}
		seen[ref] = true
		field := fmt.Sprintf("assignedLawyerIds[%s]", ref)
		s, found := env.StaffRef(ref)
		if !found {
			dangling := ref
			issues = append(issues, Issue{
				Severity:      SeverityCritical,
				Field:         field,
				Message:       fmt.Sprintf("case %s assigned lawyer %s is not a staff member", c.CaseNumber, ref),
				CanAutoRepair: true,
				Repair: func(ctx context.Context) error {
					cur, err := repo.FindByID(ctx, c.ID)
					if err != nil {
						return err
					}
					kept, removed := without(cur.AssignedLawyerIDs, dangling)
					if !removed {
						return ErrAlreadyRepaired
					}
					return repo.Update(ctx, c.ID, domain.Patch{"assignedLawyerIds": kept})
				},
			})
			continue
		}
		if s.Status != domain.StaffActive {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Field:    field,
				Message:  fmt.Sprintf("case %s assigned lawyer %s is %s", c.CaseNumber, s.Username, s.Status),
			})
		}
	}
	return issues
}

func validateApplicationJob(_ context.Context, doc domain.Document, env *Env) []Issue {
	a, ok := doc.(domain.Application)
	if !ok {
		return nil
	}
	if _, found := env.Job(a.JobID); found {
		return nil
	}
	return []Issue{{
		Severity: SeverityCritical,
		Field:    "jobId",
		Message:  fmt.Sprintf("application %s references missing job %q", a.ID, a.JobID),
	}}
}

func validateApplicationOpenJob(_ context.Context, doc domain.Document, env *Env) []Issue {
	a, ok := doc.(domain.Application)
	if !ok || a.Status != domain.ApplicationPending {
		return nil
	}
	job, found := env.Job(a.JobID)
	if !found || job.IsOpen {
		return nil
	}
	repo := env.Repos.Applications
	return []Issue{{
		Severity:      SeverityWarning,
		Field:         "status",
		Message:       fmt.Sprintf("application %s is pending but job %s is closed", a.ID, job.Title),
		CanAutoRepair: true,
		Repair: func(ctx context.Context) error {
			cur, err := repo.FindByID(ctx, a.ID)
			if err != nil {
				return err
			}
			if cur.Status != domain.ApplicationPending {
				return ErrAlreadyRepaired
			}
			return repo.Update(ctx, a.ID, domain.Patch{"status": string(domain.ApplicationWithdrawn)})
		},
	}}
}

func validateJobRoleKey(_ context.Context, doc domain.Document, env *Env) []Issue {
	j, ok := doc.(domain.Job)
	if !ok || env.Ranks == nil || j.RoleKey == "" {
		return nil
	}
	if _, known := env.Ranks.ByKey(j.RoleKey); known {
		return nil
	}
	return []Issue{{
		Severity: SeverityWarning,
		Field:    "roleKey",
		Message:  fmt.Sprintf("job %s hires for unknown rank %q", j.Title, j.RoleKey),
	}}
}

func validateRetainerLawyer(_ context.Context, doc domain.Document, env *Env) []Issue {
	r, ok := doc.(domain.Retainer)
	if !ok || r.LawyerID == "" {
		return nil
	}
	if _, found := env.StaffRef(r.LawyerID); found {
		return nil
	}
	return []Issue{{
		Severity: SeverityCritical,
		Field:    "lawyerId",
		Message:  fmt.Sprintf("retainer %s lawyer %s is not a staff member", r.ID, r.LawyerID),
	}}
}

func validateFeedbackTarget(_ context.Context, doc domain.Document, env *Env) []Issue {
	f, ok := doc.(domain.Feedback)
	if !ok || f.TargetStaffID == "" {
		return nil
	}
	if _, found := env.StaffRef(f.TargetStaffID); found {
		return nil
	}
	repo := env.Repos.Feedback
	dangling := f.TargetStaffID
	return []Issue{{
		Severity:      SeverityWarning,
		Field:         "targetStaffId",
		Message:       fmt.Sprintf("feedback %s targets missing staff %s", f.ID, dangling),
		CanAutoRepair: true,
		Repair: func(ctx context.Context) error {
			cur, err := repo.FindByID(ctx, f.ID)
			if err != nil {
				return err
			}
			if cur.TargetStaffID != dangling {
				return ErrAlreadyRepaired
			}
			return repo.Update(ctx, f.ID, domain.Patch{"targetStaffId": nil, "targetUsername": nil})
		},
	}}
}

func validateReminderCase(_ context.Context, doc domain.Document, env *Env) []Issue {
	r, ok := doc.(domain.Reminder)
	if !ok || r.CaseID == "" {
		return nil
	}
	if _, found := env.Case(r.CaseID); found {
		return nil
	}
	repo := env.Repos.Reminders
	dangling := r.CaseID
	return []Issue{{
		Severity:      SeverityWarning,
		Field:         "caseId",
		Message:       fmt.Sprintf("reminder %s references missing case %s", r.ID, dangling),
		CanAutoRepair: true,
		Repair: func(ctx context.Context) error {
			cur, err := repo.FindByID(ctx, r.ID)
			if err != nil {
				return err
			}
			if cur.CaseID != dangling {
				return ErrAlreadyRepaired
			}
			return repo.Update(ctx, r.ID, domain.Patch{"caseId": nil})
		},
	}}
}

// notFoundIsRepaired treats a document deleted since the scan as repaired.
func notFoundIsRepaired(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return ErrAlreadyRepaired
	}
	return err
}

func without(ids []string, drop string) ([]string, bool) {
	kept := make([]string, 0, len(ids))
	removed := false
	for _, id := range ids {
		if id == drop {
			removed = true
			continue
		}
		kept = append(kept, id)
	}
	return kept, removed
}
