package integrity

import (
	"context"
	"fmt"

	"github.com/roach88/staffsync/internal/domain"
	"github.com/roach88/staffsync/internal/roles"
)

// Env is what a rule sees: one guild's collections, indexed for reference
// checks, plus the repositories repair actions write through.
type Env struct {
	GuildID string
	Repos   domain.Repositories
	Ranks   *roles.RankTable // nil disables rank-table rules

	Staff        []domain.Staff
	Cases        []domain.Case
	Applications []domain.Application
	Jobs         []domain.Job
	Retainers    []domain.Retainer
	Feedback     []domain.Feedback
	Reminders    []domain.Reminder

	staffByID   map[string]domain.Staff
	staffByUser map[string]domain.Staff
	jobs        map[string]domain.Job
	cases       map[string]domain.Case
}

// LoadEnv reads every collection of the guild.
func LoadEnv(ctx context.Context, repos domain.Repositories, ranks *roles.RankTable, guildID string) (*Env, error) {
	env := &Env{GuildID: guildID, Repos: repos, Ranks: ranks}
	var err error
	if env.Staff, err = repos.Staff.FindByGuildID(ctx, guildID); err != nil {
		return nil, fmt.Errorf("load staff: %w", err)
	}
	if env.Cases, err = repos.Cases.FindByGuildID(ctx, guildID); err != nil {
		return nil, fmt.Errorf("load cases: %w", err)
	}
	if env.Applications, err = repos.Applications.FindByGuildID(ctx, guildID); err != nil {
		return nil, fmt.Errorf("load applications: %w", err)
	}
	if env.Jobs, err = repos.Jobs.FindByGuildID(ctx, guildID); err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}
	if env.Retainers, err = repos.Retainers.FindByGuildID(ctx, guildID); err != nil {
		return nil, fmt.Errorf("load retainers: %w", err)
	}
	if env.Feedback, err = repos.Feedback.FindByGuildID(ctx, guildID); err != nil {
		return nil, fmt.Errorf("load feedback: %w", err)
	}
	if env.Reminders, err = repos.Reminders.FindByGuildID(ctx, guildID); err != nil {
		return nil, fmt.Errorf("load reminders: %w", err)
	}
	env.index()
	return env, nil
}

func (e *Env) index() {
	e.staffByID = make(map[string]domain.Staff, len(e.Staff))
	e.staffByUser = make(map[string]domain.Staff, len(e.Staff))
	for _, s := range e.Staff {
		e.staffByID[s.ID] = s
		if s.UserID != "" {
			e.staffByUser[s.UserID] = s
		}
	}
	e.jobs = make(map[string]domain.Job, len(e.Jobs))
	for _, j := range e.Jobs {
		e.jobs[j.ID] = j
	}
	e.cases = make(map[string]domain.Case, len(e.Cases))
	for _, c := range e.Cases {
		e.cases[c.ID] = c
	}
}

// StaffRef resolves a staff reference. References may hold either the
// staff record id or the member's user id.
func (e *Env) StaffRef(ref string) (domain.Staff, bool) {
	if s, ok := e.staffByID[ref]; ok {
		return s, true
	}
	s, ok := e.staffByUser[ref]
	return s, ok
}

// Job returns the job with the given id.
func (e *Env) Job(id string) (domain.Job, bool) {
	j, ok := e.jobs[id]
	return j, ok
}

// Case returns the case with the given id.
func (e *Env) Case(id string) (domain.Case, bool) {
	c, ok := e.cases[id]
	return c, ok
}

// Documents returns the loaded documents of one type in repository order.
func (e *Env) Documents(t domain.EntityType) []domain.Document {
	var out []domain.Document
	switch t {
	case domain.EntityStaff:
		for _, d := range e.Staff {
			out = append(out, d)
		}
	case domain.EntityCase:
		for _, d := range e.Cases {
			out = append(out, d)
		}
	case domain.EntityApplication:
		for _, d := range e.Applications {
			out = append(out, d)
		}
	case domain.EntityJob:
		for _, d := range e.Jobs {
			out = append(out, d)
		}
	case domain.EntityRetainer:
		for _, d := range e.Retainers {
			out = append(out, d)
		}
	case domain.EntityFeedback:
		for _, d := range e.Feedback {
			out = append(out, d)
		}
	case domain.EntityReminder:
		for _, d := range e.Reminders {
			out = append(out, d)
		}
	}
	return out
}

// Size returns the number of loaded documents.
func (e *Env) Size() int {
	return len(e.Staff) + len(e.Cases) + len(e.Applications) + len(e.Jobs) +
		len(e.Retainers) + len(e.Feedback) + len(e.Reminders)
}
