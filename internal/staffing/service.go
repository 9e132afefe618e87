// Package staffing hires, fires and promotes staff. Every mutation runs
// through the operation queue so concurrent commands cannot interleave
// their read-check-write steps.
package staffing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/staffsync/internal/audit"
	"github.com/roach88/staffsync/internal/domain"
	"github.com/roach88/staffsync/internal/integrity"
	"github.com/roach88/staffsync/internal/platform"
	"github.com/roach88/staffsync/internal/queue"
	"github.com/roach88/staffsync/internal/roles"
)

// Service applies staffing changes to the store and the guild.
type Service struct {
	queue    *queue.Queue
	staff    domain.Repository[domain.Staff]
	table    *roles.RankTable
	guild    platform.Guild
	scanner  *integrity.Scanner
	recorder audit.Recorder
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// Option configures a Service.
type Option func(*Service)

// WithScanner enables pre-operation integrity validation. Critical issues
// on the record being written abort the operation.
func WithScanner(s *integrity.Scanner) Option {
	return func(svc *Service) { svc.scanner = s }
}

// WithRecorder sets where staffing audit entries go.
func WithRecorder(r audit.Recorder) Option {
	return func(svc *Service) { svc.recorder = r }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(svc *Service) { svc.logger = l }
}

// WithClock overrides the clock used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(svc *Service) { svc.now = now }
}

// WithIDGenerator overrides staff record id generation (default UUIDv7).
func WithIDGenerator(gen func() string) Option {
	return func(svc *Service) { svc.newID = gen }
}

// NewService creates a staffing service for one guild.
func NewService(q *queue.Queue, staff domain.Repository[domain.Staff], table *roles.RankTable, guild platform.Guild, opts ...Option) *Service {
	s := &Service{
		queue:    q,
		staff:    staff,
		table:    table,
		guild:    guild,
		recorder: &audit.Memory{},
		logger:   slog.Default(),
		now:      time.Now,
		newID:    func() string { return uuid.Must(uuid.NewV7()).String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hire gives userID the rank and creates or reactivates the staff record.
func (s *Service) Hire(ctx context.Context, actorID, userID, rankKey string) (domain.Staff, error) {
	reason := fmt.Sprintf("hired as %s", rankKey)
	return s.submit(ctx, actorID, audit.ActionStaffHired, reason, func(ctx context.Context) (domain.Staff, error) {
		rank, ok := s.table.ByKey(rankKey)
		if !ok {
			return domain.Staff{}, newError(ErrCodeUnknownRank, userID, "no rank %q", rankKey)
		}
		member, err := s.member(ctx, userID)
		if err != nil {
			return domain.Staff{}, err
		}
		current, previous, err := s.records(ctx, userID)
		if err != nil {
			return domain.Staff{}, err
		}
		if current != nil {
			return domain.Staff{}, newError(ErrCodeAlreadyStaff, userID, "already employed as %s", current.Role)
		}
		if err := s.checkLimit(ctx, rank); err != nil {
			return domain.Staff{}, err
		}

		now := s.now()
		rec := domain.Staff{
			ID:             s.newID(),
			GuildID:        s.guild.ID(),
			UserID:         userID,
			Username:       member.Username,
			Role:           rank.Key,
			HierarchyLevel: rank.Level,
			Status:         domain.StaffActive,
			HiredAt:        now,
			HiredBy:        actorID,
			UpdatedAt:      now,
		}
		if previous != nil {
			rec.ID = previous.ID
		}
		if err := s.validate(ctx, rec, "hire"); err != nil {
			return domain.Staff{}, err
		}
		undo, err := s.syncRoles(ctx, member, rank)
		if err != nil {
			return domain.Staff{}, err
		}

		if previous != nil {
			err = s.staff.Update(ctx, rec.ID, domain.Patch{
				"username":       rec.Username,
				"role":           rec.Role,
				"hierarchyLevel": rec.HierarchyLevel,
				"status":         string(rec.Status),
				"hiredAt":        rec.HiredAt,
				"hiredBy":        rec.HiredBy,
				"updatedAt":      rec.UpdatedAt,
			})
		} else {
			err = s.staff.Add(ctx, rec)
		}
		if err != nil {
			undo(ctx)
			return domain.Staff{}, fmt.Errorf("save staff record for %s: %w", userID, err)
		}
		return rec, nil
	})
}

// Promote moves a current staff member to a more senior rank.
func (s *Service) Promote(ctx context.Context, actorID, userID, rankKey string) (domain.Staff, error) {
	reason := fmt.Sprintf("promoted to %s", rankKey)
	return s.submit(ctx, actorID, audit.ActionStaffPromoted, reason, func(ctx context.Context) (domain.Staff, error) {
		rank, ok := s.table.ByKey(rankKey)
		if !ok {
			return domain.Staff{}, newError(ErrCodeUnknownRank, userID, "no rank %q", rankKey)
		}
		current, _, err := s.records(ctx, userID)
		if err != nil {
			return domain.Staff{}, err
		}
		if current == nil {
			return domain.Staff{}, newError(ErrCodeNotStaff, userID, "not a current staff member")
		}
		if rank.Level <= current.HierarchyLevel {
			return domain.Staff{}, newError(ErrCodeInvalidPromotion, userID, "%s is not above level %d", rank.Name, current.HierarchyLevel)
		}
		if err := s.checkLimit(ctx, rank); err != nil {
			return domain.Staff{}, err
		}
		member, err := s.member(ctx, userID)
		if err != nil {
			return domain.Staff{}, err
		}

		rec := *current
		rec.Role = rank.Key
		rec.HierarchyLevel = rank.Level
		rec.UpdatedAt = s.now()
		if err := s.validate(ctx, rec, "promote"); err != nil {
			return domain.Staff{}, err
		}
		undo, err := s.syncRoles(ctx, member, rank)
		if err != nil {
			return domain.Staff{}, err
		}
		err = s.staff.Update(ctx, rec.ID, domain.Patch{
			"role":           rec.Role,
			"hierarchyLevel": rec.HierarchyLevel,
			"updatedAt":      rec.UpdatedAt,
		})
		if err != nil {
			undo(ctx)
			return domain.Staff{}, fmt.Errorf("save staff record for %s: %w", userID, err)
		}
		return rec, nil
	})
}

// Fire terminates a current staff member and strips their rank roles.
// Role removal failures are logged; the record is terminated regardless.
func (s *Service) Fire(ctx context.Context, actorID, userID, reason string) (domain.Staff, error) {
	if reason == "" {
		reason = "terminated"
	}
	return s.submit(ctx, actorID, audit.ActionStaffFired, reason, func(ctx context.Context) (domain.Staff, error) {
		current, _, err := s.records(ctx, userID)
		if err != nil {
			return domain.Staff{}, err
		}
		if current == nil {
			return domain.Staff{}, newError(ErrCodeNotStaff, userID, "not a current staff member")
		}

		rec := *current
		rec.Status = domain.StaffTerminated
		rec.UpdatedAt = s.now()
		if err := s.staff.Update(ctx, rec.ID, domain.Patch{
			"status":    string(rec.Status),
			"updatedAt": rec.UpdatedAt,
		}); err != nil {
			return domain.Staff{}, fmt.Errorf("save staff record for %s: %w", userID, err)
		}

		member, err := s.guild.Member(ctx, userID)
		if err != nil {
			s.logger.Warn("fired member not in guild, roles left as is", "user", userID, "error", err)
			return rec, nil
		}
		for _, a := range roles.StaffAssignments(s.table, member) {
			if err := s.guild.RemoveRole(ctx, userID, a.RoleID); err != nil {
				s.logger.Warn("role removal failed", "user", userID, "role", a.RoleName, "error", err)
			}
		}
		return rec, nil
	})
}

// List returns the guild's staff records, oldest first.
func (s *Service) List(ctx context.Context) ([]domain.Staff, error) {
	return s.staff.FindByGuildID(ctx, s.guild.ID())
}

// submit runs fn on the queue, elevated when the actor owns the guild, and
// audits a successful result.
func (s *Service) submit(ctx context.Context, actorID string, action audit.Action, reason string, fn func(ctx context.Context) (domain.Staff, error)) (domain.Staff, error) {
	work := queue.Wrap(func(ctx context.Context) (any, error) {
		return fn(ctx)
	}, queue.Audit(s.recorder, action, func(result any) (string, audit.Details) {
		rec, _ := result.(domain.Staff)
		return rec.UserID, audit.Details{
			Reason:   reason,
			Metadata: map[string]any{"staffId": rec.ID, "role": rec.Role, "status": string(rec.Status)},
			After:    rec,
		}
	}))

	v, err := s.queue.Enqueue(ctx, work, actorID, s.guild.ID(), s.isOwner(ctx, actorID)).Wait(ctx)
	if err != nil {
		return domain.Staff{}, err
	}
	rec, _ := v.(domain.Staff)
	return rec, nil
}

func (s *Service) isOwner(ctx context.Context, actorID string) bool {
	owner, err := s.guild.OwnerID(ctx)
	if err != nil {
		s.logger.Debug("owner lookup failed, queueing at normal priority", "error", err)
		return false
	}
	return owner != "" && owner == actorID
}

func (s *Service) member(ctx context.Context, userID string) (platform.Member, error) {
	m, err := s.guild.Member(ctx, userID)
	if err != nil {
		return platform.Member{}, newError(ErrCodeNotMember, userID, "member lookup failed: %v", err)
	}
	return m, nil
}

// records returns the user's current (non-terminated) staff record and
// their most recent terminated record, either of which may be nil.
func (s *Service) records(ctx context.Context, userID string) (current, previous *domain.Staff, err error) {
	recs, err := s.staff.FindByUserID(ctx, s.guild.ID(), userID)
	if err != nil {
		return nil, nil, fmt.Errorf("load staff records for %s: %w", userID, err)
	}
	for i := range recs {
		r := recs[i]
		if r.Status == domain.StaffTerminated {
			previous = &r
			continue
		}
		current = &r
	}
	return current, previous, nil
}

// checkLimit fails when the rank already has Limit current holders.
func (s *Service) checkLimit(ctx context.Context, rank roles.Rank) error {
	if rank.Limit <= 0 {
		return nil
	}
	all, err := s.staff.FindByGuildID(ctx, s.guild.ID())
	if err != nil {
		return fmt.Errorf("count %s staff: %w", rank.Key, err)
	}
	held := 0
	for _, r := range all {
		if r.Role == rank.Key && r.Status != domain.StaffTerminated {
			held++
		}
	}
	if held >= rank.Limit {
		return newError(ErrCodeRankFull, "", "%s is full (%d of %d)", rank.Name, held, rank.Limit)
	}
	return nil
}

func (s *Service) validate(ctx context.Context, rec domain.Staff, operation string) error {
	if s.scanner == nil {
		return nil
	}
	issues, err := s.scanner.ValidateBeforeOperation(ctx, rec, operation, nil)
	if err != nil {
		return err
	}
	for _, is := range issues {
		if is.Severity == integrity.SeverityCritical {
			return newError(ErrCodeValidation, rec.UserID, "%s", is.Message)
		}
	}
	return nil
}

// syncRoles grants the rank's role and removes every other rank role the
// member holds, leaving exactly one staff role. The returned undo puts the
// member's roles back the way they were; callers run it when the record
// change that goes with the sync cannot be saved.
func (s *Service) syncRoles(ctx context.Context, member platform.Member, rank roles.Rank) (func(context.Context), error) {
	role, err := s.rankRole(ctx, rank)
	if err != nil {
		return nil, err
	}
	held := member.HasRole(role.ID)
	if err := s.guild.AddRole(ctx, member.UserID, role.ID); err != nil {
		return nil, fmt.Errorf("grant %s to %s: %w", rank.Name, member.UserID, err)
	}
	var removed []roles.Assignment
	for _, a := range roles.StaffAssignments(s.table, member) {
		if a.RoleID == role.ID {
			continue
		}
		if err := s.guild.RemoveRole(ctx, member.UserID, a.RoleID); err != nil {
			s.logger.Warn("stale rank role not removed", "user", member.UserID, "role", a.RoleName, "error", err)
			continue
		}
		removed = append(removed, a)
	}

	return func(ctx context.Context) {
		// The save may have failed because ctx ended; the revert still runs.
		ctx = context.WithoutCancel(ctx)
		for _, a := range removed {
			if err := s.guild.AddRole(ctx, member.UserID, a.RoleID); err != nil {
				s.logger.Warn("rank role not restored", "user", member.UserID, "role", a.RoleName, "error", err)
			}
		}
		if held {
			return
		}
		if err := s.guild.RemoveRole(ctx, member.UserID, role.ID); err != nil {
			s.logger.Warn("granted rank role not revoked", "user", member.UserID, "role", role.Name, "error", err)
		}
	}, nil
}

// rankRole finds the guild role for a rank, preferring an exact match on
// the rank name over an alias.
func (s *Service) rankRole(ctx context.Context, rank roles.Rank) (platform.Role, error) {
	guildRoles, err := s.guild.Roles(ctx)
	if err != nil {
		return platform.Role{}, fmt.Errorf("list guild roles: %w", err)
	}
	var alias *platform.Role
	for i := range guildRoles {
		r := guildRoles[i]
		matched, ok := s.table.Lookup(r.Name)
		if !ok || matched.Key != rank.Key {
			continue
		}
		if roles.NormalizeName(r.Name) == roles.NormalizeName(rank.Name) {
			return r, nil
		}
		if alias == nil {
			alias = &r
		}
	}
	if alias != nil {
		return *alias, nil
	}
	return platform.Role{}, fmt.Errorf("guild %s has no role for rank %s", s.guild.ID(), rank.Name)
}
