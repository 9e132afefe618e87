package integrity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/staffsync/internal/audit"
	"github.com/roach88/staffsync/internal/domain"
	"github.com/roach88/staffsync/internal/roles"
)

// Scanner runs the rule registry over a guild's data.
type Scanner struct {
	repos    domain.Repositories
	ranks    *roles.RankTable
	recorder audit.Recorder
	logger   *slog.Logger
	now      func() time.Time
	ttl      time.Duration

	registry *registry
	cache    *cache
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithRankTable enables the rules that check staff ranks.
func WithRankTable(t *roles.RankTable) Option {
	return func(s *Scanner) { s.ranks = t }
}

// WithRecorder sets where repair audit entries go.
func WithRecorder(r audit.Recorder) Option {
	return func(s *Scanner) { s.recorder = r }
}

// WithLogger sets the scanner's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) { s.logger = l }
}

// WithClock overrides the clock used for report stamps and cache expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) { s.now = now }
}

// WithCacheTTL sets how long pre-operation validation results are reused.
// Zero disables the cache.
func WithCacheTTL(d time.Duration) Option {
	return func(s *Scanner) { s.ttl = d }
}

// NewScanner creates a scanner with the built-in rules registered.
func NewScanner(repos domain.Repositories, opts ...Option) *Scanner {
	s := &Scanner{
		repos:    repos,
		recorder: &audit.Memory{},
		logger:   slog.Default(),
		now:      time.Now,
		ttl:      DefaultCacheTTL,
		registry: newRegistry(BuiltinRules()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cache = newCache(s.ttl, s.now)
	return s
}

// AddCustomRule registers a rule that runs alongside the built-ins.
func (s *Scanner) AddCustomRule(r Rule) error {
	if err := s.registry.add(r); err != nil {
		return fmt.Errorf("add custom rule: %w", err)
	}
	s.cache.clear()
	return nil
}

// Rules returns the rules for one entity type in run order.
func (s *Scanner) Rules(t domain.EntityType) []Rule {
	return s.registry.rules(t)
}

// LoadEnv reads the guild's collections for use with ValidateBeforeOperation
// and BatchValidate.
func (s *Scanner) LoadEnv(ctx context.Context, guildID string) (*Env, error) {
	return LoadEnv(ctx, s.repos, s.ranks, guildID)
}

// Scan checks every document of the guild.
func (s *Scanner) Scan(ctx context.Context, guildID string) (*Report, error) {
	env, err := s.LoadEnv(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("integrity scan of guild %s: %w", guildID, err)
	}
	report := newReport(guildID, s.now())
	report.EntitiesScanned = env.Size()
	for _, t := range domain.EntityTypes {
		rules := s.registry.rules(t)
		for _, doc := range env.Documents(t) {
			report.add(s.run(ctx, rules, doc, env)...)
		}
	}
	s.logger.Debug("integrity scan finished",
		"guild", guildID,
		"entities", report.EntitiesScanned,
		"issues", len(report.Issues),
	)
	return report, nil
}

// run applies rules to one document and fills in issue identity.
func (s *Scanner) run(ctx context.Context, rules []Rule, doc domain.Document, env *Env) []Issue {
	var out []Issue
	for _, rule := range rules {
		for _, is := range rule.Validate(ctx, doc, env) {
			is.Rule = rule.Name
			is.GuildID = doc.DocGuildID()
			is.EntityType = doc.DocType()
			is.EntityID = doc.DocID()
			if is.Severity == "" {
				is.Severity = SeverityWarning
			}
			if is.CanAutoRepair && is.Repair == nil {
				s.logger.Warn("rule marked issue repairable without a repair action",
					"rule", rule.Name,
					"entity", is.EntityID,
				)
				is.CanAutoRepair = false
			}
			is.ID = IssueID(is.Rule, is.EntityType, is.EntityID, is.Field)
			out = append(out, is)
		}
	}
	return out
}

// Repair runs the repair action of every repairable issue. A failure is
// recorded and the pass continues. Issues without an action, and actions
// that find nothing left to fix, are skipped. The validation cache is
// cleared afterwards.
func (s *Scanner) Repair(ctx context.Context, actorID string, issues []Issue) RepairResult {
	res := RepairResult{TotalIssuesFound: len(issues), FailedRepairs: []FailedRepair{}}
	defer s.cache.clear()

	for _, is := range issues {
		if !is.CanAutoRepair || is.Repair == nil {
			res.IssuesSkipped++
			continue
		}
		err := notFoundIsRepaired(s.repairOne(ctx, is))
		switch {
		case errors.Is(err, ErrAlreadyRepaired):
			res.IssuesSkipped++
		case err != nil:
			s.logger.Warn("integrity repair failed", "issue", is.ID, "rule", is.Rule, "entity", is.EntityID, "error", err)
			res.IssuesFailed++
			res.FailedRepairs = append(res.FailedRepairs, FailedRepair{IssueID: is.ID, Error: err.Error()})
		default:
			res.IssuesRepaired++
			s.audit(ctx, actorID, is)
		}
	}
	return res
}

// repairOne runs a single repair action, converting a panic into an error.
func (s *Scanner) repairOne(ctx context.Context, is Issue) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("repair panicked: %v", r)
		}
	}()
	return is.Repair(ctx)
}

func (s *Scanner) audit(ctx context.Context, actorID string, is Issue) {
	entry := audit.Entry{
		GuildID:  is.GuildID,
		Action:   audit.ActionIntegrityRepair,
		ActorID:  actorID,
		TargetID: is.EntityID,
		Details: audit.Details{
			Reason: is.Message,
			Metadata: map[string]any{
				"issueId":    is.ID,
				"rule":       is.Rule,
				"entityType": string(is.EntityType),
				"field":      is.Field,
				"severity":   string(is.Severity),
			},
		},
		Timestamp: s.now(),
	}
	if err := s.recorder.Record(ctx, entry); err != nil {
		s.logger.Warn("audit record failed", "issue", is.ID, "error", err)
	}
}

// ValidateBeforeOperation runs the rules for a single document about to be
// written. Results are cached per (type, id, operation) for the cache TTL.
// A nil env is loaded from the document's guild.
func (s *Scanner) ValidateBeforeOperation(ctx context.Context, doc domain.Document, operation string, env *Env) ([]Issue, error) {
	key := cacheKey{entityType: doc.DocType(), entityID: doc.DocID(), operation: operation}
	if issues, ok := s.cache.get(key); ok {
		return issues, nil
	}
	if env == nil {
		var err error
		if env, err = s.LoadEnv(ctx, doc.DocGuildID()); err != nil {
			return nil, fmt.Errorf("validate %s %s: %w", doc.DocType(), doc.DocID(), err)
		}
	}
	issues := s.run(ctx, s.registry.rules(doc.DocType()), doc, env)
	s.cache.put(key, issues)
	return issues, nil
}

// BatchValidate runs the rules over a mixed list of documents and returns
// only the documents with issues, keyed by document id.
func (s *Scanner) BatchValidate(ctx context.Context, guildID string, docs []domain.Document) (map[string][]Issue, error) {
	env, err := s.LoadEnv(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("batch validate guild %s: %w", guildID, err)
	}
	out := make(map[string][]Issue)
	for _, doc := range docs {
		if issues := s.run(ctx, s.registry.rules(doc.DocType()), doc, env); len(issues) > 0 {
			out[doc.DocID()] = append(out[doc.DocID()], issues...)
		}
	}
	return out, nil
}
