package roles

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/staffsync/internal/audit"
	"github.com/roach88/staffsync/internal/config"
	"github.com/roach88/staffsync/internal/platform"
)

// DefaultProgressInterval is how many members a scan processes between
// progress callbacks.
const DefaultProgressInterval = 10

// ScanProgress is reported during a guild scan.
type ScanProgress struct {
	Processed      int `json:"processed"`
	Total          int `json:"total"`
	ConflictsFound int `json:"conflictsFound"`
}

// ResolveProgress is reported during bulk resolution.
type ResolveProgress struct {
	Processed         int `json:"processed"`
	Total             int `json:"total"`
	ConflictsResolved int `json:"conflictsResolved"`
}

// Report summarizes a guild's role state.
type Report struct {
	GuildID               string           `json:"guildId"`
	MembersScanned        int              `json:"membersScanned"`
	MembersWithStaffRoles int              `json:"membersWithStaffRoles"`
	ConflictsFound        int              `json:"conflictsFound"`
	ByRole                map[string]int   `json:"byRole"`
	BySeverity            map[Severity]int `json:"bySeverity"`
	Conflicts             []Conflict       `json:"conflicts"`
}

// Engine detects and resolves role conflicts in a guild.
type Engine struct {
	table      *RankTable
	thresholds Thresholds
	recorder   audit.Recorder
	history    *History
	logger     *slog.Logger
	now        func() time.Time
	interval   int
	notifyMsg  string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithThresholds sets the severity thresholds.
func WithThresholds(t Thresholds) EngineOption {
	return func(e *Engine) { e.thresholds = t }
}

// WithRecorder sets where resolution audit entries go.
func WithRecorder(r audit.Recorder) EngineOption {
	return func(e *Engine) { e.recorder = r }
}

// WithHistory injects the resolution history table.
func WithHistory(h *History) EngineOption {
	return func(e *Engine) { e.history = h }
}

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithClock overrides the clock used for DetectedAt and history stamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithProgressInterval sets how many members pass between scan progress
// callbacks. Values below 1 are ignored.
func WithProgressInterval(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.interval = n
		}
	}
}

// WithNotifyMessage sets the direct message sent after a resolution. Each
// config.NotifyRolePlaceholder in msg is replaced with the kept role name.
// An empty message disables notifications.
func WithNotifyMessage(msg string) EngineOption {
	return func(e *Engine) { e.notifyMsg = msg }
}

// NewEngine creates an engine over the given rank table.
func NewEngine(table *RankTable, opts ...EngineOption) *Engine {
	e := &Engine{
		table:      table,
		thresholds: DefaultThresholds,
		recorder:   &audit.Memory{},
		history:    NewHistory(),
		logger:     slog.Default(),
		now:        time.Now,
		interval:   DefaultProgressInterval,
		notifyMsg:  "Your extra staff roles were removed. You keep the " + config.NotifyRolePlaceholder + " role.",
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Table returns the engine's rank table.
func (e *Engine) Table() *RankTable { return e.table }

// Detect returns the member's conflict or nil.
func (e *Engine) Detect(guildID string, m platform.Member) *Conflict {
	return Detect(e.table, e.thresholds, guildID, m, e.now())
}

// Scan fetches every member and returns the conflicts in member order.
// progress may be nil.
func (e *Engine) Scan(ctx context.Context, guild platform.Guild, progress func(ScanProgress)) ([]Conflict, error) {
	members, err := guild.Members(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch members of guild %s: %w", guild.ID(), err)
	}
	var conflicts []Conflict
	total := len(members)
	for i, m := range members {
		if c := e.Detect(guild.ID(), m); c != nil {
			conflicts = append(conflicts, *c)
		}
		processed := i + 1
		if progress != nil && processed%e.interval == 0 && processed != total {
			progress(ScanProgress{Processed: processed, Total: total, ConflictsFound: len(conflicts)})
		}
	}
	if progress != nil {
		progress(ScanProgress{Processed: total, Total: total, ConflictsFound: len(conflicts)})
	}
	e.logger.Debug("role scan finished", "guild", guild.ID(), "members", total, "conflicts", len(conflicts))
	return conflicts, nil
}

// Resolve removes every conflicting role except the highest. Each removal
// is attempted independently. One audit entry is written whatever the
// outcome, and the member is messaged when notify is set; a failed message
// is logged and otherwise ignored.
func (e *Engine) Resolve(ctx context.Context, guild platform.Guild, c Conflict, actorID string, notify bool) Resolution {
	res := Resolution{KeptRole: c.HighestRole.RoleName, RemovedRoles: []string{}}
	var failed []string
	for _, a := range c.Extra() {
		if err := guild.RemoveRole(ctx, c.UserID, a.RoleID); err != nil {
			e.logger.Warn("role removal failed",
				"guild", c.GuildID,
				"user", c.UserID,
				"role", a.RoleName,
				"error", err,
			)
			failed = append(failed, fmt.Sprintf("%s (%v)", a.RoleName, err))
			continue
		}
		res.RemovedRoles = append(res.RemovedRoles, a.RoleName)
	}
	res.Resolved = len(failed) == 0
	if !res.Resolved {
		res.Error = "failed to remove roles: " + strings.Join(failed, ", ")
	}

	entry := audit.Entry{
		GuildID:  c.GuildID,
		Action:   audit.ActionRoleConflictResolved,
		ActorID:  actorID,
		TargetID: c.UserID,
		Details: audit.Details{
			Reason: fmt.Sprintf("member held %d staff roles", len(c.ConflictingRoles)),
			Metadata: map[string]any{
				"severity":     string(c.Severity),
				"removedRoles": res.RemovedRoles,
				"resolved":     res.Resolved,
			},
			Before: c.RoleNames(),
			After:  []string{c.HighestRole.RoleName},
		},
		Timestamp: e.now(),
	}
	if res.Error != "" {
		entry.Details.Metadata["error"] = res.Error
	}
	if err := e.recorder.Record(ctx, entry); err != nil {
		e.logger.Warn("audit record failed", "guild", c.GuildID, "user", c.UserID, "error", err)
	}

	if notify && e.notifyMsg != "" && len(res.RemovedRoles) > 0 {
		msg := strings.ReplaceAll(e.notifyMsg, config.NotifyRolePlaceholder, res.KeptRole)
		if err := guild.SendDirect(ctx, c.UserID, msg); err != nil {
			e.logger.Debug("conflict notification not delivered", "user", c.UserID, "error", err)
		}
	}

	e.history.Append(c.GuildID, Record{
		UserID:       c.UserID,
		Severity:     c.Severity,
		Resolved:     res.Resolved,
		RemovedRoles: res.RemovedRoles,
		KeptRole:     res.KeptRole,
		At:           e.now(),
	})
	return res
}

// ResolveAll re-fetches each conflicting member and resolves whatever
// conflict is still live. Members that cannot be fetched or no longer
// conflict are skipped. It returns one resolution per attempted member,
// keyed by user id.
func (e *Engine) ResolveAll(ctx context.Context, guild platform.Guild, conflicts []Conflict, actorID string, notify bool, progress func(ResolveProgress)) map[string]Resolution {
	out := make(map[string]Resolution, len(conflicts))
	resolved := 0
	for i, stale := range conflicts {
		if err := ctx.Err(); err != nil {
			e.logger.Warn("bulk resolution interrupted", "guild", guild.ID(), "processed", i, "error", err)
			break
		}
		m, err := guild.Member(ctx, stale.UserID)
		if err != nil {
			e.logger.Warn("member fetch failed, skipping", "guild", guild.ID(), "user", stale.UserID, "error", err)
		} else if live := e.Detect(guild.ID(), m); live != nil {
			res := e.Resolve(ctx, guild, *live, actorID, notify)
			out[live.UserID] = res
			if res.Resolved {
				resolved++
			}
		}
		if progress != nil {
			progress(ResolveProgress{Processed: i + 1, Total: len(conflicts), ConflictsResolved: resolved})
		}
	}
	return out
}

// GenerateReport scans the guild and aggregates the conflicts by offending
// role and by severity. ByRole counts the roles resolution would remove.
func (e *Engine) GenerateReport(ctx context.Context, guild platform.Guild) (*Report, error) {
	members, err := guild.Members(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch members of guild %s: %w", guild.ID(), err)
	}
	r := &Report{
		GuildID:        guild.ID(),
		MembersScanned: len(members),
		ByRole:         make(map[string]int),
		BySeverity:     make(map[Severity]int),
		Conflicts:      []Conflict{},
	}
	for _, m := range members {
		if len(StaffAssignments(e.table, m)) > 0 {
			r.MembersWithStaffRoles++
		}
		c := e.Detect(guild.ID(), m)
		if c == nil {
			continue
		}
		r.Conflicts = append(r.Conflicts, *c)
		r.BySeverity[c.Severity]++
		for _, a := range c.Extra() {
			r.ByRole[a.RoleName]++
		}
	}
	r.ConflictsFound = len(r.Conflicts)
	return r, nil
}

// Statistics summarizes the guild's resolution history.
func (e *Engine) Statistics(guildID string) Stats {
	return e.history.Statistics(guildID)
}

// ClearHistory drops the guild's resolution history.
func (e *Engine) ClearHistory(guildID string) {
	e.history.Clear(guildID)
}
