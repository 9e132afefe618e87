// Package app wires configuration, storage, the operation queue and the
// staffing components into one object the CLI drives.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/staffsync/internal/audit"
	"github.com/roach88/staffsync/internal/config"
	"github.com/roach88/staffsync/internal/domain"
	"github.com/roach88/staffsync/internal/integrity"
	"github.com/roach88/staffsync/internal/platform"
	"github.com/roach88/staffsync/internal/platform/discord"
	"github.com/roach88/staffsync/internal/platform/memory"
	"github.com/roach88/staffsync/internal/queue"
	"github.com/roach88/staffsync/internal/roles"
	"github.com/roach88/staffsync/internal/staffing"
	"github.com/roach88/staffsync/internal/store"
)

// ErrNoGuild is returned by Guild when neither a snapshot file nor a bot
// token was configured.
var ErrNoGuild = errors.New("no guild source: pass --guild-file or --discord-token")

// Options selects the app's inputs. Empty fields fall back to the config
// file and its defaults.
type Options struct {
	ConfigPath   string
	Database     string
	GuildID      string
	GuildFile    string
	DiscordToken string
	Logger       *slog.Logger
}

// App is the composition root. Construct with Open and release with Close.
type App struct {
	Config   *config.Config
	Store    *store.Store
	Repos    domain.Repositories
	AuditLog *store.AuditLog
	Recorder audit.Recorder
	Queue    *queue.Queue
	Ranks    *roles.RankTable
	History  *roles.History
	Engine   *roles.Engine
	Scanner  *integrity.Scanner
	Logger   *slog.Logger

	guildID   string
	guildFile string
	guild     platform.Guild
	staffing  *staffing.Service
}

// Open loads config, opens the database and builds every component.
func Open(ctx context.Context, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}

	ranks, err := roles.RankTableFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("build rank table: %w", err)
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:    cfg,
		Store:     st,
		Repos:     store.Repositories(st),
		AuditLog:  store.NewAuditLog(st),
		Ranks:     ranks,
		History:   roles.NewHistory(),
		Logger:    logger,
		guildID:   opts.GuildID,
		guildFile: opts.GuildFile,
	}
	a.Recorder = audit.Logged{Inner: a.AuditLog, Logger: logger}
	a.Queue = queue.New(
		queue.WithTimeout(cfg.QueueTimeout()),
		queue.WithLogger(logger),
		queue.WithInterceptors(queue.Logging(logger)),
	)

	notify := ""
	if cfg.Notify.Enabled {
		notify = cfg.Notify.Message
	}
	a.Engine = roles.NewEngine(ranks,
		roles.WithThresholds(roles.ThresholdsFromConfig(cfg)),
		roles.WithRecorder(a.Recorder),
		roles.WithHistory(a.History),
		roles.WithLogger(logger),
		roles.WithProgressInterval(cfg.Scan.ProgressInterval),
		roles.WithNotifyMessage(notify),
	)
	a.Scanner = integrity.NewScanner(a.Repos,
		integrity.WithRankTable(ranks),
		integrity.WithRecorder(a.Recorder),
		integrity.WithLogger(logger),
		integrity.WithCacheTTL(cfg.CacheTTL()),
	)

	switch {
	case opts.GuildFile != "":
		g, err := memory.LoadSnapshot(opts.GuildFile)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("load guild snapshot: %w", err)
		}
		a.guild = g
	case opts.DiscordToken != "":
		if opts.GuildID == "" {
			st.Close()
			return nil, errors.New("--guild is required with --discord-token")
		}
		g, err := discord.Open(opts.DiscordToken, opts.GuildID)
		if err != nil {
			st.Close()
			return nil, err
		}
		a.guild = g
	}
	if a.guild != nil {
		if a.guildID != "" && a.guildID != a.guild.ID() {
			st.Close()
			return nil, fmt.Errorf("--guild %s does not match guild source %s", a.guildID, a.guild.ID())
		}
		a.guildID = a.guild.ID()
		a.staffing = staffing.NewService(a.Queue, a.Repos.Staff, ranks, a.guild,
			staffing.WithScanner(a.Scanner),
			staffing.WithRecorder(a.Recorder),
			staffing.WithLogger(logger),
		)
	}
	return a, nil
}

// Close releases the database.
func (a *App) Close() error {
	return a.Store.Close()
}

// GuildID returns the guild the app operates on, or "" if none was given.
func (a *App) GuildID() string { return a.guildID }

// Guild returns the live or snapshot guild.
func (a *App) Guild() (platform.Guild, error) {
	if a.guild == nil {
		return nil, ErrNoGuild
	}
	return a.guild, nil
}

// Staffing returns the staffing service, which needs a guild.
func (a *App) Staffing() (*staffing.Service, error) {
	if a.staffing == nil {
		return nil, ErrNoGuild
	}
	return a.staffing, nil
}

// Persist writes role changes back to the snapshot file when the guild was
// loaded from one. Live guilds need no persisting.
func (a *App) Persist() error {
	g, ok := a.guild.(*memory.Guild)
	if !ok || a.guildFile == "" {
		return nil
	}
	return g.SaveSnapshot(a.guildFile)
}

// ResolveConflicts runs a bulk resolution through the queue so it cannot
// interleave with staffing mutations.
func (a *App) ResolveConflicts(ctx context.Context, actorID string, conflicts []roles.Conflict, notify bool, progress func(roles.ResolveProgress)) (map[string]roles.Resolution, error) {
	g, err := a.Guild()
	if err != nil {
		return nil, err
	}
	return queue.Submit(ctx, a.Queue, actorID, g.ID(), a.isOwner(ctx, actorID), func(ctx context.Context) (map[string]roles.Resolution, error) {
		return a.Engine.ResolveAll(ctx, g, conflicts, actorID, notify, progress), nil
	})
}

// RepairIssues runs a repair pass through the queue.
func (a *App) RepairIssues(ctx context.Context, actorID string, issues []integrity.Issue) (integrity.RepairResult, error) {
	return queue.Submit(ctx, a.Queue, actorID, a.guildID, a.isOwner(ctx, actorID), func(ctx context.Context) (integrity.RepairResult, error) {
		return a.Scanner.Repair(ctx, actorID, issues), nil
	})
}

func (a *App) isOwner(ctx context.Context, actorID string) bool {
	if a.guild == nil {
		return false
	}
	owner, err := a.guild.OwnerID(ctx)
	return err == nil && owner != "" && owner == actorID
}
