package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roach88/staffsync/internal/app"
	"github.com/roach88/staffsync/internal/config"
	"github.com/roach88/staffsync/internal/queue"
	"github.com/roach88/staffsync/internal/staffing"
)

// EnvPrefix prefixes the environment variables that override flags,
// e.g. STAFFSYNC_DB or STAFFSYNC_DISCORD_TOKEN.
const EnvPrefix = "STAFFSYNC"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose      bool
	Format       string // "json" | "text"
	ConfigPath   string
	Database     string
	Actor        string
	GuildID      string
	GuildFile    string
	DiscordToken string

	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// globalFlags are bound to viper so each can also come from the environment.
var globalFlags = []string{"verbose", "format", "config", "db", "actor", "guild", "guild-file", "discord-token"}

// NewRootCommand creates the root command for the staffsync CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "staffsync",
		Short: "Keep a law firm's staff roles and records consistent",
		Long: `staffsync reconciles a Discord law firm's staff ranks with its records.

It detects members holding more than one staff rank role and strips the
extra roles, scans cases, jobs, applications, retainers, feedback and
reminders for broken references and repairs what can be repaired, and
hires, fires and promotes staff through a serialized operation queue.

Every flag can also be set through a STAFFSYNC_* environment variable,
for example STAFFSYNC_DISCORD_TOKEN.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.load(v)
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			opts.Logger = newLogger(cmd.ErrOrStderr(), opts.Verbose)
			slog.SetDefault(opts.Logger)
			return nil
		},
	}

	// Global flags
	pf := cmd.PersistentFlags()
	pf.BoolP("verbose", "v", false, "verbose output")
	pf.String("format", "text", "output format (json|text)")
	pf.String("config", config.DefaultPath, "path to config file")
	pf.String("db", "", "path to SQLite database (overrides config)")
	pf.String("actor", "cli", "user id recorded as the actor in audit entries")
	pf.String("guild", "", "guild id")
	pf.String("guild-file", "", "YAML guild snapshot to use instead of Discord")
	pf.String("discord-token", "", "Discord bot token")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for _, name := range globalFlags {
		_ = v.BindPFlag(name, pf.Lookup(name))
	}

	// Add subcommands
	cmd.AddCommand(NewRolesCommand(opts))
	cmd.AddCommand(NewIntegrityCommand(opts))
	cmd.AddCommand(NewStaffCommand(opts))
	cmd.AddCommand(NewAuditCommand(opts))

	return cmd
}

func (o *RootOptions) load(v *viper.Viper) {
	o.Verbose = v.GetBool("verbose")
	o.Format = v.GetString("format")
	o.ConfigPath = v.GetString("config")
	o.Database = v.GetString("db")
	o.Actor = v.GetString("actor")
	o.GuildID = v.GetString("guild")
	o.GuildFile = v.GetString("guild-file")
	o.DiscordToken = v.GetString("discord-token")
}

// formatter returns the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// openApp builds the application from the global flags.
func (o *RootOptions) openApp(cmd *cobra.Command) (*app.App, error) {
	a, err := app.Open(cmd.Context(), app.Options{
		ConfigPath:   o.ConfigPath,
		Database:     o.Database,
		GuildID:      o.GuildID,
		GuildFile:    o.GuildFile,
		DiscordToken: o.DiscordToken,
		Logger:       o.Logger,
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to start", err)
	}
	return a, nil
}

// requireGuildID returns the guild to operate on.
func requireGuildID(a *app.App) (string, error) {
	if id := a.GuildID(); id != "" {
		return id, nil
	}
	return "", NewExitError(ExitCommandError, "no guild: pass --guild, --guild-file or --discord-token")
}

// commandError reports err through the formatter and converts it to an
// ExitError. Staffing rule violations and queue rejections are expected
// outcomes and exit with ExitFailure.
func commandError(f *OutputFormatter, err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		_ = f.Error(ErrCodeGeneric, exitErr.Error(), nil)
		return exitErr
	}
	var se *staffing.Error
	if errors.As(err, &se) {
		_ = f.Error(ErrCodeStaffing, se.Message, map[string]string{"reason": string(se.Code)})
		return WrapExitError(ExitFailure, string(se.Code), err)
	}
	var qe *queue.Error
	if errors.As(err, &qe) {
		_ = f.Error(ErrCodeQueue, qe.Message, map[string]string{"reason": string(qe.Code)})
		return WrapExitError(ExitFailure, string(qe.Code), err)
	}
	if errors.Is(err, app.ErrNoGuild) {
		_ = f.Error(ErrCodeNoGuild, err.Error(), nil)
		return WrapExitError(ExitCommandError, "no guild", err)
	}
	_ = f.Error(ErrCodeGeneric, err.Error(), nil)
	return WrapExitError(ExitCommandError, "command failed", err)
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
