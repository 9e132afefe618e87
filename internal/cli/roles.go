package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/staffsync/internal/roles"
)

// NewRolesCommand creates the roles command group.
func NewRolesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "Detect and resolve staff role conflicts",
		Long: `Find members holding more than one staff rank role and reduce them to
their most senior rank.`,
	}
	cmd.AddCommand(newRolesScanCommand(rootOpts))
	cmd.AddCommand(newRolesResolveCommand(rootOpts))
	cmd.AddCommand(newRolesReportCommand(rootOpts))
	return cmd
}

// ScanResult is the roles scan output.
type ScanResult struct {
	GuildID   string           `json:"guildId"`
	Conflicts []roles.Conflict `json:"conflicts"`
}

func newRolesScanCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "List members with conflicting staff roles",
		Example: `  staffsync roles scan --guild-file guild.yml
  staffsync roles scan --guild 1234 --discord-token $TOKEN --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			a, err := rootOpts.openApp(cmd)
			if err != nil {
				return commandError(f, err)
			}
			defer a.Close()

			g, err := a.Guild()
			if err != nil {
				return commandError(f, err)
			}
			conflicts, err := a.Engine.Scan(cmd.Context(), g, scanProgress(f))
			if err != nil {
				return commandError(f, err)
			}
			if conflicts == nil {
				conflicts = []roles.Conflict{}
			}
			result := ScanResult{GuildID: g.ID(), Conflicts: conflicts}
			return f.Success(result, func(w io.Writer) {
				if len(conflicts) == 0 {
					fmt.Fprintln(w, "✓ No role conflicts")
					return
				}
				writeConflicts(w, conflicts)
				fmt.Fprintf(w, "%d conflict(s) found\n", len(conflicts))
			})
		},
	}
}

// ResolveResult is the roles resolve output.
type ResolveResult struct {
	GuildID     string                      `json:"guildId"`
	Conflicts   int                         `json:"conflicts"`
	Resolved    int                         `json:"resolved"`
	Failed      int                         `json:"failed"`
	Resolutions map[string]roles.Resolution `json:"resolutions"`
	Stats       roles.Stats                 `json:"stats"`
}

func newRolesResolveCommand(rootOpts *RootOptions) *cobra.Command {
	var notify bool
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Remove all but the most senior staff role from conflicting members",
		Long: `Scan the guild, then remove every extra staff rank role from each
conflicting member, keeping the most senior one. Each member is re-read
before resolution so concurrent changes are respected. With --guild-file
the updated roles are written back to the snapshot.

Exits with code 1 if any role could not be removed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			a, err := rootOpts.openApp(cmd)
			if err != nil {
				return commandError(f, err)
			}
			defer a.Close()

			g, err := a.Guild()
			if err != nil {
				return commandError(f, err)
			}
			ctx := cmd.Context()
			conflicts, err := a.Engine.Scan(ctx, g, scanProgress(f))
			if err != nil {
				return commandError(f, err)
			}
			results, err := a.ResolveConflicts(ctx, rootOpts.Actor, conflicts, notify, func(p roles.ResolveProgress) {
				f.VerboseLog("resolved %d/%d (%d ok)", p.Processed, p.Total, p.ConflictsResolved)
			})
			if err != nil {
				return commandError(f, err)
			}
			if err := a.Persist(); err != nil {
				return commandError(f, fmt.Errorf("save guild snapshot: %w", err))
			}

			result := ResolveResult{
				GuildID:     g.ID(),
				Conflicts:   len(conflicts),
				Resolutions: results,
				Stats:       a.Engine.Statistics(g.ID()),
			}
			for _, r := range results {
				if r.Resolved {
					result.Resolved++
				} else {
					result.Failed++
				}
			}

			if err := f.Success(result, func(w io.Writer) { writeResolutions(w, result) }); err != nil {
				return err
			}
			if result.Failed > 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("%d conflict(s) could not be fully resolved", result.Failed))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&notify, "notify", false, "direct message each member whose roles changed")
	return cmd
}

func newRolesReportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Summarize role conflicts by role and severity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			a, err := rootOpts.openApp(cmd)
			if err != nil {
				return commandError(f, err)
			}
			defer a.Close()

			g, err := a.Guild()
			if err != nil {
				return commandError(f, err)
			}
			report, err := a.Engine.GenerateReport(cmd.Context(), g)
			if err != nil {
				return commandError(f, err)
			}
			return f.Success(report, func(w io.Writer) { writeRoleReport(w, report) })
		},
	}
}

func scanProgress(f *OutputFormatter) func(roles.ScanProgress) {
	return func(p roles.ScanProgress) {
		f.VerboseLog("scanned %d/%d members, %d conflict(s)", p.Processed, p.Total, p.ConflictsFound)
	}
}

func writeConflicts(w io.Writer, conflicts []roles.Conflict) {
	tw := newTable(w, "User", "Username", "Roles", "Keeps", "Severity")
	for _, c := range conflicts {
		tw.AppendRow(table.Row{c.UserID, c.Username, strings.Join(c.RoleNames(), ", "), c.HighestRole.RoleName, c.Severity})
	}
	tw.Render()
}

func writeResolutions(w io.Writer, r ResolveResult) {
	if r.Conflicts == 0 {
		fmt.Fprintln(w, "✓ No role conflicts")
		return
	}
	users := make([]string, 0, len(r.Resolutions))
	for u := range r.Resolutions {
		users = append(users, u)
	}
	sort.Strings(users)

	tw := newTable(w, "User", "Kept", "Removed", "Status")
	for _, u := range users {
		res := r.Resolutions[u]
		status := "resolved"
		if !res.Resolved {
			status = res.Error
		}
		tw.AppendRow(table.Row{u, res.KeptRole, strings.Join(res.RemovedRoles, ", "), status})
	}
	tw.Render()
	fmt.Fprintf(w, "%d of %d conflict(s) resolved, %d failed\n", r.Resolved, r.Conflicts, r.Failed)
}

func writeRoleReport(w io.Writer, r *roles.Report) {
	fmt.Fprintf(w, "%-26s%d\n", "Members scanned:", r.MembersScanned)
	fmt.Fprintf(w, "%-26s%d\n", "Members with staff roles:", r.MembersWithStaffRoles)
	fmt.Fprintf(w, "%-26s%d\n", "Conflicts found:", r.ConflictsFound)
	if r.ConflictsFound == 0 {
		return
	}

	fmt.Fprintln(w)
	sev := newTable(w, "Severity", "Conflicts")
	for i := len(roles.Severities) - 1; i >= 0; i-- {
		s := roles.Severities[i]
		if n := r.BySeverity[s]; n > 0 {
			sev.AppendRow(table.Row{s, n})
		}
	}
	sev.Render()

	names := make([]string, 0, len(r.ByRole))
	for name := range r.ByRole {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if r.ByRole[names[i]] != r.ByRole[names[j]] {
			return r.ByRole[names[i]] > r.ByRole[names[j]]
		}
		return names[i] < names[j]
	})
	fmt.Fprintln(w)
	byRole := newTable(w, "Extra role", "Members")
	for _, name := range names {
		byRole.AppendRow(table.Row{name, r.ByRole[name]})
	}
	byRole.Render()
}
