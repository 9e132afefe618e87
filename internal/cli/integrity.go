package cli

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/staffsync/internal/integrity"
)

// NewIntegrityCommand creates the integrity command group.
func NewIntegrityCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "integrity",
		Short: "Check and repair cross-entity references",
	}
	cmd.AddCommand(newIntegrityScanCommand(rootOpts))
	cmd.AddCommand(newIntegrityRepairCommand(rootOpts))
	return cmd
}

func newIntegrityScanCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Report integrity issues in the guild's records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			a, err := rootOpts.openApp(cmd)
			if err != nil {
				return commandError(f, err)
			}
			defer a.Close()

			guildID, err := requireGuildID(a)
			if err != nil {
				return commandError(f, err)
			}
			report, err := a.Scanner.Scan(cmd.Context(), guildID)
			if err != nil {
				return commandError(f, err)
			}
			return f.Success(report, func(w io.Writer) { writeIntegrityReport(w, report) })
		},
	}
}

func newIntegrityRepairCommand(rootOpts *RootOptions) *cobra.Command {
	var rule string
	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Scan and apply every automatic repair",
		Long: `Scan the guild's records and run the repair action of every
auto-repairable issue. Each successful repair writes an audit entry.
Issues that cannot be repaired automatically are skipped.

Exits with code 1 if any repair failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			a, err := rootOpts.openApp(cmd)
			if err != nil {
				return commandError(f, err)
			}
			defer a.Close()

			guildID, err := requireGuildID(a)
			if err != nil {
				return commandError(f, err)
			}
			ctx := cmd.Context()
			report, err := a.Scanner.Scan(ctx, guildID)
			if err != nil {
				return commandError(f, err)
			}
			issues := report.Issues
			if rule != "" {
				issues = issues[:0:0]
				for _, is := range report.Issues {
					if is.Rule == rule {
						issues = append(issues, is)
					}
				}
			}
			f.VerboseLog("repairing %d issue(s)", len(issues))

			res, err := a.RepairIssues(ctx, rootOpts.Actor, issues)
			if err != nil {
				return commandError(f, err)
			}
			if err := f.Success(res, func(w io.Writer) { writeRepairResult(w, res) }); err != nil {
				return err
			}
			if res.IssuesFailed > 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("%d repair(s) failed", res.IssuesFailed))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&rule, "rule", "", "only repair issues raised by this rule")
	return cmd
}

func writeIntegrityReport(w io.Writer, r *integrity.Report) {
	if len(r.Issues) == 0 {
		fmt.Fprintf(w, "✓ No integrity issues in %d record(s)\n", r.EntitiesScanned)
		return
	}
	tw := newTable(w, "Severity", "Entity", "ID", "Field", "Rule", "Repairable", "Message")
	for _, is := range r.Issues {
		repairable := ""
		if is.CanAutoRepair {
			repairable = "yes"
		}
		tw.AppendRow(table.Row{is.Severity, is.EntityType, is.EntityID, is.Field, is.Rule, repairable, is.Message})
	}
	tw.Render()
	fmt.Fprintf(w, "%d issue(s) in %d record(s): %d critical, %d warning, %d info; %d repairable\n",
		len(r.Issues),
		r.EntitiesScanned,
		r.BySeverity[integrity.SeverityCritical],
		r.BySeverity[integrity.SeverityWarning],
		r.BySeverity[integrity.SeverityInfo],
		len(r.Repairable()),
	)
}

func writeRepairResult(w io.Writer, r integrity.RepairResult) {
	fmt.Fprintf(w, "Issues found:    %d\n", r.TotalIssuesFound)
	fmt.Fprintf(w, "Repaired:        %d\n", r.IssuesRepaired)
	fmt.Fprintf(w, "Skipped:         %d\n", r.IssuesSkipped)
	fmt.Fprintf(w, "Failed:          %d\n", r.IssuesFailed)
	if len(r.FailedRepairs) == 0 {
		return
	}
	tw := newTable(w, "Issue", "Error")
	for _, fr := range r.FailedRepairs {
		tw.AppendRow(table.Row{fr.IssueID, fr.Error})
	}
	tw.Render()
}
