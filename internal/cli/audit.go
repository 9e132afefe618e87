package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/staffsync/internal/audit"
)

// NewAuditCommand creates the audit command group.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the audit log",
	}
	cmd.AddCommand(newAuditListCommand(rootOpts))
	return cmd
}

func newAuditListCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the guild's most recent audit entries",
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
			entries, err := a.AuditLog.List(cmd.Context(), guildID, limit)
			if err != nil {
				return commandError(f, err)
			}
			if entries == nil {
				entries = []audit.Entry{}
			}
			return f.Success(entries, func(w io.Writer) {
				if len(entries) == 0 {
					fmt.Fprintln(w, "No audit entries")
					return
				}
				tw := newTable(w, "Time", "Action", "Actor", "Target", "Reason")
				for _, e := range entries {
					tw.AppendRow(table.Row{e.Timestamp.Local().Format(time.DateTime), e.Action, e.ActorID, e.TargetID, e.Details.Reason})
				}
				tw.Render()
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show (0 for all)")
	return cmd
}
