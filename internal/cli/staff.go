package cli

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/staffsync/internal/domain"
	"github.com/roach88/staffsync/internal/staffing"
)

// NewStaffCommand creates the staff command group.
func NewStaffCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staff",
		Short: "Hire, fire, promote and list staff",
		Long: `Staffing changes run through the operation queue one at a time, so two
concurrent hires cannot both pass a rank's limit. Operations requested by
the guild owner run ahead of everyone else's.`,
	}
	cmd.AddCommand(newStaffMutationCommand(rootOpts, "hire <user-id> <rank>", "Hire a member at a rank", 2,
		func(svc *staffing.Service, cmd *cobra.Command, args []string) (domain.Staff, error) {
			return svc.Hire(cmd.Context(), rootOpts.Actor, args[0], args[1])
		}))
	cmd.AddCommand(newStaffMutationCommand(rootOpts, "promote <user-id> <rank>", "Promote a staff member", 2,
		func(svc *staffing.Service, cmd *cobra.Command, args []string) (domain.Staff, error) {
			return svc.Promote(cmd.Context(), rootOpts.Actor, args[0], args[1])
		}))
	fire := newStaffMutationCommand(rootOpts, "fire <user-id>", "Terminate a staff member", 1,
		func(svc *staffing.Service, cmd *cobra.Command, args []string) (domain.Staff, error) {
			reason, _ := cmd.Flags().GetString("reason")
			return svc.Fire(cmd.Context(), rootOpts.Actor, args[0], reason)
		})
	fire.Flags().String("reason", "", "reason recorded in the audit log")
	cmd.AddCommand(fire)
	cmd.AddCommand(newStaffListCommand(rootOpts))
	return cmd
}

type staffMutation func(svc *staffing.Service, cmd *cobra.Command, args []string) (domain.Staff, error)

func newStaffMutationCommand(rootOpts *RootOptions, use, short string, nargs int, run staffMutation) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			a, err := rootOpts.openApp(cmd)
			if err != nil {
				return commandError(f, err)
			}
			defer a.Close()

			svc, err := a.Staffing()
			if err != nil {
				return commandError(f, err)
			}
			rec, err := run(svc, cmd, args)
			if err != nil {
				return commandError(f, err)
			}
			if err := a.Persist(); err != nil {
				return commandError(f, fmt.Errorf("save guild snapshot: %w", err))
			}
			return f.Success(rec, func(w io.Writer) {
				fmt.Fprintf(w, "✓ %s (%s): %s, level %d, %s\n", rec.Username, rec.UserID, rec.Role, rec.HierarchyLevel, rec.Status)
			})
		},
	}
}

func newStaffListCommand(rootOpts *RootOptions) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List staff records",
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
			recs, err := a.Repos.Staff.FindByGuildID(cmd.Context(), guildID)
			if err != nil {
				return commandError(f, err)
			}
			out := make([]domain.Staff, 0, len(recs))
			for _, r := range recs {
				if all || r.Status != domain.StaffTerminated {
					out = append(out, r)
				}
			}
			return f.Success(out, func(w io.Writer) {
				if len(out) == 0 {
					fmt.Fprintln(w, "No staff")
					return
				}
				tw := newTable(w, "User", "Username", "Rank", "Level", "Status", "Hired")
				for _, r := range out {
					tw.AppendRow(table.Row{r.UserID, r.Username, r.Role, r.HierarchyLevel, r.Status, r.HiredAt.Format("2006-01-02")})
				}
				tw.Render()
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include terminated staff")
	return cmd
}
