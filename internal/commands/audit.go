package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bankline-dev/bankline/internal/journal"
)

func newAuditCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Check every record in the transaction log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				recs, err := a.records.All(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				problems := journal.ValidateRecords(recs)
				for _, p := range problems {
					fmt.Fprintln(out, p.Error())
				}
				if len(problems) > 0 {
					return fmt.Errorf("%d problems in %d records", len(problems), len(recs))
				}
				fmt.Fprintf(out, "%d records checked, no problems\n", len(recs))
				return nil
			})
		},
	}
}
