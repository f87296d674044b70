package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bankline-dev/bankline/internal/runlog"
)

func newBatchCommand(opts *rootOptions) *cobra.Command {
	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Run scheduled batch jobs",
	}
	batchCmd.AddCommand(newBatchInterestCommand(opts), newBatchFlagInactiveCommand(opts))
	return batchCmd
}

func newBatchInterestCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "interest",
		Short: "Credit monthly interest to every open account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				res, runErr := a.ledger.ApplyMonthlyInterest(cmd.Context())
				if err := runlog.Append(a.home, runlog.InterestEntries(time.Now(), res, runErr)); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: writing batch log: %v\n", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Credited interest to %d accounts (%d skipped)\n",
					len(res.Credited), len(res.Skipped))
				return runErr
			})
		},
	}
}

func newBatchFlagInactiveCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "flag-inactive",
		Short: "Mark accounts without recent activity as INACTIVE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				res, runErr := a.ledger.FlagInactiveAccounts(cmd.Context())
				if err := runlog.Append(a.home, runlog.FlagEntries(time.Now(), res, runErr)); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: writing batch log: %v\n", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Flagged %d inactive accounts\n", len(res.Flagged))
				return runErr
			})
		},
	}
}
