package commands

import (
	"github.com/spf13/cobra"

	"github.com/bankline-dev/bankline/internal/buildinfo"
)

type rootOptions struct {
	home string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:     "bankline",
		Short:   "Core banking ledger: accounts, deposits, withdrawals and transfers",
		Version: buildinfo.Summary(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.home, "home", ".", "bankline home directory (holds bankline.yaml)")

	rootCmd.AddCommand(
		newInitCommand(opts),
		newAccountCommand(opts),
		newDepositCommand(opts),
		newWithdrawCommand(opts),
		newTransferCommand(opts),
		newBalanceCommand(opts),
		newStatementCommand(opts),
		newBatchCommand(opts),
		newAuditCommand(opts),
	)

	return rootCmd
}
