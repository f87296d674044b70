package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bankline-dev/bankline/internal/ledger"
	"github.com/bankline-dev/bankline/internal/model"
)

func newAccountCommand(opts *rootOptions) *cobra.Command {
	accountCmd := &cobra.Command{
		Use:   "account",
		Short: "Open, inspect and manage accounts",
	}
	accountCmd.AddCommand(
		newAccountCreateCommand(opts),
		newAccountListCommand(opts),
		newAccountShowCommand(opts),
		newAccountStatusCommand(opts, "lock", "Lock an account against money movement", (*ledger.Ledger).Lock),
		newAccountStatusCommand(opts, "unlock", "Unlock a locked account", (*ledger.Ledger).Unlock),
		newAccountCloseCommand(opts),
		newAccountDeleteCommand(opts),
		newAccountPinCommand(opts),
	)
	return accountCmd
}

func newAccountCreateCommand(opts *rootOptions) *cobra.Command {
	var p ledger.CreateAccountParams
	var deposit string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open a new account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			amt, err := parseAmount(deposit)
			if err != nil {
				return err
			}
			p.InitialDeposit = amt
			return withApp(cmd, opts, func(a *app) error {
				acct, err := a.ledger.CreateAccount(cmd.Context(), p)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s account %s for %s (balance %s)\n",
					acct.Type, acct.Number, acct.HolderName, acct.Balance)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&p.HolderName, "name", "", "account holder name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&p.Pin, "pin", "", "4-digit PIN (required)")
	_ = cmd.MarkFlagRequired("pin")
	cmd.Flags().StringVar(&p.Email, "email", "", "contact email")
	cmd.Flags().StringVar(&p.Type, "type", string(model.AccountTypeSavings), "SAVINGS, CURRENT or STUDENT")
	cmd.Flags().StringVar(&p.Number, "number", "", "11-digit account number (generated when omitted)")
	cmd.Flags().StringVar(&deposit, "deposit", "0", "opening deposit")

	return cmd
}

func newAccountListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				accts := a.ledger.ListAccounts()
				out := cmd.OutOrStdout()
				if len(accts) == 0 {
					fmt.Fprintln(out, "No accounts.")
					return nil
				}
				fmt.Fprintf(out, "%-11s  %-8s  %-8s  %14s  %s\n", "NUMBER", "TYPE", "STATUS", "BALANCE", "HOLDER")
				for _, acct := range accts {
					fmt.Fprintf(out, "%-11s  %-8s  %-8s  %14s  %s\n",
						acct.Number, acct.Type, acct.Status, acct.Balance, acct.HolderName)
				}
				return nil
			})
		},
	}
}

func newAccountShowCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <number>",
		Short: "Show account details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				acct, err := a.ledger.GetAccount(args[0])
				if err != nil {
					return err
				}
				printAccount(cmd, acct)
				return nil
			})
		},
	}
}

func newAccountStatusCommand(opts *rootOptions, use, short string,
	change func(*ledger.Ledger, context.Context, string) (model.Account, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <number>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				acct, err := change(a.ledger, cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Account %s is now %s\n", acct.Number, acct.Status)
				return nil
			})
		},
	}
}

func newAccountCloseCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "close <number>",
		Short: "Close an account permanently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				acct, _, err := a.ledger.Close(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Closed account %s (closing balance %s)\n", acct.Number, acct.Balance)
				return nil
			})
		},
	}
}

func newAccountDeleteCommand(opts *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <number>",
		Short: "Remove an account from storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete %s without --yes", args[0])
			}
			return withApp(cmd, opts, func(a *app) error {
				if err := a.ledger.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted account %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}

func newAccountPinCommand(opts *rootOptions) *cobra.Command {
	var oldPin, newPin string

	cmd := &cobra.Command{
		Use:   "pin <number>",
		Short: "Change an account's PIN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				if err := a.ledger.ChangePin(cmd.Context(), args[0], oldPin, newPin); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "PIN changed for %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&oldPin, "old", "", "current PIN (required)")
	_ = cmd.MarkFlagRequired("old")
	cmd.Flags().StringVar(&newPin, "new", "", "new 4-digit PIN (required)")
	_ = cmd.MarkFlagRequired("new")
	return cmd
}
