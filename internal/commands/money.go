package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bankline-dev/bankline/internal/id"
	"github.com/bankline-dev/bankline/internal/ledger"
	"github.com/bankline-dev/bankline/internal/model"
)

func newDepositCommand(opts *rootOptions) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "deposit <number> <amount>",
		Short: "Credit money to an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amt, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(a *app) error {
				rec, err := a.ledger.Deposit(cmd.Context(), args[0], amt, ledger.WithCategory(category))
				if err != nil {
					return err
				}
				return printMovement(cmd, a, "Deposited %s to %s", rec, rec.To)
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "category recorded with the transaction")
	return cmd
}

func newWithdrawCommand(opts *rootOptions) *cobra.Command {
	var pin, category string

	cmd := &cobra.Command{
		Use:   "withdraw <number> <amount>",
		Short: "Debit money from an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amt, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(a *app) error {
				if _, err := a.authenticate(cmd.Context(), args[0], pin); err != nil {
					return err
				}
				rec, err := a.ledger.Withdraw(cmd.Context(), args[0], amt, ledger.WithCategory(category))
				if err != nil {
					return err
				}
				return printMovement(cmd, a, "Withdrew %s from %s", rec, rec.From)
			})
		},
	}
	cmd.Flags().StringVar(&pin, "pin", "", "account PIN (required)")
	_ = cmd.MarkFlagRequired("pin")
	cmd.Flags().StringVar(&category, "category", "", "category recorded with the transaction")
	return cmd
}

func newTransferCommand(opts *rootOptions) *cobra.Command {
	var pin, category string

	cmd := &cobra.Command{
		Use:   "transfer <from> <to> <amount>",
		Short: "Move money between two accounts",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amt, err := parseAmount(args[2])
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(a *app) error {
				if _, err := a.authenticate(cmd.Context(), args[0], pin); err != nil {
					return err
				}
				rec, err := a.ledger.Transfer(cmd.Context(), args[0], args[1], amt, ledger.WithCategory(category))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Transferred %s from %s to %s (tx %s)\n",
					rec.Amount, rec.From, rec.To, id.ShortTxID(rec.ID))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&pin, "pin", "", "PIN of the source account (required)")
	_ = cmd.MarkFlagRequired("pin")
	cmd.Flags().StringVar(&category, "category", "", "category recorded with the transaction")
	return cmd
}

func newBalanceCommand(opts *rootOptions) *cobra.Command {
	var pin string

	cmd := &cobra.Command{
		Use:   "balance <number>",
		Short: "Show an account's balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				acct, err := a.authenticate(cmd.Context(), args[0], pin)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Balance of %s: %s\n", acct.Number, acct.Balance)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&pin, "pin", "", "account PIN (required)")
	_ = cmd.MarkFlagRequired("pin")
	return cmd
}

func newStatementCommand(opts *rootOptions) *cobra.Command {
	var pin string
	var limit int

	cmd := &cobra.Command{
		Use:   "statement <number>",
		Short: "Show the most recent transactions of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				acct, err := a.authenticate(cmd.Context(), args[0], pin)
				if err != nil {
					return err
				}
				n := limit
				if !cmd.Flags().Changed("limit") {
					n = a.cfg.Policy.StatementSize
				}
				recs, err := a.ledger.Statement(cmd.Context(), acct.Number, n)
				if err != nil {
					return err
				}
				printStatement(cmd, a.cfg.Bank.Name, acct, recs)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&pin, "pin", "", "account PIN (required)")
	_ = cmd.MarkFlagRequired("pin")
	cmd.Flags().IntVar(&limit, "limit", 0, "number of records to show; 0 shows all (default from policy.statement_size)")
	return cmd
}

func printMovement(cmd *cobra.Command, a *app, format string, rec model.TransactionRecord, number string) error {
	bal, err := a.ledger.GetBalance(number)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), format+". New balance: %s (tx %s)\n",
		rec.Amount, number, bal, id.ShortTxID(rec.ID))
	return nil
}

func printAccount(cmd *cobra.Command, acct model.Account) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Account:  %s\n", acct.Number)
	fmt.Fprintf(out, "Holder:   %s\n", acct.HolderName)
	if acct.Email != "" {
		fmt.Fprintf(out, "Email:    %s\n", acct.Email)
	}
	fmt.Fprintf(out, "Type:     %s\n", acct.Type)
	fmt.Fprintf(out, "Status:   %s\n", acct.Status)
	fmt.Fprintf(out, "Balance:  %s\n", acct.Balance)
	fmt.Fprintf(out, "Opened:   %s\n", acct.CreatedAt.Format("2006-01-02"))
}

func printStatement(cmd *cobra.Command, bank string, acct model.Account, recs []model.TransactionRecord) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s statement for %s (%s)\n", bank, id.MaskAccountNumber(acct.Number), acct.HolderName)
	if len(recs) == 0 {
		fmt.Fprintln(out, "No transactions.")
	}
	for _, r := range recs {
		sign := "+"
		switch {
		case r.Type == model.TxAccountClosed:
			sign = " "
		case r.From == acct.Number:
			sign = "-"
		}
		fmt.Fprintf(out, "%s  %-14s  %s%12s  %-12s  %s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Type, sign, r.Amount, r.Category, id.ShortTxID(r.ID))
	}
	fmt.Fprintf(out, "Current balance: %s\n", acct.Balance)
}
