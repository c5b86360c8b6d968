package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	ledgerapp "github.com/ledgerbook/backend/internal/application/ledger"
	"github.com/spf13/cobra"
)

func balancesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balances",
		Short: "Compare cached account balances with their transactions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "verify",
		Short: "List accounts whose cached balance has drifted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, cleanup, err := openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			drifts, err := newLedgerService(db).VerifyBalances(cmd.Context())
			if err != nil {
				return err
			}
			if len(drifts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "All cached balances match.")
				return nil
			}
			printDrifts(cmd.OutOrStdout(), drifts)
			return fmt.Errorf("%d accounts have drifted balances, run 'ledgerctl balances refresh'", len(drifts))
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Rewrite drifted cached balances from their transactions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, cleanup, err := openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			corrected, err := newLedgerService(db).RefreshBalances(operatorContext(cmd.Context()))
			if err != nil {
				return err
			}
			if len(corrected) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to refresh.")
				return nil
			}
			printDrifts(cmd.OutOrStdout(), corrected)
			fmt.Fprintf(cmd.OutOrStdout(), "Refreshed %d accounts.\n", len(corrected))
			return nil
		},
	})
	return cmd
}

func printDrifts(w io.Writer, drifts []ledgerapp.BalanceDriftResponse) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "ACCOUNT\tCACHED\tCOMPUTED\tDRIFT\t")
	for _, d := range drifts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n",
			d.AccountID, d.Cached.StringFixed(2), d.Computed.StringFixed(2), d.Drift.StringFixed(2))
	}
	_ = tw.Flush()
}
