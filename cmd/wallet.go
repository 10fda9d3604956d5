package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newWalletCmd(a *app) *cobra.Command {
	w := &cobra.Command{
		Use:   "wallet",
		Short: "Create and list custodial wallets",
	}
	w.AddCommand(newWalletCreateCmd(a), newWalletListCmd(a))
	return w
}

func newWalletCreateCmd(a *app) *cobra.Command {
	var asJSON bool
	c := &cobra.Command{
		Use:   "create",
		Short: "Create a new wallet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.openWallets()
			if err != nil {
				return err
			}
			defer repo.Close()

			created, err := repo.CreateWallet()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(created)
			}
			fmt.Fprintln(out, successText("✓"), "Wallet created")
			fmt.Fprintln(out, "  id:     ", infoText(created.ID))
			fmt.Fprintln(out, "  address:", infoText(created.PublicKey))
			fmt.Fprintln(out, "  created:", created.CreatedAt.Format(time.RFC3339))
			return nil
		},
	}
	c.Flags().BoolVar(&asJSON, "json", false, "print the wallet as JSON")
	return c
}

func newWalletListCmd(a *app) *cobra.Command {
	var asJSON bool
	c := &cobra.Command{
		Use:   "list",
		Short: "List wallets in creation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.openWallets()
			if err != nil {
				return err
			}
			defer repo.Close()

			list, err := repo.ListWallets()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(list)
			}
			if len(list) == 0 {
				fmt.Fprintln(out, mutedText("No wallets yet. Create one with 'custodial wallet create'."))
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tADDRESS")
			for _, w := range list {
				fmt.Fprintf(tw, "%s\t%s\n", w.ID, w.PublicKey)
			}
			return tw.Flush()
		},
	}
	c.Flags().BoolVar(&asJSON, "json", false, "print the wallets as JSON")
	return c
}
