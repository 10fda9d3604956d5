package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uratmangun/ai-custodial-wallet/envelope"
)

func newSecretCmd(a *app) *cobra.Command {
	secret := &cobra.Command{
		Use:   "secret",
		Short: "Manage the store secret",
	}
	secret.AddCommand(&cobra.Command{
		Use:   "generate",
		Short: "Print a new random store secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := envelope.GenerateSecret()
			if err != nil {
				return err
			}
			if a.cfg.Secret != "" {
				a.log.Debug("secret generated while SECRET is set")
				fmt.Fprintln(cmd.ErrOrStderr(), warningText("Warning:"),
					"SECRET is already set. Replacing it makes data written with the current secret unreadable.")
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, successText(s))
			fmt.Fprintln(out, mutedText("Add it to your environment as SECRET="+s+". Losing it makes existing data unreadable."))
			return nil
		},
	})
	return secret
}
