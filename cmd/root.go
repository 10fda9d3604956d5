// Package cmd implements the custodial command line.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/uratmangun/ai-custodial-wallet/config"
	"github.com/uratmangun/ai-custodial-wallet/logger"
	"github.com/uratmangun/ai-custodial-wallet/wallet"
)

var (
	successText = color.New(color.FgGreen).SprintFunc()
	errorText   = color.New(color.FgRed).SprintFunc()
	infoText    = color.New(color.FgCyan).SprintFunc()
	mutedText   = color.New(color.FgHiBlack).SprintFunc()
	warningText = color.New(color.FgYellow).SprintFunc()
)

// app carries what the subcommands share once the root has run.
type app struct {
	envFile  string
	logLevel string

	cfg *config.Config
	log *slog.Logger
}

// openWallets opens the wallet repository described by the loaded config.
func (a *app) openWallets() (*wallet.Repository, error) {
	return wallet.Open(a.cfg, a.log)
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "custodial",
		Short: "Custodial EVM wallets kept in an encrypted local store",
		Long: `custodial manages EVM wallets whose keys are kept in an encrypted
document store on local disk.

Configuration comes from the environment, optionally seeded from a .env file:
  SECRET          64 hex characters; generate one with 'custodial secret generate'
  DATA_DIR        directory holding the collection files (default data)
  STORE_BACKEND   file, sqlite or memory (default file)
  HOST, PORT      listen address for 'custodial serve'
  LOG_LEVEL       debug, info, warn or error
  LOG_FORMAT      text or json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.envFile)
			if err != nil {
				return err
			}
			if a.logLevel != "" {
				cfg.LogLevel = a.logLevel
			}
			log, err := logger.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a.cfg, a.log = cfg, log
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "optional file of environment variables")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override LOG_LEVEL")

	root.AddCommand(newServeCmd(a), newSecretCmd(a), newWalletCmd(a))
	return root
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), errorText("Error:"), err)
		os.Exit(1)
	}
}
