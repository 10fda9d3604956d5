package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/uratmangun/ai-custodial-wallet/action"
	"github.com/uratmangun/ai-custodial-wallet/handler"
	"github.com/uratmangun/ai-custodial-wallet/logger"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the wallet actions over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	repo, err := a.openWallets()
	if err != nil {
		return err
	}
	defer repo.Close()

	// No chain client or coin indexer ships with the server, so the gas,
	// transfer and coin actions are not offered.
	actions := action.Default(repo, nil, a.log)
	srv := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           handler.CORS(handler.New(actions, a.log), a.cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		a.log.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("store", a.cfg.Backend),
			slog.String("data", a.cfg.DataDir))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	a.log.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("shutdown failed", logger.Error(err))
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
