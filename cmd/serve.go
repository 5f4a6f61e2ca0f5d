package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bnema/limitwatch/internal/api"
	"github.com/bnema/limitwatch/internal/application"
)

const serveShutdownTimeout = 5 * time.Second

func newServeCmd(app *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve quota reports over HTTP",
		Long: "Serve quota reports over a local HTTP API.\n\n" +
			"GET /api/quotas returns the current report as JSON, cached for\n" +
			"serve.cache_ttl between fetches. Query parameters account,\n" +
			"provider, and group narrow the response.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port == 0 {
				port = app.cfg.Serve.Port
			}

			fetch := func(ctx context.Context) (application.Report, error) {
				accounts, err := selectAccounts(ctx, app, application.Filter{})
				if err != nil {
					return application.Report{}, err
				}

				result, err := app.fetchAndRecord(ctx, cmd.ErrOrStderr(), accounts, false)
				if err != nil {
					return application.Report{}, err
				}

				return application.BuildReport(result), nil
			}

			addr := fmt.Sprintf("127.0.0.1:%d", port)
			server := api.NewServer(fetch, addr, app.cfg.Serve.CacheTTL)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Serving quotas on http://%s\n", addr)

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("serve quotas: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), serveShutdownTimeout)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shut down server: %w", err)
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Listen port (default: serve.port from config)")

	return cmd
}
