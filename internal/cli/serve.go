package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"option-strategist/internal/api"
)

// addServeCommand adds the HTTP API server command.
func addServeCommand(rootCmd *cobra.Command, app *App) {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the strategy engine over HTTP",
		Long: `Start the HTTP API.

Endpoints:
  GET  /health
  GET  /api/v1/chains/{symbol}
  POST /api/v1/strategies/{symbol}/validate[?save=true]
  POST /api/v1/strategies/{symbol}/suggest`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return errStoreUnavailable
			}

			serverCfg := app.Config.Server
			if addr != "" {
				serverCfg.Addr = addr
			}
			if app.Agent == nil {
				app.Logger.Warn().Msg("No LLM configured, suggest endpoint will return 503")
			}

			handler := api.NewHandler(app.Store, app.Store, app.Engine, app.Agent, app.Logger)
			server := api.NewServer(serverCfg, app.Logger, api.NewRouter(handler))

			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")

	rootCmd.AddCommand(cmd)
}
