package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/preemptiveoop/trialhub/internal/api"
	"github.com/spf13/cobra"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Run the HTTP API server until interrupted.

Examples:
  trialhub serve             # listen on server.port
  trialhub serve --port 9000 # override the configured port`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.openApplication(cmd.Context(), os.Stdout)
			if err != nil {
				return err
			}
			defer app.close()

			if cmd.Flags().Changed("port") {
				app.config.Server.Port = port
			}

			ln, err := net.Listen("tcp", fmt.Sprintf(":%d", app.config.Server.Port))
			if err != nil {
				return fmt.Errorf("failed to listen: %w", err)
			}
			return app.serve(cmd.Context(), ln)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "port to listen on (overrides server.port)")
	return cmd
}

func (app *application) router() http.Handler {
	return api.NewRouter(api.RouterDeps{
		Experiments: app.experimentService,
		Tokens:      app.jwtService,
		Logger:      app.logger,
		HealthCheck: app.healthCheck,
	})
}

// serve runs the API on ln until ctx is done, then shuts the server down
// within the configured shutdown timeout.
func (app *application) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           app.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info("starting server", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		app.logger.Info("shutting down server")
	}

	timeout := time.Duration(app.config.Server.ShutdownTimeout) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}

	app.logger.Info("server shutdown completed")
	return nil
}
