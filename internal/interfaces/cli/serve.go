package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/caselens/claimsift/internal/app"
	"github.com/caselens/claimsift/internal/infrastructure/monitoring/logging"
)

// newServeCmd runs the full API server in the foreground.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ClaimSift API server",
		Long:  "Starts the HTTP API with every configured dependency (PostgreSQL, Redis,\nKafka, OpenSearch, Neo4j, the drafting provider) and serves until\ninterrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			application, err := app.New(ctx, cliCtx.Config, cliCtx.Logger, app.ServerOptions())
			if err != nil {
				return err
			}
			defer application.Close()

			srv := application.Server(Version)
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				cliCtx.Logger.Info("shutdown signal received", logging.String("cause", ctx.Err().Error()))
				return srv.Stop(cmd.Context())
			}
		},
	}
}
