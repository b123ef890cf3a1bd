// Command apiserver runs the ClaimSift HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/caselens/claimsift/internal/app"
	"github.com/caselens/claimsift/internal/config"
	"github.com/caselens/claimsift/internal/infrastructure/monitoring/logging"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "config file path (defaults to CLAIMSIFT_* env vars)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return err
	}
	logging.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger, app.ServerOptions())
	if err != nil {
		return err
	}
	defer application.Close()

	logger.Info("starting claimsift api server",
		logging.String("version", Version),
		logging.String("commit", GitCommit),
		logging.Int("port", cfg.Server.Port),
	)

	srv := application.Server(Version)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		return srv.Stop(context.Background())
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadFromEnv()
}
