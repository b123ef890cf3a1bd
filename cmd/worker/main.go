// Command worker drains the analysis job topic.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/caselens/claimsift/internal/app"
	"github.com/caselens/claimsift/internal/config"
	"github.com/caselens/claimsift/internal/infrastructure/messaging/kafka"
	"github.com/caselens/claimsift/internal/infrastructure/monitoring/logging"
	"github.com/caselens/claimsift/internal/worker"
)

// Version is injected via ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "config file path (defaults to CLAIMSIFT_* env vars)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
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

	application, err := app.New(ctx, cfg, logger, app.WorkerOptions())
	if err != nil {
		return err
	}
	defer application.Close()

	handle := worker.NewHandler(worker.Config{
		MaxRetries:   cfg.Worker.MaxRetries,
		RetryBackoff: cfg.Worker.RetryBackoff,
	}, worker.Deps{
		Engine:    application.Engine,
		Documents: application.Documents,
		Analyses:  application.Analyses,
		Cache:     application.Cache,
		Locks:     application.Locks,
		Logger:    logger,
	})

	concurrency := cfg.Worker.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	logger.Info("starting claimsift worker",
		logging.String("version", Version),
		logging.Int("concurrency", concurrency),
		logging.String("topic", cfg.Kafka.Topic),
	)

	// Each consumer holds its own group member; the broker balances
	// partitions across them.
	var wg sync.WaitGroup
	errCh := make(chan error, concurrency)
	for i := 0; i < concurrency; i++ {
		consumer, err := kafka.NewJobConsumer(cfg.Kafka, handle, logger)
		if err != nil {
			stop()
			wg.Wait()
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer consumer.Close()
			if err := consumer.Run(ctx); err != nil {
				errCh <- err
				stop()
			}
		}()
	}

	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			return err
		}
	}
	logger.Info("worker stopped")
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadFromEnv()
}
