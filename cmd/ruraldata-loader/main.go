package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ruraldata/internal/amqp"
	"ruraldata/internal/config"
	"ruraldata/internal/loader"
	"ruraldata/internal/log"
	"ruraldata/internal/storage"
)

// One-shot ingestion: pick the newest extract in DATA_DIR, store it as the
// active generation, and announce it over AMQP when configured. Intended to
// run from cron or by hand after dropping a fresh extract in the directory.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		os.Stderr.WriteString("Configuration validation failed: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: log.ComponentLoader,
	})
	log.SetDefault(logger)

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	var notifier loader.Notifier
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		notifier = amqpClient
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gen, err := loader.New(repo, notifier, cfg.DataDir, logger).Run(ctx)
	if err != nil {
		logger.Error("Load failed", log.FieldError, err, "data_dir", cfg.DataDir)
		os.Exit(1)
	}

	logger.Info("Load complete",
		log.FieldGeneration, gen.ID,
		log.FieldSourceFile, gen.SourceFile,
		log.FieldRecordCount, gen.RecordCount)
}
