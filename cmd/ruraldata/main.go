package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"ruraldata/internal/amqp"
	"ruraldata/internal/config"
	"ruraldata/internal/filter"
	apphttp "ruraldata/internal/http"
	"ruraldata/internal/log"
	"ruraldata/internal/query"
	"ruraldata/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		os.Stderr.WriteString("Configuration validation failed: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: log.ComponentApp,
	})
	log.SetDefault(logger)

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Serve the generation stored by the last loader run. An empty store is
	// fine: queries answer 503-style errors until a load completes.
	handle := &storage.Handle{}
	if snap, err := repo.LoadActiveSnapshot(ctx); err != nil {
		logger.Warn("No active generation in store", log.FieldError, err)
	} else {
		handle.Publish(snap)
		logger.Info("Active generation loaded",
			log.FieldGeneration, snap.Generation.ID,
			log.FieldRecordCount, len(snap.Records))
	}

	executor := query.NewExecutor(cfg.DefaultPageSize, cfg.MaxPageSize, cfg.QueryBudget)
	limits := filter.Limits{
		MaxMembershipValues: cfg.MaxMembershipValues,
		MaxRegexPattern:     cfg.RegexPatternCap,
		MaxRegexProgram:     cfg.RegexProgramCap,
		RegexInputCap:       cfg.RegexInputCap,
	}

	srv := apphttp.NewServer(":"+cfg.Port, handle, executor, limits)
	srv.Handler = log.Middleware(logger)(srv.Handler)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting ruraldata server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// When AMQP is configured, reload the snapshot whenever the loader
	// announces a new generation.
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		g.Go(func() error {
			err := amqpClient.ConsumeGenerationLoaded(gctx, func(msg *amqp.GenerationLoadedMessage) error {
				snap, err := repo.LoadActiveSnapshot(gctx)
				if err != nil {
					return err
				}
				handle.Publish(snap)
				logger.Info("Snapshot refreshed from notification",
					log.FieldGeneration, msg.GenerationID,
					log.FieldRecordCount, msg.RecordCount)
				return nil
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
