package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	jobapi "github.com/aliskhannn/pdf-merger/internal/api/handlers/job"
	"github.com/aliskhannn/pdf-merger/internal/api/router"
	"github.com/aliskhannn/pdf-merger/internal/api/server"
	"github.com/aliskhannn/pdf-merger/internal/config"
	"github.com/aliskhannn/pdf-merger/internal/infra/kafka/consumer"
	"github.com/aliskhannn/pdf-merger/internal/infra/kafka/producer"
	jobmsg "github.com/aliskhannn/pdf-merger/internal/kafka/handlers/job"
	"github.com/aliskhannn/pdf-merger/internal/pipeline"
	jobrepo "github.com/aliskhannn/pdf-merger/internal/repository/job"
	jobsvc "github.com/aliskhannn/pdf-merger/internal/service/job"
	"github.com/aliskhannn/pdf-merger/internal/storage/file"
)

func newServeCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the job worker with the HTTP API and Kafka consumer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	// Context & signals: used for graceful shutdown on system interrupts.
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL (master and slaves).
	opts := &dbpg.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	slaveDSNs := make([]string, 0, len(cfg.Database.Slaves))
	for _, s := range cfg.Database.Slaves {
		slaveDSNs = append(slaveDSNs, s.DSN())
	}

	db, err := dbpg.New(cfg.Database.Master.DSN(), slaveDSNs, opts)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to connect to database")
		return err
	}
	defer closeDB(db)

	// Retry strategy for Kafka and storage calls.
	strategy := retry.Strategy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
		Backoff:  cfg.Retry.Backoff,
	}

	storage, err := file.NewStorage(
		ctx,
		cfg.Storage.Endpoint,
		cfg.Storage.AccessKey,
		cfg.Storage.SecretKey,
		cfg.Storage.BucketName,
		cfg.Storage.UseSSL,
		strategy,
	)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to connect to storage")
		return err
	}

	repo := jobrepo.NewRepository(db)

	var p *producer.Producer
	if cfg.Kafka.Enabled {
		p = producer.New(&cfg.Kafka, strategy)
	}

	// Jobs outlive the signal context so that cancellation is explicit.
	jobsCtx, cancelJobs := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelJobs()

	factory := func(progress pipeline.Progress) *pipeline.Coordinator {
		return newCoordinator(cfg, progress)
	}

	// A nil *Producer must not reach the service as a non-nil publisher.
	var service *jobsvc.Service
	if p != nil {
		service = jobsvc.NewService(jobsCtx, storage, repo, p, factory, cfg.Job, cfg.Worker)
	} else {
		service = jobsvc.NewService(jobsCtx, storage, repo, nil, factory, cfg.Job, cfg.Worker)
	}

	var (
		wg sync.WaitGroup
		c  *consumer.Consumer
	)
	if cfg.Kafka.Enabled {
		c = consumer.New(&cfg.Kafka, strategy, jobmsg.NewCommandHandler(service))
		wg.Add(1)
		go c.Consume(ctx, &wg)
	}

	r := router.Setup(jobapi.NewHandler(service))
	s := server.New(cfg.Server.HTTPPort, r)
	go func() {
		zlog.Logger.Info().Str("addr", cfg.Server.HTTPPort).Msg("starting server")
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()

	// Block until context is canceled (SIGINT/SIGTERM).
	<-ctx.Done()
	zlog.Logger.Info().Msg("context done")

	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	// Running jobs are cancelled and allowed to record their final status.
	cancelJobs()
	service.Wait()

	if p != nil {
		if err := p.Client.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to close kafka producer client")
		}
	}
	if c != nil {
		if err := c.Client.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to close kafka consumer client")
		}
	}

	return nil
}

func closeDB(db *dbpg.DB) {
	if err := db.Master.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close master DB")
	}
	for i, s := range db.Slaves {
		if err := s.Close(); err != nil {
			zlog.Logger.Error().Err(err).Int("slave", i).Msg("failed to close slave DB")
		}
	}
}
