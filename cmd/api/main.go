package main

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

	"github.com/crucial707/ledger/internal/config"
	"github.com/crucial707/ledger/internal/db"
	"github.com/crucial707/ledger/internal/events"
	"github.com/crucial707/ledger/internal/logging"
	"github.com/crucial707/ledger/internal/repo"
	"github.com/crucial707/ledger/internal/scheduler"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 15 * time.Second
	limiterIdle     = 30 * time.Minute
)

func main() {
	cfg := config.Load()

	logger := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	backend, err := openBackend(ctx, cfg, logging.WithComponent(log, "storage"))
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := backend.Close(closeCtx); err != nil {
			log.Warn("close storage", "error", err)
		}
	}()

	publisher, err := openPublisher(cfg, logging.WithComponent(log, "events"))
	if err != nil {
		return err
	}
	defer publisher.Close()

	a, err := newApp(cfg, backend, publisher, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(a, cfg),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("listening", "addr", srv.Addr, "tls", cfg.TLSEnabled(), "storage", cfg.StorageScheme())
		var err error
		if cfg.TLSEnabled() {
			err = srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		schedLog := logging.WithComponent(log, "scheduler")
		return scheduler.Run(gctx, schedLog,
			scheduler.LedgerStatsJob(cfg.StatsSchedule, backend.Users, backend.Transactions),
			scheduler.PruneJob("@every 10m", a.authLimiter, limiterIdle, schedLog),
		)
	})

	return g.Wait()
}

// openBackend picks the store implementation from the STORAGE_URL scheme and prepares it.
func openBackend(ctx context.Context, cfg config.Config, log *slog.Logger) (*repo.Backend, error) {
	var backend *repo.Backend
	switch cfg.StorageScheme() {
	case "postgres", "postgresql":
		sqlDB, err := db.Connect(ctx, cfg.StorageURL, db.PoolOptions{
			MaxOpenConns: cfg.DBMaxOpenConns,
			MaxIdleConns: cfg.DBMaxIdleConns,
		})
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(cfg.StorageURL); err != nil {
			sqlDB.Close()
			return nil, err
		}
		backend = repo.NewPostgresBackend(sqlDB, cfg.StoreTimeout)
		log.Info("connected to postgres")

	case "mongodb", "mongodb+srv":
		client, err := db.ConnectMongo(ctx, cfg.StorageURL)
		if err != nil {
			return nil, err
		}
		backend = repo.NewMongoBackend(client, cfg.MongoDatabase, cfg.StoreTimeout)
		log.Info("connected to mongodb", "database", cfg.MongoDatabase)

	case "memory":
		backend = repo.NewMemoryBackend()
		log.Warn("using in-memory storage; data is lost on restart")

	default:
		return nil, fmt.Errorf("unsupported storage scheme %q", cfg.StorageScheme())
	}

	if err := backend.Prepare(ctx); err != nil {
		backend.Close(context.Background())
		return nil, fmt.Errorf("prepare storage: %w", err)
	}
	return backend, nil
}

func openPublisher(cfg config.Config, log *slog.Logger) (events.Publisher, error) {
	if cfg.AMQPURL == "" {
		log.Info("AMQP_URL not set; ledger events disabled")
		return events.Nop{}, nil
	}
	p, err := events.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange, log)
	if err != nil {
		return nil, err
	}
	log.Info("publishing ledger events", "exchange", cfg.AMQPExchange)
	return p, nil
}
