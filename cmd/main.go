package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/senyabanana/tender-service/internal/db"
	"github.com/senyabanana/tender-service/internal/handlers"
	"github.com/senyabanana/tender-service/internal/logger"
	"github.com/senyabanana/tender-service/internal/models"
	"github.com/senyabanana/tender-service/internal/notify"
	"github.com/senyabanana/tender-service/internal/repository"
	"github.com/senyabanana/tender-service/internal/router"
	"github.com/senyabanana/tender-service/internal/router/config"
	"github.com/senyabanana/tender-service/internal/services"
	"github.com/senyabanana/tender-service/internal/worker"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		fmt.Fprintln(os.Stderr, "cannot load config:", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Env: cfg.AppEnv, Level: cfg.LogLevel})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := services.Deps{
		Clock:    clockwork.NewRealClock(),
		Notifier: notify.NewLogNotifier(log),
		Logger:   log.Named("services"),
	}

	switch cfg.StorageDriver {
	case "memory":
		store := repository.NewMemoryStore()
		deps.Tenders, deps.Bids, deps.Tx = store.Tenders(), store.Bids(), store
		log.Warn().Msg("using in-memory storage, data is lost on restart")
	case "postgres", "":
		runDBMigration(log, cfg.MigrationURL, cfg.PostgresConn)

		dbPool, err := db.InitDb(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("error initializing database")
		}
		defer dbPool.Close()

		deps.Tenders = repository.NewPostgresTenderRepository(dbPool)
		deps.Bids = repository.NewPostgresBidRepository(dbPool)
		deps.Tx = repository.NewPostgresTxRunner(dbPool)
	default:
		log.Fatal().Str("driver", cfg.StorageDriver).Msg("unsupported storage driver")
	}

	weights, err := scoreWeights(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid score weights")
	}
	scorer, err := services.NewScorer(weights)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid score weights")
	}

	deadlines := services.NewDeadlineManager(deps)
	tenderService := services.NewTenderService(deps, deadlines, services.TenderOptions{
		SweepOnRead:     cfg.SweepOnRead,
		BulkConcurrency: cfg.BulkDeleteConcurrency,
	})
	bidService := services.NewBidService(deps, scorer)
	awards := services.NewAwardCoordinator(deps)

	tenderHandler := handlers.NewTenderHandler(tenderService, awards, log, cfg.RequestTimeout)
	bidHandler := handlers.NewBidHandler(bidService, log, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:    cfg.ServerAddress,
		Handler: router.InitRoutes(tenderHandler, bidHandler),
	}
	sweeper := worker.NewSweeper(deadlines, deps.Clock, cfg.SweepInterval, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.ServerAddress).Msg("server is listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("service stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("service stopped")
}

func runDBMigration(log *logger.Logger, migrationURL string, dbSource string) {
	migration, err := migrate.New(migrationURL, dbSource)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot create a new migrate instance")
	}

	if err = migration.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatal().Err(err).Msg("failed to run migrate up")
	}
	log.Info().Msg("db migrated successfully")
}

func scoreWeights(cfg config.Config) (models.ScoreWeights, error) {
	technical, err := decimal.NewFromString(cfg.ScoreWeightTechnical)
	if err != nil {
		return models.ScoreWeights{}, fmt.Errorf("SCORE_WEIGHT_TECHNICAL: %w", err)
	}
	financial, err := decimal.NewFromString(cfg.ScoreWeightFinancial)
	if err != nil {
		return models.ScoreWeights{}, fmt.Errorf("SCORE_WEIGHT_FINANCIAL: %w", err)
	}
	return models.ScoreWeights{Technical: technical, Financial: financial}, nil
}
