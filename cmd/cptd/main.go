package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/cptapp/cpt/internal/capture"
	"github.com/cptapp/cpt/internal/config"
	"github.com/cptapp/cpt/internal/domain"
	"github.com/cptapp/cpt/internal/notify"
	"github.com/cptapp/cpt/internal/server"
	"github.com/cptapp/cpt/internal/store/memory"
	"github.com/cptapp/cpt/internal/store/postgres"
	"github.com/cptapp/cpt/internal/syncer"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// Initialize structured logging from environment.
	logLevel := os.Getenv("CPT_LOG_LEVEL")
	level, parseErr := zerolog.ParseLevel(logLevel)
	if parseErr != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logFormat := os.Getenv("CPT_LOG_FORMAT")
	if logFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	ctx := context.Background()

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Pick the storage collaborator: postgres when configured, the
	// ephemeral in-memory store otherwise.
	var store domain.Store
	if cfg.Database.Host != "" {
		if cfg.Database.MaxConns < 0 || cfg.Database.MaxConns > math.MaxInt32 {
			return fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
		}
		pg, pgErr := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
		if pgErr != nil {
			return pgErr
		}
		defer pg.Close()
		store = pg
	} else {
		log.Warn().Msg("CPT_DB_HOST not set; using in-memory store, tasks will not persist")
		store = memory.New()
	}

	// Optional Redis change broadcasting.
	var broadcaster *notify.Broadcaster
	if cfg.Redis.Addr != "" {
		broadcaster, err = notify.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer func() { _ = broadcaster.Close() }()
	}

	// Assemble the synchronizer.
	syncOpts := []syncer.Option{
		syncer.WithInterval(cfg.Sync.RefreshInterval),
	}
	if broadcaster != nil {
		syncOpts = append(syncOpts, syncer.WithPublisher(broadcaster))
	}
	if cfg.Sync.StrictCapture {
		syncOpts = append(syncOpts, syncer.WithCaptureOptions(capture.Strict()))
	}
	engine := syncer.New(store, domain.SystemClock{}, syncOpts...)

	if err := engine.Load(ctx); err != nil {
		return err
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := server.New(ctx, cfg, engine, broadcaster)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		engine.Run(groupCtx)
		return nil
	})

	group.Go(func() error {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		return srv.Start()
	})

	group.Go(func() error {
		<-groupCtx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		return err
	}

	log.Info().Msg("stopped")
	return nil
}
