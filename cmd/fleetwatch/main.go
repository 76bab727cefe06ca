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
	"github.com/rs/zerolog"

	"github.com/monocle-dev/fleetwatch/db"
	"github.com/monocle-dev/fleetwatch/internal/config"
	"github.com/monocle-dev/fleetwatch/internal/handlers"
	"github.com/monocle-dev/fleetwatch/internal/logging"
	"github.com/monocle-dev/fleetwatch/internal/metrics"
	"github.com/monocle-dev/fleetwatch/internal/monitors"
	"github.com/monocle-dev/fleetwatch/internal/router"
	"github.com/monocle-dev/fleetwatch/internal/scheduler"
	"github.com/monocle-dev/fleetwatch/internal/store"
	"github.com/monocle-dev/fleetwatch/internal/tracing"
	"github.com/monocle-dev/fleetwatch/internal/types"
)

func main() {
	bootLog := logging.New("info", "json")

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		bootLog.Fatal().Err(err).Msg("error loading .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.TraceEndpoint, cfg.ServiceName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up tracing")
	}

	metrics.Init()

	st, err := openStore(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}

	sched := scheduler.NewScheduler(st, monitors.NewPingProber(cfg.ProbePrivileged, log), scheduler.Config{
		Interval:       cfg.CheckInterval,
		MetricsTimeout: cfg.MetricsTimeout,
		ProbeTimeout:   cfg.ProbeTimeout,
		Concurrency:    cfg.ProbeConcurrency,
	}, scheduler.WithLogger(log))

	origins := types.AllowedOrigins(cfg.AllowedOrigins)
	hub := handlers.NewHub(origins, log)
	h := handlers.NewHandler(st, sched, handlers.Options{
		HistoryLimit:    cfg.HistoryLimit,
		HistoryMaxLimit: cfg.HistoryMaxLimit,
		CacheTTL:        cfg.ReadCacheTTL,
		Logger:          log,
	})

	sched.AddListener(h)
	sched.AddListener(hub)

	serviceName := ""
	if cfg.TraceEndpoint != "" {
		serviceName = cfg.ServiceName
	}

	r := router.NewRouter(h, hub, router.Config{
		AllowedOrigins: origins,
		StaticDir:      cfg.StaticDir,
		ServiceName:    serviceName,
	}, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := sched.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	sched.Stop()

	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracing shutdown")
	}
}

func openStore(cfg config.Config, log zerolog.Logger) (store.Store, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		log.Warn().Msg("using in-memory store, data is lost on restart")
		return store.NewMemoryStore(), nil
	}

	database, err := db.ConnectDatabase(cfg.DatabaseURL, log)
	if err != nil {
		return nil, err
	}

	if err := db.MigrateDatabase(database); err != nil {
		return nil, err
	}

	log.Info().Msg("connected to database")

	return store.NewGormStore(database), nil
}
