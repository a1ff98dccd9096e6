package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/koouhz/beefybeer-sub000/internal/config"
	"github.com/koouhz/beefybeer-sub000/internal/infra"
	"github.com/koouhz/beefybeer-sub000/internal/metrics"
	"github.com/koouhz/beefybeer-sub000/internal/repository"
	"github.com/koouhz/beefybeer-sub000/internal/repository/memory"
	"github.com/koouhz/beefybeer-sub000/internal/router"
	"github.com/koouhz/beefybeer-sub000/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Store ────────────────────────────────────────────────────────────────
	var store *repository.Store
	switch cfg.StoreDriver {
	case "memory":
		log.Warn().Msg("using in-memory store: data is lost on restart")
		store = memory.NewStore()
	default:
		db, err := infra.NewDatabase(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		store = repository.NewStore(db)
	}

	// ── Metrics ──────────────────────────────────────────────────────────────
	provider, metricsHandler, err := metrics.Setup()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up metrics")
	}
	defer func() { _ = metrics.Shutdown(context.Background(), provider) }()
	m, err := metrics.New()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create instruments")
	}

	deps := router.Deps{
		Store:          store,
		Metrics:        m,
		MetricsHandler: metricsHandler,
	}

	// ── Redis: stock cache + incident queue + workers ────────────────────────
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = infra.NewRedis(ctx, cfg.RedisURL, cfg.WorkerPoolSize)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		deps.Redis = rdb
		deps.CacheCB = infra.NewCircuito(infra.CircuitoConfig{
			Nombre:       "redis_stock",
			UmbralFallos: cfg.CacheCBUmbralFallos,
			Espera:       cfg.CacheCBEspera(),
			AlCambiar:    infra.RegistrarCambios(m),
		})
		deps.Alertador = worker.NewDispatcher(rdb)

		incidentes := worker.NewIncidenteWorker(rdb, infra.NewMailer(cfg), cfg.AlertEmail)
		worker.StartWorkerPool(ctx, rdb, cfg.WorkerPoolSize, worker.Handlers{Incidentes: incidentes})
	} else {
		log.Warn().Msg("REDIS_URL empty: stock cache, incident queue and workers disabled")
	}

	// ── Kafka order events ───────────────────────────────────────────────────
	if pub := infra.NewPublicadorKafka(cfg.KafkaBrokers, cfg.KafkaTopicPedidos); pub != nil {
		deps.Publicador = pub
		defer func() { _ = pub.Close() }()
	}

	svcs := router.NewServices(cfg, deps)

	// Self-heal table occupancy before serving, then keep sweeping.
	worker.ReconciliarMesas(ctx, svcs.Mesas)
	worker.StartReconciliacionCron(ctx, svcs.Mesas, cfg.ReconciliacionIntervalo())

	r := router.New(cfg, deps, svcs)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("beefybeer backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	log.Info().Msg("server exited")
}

// setupLogger: dev pretty console, prod JSON.
func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
