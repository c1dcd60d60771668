// Command fieldsync runs the offline-capable field gateway: an HTTP API for
// distribution-route transactions backed by a durable local queue that
// synchronizes with the central backend whenever it is reachable.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/neyyar-dairy/fieldsync/internal/config"
	"github.com/neyyar-dairy/fieldsync/internal/dispatch"
	"github.com/neyyar-dairy/fieldsync/internal/flush"
	httpapi "github.com/neyyar-dairy/fieldsync/internal/http"
	"github.com/neyyar-dairy/fieldsync/internal/http/handlers"
	"github.com/neyyar-dairy/fieldsync/internal/netmon"
	"github.com/neyyar-dairy/fieldsync/internal/observability"
	"github.com/neyyar-dairy/fieldsync/internal/queue"
	"github.com/neyyar-dairy/fieldsync/internal/repo"
	"github.com/neyyar-dairy/fieldsync/internal/rpc"
	"github.com/neyyar-dairy/fieldsync/internal/services"
	"github.com/neyyar-dairy/fieldsync/internal/sysutil"
)

var version = "dev" // overridden at build time via -ldflags

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	logger := log.With().Str("service", "fieldsync").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ver := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver)
	if err != nil {
		logger.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			logger.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open offline store")
	}
	if err := repo.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("migrate offline store")
	}

	store := queue.NewStore(db)
	if err := store.ResetClaims(ctx); err != nil {
		logger.Fatal().Err(err).Msg("reset queue claims")
	}

	caller := rpc.NewClient(cfg.RPC.BaseURL, cfg.RPC.APIKey, cfg.RPC.Timeout, logger)

	// Start pessimistic; the first successful probe flips the monitor online
	// and kicks the flusher.
	monitor := netmon.NewMonitor(false, logger)
	prober := netmon.NewProber(monitor, caller, cfg.Sync.ProbeInterval, cfg.Sync.ProbeTimeout, logger)
	go prober.Run(ctx)

	dispatcher := dispatch.New(caller, store, monitor, logger)
	flusher := flush.New(caller, store, logger)
	runner := flush.NewRunner(flusher, monitor, cfg.Sync.FlushInterval, logger)
	go runner.Run(ctx)

	catalogSvc := &services.CatalogService{DB: db, Caller: caller}
	if cfg.Sync.RefreshOnBoot {
		unsubscribe := monitor.Subscribe(func(online bool) {
			if !online {
				return
			}
			rctx, cancel := context.WithTimeout(ctx, cfg.RPC.Timeout)
			defer cancel()
			if err := catalogSvc.Refresh(rctx); err != nil {
				logger.Warn().Err(err).Msg("catalog refresh")
			}
		})
		defer unsubscribe()
	}

	h := handlers.New(
		&services.FieldService{Dispatcher: dispatcher},
		&services.AdminService{Dispatcher: dispatcher},
		&services.SyncService{Store: store, Flusher: flusher, Monitor: monitor},
		catalogSvc,
	)

	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	httpapi.RegisterRoutes(engine, h, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Str("version", ver).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
