package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	router "github.com/dkeye/chatrelay/internal/adapters/http"
	"github.com/dkeye/chatrelay/internal/adapters/objectstore"
	"github.com/dkeye/chatrelay/internal/adapters/ratelimit"
	"github.com/dkeye/chatrelay/internal/adapters/shortener"
	"github.com/dkeye/chatrelay/internal/adapters/signal"
	"github.com/dkeye/chatrelay/internal/adapters/store"
	"github.com/dkeye/chatrelay/internal/app"
	"github.com/dkeye/chatrelay/internal/app/media"
	"github.com/dkeye/chatrelay/internal/app/orch"
	"github.com/dkeye/chatrelay/internal/app/presence"
	"github.com/dkeye/chatrelay/internal/config"
	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/domain"
	"github.com/dkeye/chatrelay/internal/telemetry"
)

func main() {
	ctx, cancel := ossignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.Mode == "release" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	st, err := store.Open(ctx, cfg.Store, cfg.RoomNames())
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to open store")
	}
	rooms, err := st.ListRooms(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to list rooms")
	}
	if len(rooms) == 0 {
		log.Fatal().Msg("no rooms in store, run cmd/seed first")
	}
	names := make([]domain.RoomName, 0, len(rooms))
	for _, r := range rooms {
		names = append(names, r.Name)
	}
	reg := app.NewRegistry(app.NewRoomManager(names))

	objects, err := objectstore.Connect(ctx, cfg.ObjectStore.NatsURL, cfg.ObjectStore.Bucket)
	if err != nil {
		log.Fatal().Err(err).Str("nats", cfg.ObjectStore.NatsURL).Msg("failed to open object store")
	}

	var short core.Shortener = shortener.Noop{}
	if cfg.Shortener.Endpoint != "" {
		short = shortener.New(cfg.Shortener.Endpoint, &http.Client{Timeout: cfg.Media.ShortenTimeout})
	}

	telemetry.Init()

	pipeline := media.NewPipeline(media.Config{
		TempDir:        cfg.Media.TempDir,
		MaxBytes:       cfg.Media.MaxBytes,
		KeyPrefix:      cfg.Media.KeyPrefix,
		PublicBaseURL:  cfg.Media.PublicBaseURL,
		UploadTimeout:  cfg.Media.UploadTimeout,
		ShortenTimeout: cfg.Media.ShortenTimeout,
		StoreTimeout:   cfg.Store.Timeout,
	}, objects, short, st)
	reconciler := presence.NewReconciler(reg, st, cfg.Store.Timeout)

	o := &orch.Orchestrator{
		Registry:     reg,
		Policy:       app.SimplePolicy{},
		History:      st,
		Rooms:        st,
		Media:        pipeline,
		Presence:     reconciler,
		StoreTimeout: cfg.Store.Timeout,
	}

	var limiter signal.MessageLimiter = signal.NewRoomRateLimiter(cfg.Rate.Limit, cfg.Rate.Interval)
	var redisLimiter *ratelimit.RedisLimiter
	if cfg.Rate.RedisURL != "" {
		redisLimiter, err = ratelimit.Connect(ctx, cfg.Rate.RedisURL, cfg.Rate.Limit, cfg.Rate.Interval)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open rate limiter")
		}
		limiter = redisLimiter
	}

	var workers conc.WaitGroup
	workers.Go(o.Run)
	workers.Go(func() { reconciler.Run(ctx, cfg.Presence.Interval) })

	r, signals := router.SetupRouter(ctx, cfg, o, objects, limiter)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Int("rooms", len(names)).Msg("chat relay started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Every socket disconnects and in-flight attachments finish before the
	// stores go away.
	signals.Wait()
	pipeline.Close()
	workers.Wait()
	if err := reconciler.ReconcileAll(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("final reconcile")
	}

	if err := st.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("store close")
	}
	objects.Close()
	if redisLimiter != nil {
		_ = redisLimiter.Close()
	}
	log.Info().Msg("Server exited gracefully")
}
