package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"trafficportal/internal/config"
	"trafficportal/internal/events"
	"trafficportal/internal/handlers"
	"trafficportal/internal/jobs"
	"trafficportal/internal/log"
	"trafficportal/internal/portal"
	"trafficportal/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, "api")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	withRedis := cfg.Events.Relay && cfg.Events.Transport != "nats"
	backend, err := portal.OpenBackend(ctx, cfg, withRedis)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("failed to open store")
	}
	defer backend.Close()

	p := portal.New(backend.Store, cfg, logger)

	if cfg.Events.Relay {
		if err := startRelay(ctx, cfg, backend, p.Bus, logger.With().Str("component", "relay").Logger()); err != nil {
			logger.Fatal().Err(err).Str("transport", cfg.Events.Transport).Msg("failed to start event relay")
		}
	}

	handlerSet := handlers.NewHandlerSet(logger, cfg, p, backend)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(backend.Redis, cfg.Queue.Stream, cfg.Jobs, logger.With().Str("component", "scheduler").Logger())
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	shutdown(logger, httpServer, scheduler)
}

type relay interface {
	Start(ctx context.Context) error
}

func startRelay(ctx context.Context, cfg *config.AppConfig, backend *portal.Backend, bus *events.Bus, logger zerolog.Logger) error {
	var r relay
	switch cfg.Events.Transport {
	case "nats":
		conn, err := nats.Connect(cfg.Events.NatsURL, nats.Name("trafficportal"))
		if err != nil {
			return err
		}
		context.AfterFunc(ctx, conn.Close)
		r = events.NewNatsRelay(conn, bus, cfg.Events.Channel, logger)
	case "redis", "":
		if backend.Redis == nil {
			return errors.New("redis relay needs a redis connection")
		}
		r = events.NewRedisRelay(backend.Redis, bus, cfg.Events.Channel, cfg.Events.Stream, logger)
	default:
		return fmt.Errorf("unknown event transport %q", cfg.Events.Transport)
	}

	go func() {
		if err := r.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("event relay stopped")
		}
	}()
	return nil
}

func shutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler) {
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn().Msg("scheduled jobs still running at exit")
	}

	logger.Info().Msg("server exited cleanly")
}
