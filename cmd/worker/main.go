package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"trafficportal/internal/config"
	"trafficportal/internal/log"
	"trafficportal/internal/portal"
	"trafficportal/internal/queue"
	"trafficportal/internal/storage"
	"trafficportal/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := portal.RequireSharedStore(cfg.Store); err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("worker needs the API's store")
	}

	backend, err := portal.OpenBackend(ctx, cfg, true)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("failed to open store")
	}
	defer backend.Close()

	p := portal.New(backend.Store, cfg, logger)

	var snapshots tasks.SnapshotWriter
	if cfg.Storage.Endpoint != "" {
		objectStore, err := storage.NewObjectStore(cfg.Storage)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init object store")
		}
		if err := objectStore.EnsureBucket(ctx); err != nil {
			logger.Warn().Err(err).Msg("ensure snapshot bucket failed")
		}
		snapshots = objectStore
	} else {
		logger.Warn().Msg("no object store configured, registry snapshots will stay pending")
	}

	processor := tasks.NewProcessor(p.Registry, p.Permissions, snapshots, logger)
	consumer := queue.NewConsumer(
		backend.Redis,
		cfg.Queue.Stream,
		cfg.Queue.Group,
		cfg.Queue.Consumer,
		cfg.Queue.ClaimInterval,
		logger,
		processor,
	)

	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("consumer stopped unexpectedly")
	}
	logger.Info().Msg("worker exited")
}
