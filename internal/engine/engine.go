// Package engine assembles the sync engine from its parts: local store,
// freshness tracker, cache manager, mutation queue, optimistic executor,
// connectivity monitor, and the periodic cache cleanup job.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/coxswain-app/shoreline/internal/cache"
	"github.com/coxswain-app/shoreline/internal/config"
	"github.com/coxswain-app/shoreline/internal/connectivity"
	"github.com/coxswain-app/shoreline/internal/freshness"
	"github.com/coxswain-app/shoreline/internal/hydrate"
	"github.com/coxswain-app/shoreline/internal/localstore"
	"github.com/coxswain-app/shoreline/internal/logger"
	"github.com/coxswain-app/shoreline/internal/logger/tag"
	"github.com/coxswain-app/shoreline/internal/optimistic"
	"github.com/coxswain-app/shoreline/internal/remote"
	"github.com/coxswain-app/shoreline/internal/syncqueue"
)

// Engine owns the assembled sync machinery.
type Engine struct {
	Store     *localstore.Store
	Freshness *freshness.Tracker
	Cache     *cache.Manager
	Queue     *syncqueue.Queue
	Executor  *optimistic.Executor
	Hydrator  *hydrate.Hydrator
	Remote    *remote.Client
	Monitor   connectivity.Monitor

	probe   *connectivity.ProbeMonitor
	cron    *cron.Cron
	started bool
}

// New builds an Engine from configuration. The probe monitor and cleanup
// cron do not run until Start.
func New(cfg *config.Config) (*Engine, error) {
	if cfg.RemoteBaseURL == "" {
		return nil, fmt.Errorf("engine: remote base URL is required")
	}

	store, err := localstore.Open(cfg.DatabasePath())
	if err != nil {
		return nil, err
	}

	fresh := freshness.New(store, freshness.WithDefaultTTL(cfg.FreshnessTTL))
	manager := cache.New(store, fresh)

	var clientOpts []remote.Option
	if cfg.APIToken != "" {
		clientOpts = append(clientOpts, remote.WithToken(cfg.APIToken))
	}
	if cfg.RequestTimeout > 0 {
		clientOpts = append(clientOpts, remote.WithTimeout(cfg.RequestTimeout))
	}
	client := remote.NewClient(cfg.RemoteBaseURL, clientOpts...)

	probe := connectivity.NewProbeMonitor(cfg.ProbeAddress,
		connectivity.WithProbeInterval(cfg.ProbeInterval))

	queue := syncqueue.New(store, client, probe)
	executor := optimistic.New(queue, probe)
	hydrator := hydrate.New(client, manager, fresh)

	return &Engine{
		Store:     store,
		Freshness: fresh,
		Cache:     manager,
		Queue:     queue,
		Executor:  executor,
		Hydrator:  hydrator,
		Remote:    client,
		Monitor:   probe,
		probe:     probe,
		cron:      cron.New(),
	}, nil
}

// Start launches the connectivity probe, subscribes the queue to
// became-online signals, and schedules the regatta cache cleanup.
func (e *Engine) Start(ctx context.Context, cleanupSchedule string) error {
	if cleanupSchedule != "" {
		_, err := e.cron.AddFunc(cleanupSchedule, func() {
			cleanupCtx, cancel := context.WithTimeout(ctx, time.Minute)
			defer cancel()
			if _, err := e.Cache.CleanupOldRegattaCache(cleanupCtx); err != nil {
				logger.Error(ctx, "Scheduled regatta cleanup failed", tag.Error(err))
			}
		})
		if err != nil {
			return fmt.Errorf("engine: invalid cleanup schedule %q: %w", cleanupSchedule, err)
		}
		e.cron.Start()
	}

	e.probe.Start(ctx)
	e.Queue.Start(ctx)

	e.started = true
	logger.Info(ctx, "Sync engine started")
	return nil
}

// Close stops the probe, the cleanup cron, and the queue, then closes the
// store.
func (e *Engine) Close() error {
	if e.started {
		e.cron.Stop()
		e.Queue.Close()
		e.probe.Stop()
	}
	return e.Store.Close()
}
