// Package test provides the shared harness for package tests: a temp-backed
// local store, a controllable clock, and a manually driven connectivity
// monitor.
package test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coxswain-app/shoreline/internal/cache"
	"github.com/coxswain-app/shoreline/internal/connectivity"
	"github.com/coxswain-app/shoreline/internal/freshness"
	"github.com/coxswain-app/shoreline/internal/localstore"
	"github.com/coxswain-app/shoreline/internal/logger"
)

// Clock is a controllable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a Clock starting at the given instant.
func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the fake time forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set jumps the fake time to a specific instant.
func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Helper bundles the pieces most tests need.
type Helper struct {
	Context   context.Context
	Store     *localstore.Store
	Freshness *freshness.Tracker
	Cache     *cache.Manager
	Monitor   *connectivity.StaticMonitor
	Clock     *Clock
	DataDir   string
}

// Options adjusts Setup.
type Options struct {
	Online bool
	Start  time.Time
}

// HelperOption defines functional options for Setup.
type HelperOption func(*Options)

// WithOnline sets the initial connectivity status.
func WithOnline() HelperOption {
	return func(o *Options) {
		o.Online = true
	}
}

// WithStartTime sets the clock's starting instant.
func WithStartTime(t time.Time) HelperOption {
	return func(o *Options) {
		o.Start = t
	}
}

// Setup creates a Helper backed by a store in a temp directory. Everything is
// torn down via t.Cleanup.
func Setup(t *testing.T, opts ...HelperOption) Helper {
	t.Helper()

	options := Options{
		Start: time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC),
	}
	for _, opt := range opts {
		opt(&options)
	}

	dataDir := t.TempDir()
	store, err := localstore.Open(filepath.Join(dataDir, "shoreline.db"))
	require.NoError(t, err, "expected store to open")
	t.Cleanup(func() {
		_ = store.Close()
	})

	clock := NewClock(options.Start)
	fresh := freshness.New(store, freshness.WithClock(clock.Now))
	manager := cache.New(store, fresh, cache.WithClock(clock.Now))
	monitor := connectivity.NewStaticMonitor(options.Online)

	ctx := logger.WithLogger(context.Background(), logger.NewLogger(logger.WithQuiet()))

	return Helper{
		Context:   ctx,
		Store:     store,
		Freshness: fresh,
		Cache:     manager,
		Monitor:   monitor,
		Clock:     clock,
		DataDir:   dataDir,
	}
}
