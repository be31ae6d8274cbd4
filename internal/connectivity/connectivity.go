// Package connectivity abstracts the online/offline signal the sync engine
// reacts to. Platform layers plug in their own implementation; the probe
// monitor here covers environments without a native signal.
package connectivity

import (
	"sync"
)

// Monitor reports connectivity and delivers edge-triggered became-online
// notifications.
type Monitor interface {
	// IsOnline reports the current connectivity status.
	IsOnline() bool
	// OnBecameOnline registers a callback fired on each offline-to-online
	// transition. The returned function unregisters it.
	OnBecameOnline(fn func()) (unsubscribe func())
}

// callbacks is a thread-safe registry of became-online listeners.
type callbacks struct {
	mu     sync.Mutex
	nextID int
	fns    map[int]func()
}

func newCallbacks() *callbacks {
	return &callbacks{fns: make(map[int]func())}
}

func (c *callbacks) add(fn func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.fns[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.fns, id)
	}
}

func (c *callbacks) fire() {
	c.mu.Lock()
	fns := make([]func(), 0, len(c.fns))
	for _, fn := range c.fns {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

var _ Monitor = (*StaticMonitor)(nil)

// StaticMonitor is a manually driven Monitor. It backs tests and platforms
// that push connectivity changes from the outside.
type StaticMonitor struct {
	mu        sync.Mutex
	online    bool
	callbacks *callbacks
}

// NewStaticMonitor creates a StaticMonitor with the given initial status.
func NewStaticMonitor(online bool) *StaticMonitor {
	return &StaticMonitor{online: online, callbacks: newCallbacks()}
}

// IsOnline implements Monitor.
func (m *StaticMonitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// OnBecameOnline implements Monitor.
func (m *StaticMonitor) OnBecameOnline(fn func()) func() {
	return m.callbacks.add(fn)
}

// SetOnline updates the status, firing callbacks on an offline-to-online
// edge.
func (m *StaticMonitor) SetOnline(online bool) {
	m.mu.Lock()
	becameOnline := online && !m.online
	m.online = online
	m.mu.Unlock()

	if becameOnline {
		m.callbacks.fire()
	}
}
