package connectivity

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/coxswain-app/shoreline/internal/logger"
	"github.com/coxswain-app/shoreline/internal/logger/tag"
)

const (
	defaultProbeInterval = 30 * time.Second
	defaultProbeTimeout  = 5 * time.Second
)

var _ Monitor = (*ProbeMonitor)(nil)

// ProbeMonitor derives connectivity from a periodic TCP dial against a known
// address. The first probe runs synchronously on Start so IsOnline is
// meaningful immediately.
type ProbeMonitor struct {
	addr      string
	interval  time.Duration
	timeout   time.Duration
	callbacks *callbacks

	mu     sync.Mutex
	online bool

	cancel context.CancelFunc
	done   chan struct{}
}

// ProbeOption configures a ProbeMonitor.
type ProbeOption func(*ProbeMonitor)

// WithProbeInterval sets the time between probes.
func WithProbeInterval(d time.Duration) ProbeOption {
	return func(m *ProbeMonitor) {
		m.interval = d
	}
}

// WithProbeTimeout sets the dial timeout of a single probe.
func WithProbeTimeout(d time.Duration) ProbeOption {
	return func(m *ProbeMonitor) {
		m.timeout = d
	}
}

// NewProbeMonitor creates a ProbeMonitor probing the given host:port address.
func NewProbeMonitor(addr string, opts ...ProbeOption) *ProbeMonitor {
	m := &ProbeMonitor{
		addr:      addr,
		interval:  defaultProbeInterval,
		timeout:   defaultProbeTimeout,
		callbacks: newCallbacks(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins probing until Stop is called or the context is canceled.
func (m *ProbeMonitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})

	m.probe(ctx)

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.probe(ctx)
			}
		}
	}()
}

// Stop halts probing and waits for the probe loop to exit.
func (m *ProbeMonitor) Stop() {
	if m.cancel != nil {
		m.cancel()
		<-m.done
	}
}

// IsOnline implements Monitor.
func (m *ProbeMonitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// OnBecameOnline implements Monitor.
func (m *ProbeMonitor) OnBecameOnline(fn func()) func() {
	return m.callbacks.add(fn)
}

func (m *ProbeMonitor) probe(ctx context.Context) {
	dialer := net.Dialer{Timeout: m.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", m.addr)
	online := err == nil
	if conn != nil {
		_ = conn.Close()
	}

	m.mu.Lock()
	becameOnline := online && !m.online
	becameOffline := !online && m.online
	m.online = online
	m.mu.Unlock()

	if becameOffline {
		logger.Warn(ctx, "Connectivity lost", tag.Error(err))
	}
	if becameOnline {
		logger.Info(ctx, "Connectivity restored")
		m.callbacks.fire()
	}
}
