package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// Observer receives lifecycle and tool-call notifications. It must be safe for
// concurrent use.
type Observer interface {
	ServersConnected(n int)
	ToolCalled(server, tool string, d time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) ServersConnected(int)                            {}
func (nopObserver) ToolCalled(string, string, time.Duration, error) {}

// Option configures a Manager.
type Option func(*Manager)

// WithSessionFactory replaces the default stdio/HTTP session factory.
func WithSessionFactory(f SessionFactory) Option {
	return func(m *Manager) { m.factory = f }
}

// WithDefaultTimeout sets the handshake timeout for descriptors without one.
func WithDefaultTimeout(d time.Duration) Option {
	return func(m *Manager) { m.defaultTimeout = d }
}

// WithLogger sets the logger; a "component" attribute is added.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithObserver registers metrics hooks.
func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// serverSession is one configured server and, once connected, its live session.
type serverSession struct {
	desc    ServerDescriptor
	session Session

	mu          sync.Mutex
	cachedTools []mcptypes.Tool
}

// Manager owns the tool server sessions. Connection state is only mutated by
// Configure, ConnectAll/ConnectAvailable and DisconnectAll; everything else
// reads it and may run concurrently from many turns.
type Manager struct {
	mu             sync.RWMutex
	descriptors    []ServerDescriptor
	servers        []*serverSession // connected, in the order passed to Configure
	factory        SessionFactory
	defaultTimeout time.Duration
	logger         *slog.Logger
	observer       Observer
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{defaultTimeout: DefaultSessionTimeout}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.logger = m.logger.With("component", "mcp")
	if m.factory == nil {
		m.factory = NewSessionFactory(m.logger)
	}
	if m.observer == nil {
		m.observer = nopObserver{}
	}
	return m
}

// Configure validates descriptors and resolves their environment overrides.
// It replaces any previous configuration and must not be called while
// servers are connected.
func (m *Manager) Configure(descriptors []ServerDescriptor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.servers) > 0 {
		return errors.New("cannot reconfigure while tool servers are connected")
	}
	if m.defaultTimeout <= 0 {
		return fmt.Errorf("%w: default session timeout must be positive, got %s", ErrInvalidDescriptor, m.defaultTimeout)
	}

	seen := make(map[string]bool, len(descriptors))
	configured := make([]ServerDescriptor, 0, len(descriptors))
	for _, d := range descriptors {
		if err := d.Validate(); err != nil {
			return err
		}
		if seen[d.Name] {
			return fmt.Errorf("%w: duplicate server name %q", ErrInvalidDescriptor, d.Name)
		}
		seen[d.Name] = true

		d.Env = ResolveEnv(d.Env)
		if d.Timeout == 0 {
			d.Timeout = m.defaultTimeout
		}
		configured = append(configured, d)
	}

	m.descriptors = configured
	m.logger.Debug("tool servers configured", "count", len(configured))
	return nil
}

// Descriptors returns the resolved configuration.
func (m *Manager) Descriptors() []ServerDescriptor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ServerDescriptor(nil), m.descriptors...)
}

// ConnectAll connects every configured server in order and stops at the first
// failure, returning it as a *ConnectionError. Servers connected before the
// failure stay registered so DisconnectAll tears them down.
func (m *Manager) ConnectAll(ctx context.Context) error {
	for _, d := range m.Descriptors() {
		if err := m.connect(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

// ConnectAvailable tries every configured server and keeps the ones that
// connect. The returned error joins one *ConnectionError per failed server.
func (m *Manager) ConnectAvailable(ctx context.Context) error {
	var errs []error
	for _, d := range m.Descriptors() {
		if err := m.connect(ctx, d); err != nil {
			m.logger.Warn("tool server unavailable, continuing without it", "server", d.Name, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) connect(ctx context.Context, d ServerDescriptor) error {
	m.mu.RLock()
	for _, s := range m.servers {
		if s.desc.Name == d.Name {
			m.mu.RUnlock()
			return nil
		}
	}
	m.mu.RUnlock()

	session, err := m.factory(d)
	if err != nil {
		return &ConnectionError{Server: d.Name, Err: err}
	}

	start := time.Now()
	m.logger.Info("connecting to tool server", "server", d.Name, "timeout", d.Timeout)

	ss := &serverSession{desc: d, session: session}
	if err := m.handshake(ctx, ss); err != nil {
		m.logger.Error("tool server handshake failed", "server", d.Name, "error", err)
		return &ConnectionError{Server: d.Name, Err: err}
	}

	m.mu.Lock()
	m.servers = append(m.servers, ss)
	n := len(m.servers)
	m.mu.Unlock()

	m.observer.ServersConnected(n)
	m.logger.Info("connected to tool server", "server", d.Name, "elapsed", time.Since(start))
	return nil
}

// handshake connects the session (and primes the tool cache when enabled)
// under the descriptor's timeout. Sessions that ignore context cancellation
// are abandoned and closed once they return.
func (m *Manager) handshake(ctx context.Context, ss *serverSession) error {
	hctx, cancel := context.WithTimeout(ctx, ss.desc.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		if err := ss.session.Connect(hctx); err != nil {
			done <- err
			return
		}
		if ss.desc.CacheToolsList {
			tools, err := ss.session.ListTools(hctx)
			if err != nil {
				ss.session.Close()
				done <- err
				return
			}
			ss.cachedTools = tools
		}
		done <- nil
	}()

	select {
	case err := <-done:
		if err != nil && hctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("handshake did not complete within %s: %w", ss.desc.Timeout, err)
		}
		return err
	case <-hctx.Done():
		go func() {
			if err := <-done; err == nil {
				ss.session.Close()
			}
		}()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("handshake did not complete within %s: %w", ss.desc.Timeout, context.DeadlineExceeded)
	}
}

// DisconnectAll closes every live session in parallel. Individual failures
// are logged, never returned, so shutdown always completes.
func (m *Manager) DisconnectAll(ctx context.Context) {
	m.mu.Lock()
	servers := m.servers
	m.servers = nil
	m.mu.Unlock()

	if len(servers) == 0 {
		return
	}

	m.logger.Info("disconnecting tool servers", "count", len(servers))

	var wg sync.WaitGroup
	for _, ss := range servers {
		wg.Add(1)
		go func(ss *serverSession) {
			defer wg.Done()
			if err := ss.session.Close(); err != nil {
				m.logger.Error("failed to close tool server", "server", ss.desc.Name, "error", err)
				return
			}
			m.logger.Debug("tool server closed", "server", ss.desc.Name)
		}(ss)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("tool server shutdown interrupted", "error", ctx.Err())
	}

	m.observer.ServersConnected(0)
}

// ListServers returns the live sessions in the order of the descriptors
// passed to Configure. Descriptors from a config file arrive sorted by name.
func (m *Manager) ListServers() []Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]Session, 0, len(m.servers))
	for _, ss := range m.servers {
		sessions = append(sessions, ss.session)
	}
	return sessions
}
