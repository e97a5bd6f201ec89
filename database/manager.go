package database

import (
	"container/list"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gaborage/qdb/config"
	"github.com/gaborage/qdb/database/types"
	"github.com/gaborage/qdb/logger"
)

// ConfigSource provides per-key database configurations. Single-database
// applications use the key "".
type ConfigSource interface {
	DBConfig(ctx context.Context, key string) (*config.DatabaseConfig, error)
}

// StaticConfig serves the same configuration for every key.
type StaticConfig struct {
	Config *config.DatabaseConfig
}

func (s StaticConfig) DBConfig(context.Context, string) (*config.DatabaseConfig, error) {
	if s.Config == nil {
		return nil, errors.New("no database config")
	}
	return s.Config, nil
}

// Opener creates connectors from configuration.
type Opener func(*config.DatabaseConfig, logger.Logger) (types.Connector, error)

// Manager keeps one connector per key, opened lazily, evicted least recently
// used first and closed after sitting idle.
//
// Get hands every caller its own lease on the shared connector. Releasing a
// lease, as a builder does when it aborts, retires only that lease; the
// connector stays open for other callers until eviction, idle cleanup or Close.
type Manager struct {
	logger logger.Logger
	source ConfigSource
	open   Opener

	mu    sync.Mutex
	conns map[string]*managedConn

	lru     *list.List
	maxSize int

	idleTTL   time.Duration
	cleanupMu sync.Mutex
	cleanupCh chan struct{}

	sfg singleflight.Group
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	MaxSize int           // Maximum number of open connectors (default 100)
	IdleTTL time.Duration // Idle time after which a connector is closed (default 30m)
}

// managedConn is the cached connector for one key.
type managedConn struct {
	types.Connector
	key      string
	element  *list.Element
	lastUsed time.Time
	once     sync.Once
	err      error
}

func (c *managedConn) close() error {
	c.once.Do(func() { c.err = c.Connector.Release() })
	return c.err
}

// lease is one caller's handle on a managedConn. Release detaches the lease
// and leaves the shared connector open.
type lease struct {
	conn     *managedConn
	released atomic.Bool
}

func (l *lease) Query(ctx context.Context, query string) (*sql.Rows, error) {
	if l.released.Load() {
		return nil, types.ErrReleased
	}
	return l.conn.Query(ctx, query)
}

func (l *lease) Exec(ctx context.Context, query string) (sql.Result, error) {
	if l.released.Load() {
		return nil, types.ErrReleased
	}
	return l.conn.Exec(ctx, query)
}

func (l *lease) ListColumns(ctx context.Context, table string) ([]string, error) {
	if l.released.Load() {
		return nil, types.ErrReleased
	}
	return l.conn.ListColumns(ctx, table)
}

func (l *lease) Escape(raw string) string { return l.conn.Escape(raw) }

func (l *lease) DatabaseType() string { return l.conn.DatabaseType() }

func (l *lease) Release() error {
	l.released.Store(true)
	return nil
}

// NewManager creates a Manager. A nil open uses NewConnection.
func NewManager(source ConfigSource, log logger.Logger, opts ManagerOptions, open Opener) *Manager {
	if opts.MaxSize <= 0 {
		opts.MaxSize = 100
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 30 * time.Minute
	}
	if open == nil {
		open = NewConnection
	}

	return &Manager{
		logger:  log,
		source:  source,
		open:    open,
		conns:   make(map[string]*managedConn),
		lru:     list.New(),
		maxSize: opts.MaxSize,
		idleTTL: opts.IdleTTL,
	}
}

// Get returns a lease on the connector for key, opening it on first use.
// Concurrent first calls for one key share a single open. Each call gets its
// own lease, so releasing one never affects another.
func (m *Manager) Get(ctx context.Context, key string) (types.Connector, error) {
	if entry := m.getExisting(key); entry != nil {
		return &lease{conn: entry}, nil
	}

	result, err, _ := m.sfg.Do(key, func() (any, error) {
		if entry := m.getExisting(key); entry != nil {
			return entry, nil
		}
		return m.create(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return &lease{conn: result.(*managedConn)}, nil
}

// Basic returns a basic builder over the connector for key.
func (m *Manager) Basic(ctx context.Context, key string, opts ...Option) (*Builder, error) {
	conn, err := m.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return NewBasic(conn, append([]Option{WithLogger(m.logger)}, opts...)...), nil
}

// Extended returns an extended builder over the connector for key.
func (m *Manager) Extended(ctx context.Context, key string, opts ...Option) (*Builder, error) {
	conn, err := m.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return NewExtended(conn, append([]Option{WithLogger(m.logger)}, opts...)...), nil
}

func (m *Manager) getExisting(key string) *managedConn {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.conns[key]
	if !ok {
		return nil
	}
	entry.lastUsed = time.Now()
	m.lru.MoveToFront(entry.element)
	return entry
}

func (m *Manager) create(ctx context.Context, key string) (*managedConn, error) {
	cfg, err := m.source.DBConfig(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get database config for key %q: %w", key, err)
	}

	conn, err := m.open(cfg, m.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection for key %q: %w", key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.evictIfNeeded()

	entry := &managedConn{
		Connector: conn,
		key:       key,
		element:   m.lru.PushFront(key),
		lastUsed:  time.Now(),
	}
	m.conns[key] = entry

	m.logger.Info().
		Str("key", key).
		Str("db_type", cfg.Type).
		Msg("Opened database connection")
	return entry, nil
}

// evictIfNeeded closes the least recently used connector when at capacity.
// Callers hold m.mu.
func (m *Manager) evictIfNeeded() {
	if len(m.conns) < m.maxSize {
		return
	}
	oldest := m.lru.Back()
	if oldest == nil {
		return
	}

	key := oldest.Value.(string)
	entry := m.conns[key]
	delete(m.conns, key)
	m.lru.Remove(oldest)

	if err := entry.close(); err != nil {
		m.logger.Error().Err(err).Str("key", key).Msg("Error closing evicted database connection")
	}
	m.logger.Debug().Str("key", key).Msg("Evicted database connection due to LRU limit")
}

// StartCleanup closes idle connectors every interval (default 5m) until StopCleanup.
func (m *Manager) StartCleanup(interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	m.cleanupMu.Lock()
	if m.cleanupCh != nil {
		m.cleanupMu.Unlock()
		return
	}
	done := make(chan struct{})
	m.cleanupCh = done
	m.cleanupMu.Unlock()

	go m.cleanupLoop(interval, done)
}

func (m *Manager) StopCleanup() {
	m.cleanupMu.Lock()
	defer m.cleanupMu.Unlock()
	if m.cleanupCh == nil {
		return
	}
	close(m.cleanupCh)
	m.cleanupCh = nil
}

func (m *Manager) cleanupLoop(interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanupIdle()
		case <-done:
			return
		}
	}
}

func (m *Manager) cleanupIdle() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for key, entry := range m.conns {
		idle := now.Sub(entry.lastUsed)
		if idle <= m.idleTTL {
			continue
		}
		delete(m.conns, key)
		m.lru.Remove(entry.element)

		if err := entry.close(); err != nil {
			m.logger.Error().Err(err).Str("key", key).Msg("Error closing idle database connection")
		}
		m.logger.Debug().Str("key", key).Dur("idle_time", idle).Msg("Closed idle database connection")
	}
}

// Close stops cleanup and closes every connector.
func (m *Manager) Close() error {
	m.StopCleanup()

	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for key, entry := range m.conns {
		if err := entry.close(); err != nil {
			errs = append(errs, fmt.Errorf("closing connection for key %q: %w", key, err))
		}
	}
	m.conns = make(map[string]*managedConn)
	m.lru.Init()

	return errors.Join(errs...)
}

// Size returns the number of open connectors.
func (m *Manager) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conns)
}
