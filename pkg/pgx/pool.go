package pgx

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolManager holds one or more named *pgxpool.Pool's. Entities may pin a
// named pool; everything else uses the active one.
type PoolManager struct {
	pools  map[string]*pgxpool.Pool
	active string
	mu     sync.RWMutex
}

// Pool is the configuration one pool is created from.
type Pool struct {
	Config     *pgxpool.Config // takes precedence over ConnString
	Name       string
	ConnString string // used if Config is nil

	// PingTimeout bounds the startup ping retries. Zero means 15s.
	PingTimeout time.Duration
}

var (
	ErrPoolNotFound      = errors.New("connection pool not found")
	ErrPoolAlreadyExists = errors.New("connection pool already exists")
)

const defaultPingTimeout = 15 * time.Second

// NewPoolManager returns an empty manager.
func NewPoolManager() *PoolManager {
	return &PoolManager{pools: make(map[string]*pgxpool.Pool)}
}

// Add creates a pool, pings it until it responds or PingTimeout elapses, and
// registers it. With setActive true the pool becomes the active one; the
// first pool added is active regardless.
func (m *PoolManager) Add(ctx context.Context, cfg Pool, setActive ...bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pools[cfg.Name]; ok {
		return ErrPoolAlreadyExists
	}

	pool, err := m.createPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("pgx: %w", err)
	}

	m.pools[cfg.Name] = pool

	if len(setActive) > 0 && setActive[0] {
		m.active = cfg.Name
	} else if m.active == "" {
		m.active = cfg.Name
	}

	return nil
}

// Get returns the pool registered under name.
func (m *PoolManager) Get(name string) (*pgxpool.Pool, error) {
	m.mu.RLock()
	pool, ok := m.pools[name]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrPoolNotFound
	}
	return pool, nil
}

// Active returns the current active pool.
func (m *PoolManager) Active() (*pgxpool.Pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.active == "" {
		return nil, fmt.Errorf("pgx: no active connection")
	}
	return m.pools[m.active], nil
}

// SetActive changes the active pool.
func (m *PoolManager) SetActive(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pools[name]; !ok {
		return fmt.Errorf("pgx: connection %q not found", name)
	}
	m.active = name
	return nil
}

// Remove closes and deregisters a pool. When the active pool is removed an
// arbitrary remaining pool becomes active.
func (m *PoolManager) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pool, ok := m.pools[name]
	if !ok {
		return fmt.Errorf("pgx: connection %q not found", name)
	}

	pool.Close()
	delete(m.pools, name)

	if m.active == name {
		m.active = ""
		for k := range m.pools {
			m.active = k
			break
		}
	}
	return nil
}

// Close closes all pools.
func (m *PoolManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.pools {
		p.Close()
	}
	m.pools = nil
	m.active = ""
}

// List returns all pool names.
func (m *PoolManager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.pools))
	for name := range m.pools {
		names = append(names, name)
	}
	return names
}

func (m *PoolManager) createPool(ctx context.Context, cfg Pool) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	var err error

	switch {
	case cfg.Config != nil:
		pool, err = pgxpool.NewWithConfig(ctx, cfg.Config)
	case cfg.ConnString != "":
		pool, err = pgxpool.New(ctx, cfg.ConnString)
	default:
		return nil, errors.New("either Config or ConnString must be provided")
	}

	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}

	// the database may still be starting when the server comes up, so the
	// first ping gets retried with exponential backoff
	timeout := cfg.PingTimeout
	if timeout == 0 {
		timeout = defaultPingTimeout
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = timeout

	ping := func() error { return pool.Ping(ctx) }
	if err := backoff.Retry(ping, backoff.WithContext(b, ctx)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping connection: %w", err)
	}

	return pool, nil
}
