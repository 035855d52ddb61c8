// Package session ties a pool registry to the lifetime of one world.
//
// A Session is created when a world starts, seeds its registry from
// configuration on Begin and discards every pool on End. Registries are
// never process-wide: each session owns its own.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ajitpratap0/objectpool/pkg/config"
	"github.com/ajitpratap0/objectpool/pkg/logger"
	"github.com/ajitpratap0/objectpool/pkg/metrics"
	"github.com/ajitpratap0/objectpool/pkg/pool"
	"github.com/ajitpratap0/objectpool/pkg/poolerrors"
)

// TypeResolver maps configured type names to type keys
type TypeResolver interface {
	ResolveType(name string) (pool.TypeKey, bool)
}

// Host is the runtime a session runs in: it resolves type names and spawns
// instances.
type Host interface {
	pool.Spawner
	TypeResolver
}

// Session owns the pool registry of one world.
type Session struct {
	id       string
	kind     Kind
	entries  []config.PoolEntry
	host     Host
	registry *pool.Registry
	logger   *zap.Logger
	metrics  *metrics.PoolMetrics

	mu     sync.Mutex
	begun  bool
	ended  bool
	report pool.SeedReport
}

// Option configures a Session
type Option func(*Session)

// WithLogger sets the base logger of the session and its registry
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics attaches prometheus collectors to the registry
func WithMetrics(m *metrics.PoolMetrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithID overrides the generated session ID
func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// New creates the session for a world of the configured kind. Kinds that do
// not support pooling yield an Unsupported error and no registry.
func New(cfg *config.Config, host Host, opts ...Option) (*Session, error) {
	if cfg == nil {
		return nil, poolerrors.New(poolerrors.ErrorTypeConfig, "session config is required")
	}
	if host == nil {
		return nil, poolerrors.New(poolerrors.ErrorTypeConfig, "session host is required")
	}

	kind, err := ParseKind(cfg.Session.Kind)
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:      uuid.New().String(),
		kind:    kind,
		entries: append([]config.PoolEntry(nil), cfg.Pools...),
		host:    host,
		logger:  logger.Get(),
	}
	for _, opt := range opts {
		opt(s)
	}
	// Registry logs pick up the session ID from the context.
	base := s.logger
	s.logger = base.With(
		zap.String("component", "session"),
		zap.String(string(logger.SessionIDKey), s.id),
		zap.String("kind", kind.String()))

	if !kind.SupportsPooling() {
		s.logger.Info("object pooling is not supported for this session kind")
		return nil, poolerrors.New(poolerrors.ErrorTypeUnsupported,
			fmt.Sprintf("session kind %s does not support object pooling", kind)).
			WithDetail("kind", kind.String())
	}

	s.registry = pool.NewRegistry(host,
		pool.WithLogger(base),
		pool.WithMetrics(s.metrics))

	s.logger.Info("session created", zap.Int("pool_entries", len(s.entries)))
	return s, nil
}

// ID returns the session ID
func (s *Session) ID() string { return s.id }

// Kind returns the session kind
func (s *Session) Kind() Kind { return s.kind }

// Registry returns the pool registry owned by the session
func (s *Session) Registry() *pool.Registry { return s.registry }

// Context returns ctx carrying the session ID for log correlation
func (s *Session) Context(ctx context.Context) context.Context {
	return context.WithValue(ctx, logger.SessionIDKey, s.id)
}

// Begin seeds the registry from the configured pool entries. Only the first
// call seeds; later calls return the first report.
func (s *Session) Begin(ctx context.Context) (pool.SeedReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return pool.SeedReport{}, poolerrors.New(poolerrors.ErrorTypeInternal, "session already ended")
	}
	if s.begun {
		s.logger.Debug("session already begun, skipping seeding")
		return s.report, nil
	}

	entries := make([]pool.SeedEntry, 0, len(s.entries))
	for _, e := range s.entries {
		key, ok := s.host.ResolveType(e.Type)
		if !ok {
			s.logger.Warn("pool entry type could not be resolved", zap.String("type", e.Type))
			key = pool.TypeKey{}
		}
		entries = append(entries, pool.SeedEntry{Type: key, Count: e.Count})
	}

	s.report = s.registry.Seed(s.Context(ctx), entries)
	s.begun = true

	s.logger.Info("session begun",
		zap.Int("created", s.report.Created),
		zap.Int("skipped_entries", s.report.SkippedEntries),
		zap.Int("failed_units", s.report.FailedUnits))
	return s.report, nil
}

// Acquire resolves typeName and acquires an instance of it
func (s *Session) Acquire(ctx context.Context, typeName string) (pool.Instance, error) {
	key, _ := s.host.ResolveType(typeName)
	return s.registry.Acquire(s.Context(ctx), key)
}

// Return gives inst back to the registry
func (s *Session) Return(ctx context.Context, inst pool.Instance) error {
	return s.registry.Return(s.Context(ctx), inst)
}

// End discards every pool of the session. It is safe to call more than once.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return
	}
	s.ended = true
	s.registry.Close()
	s.logger.Info("session ended")
}
