// Package world is an in-memory host runtime for pooled entities. It keeps a
// catalog of entity types, spawns instances on request and tracks which
// spawn points are occupied.
package world

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/objectpool/pkg/logger"
	"github.com/ajitpratap0/objectpool/pkg/pool"
	"github.com/ajitpratap0/objectpool/pkg/poolerrors"
)

// Built-in entity type names
const (
	TypeProjectile = "projectile"
	TypeSpark      = "spark"
	TypeMarker     = "marker"
)

// maxAdjustAttempts bounds the search for a free spawn point
const maxAdjustAttempts = 16

type spawned struct {
	inst pool.Instance
	at   pool.Vector
}

// Factory builds the instance for a freshly minted entity
type Factory func(base Entity) pool.Instance

// World spawns entities and owns their bookkeeping. It implements
// pool.Spawner and session.TypeResolver.
type World struct {
	factories map[string]Factory
	nextID    EntityID
	live      map[EntityID]spawned
	occupied  map[pool.Vector]int
	mu        sync.RWMutex
	logger    *zap.Logger
}

// Option configures a World
type Option func(*World)

// WithLogger sets the world logger
func WithLogger(l *zap.Logger) Option {
	return func(w *World) {
		if l != nil {
			w.logger = l.With(zap.String("component", "world"))
		}
	}
}

// New creates an empty world with no registered types
func New(opts ...Option) *World {
	w := &World{
		factories: make(map[string]Factory),
		nextID:    1,
		live:      make(map[EntityID]spawned),
		occupied:  make(map[pool.Vector]int),
		logger:    logger.Component("world"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// NewDefault creates a world with the built-in entity types registered
func NewDefault(opts ...Option) *World {
	w := New(opts...)
	_ = w.Register(TypeProjectile, func(base Entity) pool.Instance {
		return &Projectile{Entity: base}
	})
	_ = w.Register(TypeSpark, func(base Entity) pool.Instance {
		return &Spark{Entity: base}
	})
	_ = w.Register(TypeMarker, func(base Entity) pool.Instance {
		return &Marker{id: base.id, key: base.key}
	})
	return w
}

// Register adds an entity type to the catalog
func (w *World) Register(name string, factory Factory) error {
	if name == "" || factory == nil {
		return poolerrors.New(poolerrors.ErrorTypeConfig, "entity type needs a name and a factory")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.factories[name]; exists {
		return poolerrors.New(poolerrors.ErrorTypeConfig, fmt.Sprintf("entity type %s already registered", name))
	}

	w.factories[name] = factory
	w.logger.Debug("entity type registered", zap.String("type", name))
	return nil
}

// Types returns the registered type names, sorted
func (w *World) Types() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	names := make([]string, 0, len(w.factories))
	for name := range w.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveType returns the key of a registered type
func (w *World) ResolveType(name string) (pool.TypeKey, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if _, ok := w.factories[name]; !ok {
		return pool.TypeKey{}, false
	}
	return pool.NewTypeKey(name), true
}

// Spawn creates one entity of key at placement, honoring its collision policy
func (w *World) Spawn(ctx context.Context, key pool.TypeKey, placement pool.Placement) (pool.Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	factory, ok := w.factories[key.String()]
	if !ok || key.IsZero() {
		return nil, poolerrors.New(poolerrors.ErrorTypeConfig, fmt.Sprintf("entity type %s is not registered", key))
	}

	loc, err := w.resolveLocationLocked(placement)
	if err != nil {
		return nil, err
	}

	id := w.nextID
	w.nextID++

	inst := factory(Entity{
		id:       id,
		key:      key,
		location: loc,
		rotation: placement.Rotation,
	})
	if inst == nil {
		return nil, poolerrors.New(poolerrors.ErrorTypeCreationFailed, fmt.Sprintf("factory for %s built no entity", key))
	}

	w.live[id] = spawned{inst: inst, at: loc}
	w.occupied[loc]++

	w.logger.Debug("entity spawned",
		zap.String("type", key.String()),
		zap.Uint64("id", uint64(id)),
		zap.String("collision", placement.Collision.String()))
	return inst, nil
}

func (w *World) resolveLocationLocked(placement pool.Placement) (pool.Vector, error) {
	loc := placement.Location
	if w.occupied[loc] == 0 {
		return loc, nil
	}

	switch placement.Collision {
	case pool.CollisionDontSpawnIfColliding:
		return pool.Vector{}, poolerrors.New(poolerrors.ErrorTypeCreationFailed, "spawn point is occupied").
			WithDetail("location", loc)
	case pool.CollisionAdjustIfPossible:
		for i := 1; i <= maxAdjustAttempts; i++ {
			candidate := pool.Vector{X: loc.X + float64(i), Y: loc.Y, Z: loc.Z}
			if w.occupied[candidate] == 0 {
				return candidate, nil
			}
		}
		return loc, nil
	default:
		return loc, nil
	}
}

// Destroy removes an entity from the world and frees its spawn point
func (w *World) Destroy(id EntityID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	s, ok := w.live[id]
	if !ok {
		return false
	}
	delete(w.live, id)

	if w.occupied[s.at] > 1 {
		w.occupied[s.at]--
	} else {
		delete(w.occupied, s.at)
	}
	return true
}

// Live returns the number of entities in the world
func (w *World) Live() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.live)
}

// Lookup returns the live entity with the given ID
func (w *World) Lookup(id EntityID) (pool.Instance, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	s, ok := w.live[id]
	return s.inst, ok
}
