package world

import (
	"fmt"
	"time"

	"github.com/ajitpratap0/objectpool/pkg/pool"
)

// EntityID identifies a live entity within one World
type EntityID uint64

// Entity is the state shared by every spawned entity.
type Entity struct {
	id       EntityID
	key      pool.TypeKey
	location pool.Vector
	rotation pool.Rotation
	hidden   bool
}

// ID returns the entity ID
func (e *Entity) ID() EntityID { return e.id }

// PoolType returns the entity's type key
func (e *Entity) PoolType() pool.TypeKey { return e.key }

// Location returns the current position
func (e *Entity) Location() pool.Vector { return e.location }

// Hidden reports whether the entity is parked in a pool
func (e *Entity) Hidden() bool { return e.hidden }

// MoveTo places the entity at loc
func (e *Entity) MoveTo(loc pool.Vector) { e.location = loc }

// OnActivate makes the entity visible
func (e *Entity) OnActivate() {
	e.hidden = false
}

// OnDeactivate hides the entity and parks it at the origin
func (e *Entity) OnDeactivate() {
	e.hidden = true
	e.location = pool.Vector{}
	e.rotation = pool.Rotation{}
}

func (e *Entity) String() string {
	return fmt.Sprintf("%s#%d", e.key, e.id)
}

// Projectile is a poolable moving entity
type Projectile struct {
	Entity
	Velocity pool.Vector
	Damage   float64
}

// OnDeactivate also stops the projectile
func (p *Projectile) OnDeactivate() {
	p.Entity.OnDeactivate()
	p.Velocity = pool.Vector{}
	p.Damage = 0
}

// Spark is a short-lived poolable effect
type Spark struct {
	Entity
	Lifetime time.Duration
}

// OnActivate restarts the spark's lifetime
func (s *Spark) OnActivate() {
	s.Entity.OnActivate()
	s.Lifetime = DefaultSparkLifetime
}

// DefaultSparkLifetime is the lifetime of a freshly activated spark
const DefaultSparkLifetime = 250 * time.Millisecond

// Marker is an entity without pooling hooks
type Marker struct {
	id    EntityID
	key   pool.TypeKey
	Label string
}

// ID returns the entity ID
func (m *Marker) ID() EntityID { return m.id }

// PoolType returns the marker's type key
func (m *Marker) PoolType() pool.TypeKey { return m.key }

func (m *Marker) String() string {
	return fmt.Sprintf("%s#%d", m.key, m.id)
}
