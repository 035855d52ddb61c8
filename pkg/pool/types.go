package pool

import (
	"context"
	"fmt"
	"reflect"
)

// TypeKey identifies an instantiable entity type. Keys are comparable and
// two keys are equal when they were built from the same name. The zero
// value is the null type and is never a valid pool key.
type TypeKey struct {
	name string
}

// NewTypeKey returns the key for the named type
func NewTypeKey(name string) TypeKey {
	return TypeKey{name: name}
}

// IsZero reports whether k is the null type
func (k TypeKey) IsZero() bool {
	return k.name == ""
}

// String returns the human-readable type name
func (k TypeKey) String() string {
	if k.name == "" {
		return "<none>"
	}
	return k.name
}

// Instance is a handle to one instantiated entity.
//
// Handles are compared with ==, so implementations should be pointer types.
// A nil Instance is the null handle and is never stored in a pool.
type Instance interface {
	// PoolType resolves the concrete type of the instance
	PoolType() TypeKey
}

// Poolable is the optional lifecycle capability of an Instance.
type Poolable interface {
	// OnActivate prepares the instance when it is handed to a caller
	OnActivate()
	// OnDeactivate resets the instance when it goes back to the pool
	OnDeactivate()
}

// Spawner is the host runtime's instantiation facility.
type Spawner interface {
	// Spawn creates one new instance of key at the given placement
	Spawn(ctx context.Context, key TypeKey, placement Placement) (Instance, error)
}

// SpawnerFunc adapts a function to the Spawner interface
type SpawnerFunc func(ctx context.Context, key TypeKey, placement Placement) (Instance, error)

// Spawn calls f
func (f SpawnerFunc) Spawn(ctx context.Context, key TypeKey, placement Placement) (Instance, error) {
	return f(ctx, key, placement)
}

// Vector is a position in world space
type Vector struct {
	X, Y, Z float64
}

// Rotation is an orientation in degrees
type Rotation struct {
	Pitch, Yaw, Roll float64
}

// CollisionPolicy tells the spawner what to do when the spawn point is occupied
type CollisionPolicy int

const (
	// CollisionDefault defers to the spawner's own default
	CollisionDefault CollisionPolicy = iota
	// CollisionAlwaysSpawn spawns regardless of overlap
	CollisionAlwaysSpawn
	// CollisionAdjustIfPossible moves the spawn point out of the way, spawning anyway if it cannot
	CollisionAdjustIfPossible
	// CollisionDontSpawnIfColliding fails when the spawn point is occupied
	CollisionDontSpawnIfColliding
)

// String returns the policy name
func (p CollisionPolicy) String() string {
	switch p {
	case CollisionDefault:
		return "default"
	case CollisionAlwaysSpawn:
		return "always_spawn"
	case CollisionAdjustIfPossible:
		return "adjust_if_possible"
	case CollisionDontSpawnIfColliding:
		return "dont_spawn_if_colliding"
	default:
		return fmt.Sprintf("collision_policy(%d)", int(p))
	}
}

// Placement describes where and how an instance is spawned
type Placement struct {
	Location  Vector
	Rotation  Rotation
	Collision CollisionPolicy
}

// DefaultPlacement is the neutral placement used for every pooled spawn:
// origin, no rotation, and spawning regardless of overlap.
func DefaultPlacement() Placement {
	return Placement{Collision: CollisionAlwaysSpawn}
}

// SeedEntry asks Seed to pre-allocate Count instances of Type
type SeedEntry struct {
	Type  TypeKey
	Count int
}

// isNilInstance reports whether inst is nil or wraps a nil pointer
func isNilInstance(inst Instance) bool {
	if inst == nil {
		return true
	}
	v := reflect.ValueOf(inst)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// describe returns a log-friendly name for inst
func describe(inst Instance) string {
	if s, ok := inst.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", inst)
}
