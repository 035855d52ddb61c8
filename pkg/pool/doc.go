// Package pool implements a per-type object reuse pool for expensive-to-create
// runtime entities. Instead of destroying and recreating entities, callers
// acquire an instance from the pool and return it when done.
//
// Architecture
//
// A Registry maps a TypeKey to one pool of instances. Each pool keeps two
// ordered sets:
//
//   - active: instances currently handed out to callers
//   - inactive: instances available for acquisition
//
// An instance is in exactly one of the two sets of its pool. Pools are
// created lazily the first time an instance of their type is added and are
// never shrunk; only Close discards them, wholesale.
//
// Lifecycle
//
// Per instance the state machine is:
//
//	Uninitialized --seed--> Inactive --Acquire--> Active --Return--> Inactive
//
// Acquire and Return are the only transitions available to callers.
//
// Growth
//
// When Acquire finds the inactive set empty it asks the Spawner for one new
// instance and files it directly into the active set in a single step, so
// the new instance is never observable as inactive.
//
// Reuse Order
//
// Inactive sets are stacks: the most recently returned instance is the next
// one acquired. Instances of one type are interchangeable, so callers must
// not depend on receiving any particular instance.
//
// Hooks
//
// Instances may implement Poolable. OnActivate runs on every acquisition and
// OnDeactivate on every return (and once when a seeded instance is first
// filed). Instances without the capability are pooled the same way.
//
// Hooks run while the registry lock is held and must not call back into the
// same Registry. A panicking hook is reported as an Internal error and the
// instance stays where it was: inactive on Acquire, active on Return.
//
// Failures
//
// Every failure is reported through the logger and returned as a
// *poolerrors.Error; nothing panics across Acquire or Return, and the
// registry stays usable afterwards. A nil instance from Acquire means "no
// instance available, consult the error".
//
// Usage
//
//	r := pool.NewRegistry(world, pool.WithLogger(log))
//	r.Seed(ctx, []pool.SeedEntry{{Type: projectileKey, Count: 16}})
//
//	inst, err := r.Acquire(ctx, projectileKey)
//	if err != nil {
//		return err
//	}
//	defer r.Return(ctx, inst)
package pool
