// Package objectpool provides per-type object reuse pools for runtime
// entities that are expensive to create and destroy.
//
// Instead of spawning and destroying entities on demand, a session
// pre-allocates a configured number of instances per type when it begins.
// Callers acquire instances from the pool and return them when done; a pool
// that runs dry grows by one instance per acquisition.
//
// # Architecture
//
//   - pkg/pool: the registry of per-type pools (Seed, Acquire, Return,
//     Snapshot, Close)
//   - pkg/session: ties one registry to the lifetime of one world and seeds
//     it from configuration
//   - internal/world: an in-memory host runtime that spawns entities
//   - pkg/config, pkg/logger, pkg/metrics, pkg/observability: configuration,
//     zap logging, prometheus collectors and OpenTelemetry tracing
//   - cmd/objectpool: the command line interface
//
// # Quick Start
//
//	w := world.NewDefault()
//	s, err := session.New(cfg, w)
//	if err != nil {
//		return err
//	}
//	defer s.End()
//
//	if _, err := s.Begin(ctx); err != nil {
//		return err
//	}
//
//	inst, err := s.Acquire(ctx, world.TypeProjectile)
//	if err != nil {
//		return err
//	}
//	defer s.Return(ctx, inst)
//
// # Configuration
//
// Pools are declared in YAML as an ordered list of {type, count} entries:
//
//	session:
//	  kind: game
//	pools:
//	  - type: projectile
//	    count: 32
//	  - type: spark
//	    count: 64
//
// Any key can be overridden with a flag or an OBJECTPOOL_* environment
// variable, for example OBJECTPOOL_LOGGING_LEVEL=debug.
//
// # Command Line
//
//	objectpool seed --config examples/pools.yaml
//	objectpool simulate --config examples/pools.yaml --cycles 100 --burst 48
//	objectpool serve --config examples/pools.yaml --listen :9090
//	objectpool config init pools.yaml --count 32
package objectpool
