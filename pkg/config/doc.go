// Package config provides configuration for an object pool session.
//
// A configuration is a single Config structure organized into sections:
//
//   - Session: the kind of world the pools belong to (game, pie, ...)
//   - Pools: an ordered list of {type, count} entries seeded at session start
//   - Logging: zap logger settings
//   - Metrics: prometheus collection and the debug/metrics listener
//   - Tracing: OpenTelemetry span export
//
// # Loading
//
//	cfg, err := config.Load("pools.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Load starts from Default, so sections missing from the file keep their
// default values.
//
// # Environment Variable Substitution
//
// Values may reference environment variables with ${VAR_NAME}:
//
//	logging:
//	  level: ${POOL_LOG_LEVEL}
//
// # Pool Entries
//
// Validate checks the ambient sections only. Pool entries that name an
// unknown type or carry a non-positive count are not configuration errors:
// the registry skips them with a warning while seeding and keeps going.
package config
