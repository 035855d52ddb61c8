package pool

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/objectpool/pkg/logger"
	"github.com/ajitpratap0/objectpool/pkg/metrics"
	"github.com/ajitpratap0/objectpool/pkg/observability"
	"github.com/ajitpratap0/objectpool/pkg/poolerrors"
)

// typePool holds the instances of one type
type typePool struct {
	key      TypeKey
	active   []Instance
	inactive []Instance
}

// take pops the most recently returned inactive instance.
// Reuse order is last-in first-out.
func (p *typePool) take() Instance {
	last := len(p.inactive) - 1
	inst := p.inactive[last]
	p.inactive[last] = nil
	p.inactive = p.inactive[:last]
	return inst
}

// removeActive removes inst from the active set, reporting whether it was there
func (p *typePool) removeActive(inst Instance) bool {
	i := indexOf(p.active, inst)
	if i < 0 {
		return false
	}
	copy(p.active[i:], p.active[i+1:])
	p.active[len(p.active)-1] = nil
	p.active = p.active[:len(p.active)-1]
	return true
}

func indexOf(list []Instance, inst Instance) int {
	for i := len(list) - 1; i >= 0; i-- {
		if list[i] == inst {
			return i
		}
	}
	return -1
}

// Registry owns every per-type pool of one session. It answers Acquire and
// Return, seeds pools from configuration and grows them on exhaustion.
// A Registry is safe for concurrent use.
type Registry struct {
	pools   map[TypeKey]*typePool
	spawner Spawner
	mu      sync.RWMutex
	logger  *zap.Logger
	metrics *metrics.PoolMetrics
}

// Option configures a Registry
type Option func(*Registry)

// WithLogger sets the diagnostics logger
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l.With(zap.String("component", "pool_registry"))
		}
	}
}

// WithMetrics sets the prometheus collectors
func WithMetrics(m *metrics.PoolMetrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// NewRegistry creates an empty registry that creates instances with spawner
func NewRegistry(spawner Spawner, opts ...Option) *Registry {
	r := &Registry{
		pools:   make(map[TypeKey]*typePool),
		spawner: spawner,
		logger:  logger.Component("pool_registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SeedReport summarizes a Seed call
type SeedReport struct {
	// Created is the number of instances filed into pools
	Created int
	// SkippedEntries counts entries with a null type or non-positive count
	SkippedEntries int
	// FailedUnits counts instances that could not be created or filed
	FailedUnits int
	// Errors holds every reported failure, in order
	Errors []error
}

// Seed pre-allocates pools from an ordered list of entries. For each valid
// entry it spawns Count instances, deactivates them and files them as
// inactive. Invalid entries and failed units are reported and skipped; the
// remaining entries still proceed.
func (r *Registry) Seed(ctx context.Context, entries []SeedEntry) SeedReport {
	ctx, span := observability.StartSpan(ctx, "seed", attribute.Int("pool.entries", len(entries)))
	defer span.End()

	var report SeedReport
	for _, entry := range entries {
		if entry.Type.IsZero() {
			report.SkippedEntries++
			report.Errors = append(report.Errors, r.fail(ctx, "seed",
				poolerrors.New(poolerrors.ErrorTypeInvalidArgument, "pool entry has no resolvable type").
					WithDetail("count", entry.Count)))
			continue
		}
		if entry.Count <= 0 {
			report.SkippedEntries++
			report.Errors = append(report.Errors, r.fail(ctx, "seed",
				poolerrors.New(poolerrors.ErrorTypeInvalidArgument, "pool entry count must be positive").
					WithDetail("type", entry.Type.String()).
					WithDetail("count", entry.Count),
				zap.String("type", entry.Type.String())))
			continue
		}

		for i := 0; i < entry.Count; i++ {
			inst, err := r.spawn(ctx, "seed", entry.Type, metrics.PhaseSeed)
			if err != nil {
				report.FailedUnits++
				report.Errors = append(report.Errors, err)
				continue
			}

			// Not yet visible to any caller, so the hook can run unlocked.
			if herr := deactivate(inst); herr != nil {
				report.FailedUnits++
				report.Errors = append(report.Errors, r.fail(ctx, "seed",
					herr.WithDetail("type", entry.Type.String()),
					zap.String("type", entry.Type.String()),
					zap.String("instance", describe(inst))))
				continue
			}

			if err := r.add(ctx, inst); err != nil {
				report.FailedUnits++
				report.Errors = append(report.Errors, err)
				continue
			}
			report.Created++
		}
	}

	span.SetAttributes(
		attribute.Int("pool.created", report.Created),
		attribute.Int("pool.skipped_entries", report.SkippedEntries),
		attribute.Int("pool.failed_units", report.FailedUnits),
	)
	logger.WithContext(ctx, r.logger).Info("seeded initial pools",
		zap.Int("created", report.Created),
		zap.Int("skipped_entries", report.SkippedEntries),
		zap.Int("failed_units", report.FailedUnits))

	return report
}

func (r *Registry) add(ctx context.Context, inst Instance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addToPoolLocked(ctx, inst)
}

// addToPoolLocked files inst into its type's pool. A pool is created on the
// first instance of a type. An active instance moves to inactive with its
// deactivate hook; a brand-new instance is appended to inactive as is; an
// instance already inactive is reported and left alone.
func (r *Registry) addToPoolLocked(ctx context.Context, inst Instance) error {
	if isNilInstance(inst) {
		return r.fail(ctx, "add",
			poolerrors.New(poolerrors.ErrorTypeInvalidArgument, "attempted to add a null instance to the pool"))
	}

	key := inst.PoolType()
	if key.IsZero() {
		return r.fail(ctx, "add",
			poolerrors.New(poolerrors.ErrorTypeInvalidArgument, "instance has no resolvable type").
				WithDetail("instance", describe(inst)),
			zap.String("instance", describe(inst)))
	}

	p, ok := r.pools[key]
	if !ok {
		p = &typePool{
			key:      key,
			active:   []Instance{},
			inactive: []Instance{inst},
		}
		r.pools[key] = p
		r.publishSizes(p)
		logger.WithContext(ctx, r.logger).Info("created new pool",
			zap.String("type", key.String()))
		return nil
	}

	if p.removeActive(inst) {
		if herr := deactivate(inst); herr != nil {
			p.active = append(p.active, inst)
			return r.fail(ctx, "add",
				herr.WithDetail("type", key.String()),
				zap.String("type", key.String()),
				zap.String("instance", describe(inst)))
		}
		p.inactive = append(p.inactive, inst)
		r.publishSizes(p)
		logger.WithContext(ctx, r.logger).Debug("instance added to the pool",
			zap.String("type", key.String()),
			zap.String("instance", describe(inst)))
		return nil
	}

	if indexOf(p.inactive, inst) >= 0 {
		return r.fail(ctx, "add",
			poolerrors.New(poolerrors.ErrorTypeInstanceNotActive, "instance not found in the active set").
				WithDetail("type", key.String()).
				WithDetail("instance", describe(inst)),
			zap.String("type", key.String()),
			zap.String("instance", describe(inst)))
	}

	p.inactive = append(p.inactive, inst)
	r.publishSizes(p)
	logger.WithContext(ctx, r.logger).Debug("new instance added to the pool",
		zap.String("type", key.String()),
		zap.String("instance", describe(inst)))
	return nil
}

// Acquire hands out an instance of key, moving it from inactive to active
// and running its activate hook. When the pool is exhausted a new instance
// is spawned and activated in one step. Acquire never creates a pool: a
// type that was never seeded yields a PoolNotFound error.
func (r *Registry) Acquire(ctx context.Context, key TypeKey) (Instance, error) {
	ctx, span := observability.StartSpan(ctx, "acquire", attribute.String("pool.type", key.String()))

	inst, path, err := r.acquire(ctx, key)
	if err == nil {
		span.SetAttributes(attribute.String("pool.path", path))
	}
	observability.EndSpan(span, err)
	return inst, err
}

func (r *Registry) acquire(ctx context.Context, key TypeKey) (Instance, string, error) {
	if key.IsZero() {
		return nil, "", r.fail(ctx, "acquire",
			poolerrors.New(poolerrors.ErrorTypeInvalidArgument, "attempted to acquire a null type"))
	}

	inst, found, herr := r.reuse(key)
	if !found {
		return nil, "", r.fail(ctx, "acquire",
			poolerrors.New(poolerrors.ErrorTypePoolNotFound, "no pool found for type").
				WithDetail("type", key.String()),
			zap.String("type", key.String()))
	}
	if herr != nil {
		return nil, "", r.fail(ctx, "acquire",
			herr.WithDetail("type", key.String()),
			zap.String("type", key.String()))
	}
	if inst != nil {
		r.metrics.ObserveAcquire(key.String(), metrics.PathReuse)
		logger.WithContext(ctx, r.logger).Debug("acquired instance from the pool",
			zap.String("type", key.String()),
			zap.String("instance", describe(inst)))
		return inst, metrics.PathReuse, nil
	}

	inst, err := r.spawn(ctx, "acquire", key, metrics.PhaseGrow)
	if err != nil {
		return nil, "", err
	}

	found, herr = r.activateGrown(key, inst)
	if !found {
		// The registry was closed while the spawner ran.
		return nil, "", r.fail(ctx, "acquire",
			poolerrors.New(poolerrors.ErrorTypePoolNotFound, "pool discarded during growth").
				WithDetail("type", key.String()),
			zap.String("type", key.String()))
	}
	if herr != nil {
		return nil, "", r.fail(ctx, "acquire",
			herr.WithDetail("type", key.String()),
			zap.String("type", key.String()),
			zap.String("instance", describe(inst)))
	}

	r.metrics.ObserveAcquire(key.String(), metrics.PathGrow)
	logger.WithContext(ctx, r.logger).Debug("spawned and activated a new instance as none were available",
		zap.String("type", key.String()),
		zap.String("instance", describe(inst)))
	return inst, metrics.PathGrow, nil
}

// reuse moves the most recently returned instance of key to active. It
// reports found=false when key has no pool and a nil instance when the
// pool is exhausted. A failed activate hook leaves the instance inactive.
func (r *Registry) reuse(key TypeKey) (inst Instance, found bool, herr *poolerrors.Error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pools[key]
	if !ok {
		return nil, false, nil
	}
	if len(p.inactive) == 0 {
		return nil, true, nil
	}

	inst = p.take()
	if herr = activate(inst); herr != nil {
		p.inactive = append(p.inactive, inst)
		return nil, true, herr
	}
	p.active = append(p.active, inst)
	r.publishSizes(p)
	return inst, true, nil
}

// activateGrown files a freshly spawned instance straight into active. A
// failed activate hook leaves the instance out of the pool.
func (r *Registry) activateGrown(key TypeKey, inst Instance) (found bool, herr *poolerrors.Error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pools[key]
	if !ok {
		return false, nil
	}
	if herr = activate(inst); herr != nil {
		return true, herr
	}
	p.active = append(p.active, inst)
	r.publishSizes(p)
	return true, nil
}

// Return moves inst from active back to inactive and runs its deactivate
// hook. Returning an instance that is not currently active (including a
// second return of the same instance) is reported and changes nothing.
func (r *Registry) Return(ctx context.Context, inst Instance) error {
	var typeName string
	if !isNilInstance(inst) {
		typeName = inst.PoolType().String()
	}
	ctx, span := observability.StartSpan(ctx, "return", attribute.String("pool.type", typeName))

	err := r.release(ctx, inst)
	observability.EndSpan(span, err)
	return err
}

func (r *Registry) release(ctx context.Context, inst Instance) error {
	if isNilInstance(inst) {
		return r.fail(ctx, "return",
			poolerrors.New(poolerrors.ErrorTypeInvalidArgument, "attempted to return a null instance to the pool"))
	}

	key := inst.PoolType()
	name := describe(inst)
	if key.IsZero() {
		return r.fail(ctx, "return",
			poolerrors.New(poolerrors.ErrorTypeInvalidArgument, "instance has no resolvable type").
				WithDetail("instance", name),
			zap.String("instance", name))
	}

	found, wasActive, herr := r.deactivateActive(key, inst)
	switch {
	case !found:
		return r.fail(ctx, "return",
			poolerrors.New(poolerrors.ErrorTypePoolNotFound, "no pool found for type, cannot return instance").
				WithDetail("type", key.String()).
				WithDetail("instance", name),
			zap.String("type", key.String()),
			zap.String("instance", name))
	case !wasActive:
		return r.fail(ctx, "return",
			poolerrors.New(poolerrors.ErrorTypeInstanceNotActive, "instance not found in the active set").
				WithDetail("type", key.String()).
				WithDetail("instance", name),
			zap.String("type", key.String()),
			zap.String("instance", name))
	case herr != nil:
		return r.fail(ctx, "return",
			herr.WithDetail("type", key.String()),
			zap.String("type", key.String()),
			zap.String("instance", name))
	}

	r.metrics.ObserveReturn(key.String())
	logger.WithContext(ctx, r.logger).Debug("returned instance to the pool",
		zap.String("type", key.String()),
		zap.String("instance", name))
	return nil
}

// deactivateActive moves inst from active to inactive. A failed deactivate
// hook leaves the instance active.
func (r *Registry) deactivateActive(key TypeKey, inst Instance) (found, wasActive bool, herr *poolerrors.Error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pools[key]
	if !ok {
		return false, false, nil
	}
	if !p.removeActive(inst) {
		return true, false, nil
	}
	if herr = deactivate(inst); herr != nil {
		p.active = append(p.active, inst)
		return true, true, herr
	}
	p.inactive = append(p.inactive, inst)
	r.publishSizes(p)
	return true, true, nil
}

// Close discards every pool. Instances are not destroyed; that is left to
// the host runtime. The registry can be seeded again afterwards.
func (r *Registry) Close() {
	names := r.discardAll()
	r.metrics.Forget(names...)
	r.logger.Info("discarded all pools", zap.Int("pools", len(names)))
}

func (r *Registry) discardAll() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.pools))
	for key := range r.pools {
		names = append(names, key.String())
	}
	r.pools = make(map[TypeKey]*typePool)
	return names
}

// spawn asks the spawner for one instance of key at the default placement
// and checks that it really is of that type.
func (r *Registry) spawn(ctx context.Context, op string, key TypeKey, phase string) (Instance, error) {
	if r.spawner == nil {
		return nil, r.fail(ctx, op,
			poolerrors.New(poolerrors.ErrorTypeCreationFailed, "no spawner configured").
				WithDetail("type", key.String()),
			zap.String("type", key.String()))
	}

	inst, err := r.spawner.Spawn(ctx, key, DefaultPlacement())
	if err != nil {
		return nil, r.fail(ctx, op,
			poolerrors.Wrap(err, poolerrors.ErrorTypeCreationFailed, "failed to spawn instance").
				WithDetail("type", key.String()),
			zap.String("type", key.String()),
			zap.Error(err))
	}
	if isNilInstance(inst) {
		return nil, r.fail(ctx, op,
			poolerrors.New(poolerrors.ErrorTypeCreationFailed, "spawner returned no instance").
				WithDetail("type", key.String()),
			zap.String("type", key.String()))
	}
	if got := inst.PoolType(); got != key {
		return nil, r.fail(ctx, op,
			poolerrors.New(poolerrors.ErrorTypeCreationFailed, "spawner returned an instance of another type").
				WithDetail("type", key.String()).
				WithDetail("got", got.String()),
			zap.String("type", key.String()),
			zap.String("got", got.String()))
	}

	r.metrics.ObserveCreated(key.String(), phase)
	return inst, nil
}

// fail reports err through the logger and metrics and returns it
func (r *Registry) fail(ctx context.Context, op string, err *poolerrors.Error, fields ...zap.Field) error {
	r.metrics.ObserveFailure(op, string(err.Type))
	fields = append(fields,
		zap.String("operation", op),
		zap.String("error_type", string(err.Type)))
	logger.WithContext(ctx, r.logger).Warn(err.Message, fields...)
	return err
}

// activate runs the activate hook of inst, if it has one
func activate(inst Instance) *poolerrors.Error {
	if p, ok := inst.(Poolable); ok {
		return callHook("activate", inst, p.OnActivate)
	}
	return nil
}

// deactivate runs the deactivate hook of inst, if it has one
func deactivate(inst Instance) *poolerrors.Error {
	if p, ok := inst.(Poolable); ok {
		return callHook("deactivate", inst, p.OnDeactivate)
	}
	return nil
}

// callHook runs hook and reports a panic as an Internal error
func callHook(name string, inst Instance, hook func()) (herr *poolerrors.Error) {
	defer func() {
		if rec := recover(); rec != nil {
			herr = poolerrors.New(poolerrors.ErrorTypeInternal, name+" hook panicked").
				WithDetail("instance", describe(inst)).
				WithDetail("panic", fmt.Sprint(rec))
		}
	}()
	hook()
	return nil
}

func (r *Registry) publishSizes(p *typePool) {
	r.metrics.SetSizes(p.key.String(), len(p.active), len(p.inactive))
}
