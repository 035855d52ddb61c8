package pool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ajitpratap0/objectpool/pkg/metrics"
	"github.com/ajitpratap0/objectpool/pkg/poolerrors"
)

var (
	typeX = NewTypeKey("type_x")
	typeY = NewTypeKey("type_y")
)

type testEntity struct {
	key           TypeKey
	id            int
	activations   int
	deactivations int

	// panicking hooks
	brokenActivate   bool
	brokenDeactivate bool
}

func (e *testEntity) PoolType() TypeKey { return e.key }
func (e *testEntity) String() string    { return fmt.Sprintf("%s#%d", e.key, e.id) }

func (e *testEntity) OnActivate() {
	if e.brokenActivate {
		panic("activate: " + e.String())
	}
	e.activations++
}

func (e *testEntity) OnDeactivate() {
	if e.brokenDeactivate {
		panic("deactivate: " + e.String())
	}
	e.deactivations++
}

// plainEntity does not implement Poolable
type plainEntity struct {
	key TypeKey
	id  int
}

func (e *plainEntity) PoolType() TypeKey { return e.key }

type fakeSpawner struct {
	mu         sync.Mutex
	next       int
	calls      int
	failures   map[TypeKey]int
	plain      map[TypeKey]bool
	broken     map[TypeKey]bool
	placements []Placement
}

func newFakeSpawner() *fakeSpawner {
	return &fakeSpawner{
		failures: make(map[TypeKey]int),
		plain:    make(map[TypeKey]bool),
		broken:   make(map[TypeKey]bool),
	}
}

func (s *fakeSpawner) Spawn(_ context.Context, key TypeKey, placement Placement) (Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	s.placements = append(s.placements, placement)
	if s.failures[key] > 0 {
		s.failures[key]--
		return nil, errors.New("spawn point exploded")
	}
	s.next++
	if s.plain[key] {
		return &plainEntity{key: key, id: s.next}, nil
	}
	return &testEntity{key: key, id: s.next, brokenActivate: s.broken[key]}, nil
}

func (s *fakeSpawner) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type harness struct {
	registry *Registry
	spawner  *fakeSpawner
	logs     *observer.ObservedLogs
	prom     *prometheus.Registry
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prom := prometheus.NewRegistry()
	spawner := newFakeSpawner()
	r := NewRegistry(spawner,
		WithLogger(zap.New(core)),
		WithMetrics(metrics.NewPoolMetrics(prom, "test")))
	return &harness{registry: r, spawner: spawner, logs: logs, prom: prom}
}

func (h *harness) seed(t *testing.T, key TypeKey, count int) {
	t.Helper()
	report := h.registry.Seed(context.Background(), []SeedEntry{{Type: key, Count: count}})
	require.Equal(t, count, report.Created)
	require.Empty(t, report.Errors)
}

func (h *harness) stats(t *testing.T, key TypeKey) TypeStats {
	t.Helper()
	s, ok := h.registry.Stats(key)
	require.True(t, ok, "expected a pool for %s", key)
	return s
}

// assertDisjoint checks that no instance appears twice within or across
// the active and inactive sets of any pool.
func assertDisjoint(t *testing.T, r *Registry) {
	t.Helper()
	r.mu.RLock()
	defer r.mu.RUnlock()

	for key, p := range r.pools {
		seen := make(map[Instance]string)
		for _, inst := range p.active {
			_, dup := seen[inst]
			assert.False(t, dup, "%s: duplicate active instance %s", key, describe(inst))
			seen[inst] = "active"
		}
		for _, inst := range p.inactive {
			where, dup := seen[inst]
			assert.False(t, dup, "%s: inactive instance %s also %s", key, describe(inst), where)
			seen[inst] = "inactive"
		}
	}
}

func TestAcquireWithoutPool(t *testing.T) {
	h := newHarness(t)

	inst, err := h.registry.Acquire(context.Background(), typeX)

	assert.Nil(t, inst)
	assert.True(t, poolerrors.IsType(err, poolerrors.ErrorTypePoolNotFound))
	assert.Zero(t, h.spawner.callCount(), "acquire must not create a pool")
	assert.Zero(t, h.registry.Len())

	warnings := h.logs.FilterMessage("no pool found for type").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, zapcore.WarnLevel, warnings[0].Level)
	assert.Equal(t, "type_x", warnings[0].ContextMap()["type"])
}

func TestAcquireNullType(t *testing.T) {
	h := newHarness(t)

	inst, err := h.registry.Acquire(context.Background(), TypeKey{})

	assert.Nil(t, inst)
	assert.True(t, poolerrors.IsType(err, poolerrors.ErrorTypeInvalidArgument))
}

func TestSeedThenExhaustThenGrowThenReturn(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// seed X with 3
	h.seed(t, typeX, 3)
	assert.Equal(t, TypeStats{Type: "type_x", Active: 0, Inactive: 3}, h.stats(t, typeX))
	for _, inst := range h.registry.pools[typeX].inactive {
		assert.Equal(t, 1, inst.(*testEntity).deactivations)
		assert.Zero(t, inst.(*testEntity).activations)
	}

	// acquire three distinct instances
	seen := make(map[Instance]bool)
	for i := 0; i < 3; i++ {
		inst, err := h.registry.Acquire(ctx, typeX)
		require.NoError(t, err)
		require.NotNil(t, inst)
		assert.False(t, seen[inst], "handle handed out twice")
		seen[inst] = true
		assert.Equal(t, 1, inst.(*testEntity).activations)
	}
	assert.Equal(t, TypeStats{Type: "type_x", Active: 3, Inactive: 0}, h.stats(t, typeX))
	assert.Equal(t, 3, h.spawner.callCount())

	// a fourth acquire grows the pool by exactly one instance
	grown, err := h.registry.Acquire(ctx, typeX)
	require.NoError(t, err)
	require.NotNil(t, grown)
	assert.False(t, seen[grown])
	assert.Equal(t, 4, h.spawner.callCount())
	assert.Equal(t, TypeStats{Type: "type_x", Active: 4, Inactive: 0}, h.stats(t, typeX))
	assert.Equal(t, 1, grown.(*testEntity).activations)
	assert.Zero(t, grown.(*testEntity).deactivations)
	assert.Equal(t, 1, h.logs.FilterMessage("spawned and activated a new instance as none were available").Len())

	// return one of the four
	require.NoError(t, h.registry.Return(ctx, grown))
	assert.Equal(t, TypeStats{Type: "type_x", Active: 3, Inactive: 1}, h.stats(t, typeX))
	assert.Equal(t, []Instance{grown}, h.registry.pools[typeX].inactive)
	assert.Equal(t, 1, grown.(*testEntity).deactivations)

	assertDisjoint(t, h.registry)

	expected := `
# HELP test_pool_active_instances Number of pooled instances currently acquired
# TYPE test_pool_active_instances gauge
test_pool_active_instances{type="type_x"} 3
# HELP test_pool_inactive_instances Number of pooled instances available for acquisition
# TYPE test_pool_inactive_instances gauge
test_pool_inactive_instances{type="type_x"} 1
# HELP test_pool_acquires_total Total successful acquisitions by path (reuse or grow)
# TYPE test_pool_acquires_total counter
test_pool_acquires_total{path="grow",type="type_x"} 1
test_pool_acquires_total{path="reuse",type="type_x"} 3
`
	assert.NoError(t, testutil.GatherAndCompare(h.prom, strings.NewReader(expected),
		"test_pool_active_instances", "test_pool_inactive_instances", "test_pool_acquires_total"))
}

func TestGrowthKeepsInactiveUnchanged(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seed(t, typeX, 1)

	_, err := h.registry.Acquire(ctx, typeX)
	require.NoError(t, err)

	before := h.stats(t, typeX)
	calls := h.spawner.callCount()

	_, err = h.registry.Acquire(ctx, typeX)
	require.NoError(t, err)

	after := h.stats(t, typeX)
	assert.Equal(t, calls+1, h.spawner.callCount())
	assert.Equal(t, before.Inactive, after.Inactive)
	assert.Equal(t, before.Active+1, after.Active)
}

func TestReturnNull(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seed(t, typeX, 2)
	before := h.registry.Snapshot()

	err := h.registry.Return(ctx, nil)
	assert.True(t, poolerrors.IsType(err, poolerrors.ErrorTypeInvalidArgument))

	var typedNil *testEntity
	err = h.registry.Return(ctx, typedNil)
	assert.True(t, poolerrors.IsType(err, poolerrors.ErrorTypeInvalidArgument))

	assert.Equal(t, before, h.registry.Snapshot())
	assert.Equal(t, 2, h.logs.FilterMessage("attempted to return a null instance to the pool").Len())
}

func TestAcquireReturnRoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seed(t, typeX, 2)

	_, err := h.registry.Acquire(ctx, typeX)
	require.NoError(t, err)
	before := h.stats(t, typeX)

	inst, err := h.registry.Acquire(ctx, typeX)
	require.NoError(t, err)
	require.NoError(t, h.registry.Return(ctx, inst))

	assert.Equal(t, before, h.stats(t, typeX))
}

func TestDoubleReturn(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seed(t, typeX, 1)

	inst, err := h.registry.Acquire(ctx, typeX)
	require.NoError(t, err)
	require.NoError(t, h.registry.Return(ctx, inst))

	entity := inst.(*testEntity)
	deactivations := entity.deactivations

	err = h.registry.Return(ctx, inst)
	assert.True(t, poolerrors.IsType(err, poolerrors.ErrorTypeInstanceNotActive))
	assert.Equal(t, TypeStats{Type: "type_x", Active: 0, Inactive: 1}, h.stats(t, typeX))
	assert.Equal(t, deactivations, entity.deactivations, "hook must not run on a rejected return")
	assert.Equal(t, 1, h.logs.FilterMessage("instance not found in the active set").Len())
	assertDisjoint(t, h.registry)
}

func TestReturnNeverAcquired(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seed(t, typeX, 1)

	// an instance sitting in the inactive set
	idle := h.registry.pools[typeX].inactive[0]
	err := h.registry.Return(ctx, idle)
	assert.True(t, poolerrors.IsType(err, poolerrors.ErrorTypeInstanceNotActive))

	// an instance of a pooled type that the registry never saw
	stranger := &testEntity{key: typeX, id: 999}
	err = h.registry.Return(ctx, stranger)
	assert.True(t, poolerrors.IsType(err, poolerrors.ErrorTypeInstanceNotActive))

	assert.Equal(t, TypeStats{Type: "type_x", Active: 0, Inactive: 1}, h.stats(t, typeX))
	assert.Zero(t, stranger.deactivations)
}

func TestReturnUnmanagedType(t *testing.T) {
	h := newHarness(t)
	h.seed(t, typeX, 1)

	err := h.registry.Return(context.Background(), &testEntity{key: typeY, id: 1})

	assert.True(t, poolerrors.IsType(err, poolerrors.ErrorTypePoolNotFound))
	_, ok := h.registry.Stats(typeY)
	assert.False(t, ok)
}

func TestReturnNullTypeInstance(t *testing.T) {
	h := newHarness(t)

	err := h.registry.Return(context.Background(), &testEntity{})
	assert.True(t, poolerrors.IsType(err, poolerrors.ErrorTypeInvalidArgument))
}

func TestMostRecentlyReturnedIsAcquiredFirst(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seed(t, typeX, 2)

	a, err := h.registry.Acquire(ctx, typeX)
	require.NoError(t, err)
	b, err := h.registry.Acquire(ctx, typeX)
	require.NoError(t, err)

	require.NoError(t, h.registry.Return(ctx, a))
	require.NoError(t, h.registry.Return(ctx, b))

	next, err := h.registry.Acquire(ctx, typeX)
	require.NoError(t, err)
	assert.Same(t, b.(*testEntity), next.(*testEntity))

	next, err = h.registry.Acquire(ctx, typeX)
	require.NoError(t, err)
	assert.Same(t, a.(*testEntity), next.(*testEntity))
}

func TestSeedSkipsInvalidEntries(t *testing.T) {
	h := newHarness(t)

	report := h.registry.Seed(context.Background(), []SeedEntry{
		{Type: TypeKey{}, Count: 4},
		{Type: typeX, Count: 0},
		{Type: typeY, Count: -2},
		{Type: typeX, Count: 2},
	})

	assert.Equal(t, 3, report.SkippedEntries)
	assert.Equal(t, 2, report.Created)
	assert.Zero(t, report.FailedUnits)
	require.Len(t, report.Errors, 3)
	for _, err := range report.Errors {
		assert.True(t, poolerrors.IsType(err, poolerrors.ErrorTypeInvalidArgument))
	}

	assert.Equal(t, TypeStats{Type: "type_x", Active: 0, Inactive: 2}, h.stats(t, typeX))
	_, ok := h.registry.Stats(typeY)
	assert.False(t, ok)
}

func TestSeedContinuesPastCreationFailures(t *testing.T) {
	h := newHarness(t)
	h.spawner.failures[typeX] = 2

	report := h.registry.Seed(context.Background(), []SeedEntry{
		{Type: typeX, Count: 5},
		{Type: typeY, Count: 1},
	})

	assert.Equal(t, 4, report.Created)
	assert.Equal(t, 2, report.FailedUnits)
	for _, err := range report.Errors {
		assert.True(t, poolerrors.IsType(err, poolerrors.ErrorTypeCreationFailed))
	}
	assert.Equal(t, 3, h.stats(t, typeX).Inactive)
	assert.Equal(t, 1, h.stats(t, typeY).Inactive)
}

func TestSeedAppendsToExistingPool(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	report := h.registry.Seed(ctx, []SeedEntry{
		{Type: typeX, Count: 2},
		{Type: typeX, Count: 3},
	})

	assert.Equal(t, 5, report.Created)
	assert.Equal(t, 5, h.stats(t, typeX).Inactive)
	assert.Equal(t, 1, h.logs.FilterMessage("created new pool").Len())
	assertDisjoint(t, h.registry)
}

func TestGrowthCreationFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seed(t, typeX, 1)

	_, err := h.registry.Acquire(ctx, typeX)
	require.NoError(t, err)

	h.spawner.failures[typeX] = 1
	inst, err := h.registry.Acquire(ctx, typeX)
	assert.Nil(t, inst)
	assert.True(t, poolerrors.IsType(err, poolerrors.ErrorTypeCreationFailed))
	assert.Equal(t, TypeStats{Type: "type_x", Active: 1, Inactive: 0}, h.stats(t, typeX))

	// the registry stays usable
	inst, err = h.registry.Acquire(ctx, typeX)
	require.NoError(t, err)
	assert.NotNil(t, inst)
	assert.Equal(t, 2, h.stats(t, typeX).Active)
}

func TestSpawnerContractViolations(t *testing.T) {
	tests := []struct {
		name    string
		spawner Spawner
	}{
		{
			name: "nil instance without error",
			spawner: SpawnerFunc(func(context.Context, TypeKey, Placement) (Instance, error) {
				return nil, nil
			}),
		},
		{
			name: "typed nil instance",
			spawner: SpawnerFunc(func(context.Context, TypeKey, Placement) (Instance, error) {
				var e *testEntity
				return e, nil
			}),
		},
		{
			name: "instance of another type",
			spawner: SpawnerFunc(func(context.Context, TypeKey, Placement) (Instance, error) {
				return &testEntity{key: typeY}, nil
			}),
		},
		{
			name:    "no spawner",
			spawner: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(tt.spawner, WithLogger(zap.NewNop()))
			report := r.Seed(context.Background(), []SeedEntry{{Type: typeX, Count: 2}})

			assert.Zero(t, report.Created)
			assert.Equal(t, 2, report.FailedUnits)
			for _, err := range report.Errors {
				assert.True(t, poolerrors.IsType(err, poolerrors.ErrorTypeCreationFailed))
			}
			assert.Zero(t, r.Len())
		})
	}
}

func TestSpawnUsesDefaultPlacement(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seed(t, typeX, 2)
	_, _ = h.registry.Acquire(ctx, typeX)
	_, _ = h.registry.Acquire(ctx, typeX)
	_, _ = h.registry.Acquire(ctx, typeX)

	require.Len(t, h.spawner.placements, 3)
	for _, p := range h.spawner.placements {
		assert.Equal(t, DefaultPlacement(), p)
		assert.Equal(t, CollisionAlwaysSpawn, p.Collision)
	}
}

func TestInstancesWithoutHooks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.spawner.plain[typeY] = true
	h.seed(t, typeY, 1)

	inst, err := h.registry.Acquire(ctx, typeY)
	require.NoError(t, err)
	_, isPoolable := inst.(Poolable)
	assert.False(t, isPoolable)

	grown, err := h.registry.Acquire(ctx, typeY)
	require.NoError(t, err)

	require.NoError(t, h.registry.Return(ctx, inst))
	require.NoError(t, h.registry.Return(ctx, grown))
	assert.Equal(t, TypeStats{Type: "type_y", Active: 0, Inactive: 2}, h.stats(t, typeY))
}

func TestAddToPool(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := h.registry

	r.mu.Lock()
	defer r.mu.Unlock()

	// null
	err := r.addToPoolLocked(ctx, nil)
	assert.True(t, poolerrors.IsType(err, poolerrors.ErrorTypeInvalidArgument))

	// first instance creates the pool as inactive without running hooks
	first := &testEntity{key: typeX, id: 1}
	require.NoError(t, r.addToPoolLocked(ctx, first))
	assert.Equal(t, []Instance{first}, r.pools[typeX].inactive)
	assert.Empty(t, r.pools[typeX].active)
	assert.Zero(t, first.deactivations)

	// brand-new instance on an existing pool is filed as inactive
	second := &testEntity{key: typeX, id: 2}
	require.NoError(t, r.addToPoolLocked(ctx, second))
	assert.Equal(t, []Instance{first, second}, r.pools[typeX].inactive)

	// an already inactive instance is rejected
	err = r.addToPoolLocked(ctx, first)
	assert.True(t, poolerrors.IsType(err, poolerrors.ErrorTypeInstanceNotActive))
	assert.Len(t, r.pools[typeX].inactive, 2)

	// an active instance moves back with its hook
	r.pools[typeX].active = append(r.pools[typeX].active, r.pools[typeX].take())
	require.NoError(t, r.addToPoolLocked(ctx, second))
	assert.Empty(t, r.pools[typeX].active)
	assert.Equal(t, []Instance{first, second}, r.pools[typeX].inactive)
	assert.Equal(t, 1, second.deactivations)
}

func TestSnapshot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seed(t, typeY, 2)
	h.seed(t, typeX, 3)
	_, err := h.registry.Acquire(ctx, typeX)
	require.NoError(t, err)

	snap := h.registry.Snapshot()

	assert.Equal(t, SnapshotCategory, snap.Category)
	assert.Equal(t, []TypeStats{
		{Type: "type_x", Active: 1, Inactive: 2},
		{Type: "type_y", Active: 0, Inactive: 2},
	}, snap.Pools)
	assert.Equal(t,
		"Object Pooling\ntype_x: Active: 1, Inactive: 2\ntype_y: Active: 0, Inactive: 2\n",
		snap.String())

	stats, ok := snap.Lookup("type_y")
	assert.True(t, ok)
	assert.Equal(t, 2, stats.Total())
	_, ok = snap.Lookup("type_z")
	assert.False(t, ok)
}

func TestClose(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seed(t, typeX, 2)
	inst, err := h.registry.Acquire(ctx, typeX)
	require.NoError(t, err)

	h.registry.Close()

	assert.Zero(t, h.registry.Len())
	assert.Empty(t, h.registry.Snapshot().Pools)

	_, err = h.registry.Acquire(ctx, typeX)
	assert.True(t, poolerrors.IsType(err, poolerrors.ErrorTypePoolNotFound))

	err = h.registry.Return(ctx, inst)
	assert.True(t, poolerrors.IsType(err, poolerrors.ErrorTypePoolNotFound))

	count, err := testutil.GatherAndCount(h.prom, "test_pool_active_instances")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestFailuresAreCounted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, _ = h.registry.Acquire(ctx, typeX)
	_ = h.registry.Return(ctx, nil)

	expected := `
# HELP test_pool_failures_total Total reported pool failures
# TYPE test_pool_failures_total counter
test_pool_failures_total{error_type="invalid_argument",operation="return"} 1
test_pool_failures_total{error_type="pool_not_found",operation="acquire"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(h.prom, strings.NewReader(expected), "test_pool_failures_total"))
}

// topInactive returns the instance the next Acquire of key would reuse
func topInactive(t *testing.T, r *Registry, key TypeKey) *testEntity {
	t.Helper()
	r.mu.RLock()
	defer r.mu.RUnlock()
	p := r.pools[key]
	require.NotEmpty(t, p.inactive)
	return p.inactive[len(p.inactive)-1].(*testEntity)
}

// assertUnlocked fails the test when the registry lock cannot be taken
func assertUnlocked(t *testing.T, r *Registry) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Snapshot()
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("registry lock still held")
	}
}

func TestPanickingActivateHook(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seed(t, typeX, 2)

	broken := topInactive(t, h.registry, typeX)
	broken.brokenActivate = true

	var inst Instance
	var err error
	assert.NotPanics(t, func() { inst, err = h.registry.Acquire(ctx, typeX) })
	assert.Nil(t, inst)
	assert.True(t, poolerrors.IsType(err, poolerrors.ErrorTypeInternal))
	assert.Equal(t, 1, h.logs.FilterMessage("activate hook panicked").Len())

	assertUnlocked(t, h.registry)
	assert.Equal(t, TypeStats{Type: "type_x", Active: 0, Inactive: 2}, h.stats(t, typeX))

	broken.brokenActivate = false
	got, err := h.registry.Acquire(ctx, typeX)
	require.NoError(t, err)
	assert.Same(t, broken, got, "the instance stays inactive and is reused next")
	require.NoError(t, h.registry.Return(ctx, got))
	assertDisjoint(t, h.registry)
}

func TestPanickingActivateHookOnGrowth(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seed(t, typeX, 1)

	first, err := h.registry.Acquire(ctx, typeX)
	require.NoError(t, err)

	h.spawner.broken[typeX] = true
	_, err = h.registry.Acquire(ctx, typeX)
	assert.True(t, poolerrors.IsType(err, poolerrors.ErrorTypeInternal))

	assertUnlocked(t, h.registry)
	assert.Equal(t, TypeStats{Type: "type_x", Active: 1, Inactive: 0}, h.stats(t, typeX),
		"the grown instance is not filed")

	h.spawner.broken[typeX] = false
	second, err := h.registry.Acquire(ctx, typeX)
	require.NoError(t, err)
	require.NoError(t, h.registry.Return(ctx, second))
	require.NoError(t, h.registry.Return(ctx, first))
	assert.Equal(t, TypeStats{Type: "type_x", Active: 0, Inactive: 2}, h.stats(t, typeX))
}

func TestPanickingDeactivateHook(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seed(t, typeX, 2)

	inst, err := h.registry.Acquire(ctx, typeX)
	require.NoError(t, err)
	inst.(*testEntity).brokenDeactivate = true

	assert.NotPanics(t, func() { err = h.registry.Return(ctx, inst) })
	assert.True(t, poolerrors.IsType(err, poolerrors.ErrorTypeInternal))

	assertUnlocked(t, h.registry)
	assert.Equal(t, TypeStats{Type: "type_x", Active: 1, Inactive: 1}, h.stats(t, typeX),
		"the instance stays active")

	err = h.registry.add(ctx, inst)
	assert.True(t, poolerrors.IsType(err, poolerrors.ErrorTypeInternal))
	assertUnlocked(t, h.registry)

	inst.(*testEntity).brokenDeactivate = false
	require.NoError(t, h.registry.Return(ctx, inst))
	assert.Equal(t, TypeStats{Type: "type_x", Active: 0, Inactive: 2}, h.stats(t, typeX))
	assertDisjoint(t, h.registry)
}

func TestConcurrentAcquireReturn(t *testing.T) {
	h := newHarness(t)
	h.registry = NewRegistry(h.spawner, WithLogger(zap.NewNop()))
	ctx := context.Background()
	h.seed(t, typeX, 8)

	const workers = 16
	const rounds = 200

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				inst, err := h.registry.Acquire(ctx, typeX)
				if err != nil {
					errs <- err
					return
				}
				if err := h.registry.Return(ctx, inst); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}

	stats := h.stats(t, typeX)
	assert.Zero(t, stats.Active)
	assert.Equal(t, h.spawner.callCount(), stats.Inactive, "every spawned instance is owned by the pool")
	assert.LessOrEqual(t, stats.Inactive, workers+8)
	assertDisjoint(t, h.registry)
}
