package pool

import (
	"fmt"
	"sort"
	"strings"
)

// SnapshotCategory is the heading of every debug snapshot
const SnapshotCategory = "Object Pooling"

// TypeStats reports the sizes of one type's pool
type TypeStats struct {
	Type     string `json:"type"`
	Active   int    `json:"active"`
	Inactive int    `json:"inactive"`
}

// Total returns the number of instances owned by the pool
func (s TypeStats) Total() int {
	return s.Active + s.Inactive
}

// Snapshot is a point-in-time debug view of a registry
type Snapshot struct {
	Category string      `json:"category"`
	Pools    []TypeStats `json:"pools"`
}

// String renders one "<type>: Active: N, Inactive: M" line per pool
func (s Snapshot) String() string {
	var b strings.Builder
	b.WriteString(s.Category)
	b.WriteByte('\n')
	for _, p := range s.Pools {
		fmt.Fprintf(&b, "%s: Active: %d, Inactive: %d\n", p.Type, p.Active, p.Inactive)
	}
	return b.String()
}

// Lookup returns the stats of the named type
func (s Snapshot) Lookup(typeName string) (TypeStats, bool) {
	for _, p := range s.Pools {
		if p.Type == typeName {
			return p, true
		}
	}
	return TypeStats{}, false
}

// Snapshot returns the active and inactive counts of every pool, sorted by
// type name.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	pools := make([]TypeStats, 0, len(r.pools))
	for key, p := range r.pools {
		pools = append(pools, TypeStats{
			Type:     key.String(),
			Active:   len(p.active),
			Inactive: len(p.inactive),
		})
	}
	r.mu.RUnlock()

	sort.Slice(pools, func(i, j int) bool {
		return pools[i].Type < pools[j].Type
	})

	return Snapshot{
		Category: SnapshotCategory,
		Pools:    pools,
	}
}

// Stats returns the sizes of key's pool, or false if there is none
func (r *Registry) Stats(key TypeKey) (TypeStats, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.pools[key]
	if !ok {
		return TypeStats{}, false
	}
	return TypeStats{
		Type:     key.String(),
		Active:   len(p.active),
		Inactive: len(p.inactive),
	}, true
}

// Len returns the number of pools
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pools)
}
