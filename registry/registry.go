// Package registry implements the Capability Registry & Router: an
// append-only, ordered routing table from (integrationId, capability) to
// the adapters that can serve it.
//
// Grounded on gomind's core/redis_registry.go for the registration
// bookkeeping idiom (RWMutex-guarded map, defensive copies handed back to
// callers) and orchestration/capability_provider.go for the notion of
// ordering candidate backends by preference before falling back — both
// generalised here from "agents discovering other agents" to "routes for
// one (integration, capability) key, tie-broken by backend order then
// priority" per spec §4.1.
package registry

import (
	"sort"
	"sync"

	"github.com/connectorcore/connectorcore/corekit"
)

// Route is one adapter registration for a routing key.
type Route struct {
	IntegrationId corekit.IntegrationId
	Capability    corekit.Capability
	Adapter       corekit.Adapter
	Description   string
	Sensitivity   corekit.Sensitivity
	Priority      int

	// registrationSeq is the append order, used only as the final,
	// unspecified tie-break per spec §9 ("implementations are free to
	// keep registration order as the final tie-break").
	registrationSeq int
}

// Registration is the input shape to Register.
type Registration struct {
	IntegrationId corekit.IntegrationId
	Capability    corekit.Capability
	Adapter       corekit.Adapter
	Description   string
	Sensitivity   corekit.Sensitivity
	Priority      int // 0 means corekit.DefaultPriority
}

// CapabilitySummary is one aggregate entry returned by ListCapabilities.
type CapabilitySummary struct {
	IntegrationId corekit.IntegrationId
	Capability    corekit.Capability
	Backends      []corekit.Backend
	Sensitivity   corekit.Sensitivity
	Description   string
}

// Registry is the append-only, ordered routing table. Zero value is not
// usable; construct with New.
type Registry struct {
	mu     sync.RWMutex
	routes map[corekit.RoutingKey][]Route
	seq    int
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{routes: make(map[corekit.RoutingKey][]Route)}
}

func backendRank(b corekit.Backend) int {
	for i, known := range corekit.AllBackends {
		if known == b {
			return i
		}
	}
	return len(corekit.AllBackends)
}

// Register appends a Route to its key's route list and re-sorts it by
// (default backend order, priority ascending, registration order).
// Duplicate (adapter, key) pairs are allowed — the caller is responsible
// for not registering logical duplicates, per spec §4.1.
func (r *Registry) Register(reg Registration) Route {
	priority := reg.Priority
	if priority == 0 {
		priority = corekit.DefaultPriority
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	route := Route{
		IntegrationId:   reg.IntegrationId,
		Capability:      reg.Capability,
		Adapter:         reg.Adapter,
		Description:     reg.Description,
		Sensitivity:      reg.Sensitivity,
		Priority:        priority,
		registrationSeq: r.seq,
	}
	key := corekit.RoutingKey{IntegrationId: reg.IntegrationId, Capability: reg.Capability}

	existing := r.routes[key]
	updated := make([]Route, len(existing), len(existing)+1)
	copy(updated, existing)
	updated = append(updated, route)
	sortRoutes(updated, nil)
	r.routes[key] = updated
	return route
}

// sortRoutes orders routes by: if preferred is non-empty, any route whose
// backend appears in preferred precedes ones that do not, in the order
// preferred lists them; remaining routes are ordered by the default
// backend order, then ascending priority, then registration order.
func sortRoutes(routes []Route, preferred []corekit.Backend) {
	prefRank := make(map[corekit.Backend]int, len(preferred))
	for i, b := range preferred {
		prefRank[b] = i
	}
	inPreferred := func(b corekit.Backend) (int, bool) {
		i, ok := prefRank[b]
		return i, ok
	}

	sort.SliceStable(routes, func(i, j int) bool {
		a, b := routes[i], routes[j]
		aBackend, bBackend := a.Adapter.Backend(), b.Adapter.Backend()
		ai, aok := inPreferred(aBackend)
		bi, bok := inPreferred(bBackend)
		if aok != bok {
			return aok // preferred-listed routes sort first
		}
		if aok && bok && ai != bi {
			return ai < bi
		}
		if ar, br := backendRank(aBackend), backendRank(bBackend); ar != br {
			return ar < br
		}
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.registrationSeq < b.registrationSeq
	})
}

// Resolve filters routes for key whose backend is in denied or whose
// adapter's Supports(key) returns false, then orders the remainder per
// preferredBackends (see sortRoutes), returning a fresh slice the caller
// may not mutate the registry's internal state through.
func (r *Registry) Resolve(key corekit.RoutingKey, preferredBackends, deniedBackends []corekit.Backend) []Route {
	denied := make(map[corekit.Backend]bool, len(deniedBackends))
	for _, b := range deniedBackends {
		denied[b] = true
	}

	r.mu.RLock()
	src := r.routes[key]
	r.mu.RUnlock()

	filtered := make([]Route, 0, len(src))
	for _, rt := range src {
		if denied[rt.Adapter.Backend()] {
			continue
		}
		if !rt.Adapter.Supports(key) {
			continue
		}
		filtered = append(filtered, rt)
	}
	sortRoutes(filtered, preferredBackends)
	return filtered
}

// ListCapabilities returns one aggregate entry per routing key: the set of
// distinct backends (in route order), whether any route for the key is
// sensitive, and the first non-empty description across its routes.
func (r *Registry) ListCapabilities() []CapabilitySummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Stable output order: sort keys by integration then capability so
	// callers get deterministic listings regardless of map iteration.
	keys := make([]corekit.RoutingKey, 0, len(r.routes))
	for k := range r.routes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].IntegrationId != keys[j].IntegrationId {
			return keys[i].IntegrationId < keys[j].IntegrationId
		}
		return keys[i].Capability < keys[j].Capability
	})

	out := make([]CapabilitySummary, 0, len(keys))
	for _, key := range keys {
		routes := r.routes[key]
		summary := CapabilitySummary{IntegrationId: key.IntegrationId, Capability: key.Capability}
		seen := make(map[corekit.Backend]bool)
		for _, rt := range routes {
			b := rt.Adapter.Backend()
			if !seen[b] {
				seen[b] = true
				summary.Backends = append(summary.Backends, b)
			}
			if rt.Sensitivity == corekit.SensitivitySensitive {
				summary.Sensitivity = corekit.SensitivitySensitive
			}
			if summary.Description == "" && rt.Description != "" {
				summary.Description = rt.Description
			}
		}
		if summary.Sensitivity == "" {
			summary.Sensitivity = corekit.SensitivityNormal
		}
		out = append(out, summary)
	}
	return out
}
