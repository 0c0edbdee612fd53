package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connectorcore/connectorcore/corekit"
)

type stubAdapter struct {
	id      string
	backend corekit.Backend
}

func (a *stubAdapter) ID() string               { return a.id }
func (a *stubAdapter) Backend() corekit.Backend { return a.backend }
func (a *stubAdapter) Supports(corekit.RoutingKey) bool { return true }
func (a *stubAdapter) Execute(context.Context, *corekit.ExecutionRequest, corekit.AdapterContext) corekit.AdapterResult {
	return corekit.Ok(nil, nil)
}

func TestResolveOrdersByDefaultBackendThenPriority(t *testing.T) {
	reg := New()
	key := corekit.RoutingKey{IntegrationId: corekit.IntegrationS3, Capability: "storage.list"}

	reg.Register(Registration{IntegrationId: key.IntegrationId, Capability: key.Capability, Adapter: &stubAdapter{id: "mcp", backend: corekit.BackendMCP}, Priority: 80})
	reg.Register(Registration{IntegrationId: key.IntegrationId, Capability: key.Capability, Adapter: &stubAdapter{id: "native", backend: corekit.BackendNative}, Priority: 10})

	routes := reg.Resolve(key, nil, nil)
	require.Len(t, routes, 2)
	assert.Equal(t, "native", routes[0].Adapter.(*stubAdapter).id)
	assert.Equal(t, "mcp", routes[1].Adapter.(*stubAdapter).id)
}

func TestResolveHonoursPreferredBackends(t *testing.T) {
	reg := New()
	key := corekit.RoutingKey{IntegrationId: corekit.IntegrationS3, Capability: "storage.list"}
	reg.Register(Registration{IntegrationId: key.IntegrationId, Capability: key.Capability, Adapter: &stubAdapter{id: "native", backend: corekit.BackendNative}, Priority: 10})
	reg.Register(Registration{IntegrationId: key.IntegrationId, Capability: key.Capability, Adapter: &stubAdapter{id: "mcp", backend: corekit.BackendMCP}, Priority: 80})

	routes := reg.Resolve(key, []corekit.Backend{corekit.BackendMCP}, nil)
	require.Len(t, routes, 2)
	assert.Equal(t, "mcp", routes[0].Adapter.(*stubAdapter).id)
}

func TestResolveExcludesDeniedBackends(t *testing.T) {
	reg := New()
	key := corekit.RoutingKey{IntegrationId: corekit.IntegrationS3, Capability: "storage.list"}
	reg.Register(Registration{IntegrationId: key.IntegrationId, Capability: key.Capability, Adapter: &stubAdapter{id: "native", backend: corekit.BackendNative}})

	routes := reg.Resolve(key, nil, []corekit.Backend{corekit.BackendNative})
	assert.Empty(t, routes)
}

func TestListCapabilitiesDedupesBackendsAndSortsKeys(t *testing.T) {
	reg := New()
	reg.Register(Registration{IntegrationId: corekit.IntegrationS3, Capability: "storage.list", Adapter: &stubAdapter{id: "a", backend: corekit.BackendNative}, Description: "list objects"})
	reg.Register(Registration{IntegrationId: corekit.IntegrationS3, Capability: "storage.list", Adapter: &stubAdapter{id: "b", backend: corekit.BackendNative}})
	reg.Register(Registration{IntegrationId: corekit.IntegrationCOG, Capability: "raster.inspectMetadata", Adapter: &stubAdapter{id: "c", backend: corekit.BackendNative}})

	summaries := reg.ListCapabilities()
	require.Len(t, summaries, 2)
	assert.Equal(t, corekit.IntegrationCOG, summaries[0].IntegrationId)
	assert.Equal(t, corekit.IntegrationS3, summaries[1].IntegrationId)
	assert.Equal(t, []corekit.Backend{corekit.BackendNative}, summaries[1].Backends)
	assert.Equal(t, "list objects", summaries[1].Description)
}
