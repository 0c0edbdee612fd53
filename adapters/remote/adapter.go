// Package remote implements the Remote Adapter (spec §4.6): a single
// static table mapping each (integration, capability) to a named tool on
// an externally-hosted remote tool bus.
//
// Grounded on collab.RemoteToolBus and on gomind's orchestration package's
// "resolve a named capability against currently-discovered peers" pattern,
// generalised from agent-to-agent discovery to a fixed dispatch table.
package remote

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/connectorcore/connectorcore/collab"
	"github.com/connectorcore/connectorcore/corekit"
)

// ToolMapping pins one routing key to a remote tool name, and optionally to
// a single server id when ambiguity between servers must be pre-resolved.
type ToolMapping struct {
	IntegrationId corekit.IntegrationId
	Capability    corekit.Capability
	ToolName      string
	ServerId      string // optional
	Description   string
}

// Adapter dispatches a routing key to the remote tool bus entry its static
// table names, per spec §4.6's ambiguity/unavailability rules.
type Adapter struct {
	bus      collab.RemoteToolBus
	mappings map[corekit.RoutingKey]ToolMapping
}

// New builds a remote Adapter from a fixed table of mappings, consumed at
// wiring time exactly once (registrations are append-only elsewhere).
func New(bus collab.RemoteToolBus, mappings []ToolMapping) *Adapter {
	index := make(map[corekit.RoutingKey]ToolMapping, len(mappings))
	for _, m := range mappings {
		index[corekit.RoutingKey{IntegrationId: m.IntegrationId, Capability: m.Capability}] = m
	}
	return &Adapter{bus: bus, mappings: index}
}

func (a *Adapter) ID() string               { return "remote:tool-bus" }
func (a *Adapter) Backend() corekit.Backend { return corekit.BackendMCP }

func (a *Adapter) Supports(key corekit.RoutingKey) bool {
	_, ok := a.mappings[key]
	return ok
}

func (a *Adapter) Execute(ctx context.Context, req *corekit.ExecutionRequest, actx corekit.AdapterContext) corekit.AdapterResult {
	mapping, ok := a.mappings[req.Key()]
	if !ok {
		return corekit.Fail(corekit.ErrCodeRemoteToolUnavailable, fmt.Sprintf("no remote tool mapping for %s/%s", req.IntegrationId, req.Capability), false, nil)
	}

	discovered := a.bus.GetDiscoveredTools()
	var candidates []string
	for _, tool := range discovered {
		if tool.Name != mapping.ToolName {
			continue
		}
		if mapping.ServerId != "" && tool.ServerId != mapping.ServerId {
			continue
		}
		candidates = append(candidates, tool.ServerId)
	}

	if len(candidates) == 0 {
		if mapping.ServerId != "" {
			return corekit.Fail(corekit.ErrCodeRemoteServerUnavailable, fmt.Sprintf("server %q for tool %q is not currently available", mapping.ServerId, mapping.ToolName), true, nil)
		}
		return corekit.Fail(corekit.ErrCodeRemoteToolUnavailable, fmt.Sprintf("tool %q is not currently discovered on any server", mapping.ToolName), true, nil)
	}

	if len(candidates) > 1 {
		sort.Strings(candidates)
		return corekit.Fail(corekit.ErrCodeRemoteToolUnavailable,
			fmt.Sprintf("Multiple servers expose tool %q: %s", mapping.ToolName, strings.Join(candidates, ", ")),
			false,
			map[string]interface{}{"candidateServerIds": candidates})
	}

	serverId := candidates[0]
	data, err := a.bus.CallTool(ctx, serverId, mapping.ToolName, req.Input)
	if err != nil {
		return corekit.Fail(corekit.ErrCodeExecutionFailed, err.Error(), true, nil)
	}
	return corekit.Ok(data, map[string]interface{}{"serverId": serverId})
}
