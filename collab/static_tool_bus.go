package collab

import (
	"context"
	"fmt"
	"sync"
)

// StaticToolBus is an in-memory RemoteToolBus for tests and single-process
// demos: tools are registered up front (or injected live via Register) and
// CallTool dispatches to a handler function keyed by (serverId, name).
type StaticToolBus struct {
	mu       sync.RWMutex
	tools    []DiscoveredTool
	handlers map[string]func(input map[string]interface{}) (interface{}, error)
}

// NewStaticToolBus builds an empty StaticToolBus.
func NewStaticToolBus() *StaticToolBus {
	return &StaticToolBus{handlers: make(map[string]func(map[string]interface{}) (interface{}, error))}
}

func handlerKey(serverId, name string) string { return serverId + "\x00" + name }

// Register advertises one tool on serverId and attaches the handler
// CallTool invokes for it.
func (b *StaticToolBus) Register(serverId, name string, handler func(input map[string]interface{}) (interface{}, error)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tools = append(b.tools, DiscoveredTool{Name: name, ServerId: serverId})
	b.handlers[handlerKey(serverId, name)] = handler
}

func (b *StaticToolBus) GetDiscoveredTools() []DiscoveredTool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]DiscoveredTool, len(b.tools))
	copy(out, b.tools)
	return out
}

func (b *StaticToolBus) CallTool(ctx context.Context, serverId, name string, input map[string]interface{}) (interface{}, error) {
	b.mu.RLock()
	handler, ok := b.handlers[handlerKey(serverId, name)]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no handler registered for tool %q on server %q", name, serverId)
	}
	return handler(input)
}
