// Package collab declares the narrow collaborator interfaces the
// execution core consumes — configuration, secrets, an externally-owned
// SQL pool, and a remote tool bus — plus one reference/dev implementation
// of each so every interface here is actually exercised.
//
// Grounded on gomind's core/redis_discovery.go (an external-store-backed
// collaborator behind a narrow interface) and core/config.go's
// environment-driven loading idiom.
package collab

import (
	"context"
	"time"

	"github.com/connectorcore/connectorcore/corekit"
)

// ConfigStore is the core's view of per-integration configuration storage.
// GetConfig returns (fields, true) when a meaningful record exists, or
// (nil, false) when no meaningful fields remain for id.
type ConfigStore interface {
	GetConfig(id corekit.IntegrationId) (map[string]interface{}, bool)
	SetConfig(id corekit.IntegrationId, fields map[string]interface{}) error
}

// SecretStore persists the secret half of a split IntegrationConfig.
// SetSecretConfig with an empty map deletes the record.
type SecretStore interface {
	GetSecretConfig(id corekit.IntegrationId) map[string]interface{}
	SetSecretConfig(id corekit.IntegrationId, fields map[string]interface{}) error
}

// ConnectionInfo reports whether an externally-owned pool is live.
type ConnectionInfo struct {
	Connected bool
	Config    map[string]interface{}
}

// QueryResult is what ExecuteQuery returns.
type QueryResult struct {
	Success       bool
	Rows          []map[string]interface{}
	RowCount      int
	Fields        []string
	ExecutionTime time.Duration
	Message       string
}

// SQLPool is the narrow interface the sql.query adapter consumes; the pool
// itself is owned and lifecycle-managed outside the execution core.
type SQLPool interface {
	GetConnectionInfo(ctx context.Context, id corekit.IntegrationId) (ConnectionInfo, error)
	ExecuteQuery(ctx context.Context, id corekit.IntegrationId, sql string, params []interface{}) (QueryResult, error)
}

// DiscoveredTool is one remote tool advertised by a server.
type DiscoveredTool struct {
	Name     string
	ServerId string
}

// RemoteToolBus is the collaborator the remote adapter consults for
// currently-discovered MCP-style tools.
type RemoteToolBus interface {
	GetDiscoveredTools() []DiscoveredTool
	CallTool(ctx context.Context, serverId, name string, input map[string]interface{}) (interface{}, error)
}
