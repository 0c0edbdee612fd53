// Package corekit provides the shared vocabulary every other package in
// connectorcore builds on: integration/capability/backend identifiers, the
// request/result contract adapters implement, and run telemetry records.
//
// It is adapted from gomind's core package (interfaces.go, component.go):
// the same "small, dependency-free contract package that everything else
// imports" shape, repointed from AI-agent service discovery to capability
// dispatch across external data-service backends.
package corekit

import (
	"context"
	"time"
)

// IntegrationId is a closed set of well-known external service families.
// Only these values are accepted at any boundary that takes an integration
// identifier.
type IntegrationId string

const (
	IntegrationPostgreSQLPostGIS  IntegrationId = "postgresql-postgis"
	IntegrationSTAC               IntegrationId = "stac"
	IntegrationCOG                IntegrationId = "cog"
	IntegrationPMTiles            IntegrationId = "pmtiles"
	IntegrationWMS                IntegrationId = "wms"
	IntegrationWMTS               IntegrationId = "wmts"
	IntegrationS3                 IntegrationId = "s3"
	IntegrationGoogleEarthEngine  IntegrationId = "google-earth-engine"
)

// KnownIntegrations is the closed set backing IsKnownIntegration.
var KnownIntegrations = map[IntegrationId]bool{
	IntegrationPostgreSQLPostGIS: true,
	IntegrationSTAC:              true,
	IntegrationCOG:               true,
	IntegrationPMTiles:           true,
	IntegrationWMS:               true,
	IntegrationWMTS:              true,
	IntegrationS3:                true,
	IntegrationGoogleEarthEngine: true,
}

// IsKnownIntegration reports whether id is one of the closed set of
// well-known integration identifiers.
func IsKnownIntegration(id IntegrationId) bool {
	return KnownIntegrations[id]
}

// Capability is an opaque dotted operation name, e.g. "catalog.search".
type Capability string

// RoutingKey is the (IntegrationId, Capability) pair that identifies one
// logical operation across backends.
type RoutingKey struct {
	IntegrationId IntegrationId
	Capability    Capability
}

// Backend identifies the mechanism implementing a capability.
type Backend string

const (
	BackendNative Backend = "native"
	BackendMCP    Backend = "mcp"
	BackendPlugin Backend = "plugin"
)

// AllBackends is the closed set of backends, in the default preference
// order used when a request does not narrow it.
var AllBackends = []Backend{BackendNative, BackendMCP, BackendPlugin}

// IsKnownBackend reports whether b is one of the closed set of backends.
func IsKnownBackend(b Backend) bool {
	for _, known := range AllBackends {
		if known == b {
			return true
		}
	}
	return false
}

// Sensitivity marks whether a route requires policy approval consideration.
type Sensitivity string

const (
	SensitivityNormal    Sensitivity = "normal"
	SensitivitySensitive Sensitivity = "sensitive"
)

// DefaultPriority is applied to a route when the caller does not specify one.
const DefaultPriority = 100

// ExecutionRequest is the input to Execution Service's Execute call.
type ExecutionRequest struct {
	IntegrationId      IntegrationId
	Capability         Capability
	Input              map[string]interface{}
	ChatId             string
	AgentId            string
	TimeoutMs          int
	MaxRetries         int
	HasMaxRetries      bool
	PreferredBackends  []Backend
}

// Key returns the routing key for this request.
func (r *ExecutionRequest) Key() RoutingKey {
	return RoutingKey{IntegrationId: r.IntegrationId, Capability: r.Capability}
}

// AdapterContext carries the per-attempt parameters an adapter needs.
type AdapterContext struct {
	TimeoutMs  int
	Attempt    int
	MaxRetries int
}

// AdapterError is the fixed error shape every adapter returns on failure.
type AdapterError struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Retryable bool                   `json:"retryable,omitempty"`
}

func (e *AdapterError) Error() string { return e.Code + ": " + e.Message }

// Fixed adapter error codes (spec §4.4).
const (
	ErrCodeNotConfigured          = "NOT_CONFIGURED"
	ErrCodeUnsupportedCapability  = "UNSUPPORTED_CAPABILITY"
	ErrCodePolicyDenied           = "POLICY_DENIED"
	ErrCodeApprovalRequired       = "APPROVAL_REQUIRED"
	ErrCodeTimeout                = "TIMEOUT"
	ErrCodeValidationFailed       = "VALIDATION_FAILED"
	ErrCodeRemoteToolUnavailable  = "REMOTE_TOOL_UNAVAILABLE"
	ErrCodeRemoteServerUnavailable = "REMOTE_SERVER_UNAVAILABLE"
	ErrCodeExecutionFailed        = "EXECUTION_FAILED"
	ErrCodeCircuitOpen            = "CIRCUIT_OPEN"
)

// AdapterResult is the tagged union every adapter returns. Exactly one of
// Data/Err is meaningful, discriminated by OK itself — the
// execution service only ever reads OK, Data, Details and Err.
type AdapterResult struct {
	OK      bool
	Data    interface{}
	Details map[string]interface{}
	Err     *AdapterError
}

// Ok builds a successful AdapterResult.
func Ok(data interface{}, details map[string]interface{}) AdapterResult {
	return AdapterResult{OK: true, Data: data, Details: details}
}

// Fail builds a failed AdapterResult.
func Fail(code, message string, retryable bool, details map[string]interface{}) AdapterResult {
	return AdapterResult{OK: false, Err: &AdapterError{Code: code, Message: message, Retryable: retryable, Details: details}}
}

// Adapter is the executable behind one Route. Adapters are stateless per
// call; any collaborator handle they need (a SQL pool, an HTTP client, a
// remote tool bus) is injected at construction time.
type Adapter interface {
	ID() string
	Backend() Backend
	Supports(key RoutingKey) bool
	Execute(ctx context.Context, req *ExecutionRequest, actx AdapterContext) AdapterResult
}

// AttemptRecord is one entry in a Failure's attempt log.
type AttemptRecord struct {
	Backend   Backend `json:"backend"`
	ErrorCode string  `json:"errorCode"`
	Message   string  `json:"message"`
	Attempt   int     `json:"attempt"`
}

// ExecutionResult is the tagged union returned by Execute.
type ExecutionResult struct {
	Success bool

	RunId         string
	IntegrationId IntegrationId
	Capability    Capability
	Backend       Backend
	DurationMs    int64

	Data    interface{}
	Details map[string]interface{}

	Error    *AdapterError
	Attempts []AttemptRecord
}

// RunOutcome is the closed set of RunRecord outcomes.
type RunOutcome string

const (
	OutcomeSuccess      RunOutcome = "success"
	OutcomeError        RunOutcome = "error"
	OutcomeTimeout      RunOutcome = "timeout"
	OutcomePolicyDenied RunOutcome = "policy_denied"
)

// RunRecord is the one-per-Execute telemetry artifact.
type RunRecord struct {
	RunId      string        `json:"runId"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	DurationMs int64         `json:"durationMs"`
	ChatId     string        `json:"chatId,omitempty"`
	AgentId    string        `json:"agentId,omitempty"`

	IntegrationId IntegrationId `json:"integrationId"`
	Capability    Capability    `json:"capability"`
	Backend       Backend       `json:"backend,omitempty"`

	Outcome   RunOutcome `json:"outcome"`
	Message   string     `json:"message"`
	ErrorCode string     `json:"errorCode,omitempty"`
	TraceId   string     `json:"traceId,omitempty"`
}

// LifecycleEvent is the set of integration lifecycle events that can be
// recorded into the run log without going through Execute.
type LifecycleEvent string

const (
	LifecycleTestConnection LifecycleEvent = "testConnection"
	LifecycleConnect        LifecycleEvent = "connect"
	LifecycleDisconnect     LifecycleEvent = "disconnect"
)
