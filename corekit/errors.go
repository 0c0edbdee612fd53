package corekit

import (
	"errors"
	"fmt"
)

// Sentinel errors for comparison via errors.Is(), adapted from gomind's
// core/errors.go taxonomy and repointed at connector dispatch concerns
// (routing, policy, adapters) instead of agent discovery.
var (
	ErrRouteNotFound        = errors.New("no route registered for capability")
	ErrAdapterUnsupported   = errors.New("adapter does not support capability")
	ErrIntegrationUnknown   = errors.New("unknown integration id")
	ErrBackendUnknown       = errors.New("unknown backend")

	ErrPolicyDisabled        = errors.New("policy is disabled")
	ErrIntegrationDisabled   = errors.New("integration is disabled by policy")
	ErrCapabilityDisabled    = errors.New("capability is disabled by policy")
	ErrNoAllowedBackends     = errors.New("no connector backend is allowed for this request")
	ErrApprovalRequired      = errors.New("approval required")

	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrMissingConfiguration = errors.New("missing required configuration")

	ErrTimeout            = errors.New("operation timeout")
	ErrContextCanceled    = errors.New("context canceled")
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")
	ErrCircuitBreakerOpen = errors.New("circuit breaker open")
)

// RoutingError wraps a routing/policy failure with operation context, in
// the same Op/Kind/ID/Err shape as gomind's FrameworkError.
type RoutingError struct {
	Op      string
	Kind    string
	Key     RoutingKey
	Message string
	Err     error
}

func (e *RoutingError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s/%s: %v", e.Op, e.Key.IntegrationId, e.Key.Capability, e.Err)
	}
	return fmt.Sprintf("%s error", e.Kind)
}

func (e *RoutingError) Unwrap() error { return e.Err }

// NewRoutingError builds a RoutingError for the given operation and key.
func NewRoutingError(op, kind string, key RoutingKey, err error) *RoutingError {
	return &RoutingError{Op: op, Kind: kind, Key: key, Err: err}
}

// IsApprovalRequired reports whether a policy-denial error is the
// approval-required variant, per spec §4.3's "case-insensitive phrase"
// discriminator — kept at the sentinel level here; the string-matching
// form callers actually rely on lives in execution.classifyDenial.
func IsApprovalRequired(err error) bool {
	return errors.Is(err, ErrApprovalRequired)
}
