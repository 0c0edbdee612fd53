package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connectorcore/connectorcore/corekit"
)

func TestNormalizeIsIdempotent(t *testing.T) {
	cfg := Config{
		StrictMode:             true,
		DefaultApprovalMode:    "bogus",
		DefaultTimeoutMs:       -5,
		DefaultMaxRetries:      99,
		DefaultAllowedBackends: []corekit.Backend{corekit.BackendNative, corekit.BackendNative, "unknown"},
		SensitiveCapabilities:  []corekit.Capability{"b", "a", "a"},
		BlockedRemoteToolNames: []string{" z ", "a"},
		IntegrationPolicies: map[corekit.IntegrationId]IntegrationPolicy{
			corekit.IntegrationS3: {
				Capabilities: map[corekit.Capability]CapabilityPolicy{
					"storage.list": {TimeoutMs: 999999999},
				},
			},
		},
	}

	once := Normalize(cfg)
	twice := Normalize(once)
	assert.Equal(t, once, twice)
}

func TestEvaluateDeniesDisabledIntegration(t *testing.T) {
	cfg := Normalize(Config{
		Enabled: true,
		IntegrationPolicies: map[corekit.IntegrationId]IntegrationPolicy{
			corekit.IntegrationS3: {Enabled: boolPtr(false)},
		},
	})
	store := NewMemoryApprovals()
	decision := Evaluate(cfg, store, EvaluateRequest{IntegrationId: corekit.IntegrationS3, Capability: "storage.list"})
	assert.False(t, decision.Allowed)
}

func TestEvaluateNeverAllowsWithEmptyBackends(t *testing.T) {
	cfg := Normalize(DefaultConfig())
	cfg.BackendDenylist = append([]corekit.Backend{}, corekit.AllBackends...)
	store := NewMemoryApprovals()
	decision := Evaluate(cfg, store, EvaluateRequest{IntegrationId: corekit.IntegrationS3, Capability: "storage.list"})
	if decision.Allowed {
		require.NotEmpty(t, decision.AllowedBackends)
	}
	assert.False(t, decision.Allowed)
}

func TestEvaluateStrictModeNarrowsToNative(t *testing.T) {
	cfg := Normalize(DefaultConfig())
	cfg.StrictMode = true
	store := NewMemoryApprovals()
	decision := Evaluate(cfg, store, EvaluateRequest{IntegrationId: corekit.IntegrationS3, Capability: "storage.list"})
	require.True(t, decision.Allowed)
	assert.Equal(t, []corekit.Backend{corekit.BackendNative}, decision.AllowedBackends)
}

func TestEvaluateOneTimeApprovalConsumedOnce(t *testing.T) {
	cfg := Normalize(Config{
		Enabled:             true,
		DefaultApprovalMode: ApprovalAlways,
		IntegrationPolicies: map[corekit.IntegrationId]IntegrationPolicy{
			corekit.IntegrationS3: {
				Capabilities: map[corekit.Capability]CapabilityPolicy{
					"storage.list": {ApprovalMode: ApprovalOnce},
				},
			},
		},
	})
	store := NewMemoryApprovals()
	req := EvaluateRequest{IntegrationId: corekit.IntegrationS3, Capability: "storage.list", ChatId: "c1"}

	denied := Evaluate(cfg, store, req)
	assert.False(t, denied.Allowed)

	store.GrantOneTimeApproval(ApprovalKey{ChatId: "c1", IntegrationId: corekit.IntegrationS3, Capability: "storage.list"})

	allowed := Evaluate(cfg, store, req)
	assert.True(t, allowed.Allowed)

	deniedAgain := Evaluate(cfg, store, req)
	assert.False(t, deniedAgain.Allowed)
}

func TestEvaluateSessionApprovalIsIdempotentUntilCleared(t *testing.T) {
	cfg := Normalize(Config{
		Enabled:             true,
		DefaultApprovalMode: ApprovalAlways,
		IntegrationPolicies: map[corekit.IntegrationId]IntegrationPolicy{
			corekit.IntegrationS3: {
				Capabilities: map[corekit.Capability]CapabilityPolicy{
					"storage.list": {ApprovalMode: ApprovalSession},
				},
			},
		},
	})
	store := NewMemoryApprovals()
	req := EvaluateRequest{IntegrationId: corekit.IntegrationS3, Capability: "storage.list", ChatId: "c1"}

	assert.False(t, Evaluate(cfg, store, req).Allowed)

	store.GrantSessionApproval(ApprovalKey{ChatId: "c1", IntegrationId: corekit.IntegrationS3, Capability: "storage.list"})

	assert.True(t, Evaluate(cfg, store, req).Allowed)
	assert.True(t, Evaluate(cfg, store, req).Allowed, "session approval must be reusable")

	store.ClearSessionApprovals("c1")
	assert.False(t, Evaluate(cfg, store, req).Allowed)
}
