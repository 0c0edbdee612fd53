package policy

import (
	"fmt"

	"github.com/connectorcore/connectorcore/corekit"
)

// Decision is the outcome of Evaluate.
type Decision struct {
	Allowed         bool
	Reason          string
	AllowedBackends []corekit.Backend
	ApprovalMode    ApprovalMode
	TimeoutMs       int
	MaxRetries      int
}

func denied(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// EvaluateRequest is the input to Evaluate.
type EvaluateRequest struct {
	IntegrationId corekit.IntegrationId
	Capability    corekit.Capability
	ChatId        string
}

func backendSet(backends []corekit.Backend) map[corekit.Backend]bool {
	m := make(map[corekit.Backend]bool, len(backends))
	for _, b := range backends {
		m[b] = true
	}
	return m
}

func subtractBackends(from []corekit.Backend, remove map[corekit.Backend]bool) []corekit.Backend {
	out := make([]corekit.Backend, 0, len(from))
	for _, b := range from {
		if !remove[b] {
			out = append(out, b)
		}
	}
	return out
}

func lookupIntegration(cfg Config, id corekit.IntegrationId) (IntegrationPolicy, bool) {
	ip, ok := cfg.IntegrationPolicies[id]
	return ip, ok
}

func lookupCapability(ip IntegrationPolicy, cap corekit.Capability) (CapabilityPolicy, bool) {
	if ip.Capabilities == nil {
		return CapabilityPolicy{}, false
	}
	cp, ok := ip.Capabilities[cap]
	return cp, ok
}

// Evaluate runs the seven-step decision algorithm against a normalised
// Config, consulting store for approval-gated capabilities.
func Evaluate(cfg Config, store ApprovalStore, req EvaluateRequest) Decision {
	// Step 1: whole policy disabled -> wide-open allow.
	if !cfg.Enabled {
		return Decision{
			Allowed:         true,
			AllowedBackends: append([]corekit.Backend{}, corekit.AllBackends...),
			ApprovalMode:    ApprovalAlways,
			TimeoutMs:       cfg.DefaultTimeoutMs,
			MaxRetries:      cfg.DefaultMaxRetries,
		}
	}

	integrationPolicy, hasIntegration := lookupIntegration(cfg, req.IntegrationId)

	// Step 2: integration explicitly disabled.
	if hasIntegration && integrationPolicy.Enabled != nil && !*integrationPolicy.Enabled {
		return denied(fmt.Sprintf("Integration %s is disabled by policy", req.IntegrationId))
	}

	var capabilityPolicy CapabilityPolicy
	var hasCapability bool
	if hasIntegration {
		capabilityPolicy, hasCapability = lookupCapability(integrationPolicy, req.Capability)
	}

	// Step 3: capability explicitly disabled.
	if hasCapability && capabilityPolicy.Enabled != nil && !*capabilityPolicy.Enabled {
		return denied(fmt.Sprintf("Capability %s is disabled by policy", req.Capability))
	}

	// Step 4: compute the requested-allowed backend set. IntegrationPolicy
	// carries no allowedBackends field of its own, so "integration-or-default"
	// collapses to the policy-wide default whenever the capability doesn't
	// set one explicitly.
	var requestedAllowed []corekit.Backend
	if hasCapability && len(capabilityPolicy.AllowedBackends) > 0 {
		requestedAllowed = append([]corekit.Backend{}, capabilityPolicy.AllowedBackends...)
	} else {
		requestedAllowed = append([]corekit.Backend{}, cfg.DefaultAllowedBackends...)
	}
	requestedAllowed = subtractBackends(requestedAllowed, backendSet(cfg.BackendDenylist))

	explicitCapabilityBackends := hasCapability && len(capabilityPolicy.AllowedBackends) > 0
	if cfg.StrictMode && !explicitCapabilityBackends {
		narrowed := backendSet(requestedAllowed)
		if narrowed[corekit.BackendNative] {
			requestedAllowed = []corekit.Backend{corekit.BackendNative}
		} else {
			requestedAllowed = nil
		}
	}

	if len(requestedAllowed) == 0 {
		return denied("No connector backend is allowed for this request")
	}

	// Step 5: determine approval mode.
	approvalMode := cfg.DefaultApprovalMode
	isSensitive := false
	for _, c := range cfg.SensitiveCapabilities {
		if c == req.Capability {
			isSensitive = true
			break
		}
	}
	switch {
	case hasCapability && capabilityPolicy.ApprovalMode != "":
		approvalMode = capabilityPolicy.ApprovalMode
	case isSensitive:
		approvalMode = cfg.DefaultApprovalMode
	default:
		approvalMode = ApprovalAlways
	}

	timeoutMs := cfg.DefaultTimeoutMs
	if hasCapability && capabilityPolicy.TimeoutMs > 0 {
		timeoutMs = capabilityPolicy.TimeoutMs
	}
	maxRetries := cfg.DefaultMaxRetries
	if hasCapability && capabilityPolicy.MaxRetries != nil {
		maxRetries = *capabilityPolicy.MaxRetries
	}

	// Step 6: consult the approval store when approval is required.
	if approvalMode != ApprovalAlways {
		key := ApprovalKey{ChatId: req.ChatId, IntegrationId: req.IntegrationId, Capability: req.Capability}
		allowed := false
		switch approvalMode {
		case ApprovalSession:
			allowed = store.HasSessionApproval(key)
		case ApprovalOnce:
			allowed = store.ConsumeOneTimeApproval(key)
		}
		if !allowed {
			return Decision{
				Allowed:         false,
				Reason:          fmt.Sprintf("Approval required for %s/%s (mode: %s)", req.IntegrationId, req.Capability, approvalMode),
				AllowedBackends: requestedAllowed,
				ApprovalMode:    approvalMode,
				TimeoutMs:       timeoutMs,
				MaxRetries:      maxRetries,
			}
		}
	}

	// Step 7: allow.
	return Decision{
		Allowed:         true,
		AllowedBackends: requestedAllowed,
		ApprovalMode:    approvalMode,
		TimeoutMs:       timeoutMs,
		MaxRetries:      maxRetries,
	}
}
