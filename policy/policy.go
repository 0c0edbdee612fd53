// Package policy implements the Policy Service: normalised configuration,
// the per-request allow/deny/approval decision algorithm, and approval
// mutation.
//
// Grounded on gomind's core/config.go for the struct-tag defaulting and
// "normalise on load, validate before use" idiom, generalised from one
// process-wide Config to a policy document with per-integration and
// per-capability overrides.
package policy

import (
	"sort"
	"strings"

	"github.com/connectorcore/connectorcore/corekit"
)

// ApprovalMode controls how a capability's invocation is gated.
type ApprovalMode string

const (
	ApprovalAlways  ApprovalMode = "always"
	ApprovalSession ApprovalMode = "session"
	ApprovalOnce    ApprovalMode = "once"
)

func isKnownApprovalMode(m ApprovalMode) bool {
	switch m {
	case ApprovalAlways, ApprovalSession, ApprovalOnce:
		return true
	default:
		return false
	}
}

// MinTimeoutMs and MaxTimeoutMs bound every configured timeout, per the
// Open Question decision recorded in DESIGN.md.
const (
	MinTimeoutMs     = 1000
	MaxTimeoutMs     = 60000
	DefaultTimeoutMs = 15000
	MaxRetriesCap    = 5
)

// CapabilityPolicy overrides behavior for one (integration, capability) pair.
type CapabilityPolicy struct {
	Enabled         *bool              `json:"enabled,omitempty"`
	ApprovalMode    ApprovalMode       `json:"approvalMode,omitempty"`
	TimeoutMs       int                `json:"timeoutMs,omitempty"`
	MaxRetries      *int               `json:"maxRetries,omitempty"`
	AllowedBackends []corekit.Backend  `json:"allowedBackends,omitempty"`
}

// IntegrationPolicy overrides behavior for one integration and its capabilities.
type IntegrationPolicy struct {
	Enabled      *bool                                    `json:"enabled,omitempty"`
	Capabilities map[corekit.Capability]CapabilityPolicy `json:"capabilities,omitempty"`
}

// Config is the whole policy document, persisted as one JSON blob via
// collab.PolicyStore.
type Config struct {
	Enabled                 bool                                        `json:"enabled"`
	StrictMode              bool                                        `json:"strictMode"`
	DefaultApprovalMode     ApprovalMode                                `json:"defaultApprovalMode"`
	DefaultTimeoutMs        int                                         `json:"defaultTimeoutMs"`
	DefaultMaxRetries       int                                         `json:"defaultMaxRetries"`
	DefaultAllowedBackends  []corekit.Backend                           `json:"defaultAllowedBackends"`
	BackendDenylist         []corekit.Backend                           `json:"backendDenylist"`
	SensitiveCapabilities   []corekit.Capability                        `json:"sensitiveCapabilities"`
	BlockedRemoteToolNames  []string                                    `json:"blockedRemoteToolNames"`
	IntegrationPolicies     map[corekit.IntegrationId]IntegrationPolicy `json:"integrationPolicies"`
}

// DefaultConfig returns the all-permissive defaults normalisation falls
// back on.
func DefaultConfig() Config {
	return Config{
		Enabled:                true,
		StrictMode:             false,
		DefaultApprovalMode:    ApprovalAlways,
		DefaultTimeoutMs:       DefaultTimeoutMs,
		DefaultMaxRetries:      1,
		DefaultAllowedBackends: append([]corekit.Backend{}, corekit.AllBackends...),
		IntegrationPolicies:    map[corekit.IntegrationId]IntegrationPolicy{},
	}
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func dedupeBackends(backends []corekit.Backend) []corekit.Backend {
	seen := make(map[corekit.Backend]bool)
	out := make([]corekit.Backend, 0, len(backends))
	for _, b := range backends {
		b = corekit.Backend(strings.TrimSpace(string(b)))
		if b == "" || !corekit.IsKnownBackend(b) || seen[b] {
			continue
		}
		seen[b] = true
		out = append(out, b)
	}
	return out
}

func dedupeCapabilities(caps []corekit.Capability) []corekit.Capability {
	seen := make(map[corekit.Capability]bool)
	out := make([]corekit.Capability, 0, len(caps))
	for _, c := range caps {
		c = corekit.Capability(strings.TrimSpace(string(c)))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func dedupeStrings(ss []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func normalizeApprovalMode(m ApprovalMode, fallback ApprovalMode) ApprovalMode {
	m = ApprovalMode(strings.TrimSpace(string(m)))
	if isKnownApprovalMode(m) {
		return m
	}
	return fallback
}

func boolPtr(b bool) *bool { return &b }

// Normalize trims strings, clamps timeouts/retries to their permitted
// ranges, drops unknown backends, deduplicates and sorts sensitive
// capability/blocked-tool-name lists, coerces a nil "enabled" to true, and
// applies defaults for missing fields. Normalize is idempotent: applying it
// twice yields the same result (spec §8's round-trip property).
func Normalize(c Config) Config {
	out := c

	out.DefaultApprovalMode = normalizeApprovalMode(out.DefaultApprovalMode, ApprovalAlways)
	if out.DefaultTimeoutMs <= 0 {
		out.DefaultTimeoutMs = DefaultTimeoutMs
	}
	out.DefaultTimeoutMs = clampInt(out.DefaultTimeoutMs, MinTimeoutMs, MaxTimeoutMs)
	out.DefaultMaxRetries = clampInt(out.DefaultMaxRetries, 0, MaxRetriesCap)

	if len(out.DefaultAllowedBackends) == 0 {
		out.DefaultAllowedBackends = append([]corekit.Backend{}, corekit.AllBackends...)
	} else {
		out.DefaultAllowedBackends = dedupeBackends(out.DefaultAllowedBackends)
	}
	out.BackendDenylist = dedupeBackends(out.BackendDenylist)
	out.SensitiveCapabilities = dedupeCapabilities(out.SensitiveCapabilities)
	out.BlockedRemoteToolNames = dedupeStrings(out.BlockedRemoteToolNames)

	if out.IntegrationPolicies == nil {
		out.IntegrationPolicies = map[corekit.IntegrationId]IntegrationPolicy{}
	}
	normalizedIntegrations := make(map[corekit.IntegrationId]IntegrationPolicy, len(out.IntegrationPolicies))
	for id, ip := range out.IntegrationPolicies {
		id = corekit.IntegrationId(strings.TrimSpace(string(id)))
		if id == "" {
			continue
		}
		normalizedIP := IntegrationPolicy{}
		if ip.Enabled == nil {
			normalizedIP.Enabled = boolPtr(true)
		} else {
			normalizedIP.Enabled = boolPtr(*ip.Enabled)
		}
		if len(ip.Capabilities) > 0 {
			normalizedIP.Capabilities = make(map[corekit.Capability]CapabilityPolicy, len(ip.Capabilities))
			for cap, cp := range ip.Capabilities {
				cap = corekit.Capability(strings.TrimSpace(string(cap)))
				if cap == "" {
					continue
				}
				normalizedCP := CapabilityPolicy{}
				if cp.Enabled == nil {
					normalizedCP.Enabled = boolPtr(true)
				} else {
					normalizedCP.Enabled = boolPtr(*cp.Enabled)
				}
				if cp.ApprovalMode != "" {
					normalizedCP.ApprovalMode = normalizeApprovalMode(cp.ApprovalMode, "")
				}
				if cp.TimeoutMs > 0 {
					normalizedCP.TimeoutMs = clampInt(cp.TimeoutMs, MinTimeoutMs, MaxTimeoutMs)
				}
				if cp.MaxRetries != nil {
					retries := clampInt(*cp.MaxRetries, 0, MaxRetriesCap)
					normalizedCP.MaxRetries = &retries
				}
				if len(cp.AllowedBackends) > 0 {
					normalizedCP.AllowedBackends = dedupeBackends(cp.AllowedBackends)
				}
				normalizedIP.Capabilities[cap] = normalizedCP
			}
		}
		normalizedIntegrations[id] = normalizedIP
	}
	out.IntegrationPolicies = normalizedIntegrations

	return out
}
