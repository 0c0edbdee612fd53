// Package connectorconfig declares the per-IntegrationId typed
// configuration variants, their field schemas, and the public/secret
// split used when persisting them through collab.ConfigStore /
// collab.SecretStore.
//
// Grounded on gomind's core/config.go struct-tag validation idiom
// (required/type/range checks collected into a flat diagnostics list),
// generalised from one process Config to a tagged union keyed by
// corekit.IntegrationId.
package connectorconfig

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/connectorcore/connectorcore/corekit"
	"github.com/connectorcore/connectorcore/policy"
)

// Diagnostic is one field-level validation failure.
type Diagnostic struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// IntegrationConfig is the public contract every typed config variant
// implements: field-level validation and the secret-field split/merge.
type IntegrationConfig interface {
	IntegrationId() corekit.IntegrationId
	Validate() []Diagnostic
	// Split separates fields into public and secret maps, keyed by the
	// integration's fixed secret-field set.
	Split() (public map[string]interface{}, secret map[string]interface{})
}

// Merge reunites public and secret maps for integration id into the typed
// IntegrationConfig it describes, prior to use by an adapter.
func Merge(id corekit.IntegrationId, public, secret map[string]interface{}) (IntegrationConfig, error) {
	merged := make(map[string]interface{}, len(public)+len(secret))
	for k, v := range public {
		merged[k] = v
	}
	for k, v := range secret {
		merged[k] = v
	}
	return FromMap(id, merged)
}

// FromMap decodes a flat field map into the typed IntegrationConfig for id.
func FromMap(id corekit.IntegrationId, m map[string]interface{}) (IntegrationConfig, error) {
	switch id {
	case corekit.IntegrationPostgreSQLPostGIS:
		return decodePostgreSQLPostGIS(m), nil
	case corekit.IntegrationS3:
		return decodeS3(m), nil
	case corekit.IntegrationSTAC:
		return decodeHTTPBase(id, m), nil
	case corekit.IntegrationCOG:
		return decodeHTTPBase(id, m), nil
	case corekit.IntegrationPMTiles:
		return decodeHTTPBase(id, m), nil
	case corekit.IntegrationWMS:
		return decodeOGC(id, m), nil
	case corekit.IntegrationWMTS:
		return decodeOGC(id, m), nil
	case corekit.IntegrationGoogleEarthEngine:
		return decodeGEE(m), nil
	default:
		return nil, fmt.Errorf("connectorconfig: unknown integration id %q", id)
	}
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func intField(m map[string]interface{}, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func boolField(m map[string]interface{}, key string, fallback bool) bool {
	if v, ok := m[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return fallback
}

func requireNonEmpty(diags []Diagnostic, path, value string) []Diagnostic {
	if strings.TrimSpace(value) == "" {
		diags = append(diags, Diagnostic{Path: path, Message: "must not be empty"})
	}
	return diags
}

func requireHTTPURL(diags []Diagnostic, path, value string) []Diagnostic {
	if strings.TrimSpace(value) == "" {
		return append(diags, Diagnostic{Path: path, Message: "must not be empty"})
	}
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		diags = append(diags, Diagnostic{Path: path, Message: "must be an http(s) URL"})
	}
	return diags
}

func requirePort(diags []Diagnostic, path string, value int) []Diagnostic {
	if value < 1 || value > 65535 {
		diags = append(diags, Diagnostic{Path: path, Message: "must be in range [1, 65535]"})
	}
	return diags
}

func requireTimeoutRange(diags []Diagnostic, path string, value int) []Diagnostic {
	if value != 0 && (value < policy.MinTimeoutMs || value > policy.MaxTimeoutMs) {
		diags = append(diags, Diagnostic{
			Path:    path,
			Message: fmt.Sprintf("must be in range [%d, %d]", policy.MinTimeoutMs, policy.MaxTimeoutMs),
		})
	}
	return diags
}

func toMap(fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func splitFields(fields map[string]interface{}, secretKeys map[string]bool) (public, secret map[string]interface{}) {
	public = make(map[string]interface{})
	secret = make(map[string]interface{})
	for k, v := range fields {
		if isZero(v) {
			continue
		}
		if secretKeys[k] {
			secret[k] = v
		} else {
			public[k] = v
		}
	}
	return
}

func isZero(v interface{}) bool {
	switch x := v.(type) {
	case string:
		return x == ""
	case int:
		return x == 0
	case nil:
		return true
	default:
		return false
	}
}
