// Package native implements the Native Adapter per-capability contracts
// (spec §4.5): sql.query, catalog.search, raster.inspectMetadata,
// tiles.inspectArchive, tiles.getCapabilities (WMS/WMTS), storage.list,
// and gee.listAlgorithms, plus the shared header-probe utility they build
// on.
//
// Grounded on gomind's orchestration package for the "adapter holds
// injected collaborators, no private transport" shape, and on
// telemetryadapter.NewTracedHTTPClient for the one process-wide HTTP
// client every outbound-calling adapter shares (per [ADD 4.5.8]).
package native

import (
	"fmt"

	"github.com/connectorcore/connectorcore/collab"
	"github.com/connectorcore/connectorcore/connectorconfig"
	"github.com/connectorcore/connectorcore/corekit"
)

// loadConfig resolves the merged, typed configuration for id from
// configStore/secretStore, per spec §6's "core layers returned fields on
// top of an optional credential fallback" (the credential-fallback
// layering itself is left to the ConfigStore implementation; loadConfig
// only performs the public/secret merge and typed decode).
func loadConfig(configStore collab.ConfigStore, secretStore collab.SecretStore, id corekit.IntegrationId) (connectorconfig.IntegrationConfig, *corekit.AdapterError) {
	public, ok := configStore.GetConfig(id)
	if !ok {
		return nil, &corekit.AdapterError{Code: corekit.ErrCodeNotConfigured, Message: fmt.Sprintf("no configuration for %s", id)}
	}
	var secret map[string]interface{}
	if secretStore != nil {
		secret = secretStore.GetSecretConfig(id)
	}
	cfg, err := connectorconfig.Merge(id, public, secret)
	if err != nil {
		return nil, &corekit.AdapterError{Code: corekit.ErrCodeNotConfigured, Message: err.Error()}
	}
	if diags := cfg.Validate(); len(diags) > 0 {
		return nil, &corekit.AdapterError{
			Code:    corekit.ErrCodeNotConfigured,
			Message: fmt.Sprintf("invalid configuration for %s: %s", id, diags[0].Message),
			Details: map[string]interface{}{"diagnostics": diags},
		}
	}
	return cfg, nil
}

func inputString(input map[string]interface{}, key string) (string, bool) {
	v, ok := input[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func inputInt(input map[string]interface{}, key string) (int, bool) {
	switch v := input[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
