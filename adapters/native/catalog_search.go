package native

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/connectorcore/connectorcore/collab"
	"github.com/connectorcore/connectorcore/connectorconfig"
	"github.com/connectorcore/connectorcore/corekit"
)

// CatalogSearchAdapter implements the native stac/catalog.search route: a
// single POST /search against a STAC API.
type CatalogSearchAdapter struct {
	configStore collab.ConfigStore
	secretStore collab.SecretStore
	client      *http.Client
}

// NewCatalogSearchAdapter wires the process-wide traced HTTP client shared
// by every outbound-calling native adapter.
func NewCatalogSearchAdapter(configStore collab.ConfigStore, secretStore collab.SecretStore, client *http.Client) *CatalogSearchAdapter {
	return &CatalogSearchAdapter{configStore: configStore, secretStore: secretStore, client: client}
}

func (a *CatalogSearchAdapter) ID() string               { return "native:stac:catalog.search" }
func (a *CatalogSearchAdapter) Backend() corekit.Backend { return corekit.BackendNative }

func (a *CatalogSearchAdapter) Supports(key corekit.RoutingKey) bool {
	return key.IntegrationId == corekit.IntegrationSTAC && key.Capability == "catalog.search"
}

func searchURL(baseURL string) string {
	trimmed := strings.TrimRight(baseURL, "/")
	if strings.HasSuffix(trimmed, "/search") {
		return trimmed
	}
	return trimmed + "/search"
}

func buildSearchBody(input map[string]interface{}) map[string]interface{} {
	body := map[string]interface{}{}
	if v, ok := input["collections"]; ok {
		body["collections"] = v
	}
	if v, ok := input["bbox"].([]interface{}); ok && len(v) >= 4 {
		body["bbox"] = v
	}
	if v, ok := inputString(input, "datetime"); ok && v != "" {
		body["datetime"] = v
	}
	if v, ok := input["query"]; ok {
		body["query"] = v
	}
	if v, ok := input["intersects"].(map[string]interface{}); ok {
		body["intersects"] = v
	}
	limit := 25
	if v, ok := inputInt(input, "limit"); ok {
		limit = clamp(v, 1, 500)
	}
	body["limit"] = limit
	return body
}

func (a *CatalogSearchAdapter) Execute(ctx context.Context, req *corekit.ExecutionRequest, actx corekit.AdapterContext) corekit.AdapterResult {
	cfg, aerr := loadConfig(a.configStore, a.secretStore, corekit.IntegrationSTAC)
	if aerr != nil {
		return corekit.AdapterResult{Err: aerr}
	}
	stacCfg := cfg.(*connectorconfig.HTTPBaseConfig)

	payload, err := json.Marshal(buildSearchBody(req.Input))
	if err != nil {
		return corekit.AdapterResult{Err: &corekit.AdapterError{Code: corekit.ErrCodeValidationFailed, Message: err.Error()}}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, searchURL(stacCfg.BaseURL), bytes.NewReader(payload))
	if err != nil {
		return corekit.AdapterResult{Err: &corekit.AdapterError{Code: corekit.ErrCodeExecutionFailed, Message: err.Error(), Retryable: true}}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return corekit.AdapterResult{Err: &corekit.AdapterError{Code: corekit.ErrCodeExecutionFailed, Message: err.Error(), Retryable: true}}
	}
	defer resp.Body.Close()

	var decoded map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return corekit.AdapterResult{Err: &corekit.AdapterError{
			Code:      corekit.ErrCodeExecutionFailed,
			Message:   fmt.Sprintf("STAC search returned non-JSON response: %v", err),
			Retryable: resp.StatusCode >= 500,
		}}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return corekit.AdapterResult{Err: &corekit.AdapterError{
			Code:      corekit.ErrCodeExecutionFailed,
			Message:   fmt.Sprintf("STAC search returned status %d", resp.StatusCode),
			Retryable: resp.StatusCode >= 500,
			Details:   map[string]interface{}{"body": decoded},
		}}
	}

	features, _ := decoded["features"].([]interface{})
	data := map[string]interface{}{
		"returned": len(features),
		"features": features,
		"links":    decoded["links"],
	}
	if matched, ok := decoded["numberMatched"]; ok {
		data["matched"] = matched
	}
	return corekit.Ok(data, nil)
}
