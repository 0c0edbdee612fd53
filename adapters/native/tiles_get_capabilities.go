package native

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/connectorcore/connectorcore/collab"
	"github.com/connectorcore/connectorcore/connectorconfig"
	"github.com/connectorcore/connectorcore/corekit"
)

// TilesGetCapabilitiesAdapter implements the native wms/tiles.getCapabilities
// and wmts/tiles.getCapabilities routes: both speak the same GetCapabilities
// request shape and differ only in XML layer-name extraction.
type TilesGetCapabilitiesAdapter struct {
	integrationId corekit.IntegrationId
	configStore   collab.ConfigStore
	secretStore   collab.SecretStore
	client        *http.Client
}

func NewTilesGetCapabilitiesAdapter(integrationId corekit.IntegrationId, configStore collab.ConfigStore, secretStore collab.SecretStore, client *http.Client) *TilesGetCapabilitiesAdapter {
	return &TilesGetCapabilitiesAdapter{integrationId: integrationId, configStore: configStore, secretStore: secretStore, client: client}
}

func (a *TilesGetCapabilitiesAdapter) ID() string {
	return fmt.Sprintf("native:%s:tiles.getCapabilities", a.integrationId)
}
func (a *TilesGetCapabilitiesAdapter) Backend() corekit.Backend { return corekit.BackendNative }

func (a *TilesGetCapabilitiesAdapter) Supports(key corekit.RoutingKey) bool {
	return key.IntegrationId == a.integrationId && key.Capability == "tiles.getCapabilities"
}

var exceptionRe = regexp.MustCompile(`ServiceException|ExceptionReport|ows:ExceptionReport`)

func (a *TilesGetCapabilitiesAdapter) Execute(ctx context.Context, req *corekit.ExecutionRequest, actx corekit.AdapterContext) corekit.AdapterResult {
	cfg, aerr := loadConfig(a.configStore, a.secretStore, a.integrationId)
	if aerr != nil {
		return corekit.AdapterResult{Err: aerr}
	}
	ogcCfg := cfg.(*connectorconfig.OGCConfig)

	service := "WMS"
	if a.integrationId == corekit.IntegrationWMTS {
		service = "WMTS"
	}

	version := ogcCfg.DefaultVersion()
	if ogcCfg.Version != "" {
		version = ogcCfg.Version
	}
	if v, ok := inputString(req.Input, "version"); ok && v != "" {
		version = v
	}

	reqURL, err := buildGetCapabilitiesURL(ogcCfg.BaseURL, service, version)
	if err != nil {
		return corekit.AdapterResult{Err: &corekit.AdapterError{Code: corekit.ErrCodeValidationFailed, Message: err.Error()}}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return corekit.AdapterResult{Err: &corekit.AdapterError{Code: corekit.ErrCodeExecutionFailed, Message: err.Error(), Retryable: true}}
	}
	resp, err := a.client.Do(httpReq)
	if err != nil {
		return corekit.AdapterResult{Err: &corekit.AdapterError{Code: corekit.ErrCodeExecutionFailed, Message: err.Error(), Retryable: true}}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return corekit.AdapterResult{Err: &corekit.AdapterError{Code: corekit.ErrCodeExecutionFailed, Message: err.Error(), Retryable: true}}
	}
	text := string(body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return corekit.AdapterResult{Err: &corekit.AdapterError{
			Code:      corekit.ErrCodeExecutionFailed,
			Message:   fmt.Sprintf("GetCapabilities returned status %d", resp.StatusCode),
			Retryable: resp.StatusCode >= 500,
		}}
	}
	if exceptionRe.MatchString(text) {
		return corekit.AdapterResult{Err: &corekit.AdapterError{Code: corekit.ErrCodeExecutionFailed, Message: "server returned a service exception document"}}
	}

	var layers []string
	if service == "WMS" {
		layers = extractWMSLayers(text)
	} else {
		layers = extractWMTSLayers(text)
	}

	sample := layers
	if len(sample) > 25 {
		sample = sample[:25]
	}

	snippet := text
	if len(snippet) > 4000 {
		snippet = snippet[:4000]
	}

	return corekit.Ok(map[string]interface{}{
		"service":      service,
		"version":      version,
		"sampleLayers": sample,
		"layerCount":   len(layers),
		"xmlSnippet":   snippet,
	}, nil)
}

func buildGetCapabilitiesURL(baseURL, service, version string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("service", service)
	q.Set("request", "GetCapabilities")
	q.Set("version", version)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

var wmsLayerRe = regexp.MustCompile(`(?is)<Layer\b[^>]*>.*?<Name>(.*?)</Name>`)
var wmtsLayerBlockRe = regexp.MustCompile(`(?is)<(?:wmts:)?Layer\b[^>]*>(.*?)</(?:wmts:)?Layer>`)
var wmtsIdentifierRe = regexp.MustCompile(`(?is)<(?:ows:)?Identifier>(.*?)</(?:ows:)?Identifier>`)

var xmlEntityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
)

func decodeXMLEntities(s string) string { return xmlEntityReplacer.Replace(s) }

func dedupePreserveOrder(names []string) []string {
	seen := make(map[string]bool, len(names))
	var out []string
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

func extractWMSLayers(xml string) []string {
	matches := wmsLayerRe.FindAllStringSubmatch(xml, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, decodeXMLEntities(strings.TrimSpace(m[1])))
	}
	return dedupePreserveOrder(names)
}

func extractWMTSLayers(xml string) []string {
	blocks := wmtsLayerBlockRe.FindAllStringSubmatch(xml, -1)
	names := make([]string, 0, len(blocks))
	for _, block := range blocks {
		id := wmtsIdentifierRe.FindStringSubmatch(block[1])
		if id == nil {
			continue
		}
		names = append(names, decodeXMLEntities(strings.TrimSpace(id[1])))
	}
	return dedupePreserveOrder(names)
}
