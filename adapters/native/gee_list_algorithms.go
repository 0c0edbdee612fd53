package native

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/connectorcore/connectorcore/collab"
	"github.com/connectorcore/connectorcore/connectorconfig"
	"github.com/connectorcore/connectorcore/corekit"
)

const geeScope = "https://www.googleapis.com/auth/earthengine.readonly"
const geeDiscoveryURL = "https://earthengine.googleapis.com/$discovery/rest?version=v1"
const geeDefaultRootURL = "https://earthengine.googleapis.com/"
const geeDefaultAlgorithmsPath = "v1/projects/{+project}/algorithms"

// GEEListAlgorithmsAdapter implements the native google-earth-engine/
// gee.listAlgorithms route: service-account JWT minting against Google's
// OAuth token endpoint, followed by a discovery-driven REST call.
type GEEListAlgorithmsAdapter struct {
	configStore collab.ConfigStore
	secretStore collab.SecretStore
	client      *http.Client
}

func NewGEEListAlgorithmsAdapter(configStore collab.ConfigStore, secretStore collab.SecretStore, client *http.Client) *GEEListAlgorithmsAdapter {
	return &GEEListAlgorithmsAdapter{configStore: configStore, secretStore: secretStore, client: client}
}

func (a *GEEListAlgorithmsAdapter) ID() string               { return "native:google-earth-engine:gee.listAlgorithms" }
func (a *GEEListAlgorithmsAdapter) Backend() corekit.Backend { return corekit.BackendNative }

func (a *GEEListAlgorithmsAdapter) Supports(key corekit.RoutingKey) bool {
	return key.IntegrationId == corekit.IntegrationGoogleEarthEngine && key.Capability == "gee.listAlgorithms"
}

type serviceAccount struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

func (a *GEEListAlgorithmsAdapter) Execute(ctx context.Context, req *corekit.ExecutionRequest, actx corekit.AdapterContext) corekit.AdapterResult {
	cfg, aerr := loadConfig(a.configStore, a.secretStore, corekit.IntegrationGoogleEarthEngine)
	if aerr != nil {
		return corekit.AdapterResult{Err: aerr}
	}
	geeCfg := cfg.(*connectorconfig.GoogleEarthEngineConfig)

	var sa serviceAccount
	if err := json.Unmarshal([]byte(geeCfg.ServiceAccountJson), &sa); err != nil {
		return corekit.AdapterResult{Err: &corekit.AdapterError{Code: corekit.ErrCodeNotConfigured, Message: "serviceAccountJson is not valid JSON: " + err.Error()}}
	}
	if sa.ClientEmail == "" || sa.PrivateKey == "" {
		return corekit.AdapterResult{Err: &corekit.AdapterError{Code: corekit.ErrCodeNotConfigured, Message: "serviceAccountJson is missing client_email or private_key"}}
	}
	tokenURI := sa.TokenURI
	if tokenURI == "" {
		tokenURI = "https://oauth2.googleapis.com/token"
	}

	discovery, derr := fetchDiscoveryDocument(ctx, a.client)
	if derr != nil {
		return corekit.AdapterResult{Err: derr}
	}

	tokenSource, terr := mintGEEAccessToken(ctx, a.client, sa, tokenURI)
	if terr != nil {
		return corekit.AdapterResult{Err: terr}
	}

	algorithmsURL, uerr := buildAlgorithmsURL(discovery, geeCfg.ProjectId)
	if uerr != nil {
		return corekit.AdapterResult{Err: &corekit.AdapterError{Code: corekit.ErrCodeExecutionFailed, Message: uerr.Error()}}
	}

	pageSize := 25
	if v, ok := inputInt(req.Input, "pageSize"); ok {
		pageSize = clamp(v, 1, 100)
	}
	q := algorithmsURL.Query()
	q.Set("pageSize", fmt.Sprintf("%d", pageSize))
	if pageToken, ok := inputString(req.Input, "pageToken"); ok && pageToken != "" {
		q.Set("pageToken", pageToken)
	}
	algorithmsURL.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, algorithmsURL.String(), nil)
	if err != nil {
		return corekit.AdapterResult{Err: &corekit.AdapterError{Code: corekit.ErrCodeExecutionFailed, Message: err.Error(), Retryable: true}}
	}
	httpReq.Header.Set("X-Goog-User-Project", geeCfg.ProjectId)

	// oauth2.NewClient layers the minted bearer token onto a.client's
	// transport (tracing included) via oauth2.Transport, rather than
	// setting the Authorization header by hand.
	tokenClient := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, a.client), tokenSource)
	resp, err := tokenClient.Do(httpReq)
	if err != nil {
		return corekit.AdapterResult{Err: &corekit.AdapterError{Code: corekit.ErrCodeExecutionFailed, Message: err.Error(), Retryable: true}}
	}
	defer resp.Body.Close()

	var decoded map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return corekit.AdapterResult{Err: &corekit.AdapterError{Code: corekit.ErrCodeExecutionFailed, Message: "algorithms response was not JSON: " + err.Error(), Retryable: resp.StatusCode >= 500}}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return corekit.AdapterResult{Err: &corekit.AdapterError{
			Code:      corekit.ErrCodeExecutionFailed,
			Message:   googleErrorMessage(decoded, resp.StatusCode),
			Retryable: resp.StatusCode >= 500,
		}}
	}

	result := map[string]interface{}{
		"projectId":  geeCfg.ProjectId,
		"algorithms": decoded["algorithms"],
	}
	if next, ok := decoded["nextPageToken"]; ok {
		result["nextPageToken"] = next
	}
	return corekit.Ok(result, nil)
}

func fetchDiscoveryDocument(ctx context.Context, client *http.Client) (map[string]interface{}, *corekit.AdapterError) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, geeDiscoveryURL, nil)
	if err != nil {
		return nil, &corekit.AdapterError{Code: corekit.ErrCodeExecutionFailed, Message: err.Error(), Retryable: true}
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, &corekit.AdapterError{Code: corekit.ErrCodeExecutionFailed, Message: err.Error(), Retryable: true}
	}
	defer resp.Body.Close()

	var discovery map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&discovery); err != nil {
		return nil, &corekit.AdapterError{Code: corekit.ErrCodeExecutionFailed, Message: "discovery document was not a JSON object: " + err.Error(), Retryable: resp.StatusCode >= 500}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &corekit.AdapterError{Code: corekit.ErrCodeExecutionFailed, Message: fmt.Sprintf("discovery document fetch returned status %d", resp.StatusCode), Retryable: resp.StatusCode >= 500}
	}
	return discovery, nil
}

// mintGEEAccessToken signs the service-account JWT assertion with
// golang-jwt/jwt/v5 (RS256, Google's OAuth token endpoint accepts nothing
// else for this grant type), exchanges it for an access token, and hands
// the result back as an oauth2.TokenSource so the caller can drive the
// actual API call through oauth2.NewClient instead of setting bearer
// headers by hand.
func mintGEEAccessToken(ctx context.Context, client *http.Client, sa serviceAccount, tokenURI string) (oauth2.TokenSource, *corekit.AdapterError) {
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(sa.PrivateKey))
	if err != nil {
		return nil, &corekit.AdapterError{Code: corekit.ErrCodeNotConfigured, Message: "serviceAccountJson private_key is not a valid RSA PEM key: " + err.Error()}
	}

	now := time.Now()
	expiresAt := now.Add(time.Hour)
	claims := jwt.MapClaims{
		"iss":   sa.ClientEmail,
		"scope": geeScope,
		"aud":   tokenURI,
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signedJWT, err := token.SignedString(privateKey)
	if err != nil {
		return nil, &corekit.AdapterError{Code: corekit.ErrCodeExecutionFailed, Message: "failed to sign service-account JWT: " + err.Error()}
	}

	form := url.Values{}
	form.Set("grant_type", "urn:ietf:params:oauth:grant-type:jwt-bearer")
	form.Set("assertion", signedJWT)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &corekit.AdapterError{Code: corekit.ErrCodeExecutionFailed, Message: err.Error(), Retryable: true}
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, &corekit.AdapterError{Code: corekit.ErrCodeExecutionFailed, Message: err.Error(), Retryable: true}
	}
	defer resp.Body.Close()

	var tokenResp map[string]interface{}
	body, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(body, &tokenResp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("token endpoint returned status %d", resp.StatusCode)
		if desc, ok := tokenResp["error_description"].(string); ok && desc != "" {
			msg = desc
		} else if e, ok := tokenResp["error"].(string); ok && e != "" {
			msg = e
		}
		return nil, &corekit.AdapterError{Code: corekit.ErrCodeExecutionFailed, Message: msg, Retryable: resp.StatusCode >= 500}
	}

	accessToken, ok := tokenResp["access_token"].(string)
	if !ok || accessToken == "" {
		return nil, &corekit.AdapterError{Code: corekit.ErrCodeExecutionFailed, Message: "token endpoint response did not include access_token"}
	}
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer", Expiry: expiresAt}), nil
}

func buildAlgorithmsURL(discovery map[string]interface{}, projectId string) (*url.URL, error) {
	rootURL := geeDefaultRootURL
	if v, ok := discovery["rootUrl"].(string); ok && v != "" {
		rootURL = v
	}

	path := geeDefaultAlgorithmsPath
	if p, ok := navigateDiscoveryPath(discovery); ok {
		path = p
	}

	replacer := strings.NewReplacer(
		"projects/{+project}", "projects/"+projectId,
		"projects/{project}", "projects/"+projectId,
		"projects/{projectId}", "projects/"+projectId,
		"{+project}", "projects/"+projectId,
		"{project}", "projects/"+projectId,
		"{projectId}", "projects/"+projectId,
	)
	fullPath := replacer.Replace(path)

	return url.Parse(strings.TrimRight(rootURL, "/") + "/" + strings.TrimLeft(fullPath, "/"))
}

// navigateDiscoveryPath walks discovery.resources.projects.resources
// .algorithms.methods.list.path, returning false when any segment is
// absent or not of the expected shape.
func navigateDiscoveryPath(discovery map[string]interface{}) (string, bool) {
	get := func(m map[string]interface{}, key string) (map[string]interface{}, bool) {
		v, ok := m[key].(map[string]interface{})
		return v, ok
	}
	resources, ok := get(discovery, "resources")
	if !ok {
		return "", false
	}
	projects, ok := get(resources, "projects")
	if !ok {
		return "", false
	}
	projectResources, ok := get(projects, "resources")
	if !ok {
		return "", false
	}
	algorithms, ok := get(projectResources, "algorithms")
	if !ok {
		return "", false
	}
	methods, ok := get(algorithms, "methods")
	if !ok {
		return "", false
	}
	list, ok := get(methods, "list")
	if !ok {
		return "", false
	}
	path, ok := list["path"].(string)
	return path, ok
}

func googleErrorMessage(decoded map[string]interface{}, status int) string {
	if errObj, ok := decoded["error"].(map[string]interface{}); ok {
		status, _ := errObj["status"].(string)
		message, _ := errObj["message"].(string)
		if message != "" {
			if status != "" {
				return fmt.Sprintf("%s: %s", status, message)
			}
			return message
		}
	}
	return fmt.Sprintf("algorithms list returned status %d", status)
}
