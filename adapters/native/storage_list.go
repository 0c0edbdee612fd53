package native

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/connectorcore/connectorcore/collab"
	"github.com/connectorcore/connectorcore/connectorconfig"
	"github.com/connectorcore/connectorcore/corekit"
)

// StorageListAdapter implements the native s3/storage.list route: a SigV4
// signed ListObjectsV2 call, with no dependency on an AWS SDK.
type StorageListAdapter struct {
	configStore collab.ConfigStore
	secretStore collab.SecretStore
	client      *http.Client
}

func NewStorageListAdapter(configStore collab.ConfigStore, secretStore collab.SecretStore, client *http.Client) *StorageListAdapter {
	return &StorageListAdapter{configStore: configStore, secretStore: secretStore, client: client}
}

func (a *StorageListAdapter) ID() string               { return "native:s3:storage.list" }
func (a *StorageListAdapter) Backend() corekit.Backend { return corekit.BackendNative }

func (a *StorageListAdapter) Supports(key corekit.RoutingKey) bool {
	return key.IntegrationId == corekit.IntegrationS3 && key.Capability == "storage.list"
}

func (a *StorageListAdapter) Execute(ctx context.Context, req *corekit.ExecutionRequest, actx corekit.AdapterContext) corekit.AdapterResult {
	cfg, aerr := loadConfig(a.configStore, a.secretStore, corekit.IntegrationS3)
	if aerr != nil {
		return corekit.AdapterResult{Err: aerr}
	}
	s3Cfg := cfg.(*connectorconfig.S3Config)

	prefix, _ := inputString(req.Input, "prefix")
	maxKeys := 50
	if v, ok := inputInt(req.Input, "maxKeys"); ok {
		maxKeys = clamp(v, 1, 1000)
	}

	host, path := s3HostAndPath(s3Cfg)
	query := url.Values{}
	query.Set("list-type", "2")
	query.Set("max-keys", fmt.Sprintf("%d", maxKeys))
	if prefix != "" {
		query.Set("prefix", prefix)
	}

	now := time.Now().UTC()
	amzDate := now.Format("20060102T150405Z")
	dateStamp := now.Format("20060102")

	signedURL := "https://" + host + path + "?" + awsCanonicalQuery(query)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, signedURL, nil)
	if err != nil {
		return corekit.AdapterResult{Err: &corekit.AdapterError{Code: corekit.ErrCodeExecutionFailed, Message: err.Error(), Retryable: true}}
	}

	emptyPayloadHash := sha256Hex(nil)
	httpReq.Header.Set("host", host)
	httpReq.Header.Set("x-amz-content-sha256", emptyPayloadHash)
	httpReq.Header.Set("x-amz-date", amzDate)
	if s3Cfg.SessionToken != "" {
		httpReq.Header.Set("x-amz-security-token", s3Cfg.SessionToken)
	}

	authHeader := signS3Request(s3Cfg, httpReq, path, query, amzDate, dateStamp, emptyPayloadHash)
	httpReq.Header.Set("Authorization", authHeader)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return corekit.AdapterResult{Err: &corekit.AdapterError{Code: corekit.ErrCodeExecutionFailed, Message: err.Error(), Retryable: true}}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return corekit.AdapterResult{Err: &corekit.AdapterError{Code: corekit.ErrCodeExecutionFailed, Message: err.Error(), Retryable: true}}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		code, message := parseS3Error(body)
		msg := fmt.Sprintf("ListObjectsV2 returned status %d", resp.StatusCode)
		if code != "" {
			msg = fmt.Sprintf("%s: %s (%s)", msg, message, code)
		}
		return corekit.AdapterResult{Err: &corekit.AdapterError{
			Code:      corekit.ErrCodeExecutionFailed,
			Message:   msg,
			Retryable: resp.StatusCode >= 500,
		}}
	}

	objects, truncated, err := parseListObjectsResult(body)
	if err != nil {
		return corekit.AdapterResult{Err: &corekit.AdapterError{Code: corekit.ErrCodeExecutionFailed, Message: err.Error()}}
	}

	return corekit.Ok(map[string]interface{}{
		"objects":     objects,
		"count":       len(objects),
		"isTruncated": truncated,
		"prefix":      prefix,
	}, nil)
}

func s3HostAndPath(cfg *connectorconfig.S3Config) (host, path string) {
	if cfg.Endpoint != "" {
		u, err := url.Parse(cfg.Endpoint)
		if err == nil && u.Host != "" {
			host = u.Host
		} else {
			host = cfg.Endpoint
		}
	} else {
		host = fmt.Sprintf("s3.%s.amazonaws.com", cfg.Region)
	}

	if cfg.ForcePathStyle {
		return host, "/" + cfg.Bucket + "/"
	}
	return cfg.Bucket + "." + host, "/"
}

// awsRFC3986Escape matches AWS SigV4's URI-encoding rule: url.QueryEscape
// with spaces as %20 instead of '+'. QueryEscape already percent-encodes
// !'()*; the replacer below spells that reserved set out explicitly.
func awsRFC3986Escape(s string) string {
	escaped := url.QueryEscape(s)
	escaped = strings.ReplaceAll(escaped, "+", "%20")
	replacer := strings.NewReplacer(
		"!", "%21",
		"'", "%27",
		"(", "%28",
		")", "%29",
		"*", "%2A",
	)
	return replacer.Replace(escaped)
}

func awsCanonicalQuery(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(awsRFC3986Escape(k))
		b.WriteByte('=')
		b.WriteString(awsRFC3986Escape(values.Get(k)))
	}
	return b.String()
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func hmacSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

func signS3Request(cfg *connectorconfig.S3Config, req *http.Request, path string, query url.Values, amzDate, dateStamp, payloadHash string) string {
	signedHeaderNames := []string{"host", "x-amz-content-sha256", "x-amz-date"}
	if cfg.SessionToken != "" {
		signedHeaderNames = append(signedHeaderNames, "x-amz-security-token")
	}
	sort.Strings(signedHeaderNames)

	var canonicalHeaders strings.Builder
	for _, name := range signedHeaderNames {
		canonicalHeaders.WriteString(name)
		canonicalHeaders.WriteByte(':')
		canonicalHeaders.WriteString(req.Header.Get(name))
		canonicalHeaders.WriteByte('\n')
	}
	signedHeaders := strings.Join(signedHeaderNames, ";")

	canonicalRequest := strings.Join([]string{
		http.MethodGet,
		awsEncodePath(path),
		awsCanonicalQuery(query),
		canonicalHeaders.String(),
		signedHeaders,
		payloadHash,
	}, "\n")

	scope := fmt.Sprintf("%s/%s/s3/aws4_request", dateStamp, cfg.Region)
	stringToSign := strings.Join([]string{
		"AWS4-HMAC-SHA256",
		amzDate,
		scope,
		sha256Hex([]byte(canonicalRequest)),
	}, "\n")

	kDate := hmacSHA256([]byte("AWS4"+cfg.SecretAccessKey), []byte(dateStamp))
	kRegion := hmacSHA256(kDate, []byte(cfg.Region))
	kService := hmacSHA256(kRegion, []byte("s3"))
	kSigning := hmacSHA256(kService, []byte("aws4_request"))
	signature := hex.EncodeToString(hmacSHA256(kSigning, []byte(stringToSign)))

	return fmt.Sprintf("AWS4-HMAC-SHA256 Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		cfg.AccessKeyId, scope, signedHeaders, signature)
}

func awsEncodePath(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = awsRFC3986Escape(seg)
	}
	return strings.Join(segments, "/")
}

type s3Error struct {
	Code    string `xml:"Code"`
	Message string `xml:"Message"`
}

func parseS3Error(body []byte) (code, message string) {
	var e s3Error
	if err := xml.Unmarshal(body, &e); err != nil {
		return "", ""
	}
	return e.Code, e.Message
}

type s3Contents struct {
	Key          string `xml:"Key"`
	Size         int64  `xml:"Size"`
	LastModified string `xml:"LastModified"`
}

type s3ListResult struct {
	Contents    []s3Contents `xml:"Contents"`
	IsTruncated bool         `xml:"IsTruncated"`
}

func parseListObjectsResult(body []byte) ([]map[string]interface{}, bool, error) {
	var result s3ListResult
	if err := xml.Unmarshal(body, &result); err != nil {
		return nil, false, err
	}
	objects := make([]map[string]interface{}, 0, len(result.Contents))
	for _, c := range result.Contents {
		objects = append(objects, map[string]interface{}{
			"key":          c.Key,
			"size":         c.Size,
			"lastModified": c.LastModified,
		})
	}
	return objects, result.IsTruncated, nil
}
