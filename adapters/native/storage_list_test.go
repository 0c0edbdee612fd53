package native

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connectorcore/connectorcore/connectorconfig"
)

func TestS3HostAndPathVirtualHostedStyle(t *testing.T) {
	cfg := &connectorconfig.S3Config{Bucket: "geo-archive", Region: "us-west-2"}
	host, path := s3HostAndPath(cfg)
	assert.Equal(t, "geo-archive.s3.us-west-2.amazonaws.com", host)
	assert.Equal(t, "/", path)
}

func TestS3HostAndPathForcePathStyle(t *testing.T) {
	cfg := &connectorconfig.S3Config{Bucket: "geo-archive", Region: "us-west-2", ForcePathStyle: true}
	host, path := s3HostAndPath(cfg)
	assert.Equal(t, "s3.us-west-2.amazonaws.com", host)
	assert.Equal(t, "/geo-archive/", path)
}

func TestS3HostAndPathCustomEndpoint(t *testing.T) {
	cfg := &connectorconfig.S3Config{Bucket: "geo-archive", Endpoint: "https://minio.internal:9000", ForcePathStyle: true}
	host, path := s3HostAndPath(cfg)
	assert.Equal(t, "minio.internal:9000", host)
	assert.Equal(t, "/geo-archive/", path)
}

func TestAwsCanonicalQuerySortsKeysAndEscapes(t *testing.T) {
	values := url.Values{}
	values.Set("prefix", "tiles/2024 survey")
	values.Set("max-keys", "50")
	values.Set("list-type", "2")
	encoded := awsCanonicalQuery(values)
	assert.Equal(t, "list-type=2&max-keys=50&prefix=tiles%2F2024%20survey", encoded)
}

func TestAwsRFC3986EscapeHandlesReservedCharacters(t *testing.T) {
	assert.Equal(t, "a%21b%27c%28d%29e%2A", awsRFC3986Escape("a!b'c(d)e*"))
	assert.Equal(t, "a%20b", awsRFC3986Escape("a b"))
}

func TestAwsEncodePathEscapesEachSegment(t *testing.T) {
	assert.Equal(t, "/tiles/2024%20survey/", awsEncodePath("/tiles/2024 survey/"))
}

func TestSignS3RequestIsDeterministicAndCoversSecurityToken(t *testing.T) {
	cfg := &connectorconfig.S3Config{
		Bucket: "geo-archive", Region: "us-west-2",
		AccessKeyId: "AKIDEXAMPLE", SecretAccessKey: "secretkey",
	}
	query := url.Values{}
	query.Set("list-type", "2")
	query.Set("max-keys", "50")

	req, err := http.NewRequest(http.MethodGet, "https://geo-archive.s3.us-west-2.amazonaws.com/", nil)
	require.NoError(t, err)
	req.Header.Set("host", "geo-archive.s3.us-west-2.amazonaws.com")
	req.Header.Set("x-amz-content-sha256", sha256Hex(nil))
	req.Header.Set("x-amz-date", "20250101T000000Z")

	first := signS3Request(cfg, req, "/", query, "20250101T000000Z", "20250101", sha256Hex(nil))
	second := signS3Request(cfg, req, "/", query, "20250101T000000Z", "20250101", sha256Hex(nil))
	assert.Equal(t, first, second, "signing the same request twice must be deterministic")
	assert.Contains(t, first, "Credential=AKIDEXAMPLE/20250101/us-west-2/s3/aws4_request")
	assert.Contains(t, first, "SignedHeaders=host;x-amz-content-sha256;x-amz-date")
	assert.NotContains(t, first, "x-amz-security-token")

	cfg.SessionToken = "session-token"
	req.Header.Set("x-amz-security-token", cfg.SessionToken)
	withToken := signS3Request(cfg, req, "/", query, "20250101T000000Z", "20250101", sha256Hex(nil))
	assert.Contains(t, withToken, "SignedHeaders=host;x-amz-content-sha256;x-amz-date;x-amz-security-token")
	assert.NotEqual(t, first, withToken)
}

const sampleListObjectsXML = `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult>
  <IsTruncated>true</IsTruncated>
  <Contents>
    <Key>tiles/2024/cell-01.tif</Key>
    <Size>10485760</Size>
    <LastModified>2025-01-01T00:00:00.000Z</LastModified>
  </Contents>
  <Contents>
    <Key>tiles/2024/cell-02.tif</Key>
    <Size>20971520</Size>
    <LastModified>2025-01-02T00:00:00.000Z</LastModified>
  </Contents>
</ListBucketResult>`

func TestParseListObjectsResult(t *testing.T) {
	objects, truncated, err := parseListObjectsResult([]byte(sampleListObjectsXML))
	require.NoError(t, err)
	assert.True(t, truncated)
	require.Len(t, objects, 2)
	assert.Equal(t, "tiles/2024/cell-01.tif", objects[0]["key"])
	assert.Equal(t, int64(10485760), objects[0]["size"])
}

const sampleS3ErrorXML = `<?xml version="1.0" encoding="UTF-8"?>
<Error>
  <Code>AccessDenied</Code>
  <Message>Access Denied</Message>
</Error>`

func TestParseS3Error(t *testing.T) {
	code, message := parseS3Error([]byte(sampleS3ErrorXML))
	assert.Equal(t, "AccessDenied", code)
	assert.Equal(t, "Access Denied", message)
}
