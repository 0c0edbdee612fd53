package connectorconfig

import "github.com/connectorcore/connectorcore/corekit"

// PostgreSQLPostGISConfig configures the postgresql-postgis integration.
type PostgreSQLPostGISConfig struct {
	Host             string
	Port             int
	Database         string
	User             string
	Password         string
	SSLMode          string
	ConnectTimeoutMs int
}

var postgreSQLSecretFields = map[string]bool{"password": true}

func decodePostgreSQLPostGIS(m map[string]interface{}) *PostgreSQLPostGISConfig {
	return &PostgreSQLPostGISConfig{
		Host:             stringField(m, "host"),
		Port:             intField(m, "port"),
		Database:         stringField(m, "database"),
		User:             stringField(m, "user"),
		Password:         stringField(m, "password"),
		SSLMode:          stringField(m, "sslMode"),
		ConnectTimeoutMs: intField(m, "connectTimeoutMs"),
	}
}

func (c *PostgreSQLPostGISConfig) IntegrationId() corekit.IntegrationId {
	return corekit.IntegrationPostgreSQLPostGIS
}

func (c *PostgreSQLPostGISConfig) Validate() []Diagnostic {
	var diags []Diagnostic
	diags = requireNonEmpty(diags, "host", c.Host)
	diags = requirePort(diags, "port", c.Port)
	diags = requireNonEmpty(diags, "database", c.Database)
	diags = requireNonEmpty(diags, "user", c.User)
	diags = requireTimeoutRange(diags, "connectTimeoutMs", c.ConnectTimeoutMs)
	return diags
}

func (c *PostgreSQLPostGISConfig) Split() (map[string]interface{}, map[string]interface{}) {
	return splitFields(toMap(map[string]interface{}{
		"host":             c.Host,
		"port":             c.Port,
		"database":         c.Database,
		"user":             c.User,
		"password":         c.Password,
		"sslMode":          c.SSLMode,
		"connectTimeoutMs": c.ConnectTimeoutMs,
	}), postgreSQLSecretFields)
}

// S3Config configures the s3 integration.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	ForcePathStyle  bool
	AccessKeyId     string
	SecretAccessKey string
	SessionToken    string
}

var s3SecretFields = map[string]bool{"accessKeyId": true, "secretAccessKey": true, "sessionToken": true}

func decodeS3(m map[string]interface{}) *S3Config {
	return &S3Config{
		Bucket:          stringField(m, "bucket"),
		Region:          stringField(m, "region"),
		Endpoint:        stringField(m, "endpoint"),
		ForcePathStyle:  boolField(m, "forcePathStyle", true),
		AccessKeyId:     stringField(m, "accessKeyId"),
		SecretAccessKey: stringField(m, "secretAccessKey"),
		SessionToken:    stringField(m, "sessionToken"),
	}
}

func (c *S3Config) IntegrationId() corekit.IntegrationId { return corekit.IntegrationS3 }

func (c *S3Config) Validate() []Diagnostic {
	var diags []Diagnostic
	if len(c.Bucket) < 3 {
		diags = append(diags, Diagnostic{Path: "bucket", Message: "must be at least 3 characters"})
	}
	diags = requireNonEmpty(diags, "region", c.Region)
	diags = requireNonEmpty(diags, "accessKeyId", c.AccessKeyId)
	diags = requireNonEmpty(diags, "secretAccessKey", c.SecretAccessKey)
	if c.Endpoint != "" {
		diags = requireHTTPURL(diags, "endpoint", c.Endpoint)
	}
	return diags
}

func (c *S3Config) Split() (map[string]interface{}, map[string]interface{}) {
	return splitFields(toMap(map[string]interface{}{
		"bucket":          c.Bucket,
		"region":          c.Region,
		"endpoint":        c.Endpoint,
		"forcePathStyle":  c.ForcePathStyle,
		"accessKeyId":     c.AccessKeyId,
		"secretAccessKey": c.SecretAccessKey,
		"sessionToken":    c.SessionToken,
	}), s3SecretFields)
}

// HTTPBaseConfig configures the stac, cog, and pmtiles integrations, which
// share the same {baseUrl, timeoutMs} shape and carry no secret fields.
type HTTPBaseConfig struct {
	Id        corekit.IntegrationId
	BaseURL   string
	TimeoutMs int
}

func decodeHTTPBase(id corekit.IntegrationId, m map[string]interface{}) *HTTPBaseConfig {
	return &HTTPBaseConfig{Id: id, BaseURL: stringField(m, "baseUrl"), TimeoutMs: intField(m, "timeoutMs")}
}

func (c *HTTPBaseConfig) IntegrationId() corekit.IntegrationId { return c.Id }

func (c *HTTPBaseConfig) Validate() []Diagnostic {
	var diags []Diagnostic
	diags = requireHTTPURL(diags, "baseUrl", c.BaseURL)
	diags = requireTimeoutRange(diags, "timeoutMs", c.TimeoutMs)
	return diags
}

func (c *HTTPBaseConfig) Split() (map[string]interface{}, map[string]interface{}) {
	return splitFields(toMap(map[string]interface{}{
		"baseUrl":   c.BaseURL,
		"timeoutMs": c.TimeoutMs,
	}), nil)
}

// OGCConfig configures the wms and wmts integrations.
type OGCConfig struct {
	Id        corekit.IntegrationId
	BaseURL   string
	TimeoutMs int
	Version   string
}

func decodeOGC(id corekit.IntegrationId, m map[string]interface{}) *OGCConfig {
	return &OGCConfig{
		Id:        id,
		BaseURL:   stringField(m, "baseUrl"),
		TimeoutMs: intField(m, "timeoutMs"),
		Version:   stringField(m, "version"),
	}
}

func (c *OGCConfig) IntegrationId() corekit.IntegrationId { return c.Id }

func (c *OGCConfig) Validate() []Diagnostic {
	var diags []Diagnostic
	diags = requireHTTPURL(diags, "baseUrl", c.BaseURL)
	diags = requireTimeoutRange(diags, "timeoutMs", c.TimeoutMs)
	return diags
}

func (c *OGCConfig) Split() (map[string]interface{}, map[string]interface{}) {
	return splitFields(toMap(map[string]interface{}{
		"baseUrl":   c.BaseURL,
		"timeoutMs": c.TimeoutMs,
		"version":   c.Version,
	}), nil)
}

// DefaultVersion returns the per-integration default GetCapabilities
// version (WMS 1.3.0, WMTS 1.0.0) used when neither the request nor the
// config overrides it.
func (c *OGCConfig) DefaultVersion() string {
	if c.Id == corekit.IntegrationWMTS {
		return "1.0.0"
	}
	return "1.3.0"
}

// GoogleEarthEngineConfig configures the google-earth-engine integration.
type GoogleEarthEngineConfig struct {
	ServiceAccountJson string
	ProjectId          string
}

var geeSecretFields = map[string]bool{"serviceAccountJson": true}

func decodeGEE(m map[string]interface{}) *GoogleEarthEngineConfig {
	return &GoogleEarthEngineConfig{
		ServiceAccountJson: stringField(m, "serviceAccountJson"),
		ProjectId:          stringField(m, "projectId"),
	}
}

func (c *GoogleEarthEngineConfig) IntegrationId() corekit.IntegrationId {
	return corekit.IntegrationGoogleEarthEngine
}

func (c *GoogleEarthEngineConfig) Validate() []Diagnostic {
	var diags []Diagnostic
	diags = requireNonEmpty(diags, "serviceAccountJson", c.ServiceAccountJson)
	diags = requireNonEmpty(diags, "projectId", c.ProjectId)
	return diags
}

func (c *GoogleEarthEngineConfig) Split() (map[string]interface{}, map[string]interface{}) {
	return splitFields(toMap(map[string]interface{}{
		"serviceAccountJson": c.ServiceAccountJson,
		"projectId":          c.ProjectId,
	}), geeSecretFields)
}
