package connectorconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProcessConfigDefaultsWithNoFileOrEnv(t *testing.T) {
	cfg, err := LoadProcessConfig("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "connectorcore", cfg.TelemetryService)
	assert.Equal(t, "stdout", cfg.TelemetryExporter)
	assert.False(t, cfg.TelemetryEnabled)
	assert.Equal(t, 500, cfg.RunLogCapacity)
}

func TestLoadProcessConfigFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "process.yaml")
	body := "http:\n  port: 9090\ntelemetry:\n  enabled: true\n  exporter: otlp\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := LoadProcessConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.True(t, cfg.TelemetryEnabled)
	assert.Equal(t, "otlp", cfg.TelemetryExporter)
}

func TestLoadProcessConfigEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "process.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  port: 9090\n"), 0o600))

	t.Setenv("CONNECTORCORE_HTTP_PORT", "7070")
	t.Setenv("CONNECTORCORE_TELEMETRY_OTLPENDPOINT", "collector.internal:4317")

	cfg, err := LoadProcessConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.HTTPPort)
	assert.Equal(t, "collector.internal:4317", cfg.TelemetryOTLPEndpoint)
}

func TestLoadProcessConfigUsesConfigPathEnvVarWhenArgEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "process.yaml")
	require.NoError(t, os.WriteFile(path, []byte("redis:\n  addr: \"127.0.0.1:6379\"\n"), 0o600))
	t.Setenv("CONNECTORCORE_CONFIG_PATH", path)

	cfg, err := LoadProcessConfig("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6379", cfg.RedisAddr)
}
