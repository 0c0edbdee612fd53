package connectorconfig

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "CONNECTORCORE_"

// ProcessConfig is the process-wide configuration for cmd/connectorcore:
// where the dev file-backed collaborator stores live, how big the run log
// and HTTP front door are, and whether telemetry is enabled. Per-
// integration credentials are never here — those live behind
// collab.ConfigStore/collab.SecretStore.
type ProcessConfig struct {
	HTTPPort int `koanf:"http.port"`

	ConfigStorePath string `koanf:"store.configpath"`
	SecretStorePath string `koanf:"store.secretpath"`
	PolicyStorePath string `koanf:"store.policypath"`

	RunLogCapacity int `koanf:"runlog.capacity"`

	TelemetryEnabled bool   `koanf:"telemetry.enabled"`
	TelemetryService string `koanf:"telemetry.servicename"`
	// TelemetryExporter selects how spans leave the process: "otlp" dials
	// TelemetryOTLPEndpoint over gRPC, "stdout" pretty-prints spans to
	// stdout for local development, anything else disables export.
	TelemetryExporter    string `koanf:"telemetry.exporter"`
	TelemetryOTLPEndpoint string `koanf:"telemetry.otlpendpoint"`

	LogLevel    string `koanf:"log.level"`
	LogFilePath string `koanf:"log.filepath"`

	RedisAddr string `koanf:"redis.addr"`
}

func defaultProcessConfig() map[string]interface{} {
	return map[string]interface{}{
		"http.port": 8080,

		"store.configpath": "./data/config.json",
		"store.secretpath": "./data/secrets.json",
		"store.policypath": "./data/policy.json",

		"runlog.capacity": 500,

		"telemetry.enabled":      false,
		"telemetry.servicename":  "connectorcore",
		"telemetry.exporter":     "stdout",
		"telemetry.otlpendpoint": "",

		"log.level":    "info",
		"log.filepath": "",

		"redis.addr": "",
	}
}

// LoadProcessConfig layers defaults, an optional YAML file (path from
// configPath or $CONNECTORCORE_CONFIG_PATH), then environment variables
// prefixed CONNECTORCORE_ (CONNECTORCORE_HTTP_PORT -> http.port).
func LoadProcessConfig(configPath string) (*ProcessConfig, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultProcessConfig(), "."), nil); err != nil {
		return nil, fmt.Errorf("connectorconfig: loading defaults: %w", err)
	}

	if configPath == "" {
		configPath = os.Getenv(envPrefix + "CONFIG_PATH")
	}
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("connectorconfig: loading %s: %w", configPath, err)
			}
		}
	}

	envTransform := func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".")
	}
	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("connectorconfig: loading environment: %w", err)
	}

	var cfg ProcessConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("connectorconfig: unmarshalling process config: %w", err)
	}
	return &cfg, nil
}
