// Command connectorcore wires the Capability Registry, Policy Service,
// Execution Service, native/remote adapters, and the HTTP front door into
// one runnable process.
//
// Grounded on gomind's examples/basic-agent's signal-driven graceful
// shutdown shape, generalised from one agent's HTTP server to the
// connector execution core's own front door.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/connectorcore/connectorcore/adapters/native"
	"github.com/connectorcore/connectorcore/adapters/remote"
	"github.com/connectorcore/connectorcore/cmd/connectorcore/httpapi"
	"github.com/connectorcore/connectorcore/collab"
	"github.com/connectorcore/connectorcore/connectorconfig"
	"github.com/connectorcore/connectorcore/corekit"
	"github.com/connectorcore/connectorcore/execution"
	"github.com/connectorcore/connectorcore/policy"
	"github.com/connectorcore/connectorcore/registry"
	"github.com/connectorcore/connectorcore/telemetryadapter"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML process config file")
	flag.Parse()

	procCfg, err := connectorconfig.LoadProcessConfig(*configPath)
	if err != nil {
		log.Fatalf("connectorcore: failed to load process config: %v", err)
	}

	logger := telemetryadapter.NewJSONLogger(telemetryadapter.JSONLoggerOptions{
		ServiceName: procCfg.TelemetryService,
		Level:       procCfg.LogLevel,
		FilePath:    procCfg.LogFilePath,
	})

	var telemetry corekit.Telemetry = corekit.NoOpTelemetry{}
	if procCfg.TelemetryEnabled {
		shutdownTracing, err := telemetryadapter.BootstrapTracerProvider(context.Background(),
			procCfg.TelemetryService, procCfg.TelemetryExporter, procCfg.TelemetryOTLPEndpoint)
		if err != nil {
			log.Fatalf("connectorcore: failed to bootstrap tracing: %v", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(shutdownCtx); err != nil {
				logger.Warn("tracer shutdown failed", map[string]interface{}{"error": err.Error()})
			}
		}()
		telemetry = telemetryadapter.NewOTelTelemetry(procCfg.TelemetryService)
	}
	httpClient := telemetryadapter.NewTracedHTTPClient(&http.Client{Timeout: 60 * time.Second})

	configStore, err := collab.NewFileConfigStore(procCfg.ConfigStorePath, logger)
	if err != nil {
		log.Fatalf("connectorcore: failed to open config store: %v", err)
	}
	secretStore := collab.NewFileSecretStore(procCfg.SecretStorePath)
	policyStore, err := collab.NewFilePolicyStore(procCfg.PolicyStorePath, logger)
	if err != nil {
		log.Fatalf("connectorcore: failed to open policy store: %v", err)
	}

	approvalStore := resolveApprovalStore(procCfg, logger)
	policyService := policy.NewService(policyStore, approvalStore, logger)

	reg := registry.New()
	registerNativeAdapters(reg, configStore, secretStore, httpClient)
	registerRemoteAdapter(reg, collab.NewStaticToolBus())

	svc := execution.NewService(reg, policyService, procCfg.RunLogCapacity,
		execution.WithLogger(logger),
		execution.WithTelemetry(telemetry),
	)

	router := httpapi.NewRouter(svc, logger)

	server := &http.Server{
		Addr:    ":" + itoa(procCfg.HTTPPort),
		Handler: router,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal", nil)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", map[string]interface{}{"error": err.Error()})
		}
		cancel()
	}()

	logger.Info("connectorcore listening", map[string]interface{}{"port": procCfg.HTTPPort})
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("connectorcore: server error: %v", err)
	}
	<-ctx.Done()
	logger.Info("connectorcore stopped", nil)
}

func resolveApprovalStore(procCfg *connectorconfig.ProcessConfig, logger corekit.Logger) policy.ApprovalStore {
	if procCfg.RedisAddr == "" {
		return policy.NewMemoryApprovals()
	}
	client := redis.NewClient(&redis.Options{Addr: procCfg.RedisAddr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("redis approval store unavailable, falling back to in-memory", map[string]interface{}{"error": err.Error()})
		return policy.NewMemoryApprovals()
	}
	return policy.NewRedisApprovals(client, "connectorcore:approvals", logger)
}

// registerNativeAdapters wires every native capability route named in the
// capability set (spec §6), each with priority 10 so native is the
// default primary backend ahead of the remote fallback (priority 80).
func registerNativeAdapters(reg *registry.Registry, configStore collab.ConfigStore, secretStore collab.SecretStore, httpClient *http.Client) {
	sqlAdapter := native.NewSQLQueryAdapter(configStore, secretStore, nil)
	reg.Register(registry.Registration{
		IntegrationId: corekit.IntegrationPostgreSQLPostGIS,
		Capability:    "sql.query",
		Adapter:       sqlAdapter,
		Description:   "Run a read-only SQL query against the configured PostGIS database",
		Sensitivity:   corekit.SensitivitySensitive,
		Priority:      10,
	})

	reg.Register(registry.Registration{
		IntegrationId: corekit.IntegrationSTAC,
		Capability:    "catalog.search",
		Adapter:       native.NewCatalogSearchAdapter(configStore, secretStore, httpClient),
		Description:   "Search a STAC catalog for matching items",
		Priority:      10,
	})

	reg.Register(registry.Registration{
		IntegrationId: corekit.IntegrationCOG,
		Capability:    "raster.inspectMetadata",
		Adapter:       native.NewRasterInspectMetadataAdapter(configStore, secretStore, httpClient),
		Description:   "Inspect a Cloud Optimized GeoTIFF's header",
		Priority:      10,
	})

	reg.Register(registry.Registration{
		IntegrationId: corekit.IntegrationPMTiles,
		Capability:    "tiles.inspectArchive",
		Adapter:       native.NewTilesInspectArchiveAdapter(configStore, secretStore, httpClient),
		Description:   "Inspect a PMTiles archive's header",
		Priority:      10,
	})

	reg.Register(registry.Registration{
		IntegrationId: corekit.IntegrationWMS,
		Capability:    "tiles.getCapabilities",
		Adapter:       native.NewTilesGetCapabilitiesAdapter(corekit.IntegrationWMS, configStore, secretStore, httpClient),
		Description:   "Fetch and summarize a WMS GetCapabilities document",
		Priority:      10,
	})

	reg.Register(registry.Registration{
		IntegrationId: corekit.IntegrationWMTS,
		Capability:    "tiles.getCapabilities",
		Adapter:       native.NewTilesGetCapabilitiesAdapter(corekit.IntegrationWMTS, configStore, secretStore, httpClient),
		Description:   "Fetch and summarize a WMTS GetCapabilities document",
		Priority:      10,
	})

	reg.Register(registry.Registration{
		IntegrationId: corekit.IntegrationS3,
		Capability:    "storage.list",
		Adapter:       native.NewStorageListAdapter(configStore, secretStore, httpClient),
		Description:   "List objects in an S3 bucket",
		Sensitivity:   corekit.SensitivitySensitive,
		Priority:      10,
	})

	reg.Register(registry.Registration{
		IntegrationId: corekit.IntegrationGoogleEarthEngine,
		Capability:    "gee.listAlgorithms",
		Adapter:       native.NewGEEListAlgorithmsAdapter(configStore, secretStore, httpClient),
		Description:   "List available Earth Engine algorithms for a project",
		Priority:      10,
	})
}

// registerRemoteAdapter wires the MCP-style fallback mapping, one entry
// per capability in the same capability set, at priority 80.
func registerRemoteAdapter(reg *registry.Registry, bus collab.RemoteToolBus) {
	mappings := []remote.ToolMapping{
		{IntegrationId: corekit.IntegrationPostgreSQLPostGIS, Capability: "sql.query", ToolName: "postgis_sql_query"},
		{IntegrationId: corekit.IntegrationSTAC, Capability: "catalog.search", ToolName: "stac_search_catalog"},
		{IntegrationId: corekit.IntegrationCOG, Capability: "raster.inspectMetadata", ToolName: "cog_inspect_metadata"},
		{IntegrationId: corekit.IntegrationPMTiles, Capability: "tiles.inspectArchive", ToolName: "pmtiles_inspect_archive"},
		{IntegrationId: corekit.IntegrationWMS, Capability: "tiles.getCapabilities", ToolName: "wms_get_capabilities"},
		{IntegrationId: corekit.IntegrationWMTS, Capability: "tiles.getCapabilities", ToolName: "wmts_get_capabilities"},
		{IntegrationId: corekit.IntegrationS3, Capability: "storage.list", ToolName: "s3_storage_list"},
		{IntegrationId: corekit.IntegrationGoogleEarthEngine, Capability: "gee.listAlgorithms", ToolName: "gee_list_algorithms"},
	}
	adapter := remote.New(bus, mappings)
	for _, m := range mappings {
		reg.Register(registry.Registration{
			IntegrationId: m.IntegrationId,
			Capability:    m.Capability,
			Adapter:       adapter,
			Description:   "Remote tool-bus fallback for " + string(m.Capability),
			Priority:      80,
		})
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [12]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
