package native

import (
	"context"
	"encoding/binary"
	"net/http"

	"github.com/connectorcore/connectorcore/collab"
	"github.com/connectorcore/connectorcore/connectorconfig"
	"github.com/connectorcore/connectorcore/corekit"
)

// TilesInspectArchiveAdapter implements the native pmtiles/tiles.inspectArchive
// route: parse the fixed-width PMTiles v3 header from the first bytes of a
// remote archive.
type TilesInspectArchiveAdapter struct {
	configStore collab.ConfigStore
	secretStore collab.SecretStore
	client      *http.Client
}

func NewTilesInspectArchiveAdapter(configStore collab.ConfigStore, secretStore collab.SecretStore, client *http.Client) *TilesInspectArchiveAdapter {
	return &TilesInspectArchiveAdapter{configStore: configStore, secretStore: secretStore, client: client}
}

func (a *TilesInspectArchiveAdapter) ID() string               { return "native:pmtiles:tiles.inspectArchive" }
func (a *TilesInspectArchiveAdapter) Backend() corekit.Backend { return corekit.BackendNative }

func (a *TilesInspectArchiveAdapter) Supports(key corekit.RoutingKey) bool {
	return key.IntegrationId == corekit.IntegrationPMTiles && key.Capability == "tiles.inspectArchive"
}

func (a *TilesInspectArchiveAdapter) Execute(ctx context.Context, req *corekit.ExecutionRequest, actx corekit.AdapterContext) corekit.AdapterResult {
	cfg, aerr := loadConfig(a.configStore, a.secretStore, corekit.IntegrationPMTiles)
	if aerr != nil {
		return corekit.AdapterResult{Err: aerr}
	}
	pmCfg := cfg.(*connectorconfig.HTTPBaseConfig)

	url, ok := inputString(req.Input, "url")
	if !ok || url == "" {
		url = pmCfg.BaseURL
	}

	headerBytes := 4096
	if v, ok := inputInt(req.Input, "headerBytes"); ok {
		headerBytes = clamp(v, 8, 65536)
	}

	probe, perr := headerProbe(ctx, a.client, url, headerBytes)
	if perr != nil {
		return corekit.AdapterResult{Err: perr}
	}

	parsed, verr := parsePMTilesHeader(probe.Bytes)
	if verr != nil {
		return corekit.AdapterResult{Err: verr}
	}

	parsed["headStatus"] = probe.HeadStatus
	parsed["rangeStatus"] = probe.RangeStatus
	parsed["contentLength"] = probe.ContentLength
	parsed["contentType"] = probe.ContentType
	parsed["acceptRanges"] = probe.AcceptRanges
	parsed["contentRange"] = probe.ContentRange
	parsed["requestedHeaderBytes"] = probe.RequestedHeaderBytes
	parsed["receivedHeaderBytes"] = probe.ReceivedHeaderBytes
	if len(probe.Warnings) > 0 {
		parsed["warnings"] = probe.Warnings
	}

	return corekit.Ok(parsed, nil)
}

var internalCompressionNames = map[byte]string{0: "Unknown", 1: "None", 2: "Gzip", 3: "Brotli", 4: "Zstd"}
var tileTypeNames = map[byte]string{0: "Unknown", 1: "Mvt", 2: "Png", 3: "Jpeg", 4: "Webp", 5: "Avif"}

func parsePMTilesHeader(b []byte) (map[string]interface{}, *corekit.AdapterError) {
	if len(b) < 8 || string(b[0:7]) != "PMTiles" {
		return nil, &corekit.AdapterError{Code: corekit.ErrCodeValidationFailed, Message: "not a PMTiles archive: missing PMTiles signature"}
	}
	version := int(b[7])

	result := map[string]interface{}{"version": version}
	if len(b) < 127 {
		result["warnings"] = []string{"fewer than 127 header bytes received; layout fields omitted"}
		return result, nil
	}

	order := binary.LittleEndian
	u64 := func(offset int) uint64 { return order.Uint64(b[offset : offset+8]) }
	i32 := func(offset int) int32 { return int32(order.Uint32(b[offset : offset+4])) }

	layout := map[string]interface{}{
		"rootDirOffset":   u64(8),
		"rootDirLength":   u64(16),
		"metadataOffset":  u64(24),
		"metadataLength":  u64(32),
		"leafDirsOffset":  u64(40),
		"leafDirsLength":  u64(48),
		"tileDataOffset":  u64(56),
		"tileDataLength":  u64(64),
		"addressedTiles":  u64(72),
		"tileEntries":     u64(80),
		"tileContents":    u64(88),
	}
	result["layout"] = layout

	clustered := b[96] != 0
	internalCompression := internalCompressionNames[b[97]]
	tileCompression := internalCompressionNames[b[98]]
	tileType := tileTypeNames[b[99]]

	result["clustered"] = clustered
	result["internalCompression"] = internalCompression
	result["tileCompression"] = tileCompression
	result["tileType"] = tileType

	result["zoom"] = map[string]interface{}{
		"min":    int(b[100]),
		"max":    int(b[101]),
		"center": int(b[118]),
	}

	degScale := 1e7
	result["bounds"] = map[string]interface{}{
		"minLon": float64(i32(102)) / degScale,
		"minLat": float64(i32(106)) / degScale,
		"maxLon": float64(i32(110)) / degScale,
		"maxLat": float64(i32(114)) / degScale,
	}
	result["center"] = map[string]interface{}{
		"lon": float64(i32(119)) / degScale,
		"lat": float64(i32(123)) / degScale,
	}

	return result, nil
}
