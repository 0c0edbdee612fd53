package native

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"net/http"
	"strconv"

	"github.com/connectorcore/connectorcore/collab"
	"github.com/connectorcore/connectorcore/connectorconfig"
	"github.com/connectorcore/connectorcore/corekit"
)

// RasterInspectMetadataAdapter implements the native cog/raster.inspectMetadata
// route: parse a TIFF/BigTIFF header from the first bytes of a remote file.
type RasterInspectMetadataAdapter struct {
	configStore collab.ConfigStore
	secretStore collab.SecretStore
	client      *http.Client
}

func NewRasterInspectMetadataAdapter(configStore collab.ConfigStore, secretStore collab.SecretStore, client *http.Client) *RasterInspectMetadataAdapter {
	return &RasterInspectMetadataAdapter{configStore: configStore, secretStore: secretStore, client: client}
}

func (a *RasterInspectMetadataAdapter) ID() string               { return "native:cog:raster.inspectMetadata" }
func (a *RasterInspectMetadataAdapter) Backend() corekit.Backend { return corekit.BackendNative }

func (a *RasterInspectMetadataAdapter) Supports(key corekit.RoutingKey) bool {
	return key.IntegrationId == corekit.IntegrationCOG && key.Capability == "raster.inspectMetadata"
}

func (a *RasterInspectMetadataAdapter) Execute(ctx context.Context, req *corekit.ExecutionRequest, actx corekit.AdapterContext) corekit.AdapterResult {
	cfg, aerr := loadConfig(a.configStore, a.secretStore, corekit.IntegrationCOG)
	if aerr != nil {
		return corekit.AdapterResult{Err: aerr}
	}
	cogCfg := cfg.(*connectorconfig.HTTPBaseConfig)

	url, ok := inputString(req.Input, "url")
	if !ok || url == "" {
		url = cogCfg.BaseURL
	}

	headerBytes := 4096
	if v, ok := inputInt(req.Input, "headerBytes"); ok {
		headerBytes = clamp(v, 16, 65536)
	}

	probe, perr := headerProbe(ctx, a.client, url, headerBytes)
	if perr != nil {
		return corekit.AdapterResult{Err: perr}
	}

	parsed, verr := parseTIFFHeader(probe.Bytes)
	if verr != nil {
		return corekit.AdapterResult{Err: verr}
	}

	includeHex := false
	if v, ok := req.Input["includeHexDump"].(bool); ok {
		includeHex = v
	}
	if includeHex {
		n := len(probe.Bytes)
		if n > 128 {
			n = 128
		}
		parsed["hexDump"] = hex.EncodeToString(probe.Bytes[:n])
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

func parseTIFFHeader(b []byte) (map[string]interface{}, *corekit.AdapterError) {
	if len(b) < 8 {
		return nil, &corekit.AdapterError{Code: corekit.ErrCodeValidationFailed, Message: "not enough bytes to read a TIFF header"}
	}

	var order binary.ByteOrder
	var byteOrderName string
	switch {
	case b[0] == 'I' && b[1] == 'I':
		order = binary.LittleEndian
		byteOrderName = "little-endian"
	case b[0] == 'M' && b[1] == 'M':
		order = binary.BigEndian
		byteOrderName = "big-endian"
	default:
		return nil, &corekit.AdapterError{Code: corekit.ErrCodeValidationFailed, Message: "not a TIFF file: missing II/MM byte-order signature"}
	}

	magic := order.Uint16(b[2:4])
	result := map[string]interface{}{"byteOrder": byteOrderName}

	switch magic {
	case 42:
		if len(b) < 8 {
			return nil, &corekit.AdapterError{Code: corekit.ErrCodeValidationFailed, Message: "truncated classic TIFF header"}
		}
		result["format"] = "ClassicTIFF"
		result["firstIfdOffset"] = int64(order.Uint32(b[4:8]))
	case 43:
		if len(b) < 16 {
			return nil, &corekit.AdapterError{Code: corekit.ErrCodeValidationFailed, Message: "truncated BigTIFF header"}
		}
		offsetSize := order.Uint16(b[4:6])
		firstIfd := order.Uint64(b[8:16])
		result["format"] = "BigTIFF"
		result["bigTiffOffsetSize"] = int(offsetSize)
		if firstIfd <= (1<<53)-1 {
			result["firstIfdOffset"] = int64(firstIfd)
		} else {
			result["firstIfdOffset"] = strconv.FormatUint(firstIfd, 10)
		}
	default:
		return nil, &corekit.AdapterError{Code: corekit.ErrCodeValidationFailed, Message: "unrecognized TIFF magic number"}
	}

	return result, nil
}
