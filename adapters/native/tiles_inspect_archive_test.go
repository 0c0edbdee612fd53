package native

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connectorcore/connectorcore/corekit"
)

func pmtilesFixture(t *testing.T) []byte {
	t.Helper()
	b := make([]byte, 127)
	copy(b[0:7], "PMTiles")
	b[7] = 3 // version

	order := binary.LittleEndian
	order.PutUint64(b[8:16], 127)   // rootDirOffset
	order.PutUint64(b[16:24], 1000) // rootDirLength
	order.PutUint64(b[72:80], 42)   // addressedTiles

	b[96] = 1 // clustered
	b[97] = 2 // internalCompression = Gzip
	b[98] = 3 // tileCompression = Brotli
	b[99] = 1 // tileType = Mvt
	b[100] = 0
	b[101] = 14
	b[118] = 7

	order.PutUint32(b[102:106], uint32(int32(-1220000000))) // minLon
	order.PutUint32(b[106:110], uint32(int32(377700000)))   // minLat
	order.PutUint32(b[110:114], uint32(int32(-1210000000))) // maxLon
	order.PutUint32(b[114:118], uint32(int32(378700000)))   // maxLat
	order.PutUint32(b[119:123], uint32(int32(-1215000000))) // center lon
	order.PutUint32(b[123:127], uint32(int32(378200000)))   // center lat

	return b
}

func TestParsePMTilesHeaderFullFixture(t *testing.T) {
	parsed, aerr := parsePMTilesHeader(pmtilesFixture(t))
	require.Nil(t, aerr)

	assert.Equal(t, 3, parsed["version"])
	assert.Equal(t, true, parsed["clustered"])
	assert.Equal(t, "Gzip", parsed["internalCompression"])
	assert.Equal(t, "Brotli", parsed["tileCompression"])
	assert.Equal(t, "Mvt", parsed["tileType"])

	zoom := parsed["zoom"].(map[string]interface{})
	assert.Equal(t, 0, zoom["min"])
	assert.Equal(t, 14, zoom["max"])
	assert.Equal(t, 7, zoom["center"])

	layout := parsed["layout"].(map[string]interface{})
	assert.Equal(t, uint64(127), layout["rootDirOffset"])
	assert.Equal(t, uint64(1000), layout["rootDirLength"])
	assert.Equal(t, uint64(42), layout["addressedTiles"])

	bounds := parsed["bounds"].(map[string]interface{})
	assert.InDelta(t, -122.0, bounds["minLon"], 0.001)
	assert.InDelta(t, 37.77, bounds["minLat"], 0.001)
}

func TestParsePMTilesHeaderRejectsMissingSignature(t *testing.T) {
	_, aerr := parsePMTilesHeader([]byte("NotPMTiles"))
	require.NotNil(t, aerr)
	assert.Equal(t, corekit.ErrCodeValidationFailed, aerr.Code)
}

func TestParsePMTilesHeaderShortBodyReturnsVersionOnlyWithWarning(t *testing.T) {
	b := append([]byte("PMTiles"), 3)
	parsed, aerr := parsePMTilesHeader(b)
	require.Nil(t, aerr)
	assert.Equal(t, 3, parsed["version"])
	warnings, ok := parsed["warnings"].([]string)
	require.True(t, ok)
	assert.NotEmpty(t, warnings)
	assert.Nil(t, parsed["layout"])
}
