package native

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connectorcore/connectorcore/corekit"
)

func classicTIFFHeader(order binary.ByteOrder, sig [2]byte, ifdOffset uint32) []byte {
	b := make([]byte, 8)
	b[0], b[1] = sig[0], sig[1]
	order.PutUint16(b[2:4], 42)
	order.PutUint32(b[4:8], ifdOffset)
	return b
}

func bigTIFFHeader(order binary.ByteOrder, sig [2]byte, offsetSize uint16, ifdOffset uint64) []byte {
	b := make([]byte, 16)
	b[0], b[1] = sig[0], sig[1]
	order.PutUint16(b[2:4], 43)
	order.PutUint16(b[4:6], offsetSize)
	// bytes 6:8 are reserved, left zero.
	order.PutUint64(b[8:16], ifdOffset)
	return b
}

func TestParseTIFFHeaderClassicLittleEndian(t *testing.T) {
	header := classicTIFFHeader(binary.LittleEndian, [2]byte{'I', 'I'}, 8)
	parsed, aerr := parseTIFFHeader(header)
	require.Nil(t, aerr)
	assert.Equal(t, "little-endian", parsed["byteOrder"])
	assert.Equal(t, "ClassicTIFF", parsed["format"])
	assert.Equal(t, int64(8), parsed["firstIfdOffset"])
}

func TestParseTIFFHeaderClassicBigEndian(t *testing.T) {
	header := classicTIFFHeader(binary.BigEndian, [2]byte{'M', 'M'}, 16)
	parsed, aerr := parseTIFFHeader(header)
	require.Nil(t, aerr)
	assert.Equal(t, "big-endian", parsed["byteOrder"])
	assert.Equal(t, "ClassicTIFF", parsed["format"])
	assert.Equal(t, int64(16), parsed["firstIfdOffset"])
}

func TestParseTIFFHeaderBigTIFF(t *testing.T) {
	header := bigTIFFHeader(binary.LittleEndian, [2]byte{'I', 'I'}, 8, 128)
	parsed, aerr := parseTIFFHeader(header)
	require.Nil(t, aerr)
	assert.Equal(t, "BigTIFF", parsed["format"])
	assert.Equal(t, 8, parsed["bigTiffOffsetSize"])
	assert.Equal(t, int64(128), parsed["firstIfdOffset"])
}

func TestParseTIFFHeaderRejectsTooShort(t *testing.T) {
	_, aerr := parseTIFFHeader([]byte{'I', 'I', 0, 0})
	require.NotNil(t, aerr)
	assert.Equal(t, corekit.ErrCodeValidationFailed, aerr.Code)
}

func TestParseTIFFHeaderRejectsBadSignature(t *testing.T) {
	header := classicTIFFHeader(binary.LittleEndian, [2]byte{'X', 'X'}, 8)
	_, aerr := parseTIFFHeader(header)
	require.NotNil(t, aerr)
	assert.Contains(t, aerr.Message, "byte-order")
}

func TestParseTIFFHeaderRejectsUnrecognizedMagic(t *testing.T) {
	b := make([]byte, 8)
	b[0], b[1] = 'I', 'I'
	binary.LittleEndian.PutUint16(b[2:4], 7)
	_, aerr := parseTIFFHeader(b)
	require.NotNil(t, aerr)
	assert.Contains(t, aerr.Message, "magic")
}

func TestParseTIFFHeaderRejectsTruncatedBigTIFF(t *testing.T) {
	header := bigTIFFHeader(binary.LittleEndian, [2]byte{'I', 'I'}, 8, 128)
	_, aerr := parseTIFFHeader(header[:10])
	require.NotNil(t, aerr)
	assert.Contains(t, aerr.Message, "BigTIFF")
}
