package native

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderProbeReadsRangeBytesAndHeadMetadata(t *testing.T) {
	body := []byte("0123456789ABCDEF")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/tiff")
		w.Header().Set("Accept-Ranges", "bytes")
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", "16")
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Header().Set("Content-Range", "bytes 0-7/16")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write(body[:8])
	}))
	defer server.Close()

	result, aerr := headerProbe(context.Background(), server.Client(), server.URL, 8)
	require.Nil(t, aerr)
	assert.Equal(t, http.StatusOK, result.HeadStatus)
	assert.Equal(t, http.StatusPartialContent, result.RangeStatus)
	assert.Equal(t, "image/tiff", result.ContentType)
	assert.Equal(t, "bytes", result.AcceptRanges)
	assert.Equal(t, body[:8], result.Bytes)
	assert.Equal(t, 8, result.RequestedHeaderBytes)
	assert.Equal(t, 8, result.ReceivedHeaderBytes)
	assert.Empty(t, result.Warnings)
}

func TestHeaderProbeTreatsUnsupportedHeadAsWarningNotFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("PMTiles3"))
	}))
	defer server.Close()

	result, aerr := headerProbe(context.Background(), server.Client(), server.URL, 8)
	require.Nil(t, aerr)
	assert.Equal(t, http.StatusMethodNotAllowed, result.HeadStatus)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "405")
}

func TestHeaderProbeFailsWhenRangeRequestRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
	}))
	defer server.Close()

	_, aerr := headerProbe(context.Background(), server.Client(), server.URL, 8)
	require.NotNil(t, aerr)
	assert.False(t, aerr.Retryable)
}
