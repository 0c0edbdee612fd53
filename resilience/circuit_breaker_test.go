package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connectorcore/connectorcore/corekit"
)

func TestCircuitBreakerStaysClosedBelowVolumeThreshold(t *testing.T) {
	cb := New("test", Config{ErrorThreshold: 0.5, VolumeThreshold: 10, WindowSize: time.Minute, BucketCount: 4}, corekit.NoOpLogger{})
	for i := 0; i < 9; i++ {
		cb.RecordFailure()
	}
	assert.Equal(t, "closed", cb.State())
	assert.True(t, cb.Allow())
}

func TestCircuitBreakerOpensAfterSustainedFailures(t *testing.T) {
	cb := New("test", Config{ErrorThreshold: 0.5, VolumeThreshold: 10, WindowSize: time.Minute, BucketCount: 4}, corekit.NoOpLogger{})
	for i := 0; i < 10; i++ {
		cb.RecordFailure()
	}
	assert.Equal(t, "open", cb.State())
	assert.False(t, cb.Allow())
}

func TestCircuitBreakerHalfOpenProbeCloses(t *testing.T) {
	cb := New("test", Config{ErrorThreshold: 0.5, VolumeThreshold: 2, SleepWindow: 10 * time.Millisecond, HalfOpenRequests: 1, WindowSize: time.Minute, BucketCount: 4}, corekit.NoOpLogger{})
	cb.RecordFailure()
	cb.RecordFailure()
	require.Equal(t, "open", cb.State())

	time.Sleep(20 * time.Millisecond)
	require.True(t, cb.Allow(), "breaker should admit a half-open probe after the sleep window")
	assert.Equal(t, "half-open", cb.State())

	cb.RecordSuccess()
	assert.Equal(t, "closed", cb.State())
}

func TestManagerCachesBreakersByRouteKey(t *testing.T) {
	m := NewManager(DefaultConfig(), corekit.NoOpLogger{})
	key := RouteKey(corekit.IntegrationS3, "storage.list", corekit.BackendNative)
	first := m.Get(key)
	second := m.Get(key)
	assert.Same(t, first, second)
}
