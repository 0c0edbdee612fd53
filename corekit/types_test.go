package corekit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOkBuildsSuccessfulResult(t *testing.T) {
	result := Ok(map[string]interface{}{"rows": 1}, nil)
	assert.True(t, result.OK)
	assert.Nil(t, result.Err)
	assert.Equal(t, map[string]interface{}{"rows": 1}, result.Data)
}

func TestFailBuildsFailedResultWithError(t *testing.T) {
	result := Fail(ErrCodeTimeout, "adapter call timed out", true, nil)
	assert.False(t, result.OK)
	require := result.Err
	if require == nil {
		t.Fatal("expected Err to be set")
	}
	assert.Equal(t, ErrCodeTimeout, require.Code)
	assert.True(t, require.Retryable)
	assert.Equal(t, "TIMEOUT: adapter call timed out", require.Error())
}

func TestExecutionRequestKeyUsesIntegrationAndCapability(t *testing.T) {
	req := &ExecutionRequest{IntegrationId: IntegrationS3, Capability: "storage.list"}
	assert.Equal(t, RoutingKey{IntegrationId: IntegrationS3, Capability: "storage.list"}, req.Key())
}
