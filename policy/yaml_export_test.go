package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connectorcore/connectorcore/corekit"
)

func TestExportImportYAMLRoundTrip(t *testing.T) {
	cfg := Normalize(Config{
		Enabled:             true,
		StrictMode:          true,
		DefaultApprovalMode: ApprovalSession,
		IntegrationPolicies: map[corekit.IntegrationId]IntegrationPolicy{
			corekit.IntegrationS3: {
				Capabilities: map[corekit.Capability]CapabilityPolicy{
					"storage.list": {ApprovalMode: ApprovalOnce},
				},
			},
		},
	})

	data, err := ExportYAML(cfg)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	imported, err := ImportYAML(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, imported)
}
