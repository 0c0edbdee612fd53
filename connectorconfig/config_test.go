package connectorconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connectorcore/connectorcore/corekit"
)

func TestSplitMergeRoundTrip(t *testing.T) {
	cases := []struct {
		id     corekit.IntegrationId
		fields map[string]interface{}
	}{
		{corekit.IntegrationPostgreSQLPostGIS, map[string]interface{}{
			"host": "db.example.com", "port": float64(5432), "database": "gis",
			"user": "reader", "password": "s3cret", "sslMode": "require",
		}},
		{corekit.IntegrationS3, map[string]interface{}{
			"region": "us-east-1", "bucket": "my-bucket", "accessKeyId": "AKIA...",
			"secretAccessKey": "shh", "forcePathStyle": true,
		}},
		{corekit.IntegrationSTAC, map[string]interface{}{
			"baseUrl": "https://stac.example.com", "timeoutMs": float64(15000),
		}},
		{corekit.IntegrationWMS, map[string]interface{}{
			"baseUrl": "https://wms.example.com", "timeoutMs": float64(15000), "version": "1.3.0",
		}},
		{corekit.IntegrationGoogleEarthEngine, map[string]interface{}{
			"serviceAccountJson": `{"client_email":"a@b.iam.gserviceaccount.com"}`,
			"projectId":          "my-project",
		}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(string(tc.id), func(t *testing.T) {
			cfg, err := FromMap(tc.id, tc.fields)
			require.NoError(t, err)

			public, secret := cfg.Split()
			merged, err := Merge(tc.id, public, secret)
			require.NoError(t, err)

			assert.Equal(t, cfg, merged)
		})
	}
}

func TestValidateRejectsMissingRequiredFields(t *testing.T) {
	cfg, err := FromMap(corekit.IntegrationS3, map[string]interface{}{})
	require.NoError(t, err)
	diags := cfg.Validate()
	assert.NotEmpty(t, diags)
}
