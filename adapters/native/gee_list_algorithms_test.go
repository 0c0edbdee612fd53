package native

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNavigateDiscoveryPathFindsNestedListPath(t *testing.T) {
	discovery := map[string]interface{}{
		"resources": map[string]interface{}{
			"projects": map[string]interface{}{
				"resources": map[string]interface{}{
					"algorithms": map[string]interface{}{
						"methods": map[string]interface{}{
							"list": map[string]interface{}{
								"path": "v1/{+project}/algorithms",
							},
						},
					},
				},
			},
		},
	}
	path, ok := navigateDiscoveryPath(discovery)
	require.True(t, ok)
	assert.Equal(t, "v1/{+project}/algorithms", path)
}

func TestNavigateDiscoveryPathMissingSegmentReturnsFalse(t *testing.T) {
	_, ok := navigateDiscoveryPath(map[string]interface{}{"resources": map[string]interface{}{}})
	assert.False(t, ok)

	_, ok = navigateDiscoveryPath(map[string]interface{}{})
	assert.False(t, ok)
}

func TestBuildAlgorithmsURLUsesDiscoveredRootAndPath(t *testing.T) {
	discovery := map[string]interface{}{
		"rootUrl": "https://earthengine.googleapis.com/",
		"resources": map[string]interface{}{
			"projects": map[string]interface{}{
				"resources": map[string]interface{}{
					"algorithms": map[string]interface{}{
						"methods": map[string]interface{}{
							"list": map[string]interface{}{"path": "v1/{+project}/algorithms"},
						},
					},
				},
			},
		},
	}
	u, err := buildAlgorithmsURL(discovery, "my-project")
	require.NoError(t, err)
	assert.Equal(t, "https://earthengine.googleapis.com/v1/projects/my-project/algorithms", u.String())
}

func TestBuildAlgorithmsURLFallsBackToDefaultPathWhenDiscoveryIncomplete(t *testing.T) {
	u, err := buildAlgorithmsURL(map[string]interface{}{}, "my-project")
	require.NoError(t, err)
	assert.Equal(t, "https://earthengine.googleapis.com/v1/projects/my-project/algorithms", u.String())
}

func TestGoogleErrorMessageUsesStructuredErrorBody(t *testing.T) {
	decoded := map[string]interface{}{
		"error": map[string]interface{}{
			"status":  "PERMISSION_DENIED",
			"message": "caller does not have permission",
		},
	}
	assert.Equal(t, "PERMISSION_DENIED: caller does not have permission", googleErrorMessage(decoded, 403))
}

func TestGoogleErrorMessageFallsBackToStatusCode(t *testing.T) {
	assert.Equal(t, "algorithms list returned status 500", googleErrorMessage(map[string]interface{}{}, 500))
}
