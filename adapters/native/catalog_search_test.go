package native

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearchURLAppendsSearchSegment(t *testing.T) {
	assert.Equal(t, "https://stac.example.com/search", searchURL("https://stac.example.com"))
	assert.Equal(t, "https://stac.example.com/search", searchURL("https://stac.example.com/"))
}

func TestSearchURLLeavesExistingSearchSegmentAlone(t *testing.T) {
	assert.Equal(t, "https://stac.example.com/search", searchURL("https://stac.example.com/search"))
}

func TestBuildSearchBodyDefaultsLimitAndOmitsAbsentFields(t *testing.T) {
	body := buildSearchBody(map[string]interface{}{})
	assert.Equal(t, 25, body["limit"])
	assert.NotContains(t, body, "collections")
	assert.NotContains(t, body, "bbox")
	assert.NotContains(t, body, "datetime")
	assert.NotContains(t, body, "intersects")
}

func TestBuildSearchBodyCarriesProvidedFields(t *testing.T) {
	body := buildSearchBody(map[string]interface{}{
		"collections": []interface{}{"sentinel-2-l2a"},
		"bbox":        []interface{}{-122.5, 37.5, -122.0, 38.0},
		"datetime":    "2025-01-01T00:00:00Z/2025-02-01T00:00:00Z",
		"query":       map[string]interface{}{"eo:cloud_cover": map[string]interface{}{"lt": 10}},
		"intersects":  map[string]interface{}{"type": "Point", "coordinates": []interface{}{-122.1, 37.8}},
		"limit":       float64(100),
	})
	assert.Equal(t, []interface{}{"sentinel-2-l2a"}, body["collections"])
	assert.Len(t, body["bbox"], 4)
	assert.Equal(t, "2025-01-01T00:00:00Z/2025-02-01T00:00:00Z", body["datetime"])
	assert.Equal(t, 100, body["limit"])
	assert.Contains(t, body, "query")
	assert.Contains(t, body, "intersects")
}

func TestBuildSearchBodyRejectsShortBbox(t *testing.T) {
	body := buildSearchBody(map[string]interface{}{"bbox": []interface{}{-122.5, 37.5}})
	assert.NotContains(t, body, "bbox")
}

func TestBuildSearchBodyClampsLimit(t *testing.T) {
	body := buildSearchBody(map[string]interface{}{"limit": float64(10000)})
	assert.Equal(t, 500, body["limit"])
}
