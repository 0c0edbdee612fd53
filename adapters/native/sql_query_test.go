package native

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connectorcore/connectorcore/corekit"
)

func TestValidateReadOnlyQueryAcceptsSelect(t *testing.T) {
	query, params, rowLimit, aerr := validateReadOnlyQuery(map[string]interface{}{
		"query":    "select * from parcels where id = $1",
		"params":   []interface{}{42},
		"rowLimit": float64(50),
	})
	require.Nil(t, aerr)
	assert.Equal(t, "select * from parcels where id = $1", query)
	assert.Equal(t, []interface{}{42}, params)
	assert.Equal(t, 50, rowLimit)
}

func TestValidateReadOnlyQueryAcceptsWithAndExplain(t *testing.T) {
	for _, q := range []string{
		"with recent as (select 1) select * from recent",
		"explain select * from parcels",
	} {
		_, _, _, aerr := validateReadOnlyQuery(map[string]interface{}{"query": q})
		assert.Nil(t, aerr, "expected %q to be accepted", q)
	}
}

func TestValidateReadOnlyQueryDefaultsRowLimitAndClamps(t *testing.T) {
	_, _, rowLimit, aerr := validateReadOnlyQuery(map[string]interface{}{"query": "select 1"})
	require.Nil(t, aerr)
	assert.Equal(t, 200, rowLimit)

	_, _, rowLimit, aerr = validateReadOnlyQuery(map[string]interface{}{"query": "select 1", "rowLimit": float64(5000)})
	require.Nil(t, aerr)
	assert.Equal(t, 1000, rowLimit)
}

func TestValidateReadOnlyQueryRejectsEmptyQuery(t *testing.T) {
	_, _, _, aerr := validateReadOnlyQuery(map[string]interface{}{"query": "   "})
	require.NotNil(t, aerr)
	assert.Equal(t, corekit.ErrCodeValidationFailed, aerr.Code)
}

func TestValidateReadOnlyQueryRejectsExplicitReadOnlyFalse(t *testing.T) {
	_, _, _, aerr := validateReadOnlyQuery(map[string]interface{}{"query": "select 1", "readOnly": false})
	require.NotNil(t, aerr)
	assert.Contains(t, aerr.Message, "read-only")
}

func TestValidateReadOnlyQueryRejectsNonSelectStatement(t *testing.T) {
	_, _, _, aerr := validateReadOnlyQuery(map[string]interface{}{"query": "delete from parcels"})
	require.NotNil(t, aerr)
	assert.Equal(t, corekit.ErrCodeValidationFailed, aerr.Code)
}

func TestValidateReadOnlyQueryRejectsMutatingKeywordInsideSelect(t *testing.T) {
	_, _, _, aerr := validateReadOnlyQuery(map[string]interface{}{
		"query": "select * from parcels where id in (delete from parcels returning id)",
	})
	require.NotNil(t, aerr)
	assert.Contains(t, aerr.Message, "Mutating SQL keywords")
}

func TestValidateReadOnlyQueryRejectsMultipleStatements(t *testing.T) {
	_, _, _, aerr := validateReadOnlyQuery(map[string]interface{}{
		"query": "select 1; select 2",
	})
	require.NotNil(t, aerr)
	assert.Contains(t, aerr.Message, "exactly one")
}

func TestValidateReadOnlyQueryRejectsSelectInto(t *testing.T) {
	_, _, _, aerr := validateReadOnlyQuery(map[string]interface{}{
		"query": "select * into backup_parcels from parcels",
	})
	require.NotNil(t, aerr)
	assert.Contains(t, aerr.Message, "INTO")
}

func TestValidateReadOnlyQueryRejectsNonArrayParams(t *testing.T) {
	_, _, _, aerr := validateReadOnlyQuery(map[string]interface{}{
		"query":  "select 1",
		"params": "not-an-array",
	})
	require.NotNil(t, aerr)
	assert.Contains(t, aerr.Message, "params")
}
