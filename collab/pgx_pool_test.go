package collab

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connectorcore/connectorcore/corekit"
)

func TestPGXPoolGetConnectionInfoWithNoPoolConfigured(t *testing.T) {
	pool := NewPGXPool(nil)
	info, err := pool.GetConnectionInfo(context.Background(), corekit.IntegrationPostgreSQLPostGIS)
	require.NoError(t, err)
	assert.False(t, info.Connected)
}

func TestPGXPoolExecuteQueryWithNoPoolConfigured(t *testing.T) {
	pool := NewPGXPool(map[corekit.IntegrationId]*pgxpool.Pool{})
	result, err := pool.ExecuteQuery(context.Background(), corekit.IntegrationPostgreSQLPostGIS, "select 1", nil)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "no pool configured")
}
