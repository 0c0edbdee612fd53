package collab

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/connectorcore/connectorcore/corekit"
)

// PGXPool wraps one pgxpool.Pool per IntegrationId behind SQLPool, the
// reference implementation of the pool the sql.query adapter treats as
// externally owned. Grounded on the pgx/v5 connection-pool idiom used
// throughout the retrieval pack's storage-layer examples.
type PGXPool struct {
	pools map[corekit.IntegrationId]*pgxpool.Pool
}

// NewPGXPool wraps an already-constructed map of pools, one per
// integration id that backs a postgresql-postgis connector instance.
func NewPGXPool(pools map[corekit.IntegrationId]*pgxpool.Pool) *PGXPool {
	return &PGXPool{pools: pools}
}

func (p *PGXPool) GetConnectionInfo(ctx context.Context, id corekit.IntegrationId) (ConnectionInfo, error) {
	pool, ok := p.pools[id]
	if !ok || pool == nil {
		return ConnectionInfo{Connected: false}, nil
	}
	if err := pool.Ping(ctx); err != nil {
		return ConnectionInfo{Connected: false}, nil
	}
	stat := pool.Stat()
	return ConnectionInfo{
		Connected: true,
		Config: map[string]interface{}{
			"totalConns": stat.TotalConns(),
			"idleConns":  stat.IdleConns(),
		},
	}, nil
}

func (p *PGXPool) ExecuteQuery(ctx context.Context, id corekit.IntegrationId, sql string, params []interface{}) (QueryResult, error) {
	pool, ok := p.pools[id]
	if !ok || pool == nil {
		return QueryResult{Success: false, Message: "no pool configured for " + string(id)}, nil
	}

	started := time.Now()
	rows, err := pool.Query(ctx, sql, params...)
	if err != nil {
		return QueryResult{Success: false, Message: err.Error()}, nil
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	fields := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		fields[i] = string(fd.Name)
	}

	var result []map[string]interface{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return QueryResult{Success: false, Message: err.Error()}, nil
		}
		row := make(map[string]interface{}, len(fields))
		for i, f := range fields {
			if i < len(values) {
				row[f] = values[i]
			}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return QueryResult{Success: false, Message: err.Error()}, nil
	}

	return QueryResult{
		Success:       true,
		Rows:          result,
		RowCount:      len(result),
		Fields:        fields,
		ExecutionTime: time.Since(started),
	}, nil
}
