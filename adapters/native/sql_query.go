package native

import (
	"context"
	"regexp"
	"strings"

	"github.com/connectorcore/connectorcore/collab"
	"github.com/connectorcore/connectorcore/corekit"
)

var (
	readOnlyStarters = regexp.MustCompile(`(?i)^(select|with|explain)\b`)
	selectIntoRe     = regexp.MustCompile(`(?i)\bselect\b[\s\S]*\binto\b`)
	mutatingKeywords = []string{
		"insert", "update", "delete", "alter", "create", "drop", "truncate",
		"grant", "revoke", "merge", "call", "copy", "vacuum", "reindex",
		"cluster", "refresh",
	}
)

func mutatingKeywordRegexp() *regexp.Regexp {
	escaped := make([]string, len(mutatingKeywords))
	for i, kw := range mutatingKeywords {
		escaped[i] = regexp.QuoteMeta(kw)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(escaped, "|") + `)\b`)
}

var mutatingKeywordRe = mutatingKeywordRegexp()

// SQLQueryAdapter implements the native postgresql-postgis/sql.query route:
// read-only validation in front of a pool the core never owns.
type SQLQueryAdapter struct {
	configStore collab.ConfigStore
	secretStore collab.SecretStore
	pool        collab.SQLPool
}

// NewSQLQueryAdapter wires the collaborators sql.query needs: configuration
// lookup and the externally-owned pool (§6 "SQL pool collaborator").
func NewSQLQueryAdapter(configStore collab.ConfigStore, secretStore collab.SecretStore, pool collab.SQLPool) *SQLQueryAdapter {
	return &SQLQueryAdapter{configStore: configStore, secretStore: secretStore, pool: pool}
}

func (a *SQLQueryAdapter) ID() string          { return "native:postgresql-postgis:sql.query" }
func (a *SQLQueryAdapter) Backend() corekit.Backend { return corekit.BackendNative }

func (a *SQLQueryAdapter) Supports(key corekit.RoutingKey) bool {
	return key.IntegrationId == corekit.IntegrationPostgreSQLPostGIS && key.Capability == "sql.query"
}

func validateReadOnlyQuery(input map[string]interface{}) (string, []interface{}, int, *corekit.AdapterError) {
	query, ok := inputString(input, "query")
	if !ok || strings.TrimSpace(query) == "" {
		return "", nil, 0, &corekit.AdapterError{Code: corekit.ErrCodeValidationFailed, Message: "query must be a non-empty string"}
	}
	if readOnly, present := input["readOnly"]; present {
		if b, ok := readOnly.(bool); ok && !b {
			return "", nil, 0, &corekit.AdapterError{Code: corekit.ErrCodeValidationFailed, Message: "sql.query only runs read-only statements; readOnly=false is not permitted"}
		}
	}

	trimmed := strings.TrimSpace(query)
	if !readOnlyStarters.MatchString(trimmed) {
		return "", nil, 0, &corekit.AdapterError{Code: corekit.ErrCodeValidationFailed, Message: "query must be read-only (select, with, or explain)"}
	}

	statements := splitStatements(trimmed)
	if len(statements) != 1 {
		return "", nil, 0, &corekit.AdapterError{Code: corekit.ErrCodeValidationFailed, Message: "exactly one SQL statement is permitted"}
	}
	if mutatingKeywordRe.MatchString(trimmed) {
		return "", nil, 0, &corekit.AdapterError{Code: corekit.ErrCodeValidationFailed, Message: "Mutating SQL keywords are not permitted in a read-only query"}
	}
	if selectIntoRe.MatchString(trimmed) {
		return "", nil, 0, &corekit.AdapterError{Code: corekit.ErrCodeValidationFailed, Message: "SELECT ... INTO is not permitted"}
	}

	var params []interface{}
	if raw, present := input["params"]; present {
		arr, ok := raw.([]interface{})
		if !ok {
			return "", nil, 0, &corekit.AdapterError{Code: corekit.ErrCodeValidationFailed, Message: "params must be an array"}
		}
		params = arr
	}

	rowLimit := 200
	if v, ok := inputInt(input, "rowLimit"); ok {
		rowLimit = clamp(v, 1, 1000)
	}

	return trimmed, params, rowLimit, nil
}

// splitStatements mirrors the "split on ; and count non-empty statements"
// rule; it is not a full SQL parser and does not need to be one.
func splitStatements(query string) []string {
	parts := strings.Split(query, ";")
	var nonEmpty []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return nonEmpty
}

func (a *SQLQueryAdapter) Execute(ctx context.Context, req *corekit.ExecutionRequest, actx corekit.AdapterContext) corekit.AdapterResult {
	if _, aerr := loadConfig(a.configStore, a.secretStore, corekit.IntegrationPostgreSQLPostGIS); aerr != nil {
		return corekit.AdapterResult{Err: aerr}
	}
	if a.pool == nil {
		return corekit.AdapterResult{Err: &corekit.AdapterError{Code: corekit.ErrCodeNotConfigured, Message: "no SQL pool configured"}}
	}

	query, params, rowLimit, aerr := validateReadOnlyQuery(req.Input)
	if aerr != nil {
		return corekit.AdapterResult{Err: aerr}
	}

	info, err := a.pool.GetConnectionInfo(ctx, corekit.IntegrationPostgreSQLPostGIS)
	if err != nil || !info.Connected {
		return corekit.AdapterResult{Err: &corekit.AdapterError{Code: corekit.ErrCodeNotConfigured, Message: "postgresql-postgis pool is not connected"}}
	}

	result, err := a.pool.ExecuteQuery(ctx, corekit.IntegrationPostgreSQLPostGIS, query, params)
	if err != nil {
		return corekit.AdapterResult{Err: &corekit.AdapterError{Code: corekit.ErrCodeExecutionFailed, Message: err.Error(), Retryable: true}}
	}
	if !result.Success {
		return corekit.AdapterResult{Err: &corekit.AdapterError{Code: corekit.ErrCodeExecutionFailed, Message: result.Message, Retryable: true}}
	}

	truncated := len(result.Rows) > rowLimit
	rows := result.Rows
	if truncated {
		rows = rows[:rowLimit]
	}

	return corekit.Ok(map[string]interface{}{
		"rows":      rows,
		"rowCount":  len(rows),
		"fields":    result.Fields,
		"truncated": truncated,
	}, map[string]interface{}{"executionTimeMs": result.ExecutionTime.Milliseconds()})
}
