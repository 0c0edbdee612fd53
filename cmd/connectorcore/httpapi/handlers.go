package httpapi

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/connectorcore/connectorcore/corekit"
	"github.com/connectorcore/connectorcore/policy"
	"github.com/connectorcore/connectorcore/registry"
)

// coreService is the subset of execution.Service the HTTP front door calls.
// Declared narrow per the interfaces-consumed-not-provided idiom so tests
// can substitute a fake without depending on execution's concrete type.
type coreService interface {
	Execute(ctx context.Context, req *corekit.ExecutionRequest) corekit.ExecutionResult
	GetCapabilities() []registry.CapabilitySummary
	GetRunLogs(limit int) []corekit.RunRecord
	ClearRunLogs()
	GrantApproval(mode policy.ApprovalMode, integrationId corekit.IntegrationId, capability corekit.Capability, chatId string)
	ClearApprovals(chatId string)
	ExportPolicyYAML() ([]byte, error)
	ImportPolicyYAML(data []byte) error
}

type executeRequestBody struct {
	IntegrationId     string                 `json:"integrationId" validate:"required"`
	Capability        string                 `json:"capability" validate:"required"`
	Input             map[string]interface{} `json:"input"`
	ChatId            string                 `json:"chatId"`
	AgentId           string                 `json:"agentId"`
	TimeoutMs         int                    `json:"timeoutMs"`
	MaxRetries        *int                   `json:"maxRetries"`
	PreferredBackends []string               `json:"preferredBackends"`
}

// executeResponse is the wire envelope from spec §6, success and failure
// fields collapsed into one struct with omitempty doing the discrimination.
type executeResponse struct {
	Status     string                   `json:"status"`
	RunId      string                   `json:"run_id"`
	Backend    corekit.Backend          `json:"backend,omitempty"`
	DurationMs int64                    `json:"duration_ms"`
	Data       interface{}              `json:"data,omitempty"`
	Details    map[string]interface{}   `json:"details,omitempty"`
	ErrorCode  string                   `json:"error_code,omitempty"`
	Message    string                   `json:"message,omitempty"`
	Attempts   []corekit.AttemptRecord  `json:"attempts,omitempty"`
}

func (h *Handlers) handleExecute(w http.ResponseWriter, r *http.Request) {
	var body executeRequestBody
	if !decodeAndValidate(w, r, &body) {
		return
	}

	req := &corekit.ExecutionRequest{
		IntegrationId: corekit.IntegrationId(body.IntegrationId),
		Capability:    corekit.Capability(body.Capability),
		Input:         body.Input,
		ChatId:        body.ChatId,
		AgentId:       body.AgentId,
		TimeoutMs:     body.TimeoutMs,
	}
	if body.MaxRetries != nil {
		req.MaxRetries = *body.MaxRetries
		req.HasMaxRetries = true
	}
	for _, b := range body.PreferredBackends {
		req.PreferredBackends = append(req.PreferredBackends, corekit.Backend(b))
	}

	result := h.svc.Execute(r.Context(), req)
	if result.Success {
		Respond(w, http.StatusOK, executeResponse{
			Status:     "success",
			RunId:      result.RunId,
			Backend:    result.Backend,
			DurationMs: result.DurationMs,
			Data:       result.Data,
			Details:    result.Details,
		})
		return
	}

	resp := executeResponse{
		Status:     "error",
		RunId:      result.RunId,
		Backend:    result.Backend,
		DurationMs: result.DurationMs,
		Attempts:   result.Attempts,
	}
	if result.Error != nil {
		resp.ErrorCode = result.Error.Code
		resp.Message = result.Error.Message
	}
	Respond(w, http.StatusOK, resp)
}

func (h *Handlers) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	Respond(w, http.StatusOK, map[string]interface{}{
		"capabilities": h.svc.GetCapabilities(),
	})
}

func (h *Handlers) handleListRunLogs(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	Respond(w, http.StatusOK, map[string]interface{}{
		"runs": h.svc.GetRunLogs(limit),
	})
}

func (h *Handlers) handleClearRunLogs(w http.ResponseWriter, r *http.Request) {
	h.svc.ClearRunLogs()
	w.WriteHeader(http.StatusNoContent)
}

type approvalRequestBody struct {
	Mode          string `json:"mode" validate:"required,oneof=session once"`
	IntegrationId string `json:"integrationId" validate:"required"`
	Capability    string `json:"capability" validate:"required"`
	ChatId        string `json:"chatId"`
}

func (h *Handlers) handleGrantApproval(w http.ResponseWriter, r *http.Request) {
	var body approvalRequestBody
	if !decodeAndValidate(w, r, &body) {
		return
	}
	h.svc.GrantApproval(policy.ApprovalMode(body.Mode), corekit.IntegrationId(body.IntegrationId), corekit.Capability(body.Capability), body.ChatId)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) handleClearApprovals(w http.ResponseWriter, r *http.Request) {
	h.svc.ClearApprovals(r.URL.Query().Get("chatId"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) handleExportPolicyYAML(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.ExportPolicyYAML()
	if err != nil {
		RespondError(w, http.StatusInternalServerError, "POLICY_EXPORT_FAILED", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handlers) handleImportPolicyYAML(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "INVALID_BODY", "failed to read request body")
		return
	}
	if err := h.svc.ImportPolicyYAML(body); err != nil {
		RespondError(w, http.StatusBadRequest, "INVALID_POLICY_YAML", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
