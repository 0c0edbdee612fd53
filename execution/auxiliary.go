package execution

import (
	"time"

	"github.com/google/uuid"

	"github.com/connectorcore/connectorcore/corekit"
	"github.com/connectorcore/connectorcore/policy"
	"github.com/connectorcore/connectorcore/registry"
)

// GetCapabilities passes through to the registry's capability listing.
func (s *Service) GetCapabilities() []registry.CapabilitySummary {
	return s.registry.ListCapabilities()
}

// GetRunLogs returns at most limit RunRecords, newest first.
func (s *Service) GetRunLogs(limit int) []corekit.RunRecord {
	return s.runs.List(limit)
}

// ClearRunLogs empties the run log.
func (s *Service) ClearRunLogs() {
	s.runs.Clear()
}

// GrantApproval grants an approval of the given mode for
// (integrationId, capability), scoped to chatId. Granting ApprovalAlways
// is a no-op — there is nothing to record since that mode never consults
// the approval store.
func (s *Service) GrantApproval(mode policy.ApprovalMode, integrationId corekit.IntegrationId, capability corekit.Capability, chatId string) {
	switch mode {
	case policy.ApprovalSession:
		s.policy.GrantSessionApproval(chatId, integrationId, capability)
	case policy.ApprovalOnce:
		s.policy.GrantOneTimeApproval(chatId, integrationId, capability)
	}
}

// ClearApprovals clears approvals for chatId, or all approvals when chatId
// is empty.
func (s *Service) ClearApprovals(chatId string) {
	s.policy.ClearSessionApprovals(chatId)
}

// ExportPolicyYAML renders the current policy document as YAML, for
// operators who keep it under version control.
func (s *Service) ExportPolicyYAML() ([]byte, error) {
	return s.policy.ExportPolicyYAML()
}

// ImportPolicyYAML replaces the current policy document with the one
// parsed from data.
func (s *Service) ImportPolicyYAML(data []byte) error {
	return s.policy.ImportPolicyYAML(data)
}

// LogIntegrationLifecycleEvent synthesises a RunRecord for a lifecycle
// event that did not go through Execute (connection tests, connect,
// disconnect).
func (s *Service) LogIntegrationLifecycleEvent(integrationId corekit.IntegrationId, event corekit.LifecycleEvent, success bool, message string, durationMs int64) {
	outcome := corekit.OutcomeSuccess
	if !success {
		outcome = corekit.OutcomeError
	}
	now := time.Now()
	record := corekit.RunRecord{
		RunId:         uuid.NewString(),
		StartedAt:     now.Add(-time.Duration(durationMs) * time.Millisecond),
		FinishedAt:    now,
		DurationMs:    durationMs,
		IntegrationId: integrationId,
		Capability:    corekit.Capability(event),
		Outcome:       outcome,
		Message:       message,
	}
	s.runs.Log(record)
}
