package policy

import (
	"sync"

	"github.com/connectorcore/connectorcore/corekit"
)

// Store is the persistence contract the Policy Service reads/writes
// through. collab.FilePolicyStore is the shipped reference implementation;
// Store is declared here (not in collab) so policy has no dependency on
// any particular storage backend.
type Store interface {
	GetConnectorPolicyConfig() (Config, error)
	SetConnectorPolicyConfig(Config) error
}

// memoryStore is the zero-value fallback Store used when no persistence is
// configured — all state lives in the process only.
type memoryStore struct {
	mu  sync.Mutex
	cfg Config
	set bool
}

func (m *memoryStore) GetConnectorPolicyConfig() (Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return Config{}, nil
	}
	return m.cfg, nil
}

func (m *memoryStore) SetConnectorPolicyConfig(cfg Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg
	m.set = true
	return nil
}

// Service is the Policy Service: normalised config access plus evaluation,
// grounded on gomind's core.Config load-normalise-validate lifecycle.
type Service struct {
	store    Store
	approval ApprovalStore
	logger   corekit.Logger
}

// NewService builds a Service. A nil store uses an in-process fallback; a
// nil approval store uses MemoryApprovals.
func NewService(store Store, approval ApprovalStore, logger corekit.Logger) *Service {
	if store == nil {
		store = &memoryStore{}
	}
	if approval == nil {
		approval = NewMemoryApprovals()
	}
	if logger == nil {
		logger = corekit.NoOpLogger{}
	}
	return &Service{store: store, approval: approval, logger: logger}
}

// GetPolicyConfig returns a normalised, defensively-copied policy. Load
// errors fall back to the normalised defaults rather than propagating,
// per spec §4.2.
func (s *Service) GetPolicyConfig() Config {
	cfg, err := s.store.GetConnectorPolicyConfig()
	if err != nil {
		s.logger.Warn("policy config load failed, using defaults", map[string]interface{}{"error": err.Error()})
		return Normalize(DefaultConfig())
	}
	if isZeroConfig(cfg) {
		return Normalize(DefaultConfig())
	}
	return Normalize(cfg)
}

func isZeroConfig(c Config) bool {
	return !c.Enabled && c.DefaultApprovalMode == "" && c.DefaultTimeoutMs == 0 &&
		len(c.IntegrationPolicies) == 0 && len(c.DefaultAllowedBackends) == 0
}

// SetPolicyConfig normalises cfg and persists it.
func (s *Service) SetPolicyConfig(cfg Config) error {
	return s.store.SetConnectorPolicyConfig(Normalize(cfg))
}

// ExportPolicyYAML renders the current policy as a YAML document.
func (s *Service) ExportPolicyYAML() ([]byte, error) {
	return ExportYAML(s.GetPolicyConfig())
}

// ImportPolicyYAML parses and persists a YAML policy document, replacing
// the current one wholesale.
func (s *Service) ImportPolicyYAML(data []byte) error {
	cfg, err := ImportYAML(data)
	if err != nil {
		return err
	}
	return s.SetPolicyConfig(cfg)
}

// Evaluate runs the decision algorithm against the current policy.
func (s *Service) Evaluate(req EvaluateRequest) Decision {
	return Evaluate(s.GetPolicyConfig(), s.approval, req)
}

// GrantSessionApproval grants a standing approval for (chatId, integrationId,
// capability).
func (s *Service) GrantSessionApproval(chatId string, integrationId corekit.IntegrationId, capability corekit.Capability) {
	s.approval.GrantSessionApproval(ApprovalKey{ChatId: chatId, IntegrationId: integrationId, Capability: capability})
}

// GrantOneTimeApproval increments the one-shot counter for
// (chatId, integrationId, capability).
func (s *Service) GrantOneTimeApproval(chatId string, integrationId corekit.IntegrationId, capability corekit.Capability) {
	s.approval.GrantOneTimeApproval(ApprovalKey{ChatId: chatId, IntegrationId: integrationId, Capability: capability})
}

// ClearSessionApprovals clears approvals for chatId, or all approvals when
// chatId is empty.
func (s *Service) ClearSessionApprovals(chatId string) {
	s.approval.ClearSessionApprovals(chatId)
}
