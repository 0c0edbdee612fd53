// Package execution implements the Execution Service: the outer
// Evaluating → Routing → Attempting → Logging state machine that turns one
// ExecutionRequest into exactly one ExecutionResult and exactly one
// appended RunRecord.
//
// Grounded on gomind's orchestration/tiered_capability_provider.go for the
// "try each candidate backend in order, falling back on failure" loop
// shape, composed here with resilience's per-route circuit breaker and
// backoff delay.
package execution

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/connectorcore/connectorcore/corekit"
	"github.com/connectorcore/connectorcore/policy"
	"github.com/connectorcore/connectorcore/registry"
	"github.com/connectorcore/connectorcore/resilience"
	"github.com/connectorcore/connectorcore/runlog"
	"github.com/connectorcore/connectorcore/telemetryadapter"
)

// Service wires the registry, policy service, run logger, and circuit
// breaker manager into the outer execution state machine.
type Service struct {
	registry  *registry.Registry
	policy    *policy.Service
	runs      *runlog.Logger
	breakers  *resilience.Manager
	backoff   resilience.BackoffConfig
	logger    corekit.Logger
	telemetry corekit.Telemetry
}

// Option configures a Service at construction.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(l corekit.Logger) Option { return func(s *Service) { s.logger = l } }

// WithTelemetry sets the span/metric recorder.
func WithTelemetry(t corekit.Telemetry) Option { return func(s *Service) { s.telemetry = t } }

// WithBackoff overrides the default inter-attempt backoff schedule.
func WithBackoff(cfg resilience.BackoffConfig) Option {
	return func(s *Service) { s.backoff = cfg }
}

// WithCircuitBreakerConfig overrides the default per-route breaker config.
func WithCircuitBreakerConfig(cfg resilience.Config) Option {
	return func(s *Service) { s.breakers = resilience.NewManager(cfg, s.logger) }
}

// NewService builds a Service. runCapacity is passed to runlog.New
// (0 uses its default).
func NewService(reg *registry.Registry, pol *policy.Service, runCapacity int, opts ...Option) *Service {
	s := &Service{
		registry: reg,
		policy:   pol,
		runs:     runlog.New(runCapacity),
		backoff:  resilience.DefaultBackoffConfig(),
		logger:   corekit.NoOpLogger{},
		telemetry: corekit.NoOpTelemetry{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.breakers == nil {
		s.breakers = resilience.NewManager(resilience.DefaultConfig(), s.logger)
	}
	return s
}

func newRunID() string { return uuid.NewString() }

// classifyDenial discriminates APPROVAL_REQUIRED from POLICY_DENIED via the
// pinned case-insensitive substring match on decision.Reason, per spec
// §4.3 and the Open Question decision recorded in DESIGN.md.
func classifyDenial(reason string) string {
	if strings.Contains(strings.ToLower(reason), "approval required") {
		return corekit.ErrCodeApprovalRequired
	}
	return corekit.ErrCodePolicyDenied
}

func intersectPreserveOrder(preferred, allowed []corekit.Backend) []corekit.Backend {
	allowedSet := make(map[corekit.Backend]bool, len(allowed))
	for _, b := range allowed {
		allowedSet[b] = true
	}
	out := make([]corekit.Backend, 0, len(preferred))
	for _, b := range preferred {
		if allowedSet[b] {
			out = append(out, b)
		}
	}
	return out
}

func deniedBackends(allowed []corekit.Backend) []corekit.Backend {
	allowedSet := make(map[corekit.Backend]bool, len(allowed))
	for _, b := range allowed {
		allowedSet[b] = true
	}
	out := make([]corekit.Backend, 0, len(corekit.AllBackends))
	for _, b := range corekit.AllBackends {
		if !allowedSet[b] {
			out = append(out, b)
		}
	}
	return out
}

// Execute runs the full state machine for req, returning exactly one
// ExecutionResult and appending exactly one RunRecord.
func (s *Service) Execute(ctx context.Context, req *corekit.ExecutionRequest) corekit.ExecutionResult {
	ctx, span := s.telemetry.StartSpan(ctx, "execution.Execute")
	defer span.End()
	span.SetAttribute("integrationId", string(req.IntegrationId))
	span.SetAttribute("capability", string(req.Capability))

	runID := newRunID()
	startedAt := time.Now()

	// Evaluating
	decision := s.policy.Evaluate(policy.EvaluateRequest{
		IntegrationId: req.IntegrationId,
		Capability:    req.Capability,
		ChatId:        req.ChatId,
	})
	if !decision.Allowed {
		errorCode := classifyDenial(decision.Reason)
		result := corekit.ExecutionResult{
			Success:       false,
			RunId:         runID,
			IntegrationId: req.IntegrationId,
			Capability:    req.Capability,
			Error:         &corekit.AdapterError{Code: errorCode, Message: decision.Reason},
		}
		s.finish(ctx, req, runID, startedAt, corekit.OutcomePolicyDenied, decision.Reason, errorCode, "")
		return result
	}

	// Routing
	key := req.Key()
	allowed := decision.AllowedBackends
	preferred := intersectPreserveOrder(req.PreferredBackends, allowed)
	if len(req.PreferredBackends) == 0 {
		preferred = allowed
	}
	routes := s.registry.Resolve(key, preferred, deniedBackends(allowed))
	if len(routes) == 0 {
		msg := "no route registered for " + string(req.IntegrationId) + "/" + string(req.Capability)
		result := corekit.ExecutionResult{
			Success:       false,
			RunId:         runID,
			IntegrationId: req.IntegrationId,
			Capability:    req.Capability,
			Error:         &corekit.AdapterError{Code: corekit.ErrCodeUnsupportedCapability, Message: msg},
		}
		s.finish(ctx, req, runID, startedAt, corekit.OutcomeError, msg, corekit.ErrCodeUnsupportedCapability, "")
		return result
	}

	// Attempting
	timeoutMs := decision.TimeoutMs
	if req.TimeoutMs > 0 {
		timeoutMs = req.TimeoutMs
	}
	maxRetries := decision.MaxRetries
	if req.HasMaxRetries && req.MaxRetries >= 0 {
		maxRetries = req.MaxRetries
	}

	var attempts []corekit.AttemptRecord
	var lastFailure *corekit.AdapterError
	var lastBackend corekit.Backend

	for _, route := range routes {
		backend := route.Adapter.Backend()
		breaker := s.breakers.Get(resilience.RouteKey(route.IntegrationId, route.Capability, backend))
		if !breaker.Allow() {
			attempts = append(attempts, corekit.AttemptRecord{
				Backend:   backend,
				ErrorCode: corekit.ErrCodeCircuitOpen,
				Message:   "circuit breaker open",
				Attempt:   -1,
			})
			continue
		}

		for attempt := 0; attempt <= maxRetries; attempt++ {
			if attempt > 0 {
				if err := s.backoff.Sleep(ctx, attempt); err != nil {
					lastFailure = &corekit.AdapterError{Code: corekit.ErrCodeTimeout, Message: err.Error(), Retryable: false}
					break
				}
			}

			result := s.runWithTimeout(ctx, route.Adapter, req, corekit.AdapterContext{
				TimeoutMs:  timeoutMs,
				Attempt:    attempt,
				MaxRetries: maxRetries,
			}, timeoutMs)

			if result.OK {
				breaker.RecordSuccess()
				s.finishSuccess(ctx, req, runID, startedAt, backend)
				return corekit.ExecutionResult{
					Success:       true,
					RunId:         runID,
					IntegrationId: req.IntegrationId,
					Capability:    req.Capability,
					Backend:       backend,
					DurationMs:    time.Since(startedAt).Milliseconds(),
					Data:          result.Data,
					Details:       result.Details,
					Attempts:      attempts,
				}
			}

			breaker.RecordFailure()
			adapterErr := result.Err
			if adapterErr == nil {
				adapterErr = &corekit.AdapterError{Code: corekit.ErrCodeExecutionFailed, Message: "adapter returned no error detail", Retryable: true}
			}
			attempts = append(attempts, corekit.AttemptRecord{
				Backend:   backend,
				ErrorCode: adapterErr.Code,
				Message:   adapterErr.Message,
				Attempt:   attempt,
			})
			lastFailure = adapterErr
			lastBackend = backend

			if adapterErr.Code == corekit.ErrCodeTimeout {
				continue
			}
			if adapterErr.Retryable {
				continue
			}
			break
		}
	}

	if lastFailure == nil {
		lastFailure = &corekit.AdapterError{Code: corekit.ErrCodeExecutionFailed, Message: "no adapter produced a result", Retryable: true}
	}

	outcome := corekit.OutcomeError
	if lastFailure.Code == corekit.ErrCodeTimeout {
		outcome = corekit.OutcomeTimeout
	}
	s.finish(ctx, req, runID, startedAt, outcome, lastFailure.Message, lastFailure.Code, lastBackend)

	return corekit.ExecutionResult{
		Success:       false,
		RunId:         runID,
		IntegrationId: req.IntegrationId,
		Capability:    req.Capability,
		Backend:       lastBackend,
		DurationMs:    time.Since(startedAt).Milliseconds(),
		Error:         lastFailure,
		Attempts:      attempts,
	}
}

// runWithTimeout races the adapter call against timeoutMs, returning a
// tagged TIMEOUT AdapterResult if the adapter does not finish in time.
// An adapter panic is captured as EXECUTION_FAILED, retryable=true — the
// moral equivalent of an "adapter throw" in the source pseudocode.
func (s *Service) runWithTimeout(ctx context.Context, adapter corekit.Adapter, req *corekit.ExecutionRequest, actx corekit.AdapterContext, timeoutMs int) corekit.AdapterResult {
	if timeoutMs <= 0 {
		timeoutMs = policy.DefaultTimeoutMs
	}
	callCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
	defer cancel()

	done := make(chan corekit.AdapterResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- corekit.Fail(corekit.ErrCodeExecutionFailed, panicMessage(r), true, nil)
			}
		}()
		done <- adapter.Execute(callCtx, req, actx)
	}()

	select {
	case result := <-done:
		return result
	case <-callCtx.Done():
		return corekit.Fail(corekit.ErrCodeTimeout, "adapter call timed out", true, nil)
	}
}

func panicMessage(r interface{}) string {
	if err, ok := r.(error); ok {
		return err.Error()
	}
	return "adapter panicked"
}

func (s *Service) finishSuccess(ctx context.Context, req *corekit.ExecutionRequest, runID string, startedAt time.Time, backend corekit.Backend) {
	s.finish(ctx, req, runID, startedAt, corekit.OutcomeSuccess, "", "", backend)
}

func (s *Service) finish(ctx context.Context, req *corekit.ExecutionRequest, runID string, startedAt time.Time, outcome corekit.RunOutcome, message, errorCode string, backend corekit.Backend) {
	finishedAt := time.Now()
	record := corekit.RunRecord{
		RunId:         runID,
		StartedAt:     startedAt,
		FinishedAt:    finishedAt,
		DurationMs:    finishedAt.Sub(startedAt).Milliseconds(),
		ChatId:        req.ChatId,
		AgentId:       req.AgentId,
		IntegrationId: req.IntegrationId,
		Capability:    req.Capability,
		Backend:       backend,
		Outcome:       outcome,
		Message:       message,
		ErrorCode:     errorCode,
	}
	record.TraceId = telemetryadapter.SpanFromContext(ctx)
	s.runs.Log(record)
	s.telemetry.RecordMetric("connectorcore.execution.outcome", 1, map[string]string{
		"integrationId": string(req.IntegrationId),
		"capability":    string(req.Capability),
		"outcome":       string(outcome),
	})
}
