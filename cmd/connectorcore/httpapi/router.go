package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/connectorcore/connectorcore/corekit"
)

// Handlers holds the dependencies every route handler needs.
type Handlers struct {
	svc    coreService
	logger corekit.Logger
}

// NewRouter builds the chi router exposing the execution front door:
//
//	POST   /v1/execute
//	GET    /v1/capabilities
//	GET    /v1/runlogs
//	DELETE /v1/runlogs
//	POST   /v1/approvals
//	DELETE /v1/approvals
//	GET    /v1/policy.yaml
//	PUT    /v1/policy.yaml
func NewRouter(svc coreService, logger corekit.Logger) http.Handler {
	h := &Handlers{svc: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		Respond(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/execute", h.handleExecute)
		r.Get("/capabilities", h.handleCapabilities)
		r.Get("/runlogs", h.handleListRunLogs)
		r.Delete("/runlogs", h.handleClearRunLogs)
		r.Post("/approvals", h.handleGrantApproval)
		r.Delete("/approvals", h.handleClearApprovals)
		r.Get("/policy.yaml", h.handleExportPolicyYAML)
		r.Put("/policy.yaml", h.handleImportPolicyYAML)
	})

	return r
}

func requestLogger(logger corekit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Info("http request", map[string]interface{}{
				"method": r.Method,
				"path":   r.URL.Path,
			})
			next.ServeHTTP(w, r)
		})
	}
}
