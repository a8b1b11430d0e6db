package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/loomhq/loom/internal/domain/credential"
	"github.com/loomhq/loom/internal/domain/decision"
	"github.com/loomhq/loom/internal/domain/reconcile"
	"github.com/loomhq/loom/internal/domain/source"
	"github.com/loomhq/loom/internal/repository"
	"github.com/loomhq/loom/internal/scheduler"
)

// DecisionService is the API's view of the decision log.
type DecisionService interface {
	Get(ctx context.Context, tenantID, id string) (*decision.Decision, error)
	Finalize(ctx context.Context, tenantID, id string, outcome decision.Outcome, appliedAt *time.Time, reason string) error
	ListForTenant(ctx context.Context, tenantID string, opts decision.ListOptions) ([]decision.Decision, error)
	Metrics(ctx context.Context, tenantID string, window time.Duration) (decision.Metrics, error)
}

// CredentialService manages source connections.
type CredentialService interface {
	Put(ctx context.Context, tenantID string, req credential.PutRequest) (*credential.Credential, error)
	Revoke(ctx context.Context, tenantID string, src source.Source) error
}

// Runner triggers on-demand sync and digest runs.
type Runner interface {
	RunSync(ctx context.Context, tenantID string, src source.Source) (*scheduler.SyncReport, error)
	RunDigest(ctx context.Context, tenantID string, kind reconcile.DigestKind) error
}

// Applier executes a pending decision on operator request.
type Applier interface {
	Apply(ctx context.Context, tenantID, decisionID string) error
}

// Server wires the tenant-facing HTTP API.
type Server struct {
	decisions   DecisionService
	credentials CredentialService
	runner      Runner
	applier     Applier
}

// NewServer creates the HTTP router with middleware.
func NewServer(
	decisions DecisionService,
	credentials CredentialService,
	runner Runner,
	applier Applier,
	authMiddleware func(http.Handler) http.Handler,
) *chi.Mux {
	r := chi.NewRouter()
	srv := &Server{
		decisions:   decisions,
		credentials: credentials,
		runner:      runner,
		applier:     applier,
	}

	r.Get("/health", srv.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		if authMiddleware != nil {
			r.Use(authMiddleware)
		}
		r.Get("/decisions", srv.handleListDecisions)
		r.Get("/decisions/{id}", srv.handleGetDecision)
		r.Post("/decisions/{id}/apply", srv.handleApplyDecision)
		r.Post("/decisions/{id}/reject", srv.handleRejectDecision)
		r.Get("/metrics", srv.handleMetrics)
		r.Put("/credentials/{source}", srv.handlePutCredential)
		r.Delete("/credentials/{source}", srv.handleRevokeCredential)
		r.Post("/runs/sync", srv.handleRunSync)
		r.Post("/runs/digest", srv.handleRunDigest)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleListDecisions(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := TenantFromContext(r.Context())
	if !ok {
		http.Error(w, "missing tenant", http.StatusUnauthorized)
		return
	}

	opts := decision.ListOptions{Limit: 50}
	q := r.URL.Query()
	if kind := q.Get("kind"); kind != "" {
		opts.Kinds = []decision.Kind{decision.Kind(kind)}
	}
	if outcome := q.Get("outcome"); outcome != "" {
		opts.Outcomes = []decision.Outcome{decision.Outcome(outcome)}
	}
	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 || n > 500 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		opts.Limit = n
	}
	if since := q.Get("since"); since != "" {
		ts, err := time.Parse(time.RFC3339, since)
		if err != nil {
			http.Error(w, "invalid since", http.StatusBadRequest)
			return
		}
		opts.Since = ts
	}
	if offset := q.Get("offset"); offset != "" {
		n, err := strconv.Atoi(offset)
		if err != nil || n < 0 {
			http.Error(w, "invalid offset", http.StatusBadRequest)
			return
		}
		opts.Offset = n
	}

	decisions, err := s.decisions.ListForTenant(r.Context(), tenantID, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if decisions == nil {
		decisions = []decision.Decision{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"decisions": decisions})
}

func (s *Server) handleGetDecision(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := TenantFromContext(r.Context())
	if !ok {
		http.Error(w, "missing tenant", http.StatusUnauthorized)
		return
	}

	d, err := s.decisions.Get(r.Context(), tenantID, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleApplyDecision(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := TenantFromContext(r.Context())
	if !ok {
		http.Error(w, "missing tenant", http.StatusUnauthorized)
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.applier.Apply(r.Context(), tenantID, id); err != nil {
		s.writeError(w, err)
		return
	}

	d, err := s.decisions.Get(r.Context(), tenantID, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleRejectDecision(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := TenantFromContext(r.Context())
	if !ok {
		http.Error(w, "missing tenant", http.StatusUnauthorized)
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	id := chi.URLParam(r, "id")
	if err := s.decisions.Finalize(r.Context(), tenantID, id, decision.OutcomeRejected, nil, body.Reason); err != nil {
		s.writeError(w, err)
		return
	}

	d, err := s.decisions.Get(r.Context(), tenantID, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := TenantFromContext(r.Context())
	if !ok {
		http.Error(w, "missing tenant", http.StatusUnauthorized)
		return
	}

	window := 24 * time.Hour
	if raw := r.URL.Query().Get("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			http.Error(w, "invalid window", http.StatusBadRequest)
			return
		}
		window = d
	}

	m, err := s.decisions.Metrics(r.Context(), tenantID, window)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

func (s *Server) handlePutCredential(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := TenantFromContext(r.Context())
	if !ok {
		http.Error(w, "missing tenant", http.StatusUnauthorized)
		return
	}

	src := source.Source(chi.URLParam(r, "source"))
	if !src.Valid() {
		http.Error(w, "unknown source", http.StatusBadRequest)
		return
	}

	var body struct {
		Token          string     `json:"token"`
		TokenExpiresAt *time.Time `json:"token_expires_at"`
		WorkspaceID    string     `json:"workspace_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	cred, err := s.credentials.Put(r.Context(), tenantID, credential.PutRequest{
		Source:         src,
		Token:          body.Token,
		TokenExpiresAt: body.TokenExpiresAt,
		WorkspaceID:    body.WorkspaceID,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cred)
}

func (s *Server) handleRevokeCredential(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := TenantFromContext(r.Context())
	if !ok {
		http.Error(w, "missing tenant", http.StatusUnauthorized)
		return
	}

	src := source.Source(chi.URLParam(r, "source"))
	if !src.Valid() {
		http.Error(w, "unknown source", http.StatusBadRequest)
		return
	}

	if err := s.credentials.Revoke(r.Context(), tenantID, src); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRunSync(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := TenantFromContext(r.Context())
	if !ok {
		http.Error(w, "missing tenant", http.StatusUnauthorized)
		return
	}

	var body struct {
		Source string `json:"source"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	src := source.Source(body.Source)
	if !src.Valid() {
		http.Error(w, "unknown source", http.StatusBadRequest)
		return
	}

	report, err := s.runner.RunSync(r.Context(), tenantID, src)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleRunDigest(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := TenantFromContext(r.Context())
	if !ok {
		http.Error(w, "missing tenant", http.StatusUnauthorized)
		return
	}

	var body struct {
		Kind string `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	kind := reconcile.DigestKind(body.Kind)
	if kind != reconcile.DigestDaily && kind != reconcile.DigestWeekly {
		http.Error(w, "unknown digest kind", http.StatusBadRequest)
		return
	}

	if err := s.runner.RunDigest(r.Context(), tenantID, kind); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, decision.ErrDecisionNotFound), errors.Is(err, repository.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, repository.ErrAlreadyFinalized),
		errors.Is(err, repository.ErrLeaseHeld),
		errors.Is(err, credential.ErrNotConnected):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, scheduler.ErrNotEligible):
		http.Error(w, err.Error(), http.StatusPaymentRequired)
	case errors.Is(err, scheduler.ErrTierLocked):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, decision.ErrInvalidInput),
		errors.Is(err, credential.ErrInvalidInput),
		errors.Is(err, repository.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
