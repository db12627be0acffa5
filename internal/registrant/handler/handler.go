package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"canonreg/internal/registrant/models"
	"canonreg/internal/registrant/service"
	dErrors "canonreg/pkg/domain-errors"
	"canonreg/pkg/platform/httputil"
	"canonreg/pkg/requestcontext"
)

// Service defines the registration operations the handler depends on.
type Service interface {
	RegisterPerson(ctx context.Context, req service.RegisterPersonRequest) (*models.Person, error)
	RegisterOrganization(ctx context.Context, req service.RegisterOrganizationRequest) (*models.Organization, error)
	Approve(ctx context.Context, kind models.Kind, id uuid.UUID) error
	Reject(ctx context.Context, kind models.Kind, id uuid.UUID, reason string) error
	ListPending(ctx context.Context, kind models.Kind) ([]*models.Record, error)
}

// Handler wires registration endpoints to the registrant service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a registrant handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public registration endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/register/person", h.HandleRegisterPerson)
	r.Post("/register/organization", h.HandleRegisterOrganization)
}

// RegisterAdmin mounts the review queue endpoints. The router guards these
// with the admin token middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/pending/{kind}", h.HandleListPending)
	r.Post("/admin/registrants/{kind}/{id}/approve", h.HandleApprove)
	r.Post("/admin/registrants/{kind}/{id}/reject", h.HandleReject)
}

// HandleRegisterPerson handles POST /register/person requests.
func (h *Handler) HandleRegisterPerson(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[service.RegisterPersonRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	p, err := h.service.RegisterPerson(ctx, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "person registration failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "person registration accepted",
		"request_id", requestID,
		"canonical_id", p.CanonicalID.Raw,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromPerson(p))
}

// HandleRegisterOrganization handles POST /register/organization requests.
func (h *Handler) HandleRegisterOrganization(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[service.RegisterOrganizationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	o, err := h.service.RegisterOrganization(ctx, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "organization registration failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "organization registration accepted",
		"request_id", requestID,
		"canonical_id", o.CanonicalID.Raw,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromOrganization(o))
}

// HandleListPending handles GET /admin/pending/{kind} requests.
func (h *Handler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	kind := models.Kind(chi.URLParam(r, "kind"))
	records, err := h.service.ListPending(ctx, kind)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecords(records))
}

// HandleApprove handles POST /admin/registrants/{kind}/{id}/approve requests.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	kind, id, ok := h.registrantParams(w, r)
	if !ok {
		return
	}

	if err := h.service.Approve(ctx, kind, id); err != nil {
		h.logger.ErrorContext(ctx, "approval failed",
			"request_id", requestID,
			"kind", string(kind),
			"id", id.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

// HandleReject handles POST /admin/registrants/{kind}/{id}/reject requests.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	kind, id, ok := h.registrantParams(w, r)
	if !ok {
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return
	}
	if body.Reason == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "rejection reason is required"))
		return
	}

	if err := h.service.Reject(ctx, kind, id, body.Reason); err != nil {
		h.logger.ErrorContext(ctx, "rejection failed",
			"request_id", requestID,
			"kind", string(kind),
			"id", id.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

func (h *Handler) registrantParams(w http.ResponseWriter, r *http.Request) (models.Kind, uuid.UUID, bool) {
	kind := models.Kind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unknown registrant kind"))
		return "", uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed registrant id"))
		return "", uuid.Nil, false
	}
	return kind, id, true
}
