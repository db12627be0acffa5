package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"canonreg/internal/lookup/service"
	"canonreg/internal/registrant/models"
	"canonreg/pkg/platform/httputil"
	"canonreg/pkg/requestcontext"
)

// Service defines the lookup operations the handler depends on.
type Service interface {
	Inspect(ctx context.Context, raw string) service.Inspection
	Resolve(ctx context.Context, raw string) (*models.Record, error)
}

// Handler wires lookup endpoints to the lookup service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a lookup handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts lookup endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/lookup/{canonicalID}", h.HandleResolve)
	r.Get("/identifiers/{canonicalID}", h.HandleInspect)
}

// HandleResolve handles GET /lookup/{canonicalID} requests.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	raw := chi.URLParam(r, "canonicalID")

	rec, err := h.service.Resolve(ctx, raw)
	if err != nil {
		h.logger.InfoContext(ctx, "lookup did not resolve",
			"request_id", requestcontext.RequestID(ctx),
			"canonical_id", raw,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec))
}

// HandleInspect handles GET /identifiers/{canonicalID} requests. It reports
// grammar validity and the decomposed fields without touching the store, so
// it works for identifiers that were never registered.
func (h *Handler) HandleInspect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	raw := chi.URLParam(r, "canonicalID")

	insp := h.service.Inspect(ctx, raw)
	httputil.WriteJSON(w, http.StatusOK, FromInspection(insp))
}
