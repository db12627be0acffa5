package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"canonreg/internal/migration/models"
	"canonreg/pkg/platform/httputil"
	"canonreg/pkg/requestcontext"
)

// Engine defines the migration triggers the handler exposes. Every endpoint
// sits behind the admin token middleware.
type Engine interface {
	CreateSchema(ctx context.Context) (*models.Report, error)
	MigratePersons(ctx context.Context) (*models.Report, error)
	MigrateOrganizations(ctx context.Context) (*models.Report, error)
	Validate(ctx context.Context) (*models.Report, error)
	Run(ctx context.Context) (*models.Report, error)
	Step() models.Step
	LogLines() []string
}

// Handler wires migration endpoints to the migration engine.
type Handler struct {
	engine Engine
	logger *slog.Logger
}

// New constructs a migration handler with its dependencies.
func New(engine Engine, logger *slog.Logger) *Handler {
	return &Handler{engine: engine, logger: logger}
}

// Register mounts the migration endpoints on the (admin-guarded) router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/migration/schema", h.trigger("create schema", h.engine.CreateSchema))
	r.Post("/admin/migration/persons", h.trigger("migrate persons", h.engine.MigratePersons))
	r.Post("/admin/migration/organizations", h.trigger("migrate organizations", h.engine.MigrateOrganizations))
	r.Post("/admin/migration/validate", h.trigger("validate migration", h.engine.Validate))
	r.Post("/admin/migration/run", h.trigger("run full migration", h.engine.Run))
	r.Get("/admin/migration/status", h.HandleStatus)
	r.Get("/admin/migration/log", h.HandleLog)
}

// trigger adapts one engine step to an HTTP endpoint. All triggers share the
// same shape: run synchronously, return the structured report.
func (h *Handler) trigger(name string, step func(context.Context) (*models.Report, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := requestcontext.RequestID(ctx)

		report, err := step(ctx)
		if err != nil {
			h.logger.ErrorContext(ctx, "migration trigger failed",
				"request_id", requestID,
				"trigger", name,
				"error", err,
			)
			httputil.WriteError(w, err)
			return
		}

		h.logger.InfoContext(ctx, "migration trigger finished",
			"request_id", requestID,
			"trigger", name,
			"step", string(report.Step),
			"migrated", report.Migrated,
			"failed", report.Failed,
		)
		httputil.WriteJSON(w, http.StatusOK, report)
	}
}

// HandleStatus handles GET /admin/migration/status requests.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"step": string(h.engine.Step()),
	})
}

// HandleLog handles GET /admin/migration/log requests, returning the
// append-only audit trail of the current process's migration activity.
func (h *Handler) HandleLog(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string][]string{
		"lines": h.engine.LogLines(),
	})
}
