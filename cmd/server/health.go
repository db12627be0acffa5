package main

import (
	"database/sql"
	"net/http"

	"canonreg/internal/platform/redis"
	"canonreg/pkg/platform/httputil"
)

// healthz reports liveness of the configured backing services. Components
// that are not configured are reported as skipped rather than failing.
func healthz(db *sql.DB, cache *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		status := http.StatusOK
		checks := map[string]string{}

		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				checks["postgres"] = "down"
				status = http.StatusServiceUnavailable
			} else {
				checks["postgres"] = "ok"
			}
		} else {
			checks["postgres"] = "skipped"
		}

		if cache != nil {
			if err := cache.Health(ctx); err != nil {
				checks["redis"] = "down"
				status = http.StatusServiceUnavailable
			} else {
				checks["redis"] = "ok"
			}
		} else {
			checks["redis"] = "skipped"
		}

		httputil.WriteJSON(w, status, checks)
	}
}
