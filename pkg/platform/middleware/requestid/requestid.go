package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"canonreg/pkg/requestcontext"
)

const headerName = "X-Request-Id"

// Middleware assigns each request an id, honoring one supplied by an
// upstream proxy, and echoes it on the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerName)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(headerName, id)
		ctx := requestcontext.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
