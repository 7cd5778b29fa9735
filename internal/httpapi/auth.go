package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/coldroom/coldroom-ctl/internal/config"
)

// apiKeyMiddleware checks the X-API-Key header or api_key query parameter
// against the configured key. The health endpoint is exempt so monitoring
// does not need a credential.
func apiKeyMiddleware(cfg *config.Config) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" || r.URL.Path == "/api/v1/health" {
				next.ServeHTTP(w, r)
				return
			}

			want := cfg.Get("api.key")
			got := r.Header.Get("X-API-Key")
			if got == "" {
				got = r.URL.Query().Get("api_key")
			}

			if want == "" || got == "" || got != want {
				writeError(w, http.StatusUnauthorized, "invalid or missing API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
