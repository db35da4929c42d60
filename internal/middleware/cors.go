// internal/middleware/cors.go
//
// Permissive CORS for the public functions.
//
// The functions are called from the admin SPA and from the hosted cron
// trigger, neither of which shares our origin.  Every response carries the
// allow headers, and OPTIONS preflights are answered with 204 without
// reaching the handler.

package middleware

import "net/http"

const (
	corsHeaders = "authorization, x-client-info, apikey, content-type, x-actor-id"
	corsMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
)

// CORS returns a middleware allowing origin (usually "*").
func CORS(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Headers", corsHeaders)
			h.Set("Access-Control-Allow-Methods", corsMethods)
			if origin != "*" {
				h.Add("Vary", "Origin")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
