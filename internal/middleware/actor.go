package middleware

import (
	"net/http"

	"github.com/rolecultura/role/internal/auth"
)

// ActorHeader is set by the upstream auth gateway after it has verified the
// session.
const ActorHeader = "X-Actor-ID"

// Actor copies the gateway-supplied user id into the request context.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get(ActorHeader); id != "" {
			r = r.WithContext(auth.WithActor(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}
