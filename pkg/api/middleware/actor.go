package middleware

import (
	"net/http"
	"strings"

	"mercator-hq/crucible/pkg/telemetry/logging"
)

// ActorHeader names the caller on whose behalf a request is made. It is
// recorded as the actor of lifecycle evidence.
const ActorHeader = "X-Actor"

// ActorMiddleware copies the X-Actor header into the request context.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actor := strings.TrimSpace(r.Header.Get(ActorHeader)); actor != "" {
			r = r.WithContext(logging.WithActor(r.Context(), actor))
		}
		next.ServeHTTP(w, r)
	})
}
