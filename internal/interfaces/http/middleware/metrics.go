package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/prometheus"
)

// unmatchedRoute labels requests no route matched, keeping label
// cardinality bounded.
const unmatchedRoute = "unmatched"

// Metrics records request count, latency and in-flight requests.  The path
// label is the chi route pattern, never the raw URL.
func Metrics(m *prometheus.AppMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			done := prometheus.TrackInFlight(m, r.Method)
			defer done()

			start := time.Now()
			wrapped := newWrappedResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			prometheus.RecordHTTPRequest(m, r.Method, routePattern(r), wrapped.statusCode, time.Since(start))
		})
	}
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unmatchedRoute
	}
	if p := rctx.RoutePattern(); p != "" {
		return p
	}
	return unmatchedRoute
}

//Personal.AI order the ending
