package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/SessionSync/internal/testutil"
	"github.com/turtacn/SessionSync/pkg/types/common"
)

// ---------------------------------------------------------------------------
// RequestID
// ---------------------------------------------------------------------------

func TestRequestID(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{name: "propagates caller id", incoming: "abc-123", keep: true},
		{name: "generates when missing", incoming: ""},
		{name: "replaces oversized id", incoming: strings.Repeat("x", maxRequestIDLength+1)},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var seen string
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = common.RequestIDFromContext(r.Context())
			}))

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.incoming != "" {
				r.Header.Set(RequestIDHeader, tc.incoming)
			}
			handler.ServeHTTP(w, r)

			assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
			if tc.keep {
				assert.Equal(t, tc.incoming, seen)
				return
			}
			_, err := uuid.Parse(seen)
			assert.NoError(t, err)
		})
	}
}

// ---------------------------------------------------------------------------
// Recovery
// ---------------------------------------------------------------------------

func TestRecovery_MasksPanic(t *testing.T) {
	t.Parallel()
	log := testutil.NewMockLogger()
	handler := RequestID(Recovery(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/appointments/a1", nil)
	r.Header.Set(RequestIDHeader, "req-1")
	require.NotPanics(t, func() { handler.ServeHTTP(w, r) })

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body common.ErrorDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "COMMON_001", body.Code)
	assert.NotContains(t, w.Body.String(), "boom")

	entry, ok := log.Find("error", "http panic recovered")
	require.True(t, ok)
	p, _ := entry.Field("panic")
	assert.Equal(t, "boom", p)
	id, _ := entry.Field("request_id")
	assert.Equal(t, "req-1", id)
}

func TestRecovery_ReraisesAbort(t *testing.T) {
	t.Parallel()
	handler := Recovery(logging.NewNopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

// ---------------------------------------------------------------------------
// Metrics
// ---------------------------------------------------------------------------

func TestMetrics_LabelsByRoutePattern(t *testing.T) {
	t.Parallel()
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "test", Subsystem: "http"}, nil)
	require.NoError(t, err)
	m := prometheus.NewAppMetrics(collector)

	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Get("/api/v1/appointments/{appointmentID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, id := range []string{"a1", "a2", "a3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/appointments/"+id, nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	w := httptest.NewRecorder()
	collector.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	out := w.Body.String()

	assert.Contains(t, out, `test_http_http_requests_total{method="GET",path="/api/v1/appointments/{appointmentID}",status_code="200"} 3`)
	assert.Contains(t, out, `test_http_http_requests_total{method="GET",path="unmatched",status_code="404"} 1`)
	assert.Contains(t, out, `test_http_http_active_requests{method="GET"} 0`)
	assert.NotContains(t, out, `path="/api/v1/appointments/a1"`)
}

//Personal.AI order the ending
