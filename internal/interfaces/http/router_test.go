package http

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/SessionSync/internal/application/calendar"
	"github.com/turtacn/SessionSync/internal/application/scheduling"
	"github.com/turtacn/SessionSync/internal/domain/appointment"
	"github.com/turtacn/SessionSync/internal/domain/timezone"
	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/SessionSync/internal/interfaces/http/handlers"
	"github.com/turtacn/SessionSync/internal/interfaces/http/middleware"
	"github.com/turtacn/SessionSync/internal/testutil"
	"github.com/turtacn/SessionSync/internal/testutil/memstore"
)

func newTestRouter(t *testing.T, origins ...string) (http.Handler, prometheus.MetricsCollector) {
	t.Helper()
	log := testutil.NewMockLogger()
	store := memstore.New(&appointment.Appointment{
		ID:             "a1",
		Date:           "2024-09-18",
		Time:           "14:00",
		HostTimezone:   "America/New_York",
		ViewerTimezone: "Europe/Paris",
		Status:         "en attente",
		HostName:       "Coach Martin",
		ViewerName:     "Jean Dupont",
	})
	svc := scheduling.NewService(store, timezone.NewConverter(log), calendar.NewLinkBuilder(calendar.LinkConfig{}), log,
		scheduling.WithClock(func() time.Time { return time.Date(2024, 9, 10, 9, 0, 0, 0, time.UTC) }))

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "router", Subsystem: "test"}, log)
	require.NoError(t, err)

	return NewRouter(RouterConfig{
		AppointmentHandler: handlers.NewAppointmentHandler(svc, log),
		TimezoneHandler:    handlers.NewTimezoneHandler(svc, log),
		StatusHandler:      handlers.NewStatusHandler(log),
		HealthHandler:      handlers.NewHealthHandler("test"),
		LoggingConfig:      middleware.DefaultLoggingConfig(),
		CORSOrigins:        origins,
		Logger:             log,
		Metrics:            prometheus.NewAppMetrics(collector),
		MetricsHandler:     collector.Handler(),
	}), collector
}

func TestNewRouter_Routes(t *testing.T) {
	t.Parallel()
	cases := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodGet, "/readyz", "", http.StatusOK},
		{http.MethodGet, "/healthz/detail", "", http.StatusOK},
		{http.MethodGet, "/api/v1/appointments/a1", "", http.StatusOK},
		{http.MethodGet, "/api/v1/appointments/a1/calendar-link", "", http.StatusOK},
		{http.MethodGet, "/api/v1/appointments/a1/calendar.ics", "", http.StatusOK},
		{http.MethodGet, "/api/v1/appointments/zz", "", http.StatusNotFound},
		{http.MethodPost, "/api/v1/appointments/a1/status", `{"status":"confirmé"}`, http.StatusOK},
		{http.MethodPost, "/api/v1/timezone/convert", `{"time":"10:00","date":"2024-09-17","from_zone":"UTC","to_zone":"Asia/Tokyo"}`, http.StatusOK},
		{http.MethodPost, "/api/v1/statuses/classify", `{"status":"accepté"}`, http.StatusOK},
		{http.MethodPost, "/api/v1/statuses/transition", `{"from":"pending","to":"confirmed"}`, http.StatusOK},
		{http.MethodGet, "/api/v1/unknown", "", http.StatusNotFound},
		{http.MethodDelete, "/api/v1/appointments/a1", "", http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			t.Parallel()
			router, _ := newTestRouter(t)

			req := httptest.NewRequest(tc.method, tc.path, bytes.NewBufferString(tc.body))
			if tc.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.want, w.Code, w.Body.String())
			assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
		})
	}
}

func TestNewRouter_BackfillUnmountedWithoutHandler(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/backfill", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNewRouter_MetricsEndpoint(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/appointments/a1", nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `path="/api/v1/appointments/{appointmentID}"`)
}

func TestNewRouter_CORS(t *testing.T) {
	t.Parallel()
	t.Run("enabled", func(t *testing.T) {
		t.Parallel()
		router, _ := newTestRouter(t, "https://app.example.com")

		req := httptest.NewRequest(http.MethodOptions, "/api/v1/timezone/convert", nil)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	})
	t.Run("disabled", func(t *testing.T) {
		t.Parallel()
		router, _ := newTestRouter(t)

		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("Origin", "https://app.example.com")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestNewRouter_NilHandlers(t *testing.T) {
	t.Parallel()
	var router http.Handler
	require.NotPanics(t, func() { router = NewRouter(RouterConfig{}) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

//Personal.AI order the ending
