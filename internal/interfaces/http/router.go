// Package http assembles the SessionSync REST API on chi.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/SessionSync/internal/interfaces/http/handlers"
	"github.com/turtacn/SessionSync/internal/interfaces/http/middleware"
)

// RouterConfig aggregates all handler and middleware dependencies required
// to construct the complete HTTP route tree.  Nil handlers leave their
// routes unmounted.
type RouterConfig struct {
	// Handlers
	AppointmentHandler *handlers.AppointmentHandler
	TimezoneHandler    *handlers.TimezoneHandler
	StatusHandler      *handlers.StatusHandler
	BackfillHandler    *handlers.BackfillHandler
	HealthHandler      *handlers.HealthHandler

	// Middleware
	LoggingConfig middleware.LoggingConfig
	CORSOrigins   []string

	// Infrastructure
	Logger         logging.Logger
	Metrics        *prometheus.AppMetrics
	MetricsHandler http.Handler
}

// NewRouter constructs the complete HTTP route tree from the given configuration.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	r := chi.NewRouter()

	// --- Global middleware (applied to every request) ---
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogging(cfg.Logger, cfg.LoggingConfig))
	r.Use(middleware.Metrics(cfg.Metrics))
	r.Use(middleware.Recovery(cfg.Logger))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins...)))
	}

	// --- Probes ---
	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
		r.Get("/healthz/detail", cfg.HealthHandler.Detailed)
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// --- API v1 ---
	r.Route("/api/v1", func(api chi.Router) {
		registerAppointmentRoutes(api, cfg.AppointmentHandler)
		registerTimezoneRoutes(api, cfg.TimezoneHandler)
		registerStatusRoutes(api, cfg.StatusHandler)
		registerBackfillRoutes(api, cfg.BackfillHandler)
	})

	return r
}

// registerAppointmentRoutes mounts appointment endpoints under /appointments.
func registerAppointmentRoutes(r chi.Router, h *handlers.AppointmentHandler) {
	if h == nil {
		return
	}
	r.Route("/appointments", func(ar chi.Router) {
		ar.Post("/", h.Create)

		ar.Route("/{appointmentID}", func(item chi.Router) {
			item.Get("/", h.Get)
			item.Post("/status", h.ChangeStatus)
			item.Get("/calendar-link", h.CalendarLink)
			item.Get("/calendar.ics", h.ICS)
		})
	})
}

func registerTimezoneRoutes(r chi.Router, h *handlers.TimezoneHandler) {
	if h == nil {
		return
	}
	r.Post("/timezone/convert", h.Convert)
}

func registerStatusRoutes(r chi.Router, h *handlers.StatusHandler) {
	if h == nil {
		return
	}
	r.Route("/statuses", func(sr chi.Router) {
		sr.Post("/classify", h.Classify)
		sr.Post("/transition", h.Transition)
	})
}

// registerBackfillRoutes mounts the reconciliation trigger and its last report.
func registerBackfillRoutes(r chi.Router, h *handlers.BackfillHandler) {
	if h == nil {
		return
	}
	r.Route("/backfill", func(br chi.Router) {
		br.Post("/", h.Run)
		br.Get("/last", h.Last)
	})
}

//Personal.AI order the ending
