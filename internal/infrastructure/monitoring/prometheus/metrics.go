package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds all application metrics.  A nil *AppMetrics is valid and
// every Record helper is a no-op on it.
type AppMetrics struct {
	// HTTP Layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Scheduling Layer
	ConversionsTotal       CounterVec
	StatusTransitionsTotal CounterVec
	CalendarLinksTotal     CounterVec

	// Backfill
	BackfillRunsTotal   CounterVec
	BackfillItemsTotal  CounterVec
	BackfillRunDuration HistogramVec
	BackfillLastRun     GaugeVec

	// External collaborators
	MeetLinkRequestsTotal  CounterVec
	MeetLinkDuration       HistogramVec
	EventsPublishedTotal   CounterVec
	MessageProcessDuration HistogramVec

	// Infrastructure Layer
	DBQueryDuration   HistogramVec
	CacheHitsTotal    CounterVec
	CacheMissesTotal  CounterVec
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

// Default Buckets
var (
	DefaultHTTPDurationBuckets     = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultBackfillDurationBuckets = []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300, 600}
	DefaultDBDurationBuckets       = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
)

// Label values for CalendarLinksTotal's "source".
const (
	LinkSourceAPI        = "api"
	LinkSourceTransition = "transition"
	LinkSourceBackfill   = "backfill"
)

// NewAppMetrics registers all metrics and returns AppMetrics struct.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	// HTTP
	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method")

	// Scheduling
	m.ConversionsTotal = collector.RegisterCounter("timezone_conversions_total", "Timezone conversions by result (ok, fallback, invalid)", "result")
	m.StatusTransitionsTotal = collector.RegisterCounter("status_transitions_total", "Appointment status transitions", "from", "to", "result")
	m.CalendarLinksTotal = collector.RegisterCounter("calendar_links_total", "Calendar links built", "source", "outcome")

	// Backfill
	m.BackfillRunsTotal = collector.RegisterCounter("backfill_runs_total", "Backfill runs by result", "trigger", "result")
	m.BackfillItemsTotal = collector.RegisterCounter("backfill_items_total", "Backfill candidates by outcome (fixed, failed, degraded)", "outcome")
	m.BackfillRunDuration = collector.RegisterHistogram("backfill_run_duration_seconds", "Backfill run duration", DefaultBackfillDurationBuckets, "trigger")
	m.BackfillLastRun = collector.RegisterGauge("backfill_last_run_timestamp_seconds", "Unix time of the last finished backfill run", "trigger")

	// External collaborators
	m.MeetLinkRequestsTotal = collector.RegisterCounter("meetlink_requests_total", "Meeting link provider calls", "result")
	m.MeetLinkDuration = collector.RegisterHistogram("meetlink_request_duration_seconds", "Meeting link provider latency", DefaultHTTPDurationBuckets)
	m.EventsPublishedTotal = collector.RegisterCounter("events_published_total", "Domain events published", "topic", "result")
	m.MessageProcessDuration = collector.RegisterHistogram("mq_process_duration_seconds", "Message processing duration", DefaultBackfillDurationBuckets, "topic")

	// Infrastructure
	m.DBQueryDuration = collector.RegisterHistogram("db_query_duration_seconds", "Database query duration", DefaultDBDurationBuckets, "operation")
	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")
	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "code")

	return m
}

// NewNopAppMetrics returns AppMetrics backed by the no-op collector.
func NewNopAppMetrics() *AppMetrics {
	return NewAppMetrics(NewNopCollector())
}

// Helpers

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func RecordHTTPRequest(metrics *AppMetrics, method, path string, statusCode int, duration time.Duration) {
	if metrics == nil {
		return
	}
	metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// TrackInFlight raises the in-flight gauge for method and returns the
// matching decrement.
func TrackInFlight(metrics *AppMetrics, method string) func() {
	if metrics == nil {
		return func() {}
	}
	g := metrics.HTTPActiveRequests.WithLabelValues(method)
	g.Inc()
	return g.Dec
}

// RecordConversion counts one conversion.  fallback marks an unresolvable zone
// that was answered with the host-local clock.
func RecordConversion(metrics *AppMetrics, fallback bool, err error) {
	if metrics == nil {
		return
	}
	result := "ok"
	switch {
	case fallback:
		result = "fallback"
	case err != nil:
		result = "invalid"
	}
	metrics.ConversionsTotal.WithLabelValues(result).Inc()
}

func RecordStatusTransition(metrics *AppMetrics, from, to string, err error) {
	if metrics == nil {
		return
	}
	result := "applied"
	if err != nil {
		result = "rejected"
	}
	metrics.StatusTransitionsTotal.WithLabelValues(from, to, result).Inc()
}

func RecordCalendarLink(metrics *AppMetrics, source string, degraded bool) {
	if metrics == nil {
		return
	}
	result := "built"
	if degraded {
		result = "degraded"
	}
	metrics.CalendarLinksTotal.WithLabelValues(source, result).Inc()
}

// RecordBackfillRun records the per-item counters and the run duration of one
// reconciliation pass.
func RecordBackfillRun(metrics *AppMetrics, trigger string, fixed, failed, degraded int, duration time.Duration, err error) {
	if metrics == nil {
		return
	}
	metrics.BackfillRunsTotal.WithLabelValues(trigger, outcome(err)).Inc()
	metrics.BackfillItemsTotal.WithLabelValues("fixed").Add(float64(fixed))
	metrics.BackfillItemsTotal.WithLabelValues("failed").Add(float64(failed))
	metrics.BackfillItemsTotal.WithLabelValues("degraded").Add(float64(degraded))
	metrics.BackfillRunDuration.WithLabelValues(trigger).Observe(duration.Seconds())
	metrics.BackfillLastRun.WithLabelValues(trigger).Set(float64(time.Now().Unix()))
}

func RecordMeetLinkCall(metrics *AppMetrics, duration time.Duration, err error) {
	if metrics == nil {
		return
	}
	metrics.MeetLinkRequestsTotal.WithLabelValues(outcome(err)).Inc()
	metrics.MeetLinkDuration.WithLabelValues().Observe(duration.Seconds())
}

func RecordEventPublish(metrics *AppMetrics, topic string, err error) {
	if metrics == nil {
		return
	}
	metrics.EventsPublishedTotal.WithLabelValues(topic, outcome(err)).Inc()
}

func RecordMessageProcessed(metrics *AppMetrics, topic string, duration time.Duration) {
	if metrics == nil {
		return
	}
	metrics.MessageProcessDuration.WithLabelValues(topic).Observe(duration.Seconds())
}

func RecordDBQuery(metrics *AppMetrics, operation string, duration time.Duration, err error) {
	if metrics == nil {
		return
	}
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues("database", "query_error").Inc()
	}
}

func RecordCacheAccess(metrics *AppMetrics, cache string, hit bool) {
	if metrics == nil {
		return
	}
	if hit {
		metrics.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		metrics.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

func SetHealthStatus(metrics *AppMetrics, component string, up bool) {
	if metrics == nil {
		return
	}
	v := 0.0
	if up {
		v = 1
	}
	metrics.HealthCheckStatus.WithLabelValues(component).Set(v)
}

func RecordError(metrics *AppMetrics, component, code string) {
	if metrics == nil {
		return
	}
	metrics.ErrorsTotal.WithLabelValues(component, code).Inc()
}

//Personal.AI order the ending
