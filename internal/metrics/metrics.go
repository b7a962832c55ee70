package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	UpdatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rvmbot_updates_total",
		Help: "Total chat updates received, by kind",
	}, []string{"kind"})
	FlowsStartedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rvmbot_flows_started_total",
		Help: "Total conversational flows started, by flow",
	}, []string{"flow"})
	NearestQueriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rvmbot_nearest_queries_total",
		Help: "Total nearest-machine lookups",
	})
	GeocodeRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rvmbot_geocode_requests_total",
		Help: "Total OneMap geocoding requests",
	})
	GeocodeFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rvmbot_geocode_failures_total",
		Help: "Total OneMap geocoding failures (transport or no result)",
	})
	GeocodeCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rvmbot_geocode_cache_hits_total",
		Help: "Total geocoding results served from cache",
	})
	GeocodeDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rvmbot_geocode_duration_ms",
		Help:    "OneMap call duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	StatusReportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rvmbot_status_reports_total",
		Help: "Total machine status reports recorded, by status",
	}, []string{"status"})
	RemindersFiredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rvmbot_reminders_fired_total",
		Help: "Total recycling reminders delivered",
	})
	ReminderSendFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rvmbot_reminder_send_failures_total",
		Help: "Total reminders that failed to send and will be retried",
	})
	SendFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rvmbot_send_failures_total",
		Help: "Total outbound chat messages that failed to send",
	})
)

func init() {
	prometheus.MustRegister(UpdatesTotal)
	prometheus.MustRegister(FlowsStartedTotal)
	prometheus.MustRegister(NearestQueriesTotal)
	prometheus.MustRegister(GeocodeRequestsTotal)
	prometheus.MustRegister(GeocodeFailuresTotal)
	prometheus.MustRegister(GeocodeCacheHitsTotal)
	prometheus.MustRegister(GeocodeDurationMs)
	prometheus.MustRegister(StatusReportsTotal)
	prometheus.MustRegister(RemindersFiredTotal)
	prometheus.MustRegister(ReminderSendFailuresTotal)
	prometheus.MustRegister(SendFailuresTotal)
}

// Handler exposes the registered metrics for Prometheus scraping.
func Handler() http.Handler { return promhttp.Handler() }
