package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "instaflow"

// Result label values
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultSkipped = "skipped"
)

var (
	registry = prometheus.NewRegistry()

	UsersCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "users_created_total",
		Help:      "Number of tracked users created, by how they were added.",
	}, []string{"mode"})

	Backups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backups_total",
		Help:      "Number of backup archives created.",
	}, []string{"result"})

	Restores = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "restores_total",
		Help:      "Number of restore attempts.",
	}, []string{"result"})

	RemindersSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reminders_sent_total",
		Help:      "Number of reminder digests delivered, by notifier.",
	}, []string{"notifier", "result"})

	HTTPRequests = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		UsersCreated,
		Backups,
		Restores,
		RemindersSent,
		HTTPRequests,
	)
}

// Registry exposes the collector registry, mainly for tests
func Registry() *prometheus.Registry {
	return registry
}

// Handler serves the registered metrics in the Prometheus exposition format
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// Result maps an error to a result label value
func Result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
