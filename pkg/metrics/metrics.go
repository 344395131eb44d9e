// Package metrics defines the Prometheus metrics of the coordinator and the
// handler exposing them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Admission metrics
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "machaonweb_requests_total",
			Help: "Total number of submissions by admission status code",
		},
		[]string{"status"},
	)

	// Scheduler metrics
	LoopCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "machaonweb_scheduler_cycles_total",
			Help: "Total number of scheduler loop cycles by loop and outcome",
		},
		[]string{"loop", "outcome"},
	)

	JobsFinalized = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "machaonweb_jobs_finalized_total",
			Help: "Total number of finalized jobs by status code",
		},
		[]string{"status"},
	)

	NodeSyncsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "machaonweb_node_syncs_total",
			Help: "Total number of acknowledged cache uploads",
		},
	)

	// REST metrics
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "machaonweb_http_requests_total",
			Help: "Total number of HTTP requests by endpoint",
		},
		[]string{"endpoint"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(LoopCyclesTotal)
	prometheus.MustRegister(JobsFinalized)
	prometheus.MustRegister(NodeSyncsTotal)
	prometheus.MustRegister(HTTPRequestsTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
