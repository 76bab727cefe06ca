package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SweepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetwatch_sweeps_total",
			Help: "Total number of fleet sweeps",
		},
		[]string{"result"},
	)

	SweepsSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fleetwatch_sweeps_skipped_total",
			Help: "Ticks skipped because the previous sweep was still running",
		},
	)

	SweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fleetwatch_sweep_duration_seconds",
			Help:    "Duration of a full fleet sweep in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
	)

	Hosts = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fleetwatch_hosts",
			Help: "Hosts per status after the last sweep",
		},
		[]string{"status"},
	)

	HostFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetwatch_host_failures_total",
			Help: "Host evaluations that failed, by cause",
		},
		[]string{"kind"},
	)

	IncidentTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetwatch_incident_transitions_total",
			Help: "Incident actions taken by the tracker",
		},
		[]string{"action"},
	)

	ProbeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fleetwatch_probe_duration_seconds",
			Help:    "Liveness probe duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	TotalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetwatch_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleetwatch_http_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Init registers every collector with the default registry.
func Init() {
	prometheus.MustRegister(SweepsTotal)
	prometheus.MustRegister(SweepsSkipped)
	prometheus.MustRegister(SweepDuration)
	prometheus.MustRegister(Hosts)
	prometheus.MustRegister(HostFailures)
	prometheus.MustRegister(IncidentTransitions)
	prometheus.MustRegister(ProbeDuration)
	prometheus.MustRegister(TotalRequests)
	prometheus.MustRegister(RequestDuration)
}
