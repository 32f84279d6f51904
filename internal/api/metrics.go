package api

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics for outgoing backend calls. Registered in the default
// registry; a host application can expose them via promhttp.

var (
	// backendRequestsTotal counts relay calls by method, route, and status.
	// The route label is the path template ("/goals/{goalId}"), not the
	// concrete path, to keep cardinality bounded.
	//
	// Labels: method (GET, POST, ...), route, status (200, 401, 500)
	// Type: Counter
	backendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_backend_requests_total",
			Help: "Total number of backend relay requests",
		},
		[]string{"method", "route", "status"},
	)

	// backendRequestDuration measures round-trip time per route.
	//
	// Labels: method, route
	// Type: Histogram
	backendRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tracker_backend_request_duration_seconds",
			Help:    "Backend relay request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func init() {
	prometheus.MustRegister(
		backendRequestsTotal,
		backendRequestDuration,
	)
}

// observeRequest records one relay round trip. A status of 0 means the
// request never produced a response (transport failure) and is reported
// as 500.
func observeRequest(method, route string, status int, elapsed time.Duration) {
	if status == 0 {
		status = 500
	}
	backendRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	backendRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
