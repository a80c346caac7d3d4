package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "birdctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "birdctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
	driverCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "birdctl",
			Subsystem: "driver",
			Name:      "commands_total",
			Help:      "Commands sent to the harness by outcome.",
		},
		[]string{"command", "result"},
	)
	driverRoundTrip = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "birdctl",
			Subsystem: "driver",
			Name:      "round_trip_seconds",
			Help:      "Time from command encode to decoded reply.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"command"},
	)
	driverBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "birdctl",
			Subsystem: "driver",
			Name:      "reply_bytes_total",
			Help:      "Blob bytes received in screenshot replies.",
		},
		[]string{"command"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, driverCommands, driverRoundTrip, driverBytes)
	})
}

func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, route, statusLabel).Inc()
	httpDuration.WithLabelValues(method, route, statusLabel).Observe(duration.Seconds())
}

// RecordCommand counts one driver operation. duration is only observed for
// commands that waited on a reply.
func RecordCommand(command, result string, duration time.Duration, awaited bool) {
	RegisterMetrics()
	driverCommands.WithLabelValues(command, result).Inc()
	if awaited {
		driverRoundTrip.WithLabelValues(command).Observe(duration.Seconds())
	}
}

func RecordReplyBytes(command string, n int) {
	RegisterMetrics()
	driverBytes.WithLabelValues(command).Add(float64(n))
}
