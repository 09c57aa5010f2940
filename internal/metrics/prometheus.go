package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	providerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intellieats",
			Subsystem: "provider",
			Name:      "requests_total",
			Help:      "Total number of food provider calls by outcome.",
		},
		[]string{"provider", "operation", "outcome"},
	)

	providerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "intellieats",
			Subsystem: "provider",
			Name:      "request_duration_seconds",
			Help:      "Duration of food provider calls.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
		},
		[]string{"provider", "operation"},
	)

	barcodeResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intellieats",
			Subsystem: "resolver",
			Name:      "barcode_resolutions_total",
			Help:      "Barcode resolutions by result (cache_hit, created, conflict, not_found).",
		},
		[]string{"result"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intellieats",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "intellieats",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		providerRequests,
		providerDuration,
		barcodeResolutions,
		httpRequests,
		httpDuration,
	)
}

// Handler exposes the registry for scraping.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveProviderCall records one provider call. outcome is "ok", "not_found" or "error".
func ObserveProviderCall(provider, operation, outcome string, d time.Duration) {
	providerRequests.WithLabelValues(provider, operation, outcome).Inc()
	providerDuration.WithLabelValues(provider, operation).Observe(d.Seconds())
}

// ObserveBarcodeResolution counts a barcode resolution by result.
func ObserveBarcodeResolution(result string) {
	barcodeResolutions.WithLabelValues(result).Inc()
}

// ObserveHTTPRequest records a handled HTTP request.
func ObserveHTTPRequest(method, path string, status int, d time.Duration) {
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}
