package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Abdurahmanit/GroupProject/property-service/internal/platform/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MetricsManager holds the service's Prometheus collectors on a private registry.
type MetricsManager struct {
	Registry            *prometheus.Registry
	ListingMutations    *prometheus.CounterVec // by operation
	ImageUploads        *prometheus.CounterVec // by backend, result
	ImageDeletes        *prometheus.CounterVec // by backend, result
	OrphanedImagesTotal prometheus.Counter
	QueryCacheLookups   *prometheus.CounterVec   // hit, miss
	APIErrorsTotal      *prometheus.CounterVec   // by route, status
	APILatency          *prometheus.HistogramVec // by route, method
}

// NewMetricsManager creates and registers all collectors.
func NewMetricsManager(serviceName string) *MetricsManager {
	namespace := sanitize(serviceName)
	registry := prometheus.NewRegistry()

	m := &MetricsManager{
		Registry: registry,
		ListingMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listing_mutations_total",
			Help:      "Successful listing mutations by operation.",
		}, []string{"operation"}),
		ImageUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_uploads_total",
			Help:      "Image uploads by storage backend and result.",
		}, []string{"backend", "result"}),
		ImageDeletes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_deletes_total",
			Help:      "Physical image deletions by storage backend and result.",
		}, []string{"backend", "result"}),
		OrphanedImagesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphaned_images_total",
			Help:      "Images dropped from a listing whose stored bytes could not be removed.",
		}),
		QueryCacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_cache_lookups_total",
			Help:      "Search result cache lookups by result.",
		}, []string{"result"}),
		APIErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_errors_total",
			Help:      "HTTP responses with status >= 400 by route.",
		}, []string{"route", "status"}),
		APILatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_latency_seconds",
			Help:      "Latency of HTTP requests by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	registry.MustRegister(
		m.ListingMutations,
		m.ImageUploads,
		m.ImageDeletes,
		m.OrphanedImagesTotal,
		m.QueryCacheLookups,
		m.APIErrorsTotal,
		m.APILatency,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *MetricsManager) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// StartMetricsServer serves /metrics on its own port. An empty port disables it.
func StartMetricsServer(port string, appLogger *logger.Logger, m *MetricsManager) error {
	if port == "" {
		appLogger.Info("Prometheus metrics server port not configured, server will not start")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	appLogger.Info("Prometheus metrics server starting", zap.String("port", port), zap.String("path", "/metrics"))
	server := &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}
	return server.ListenAndServe()
}

// prometheus namespaces cannot contain dashes.
func sanitize(name string) string {
	out := []byte(name)
	for i, c := range out {
		if c == '-' || c == '.' {
			out[i] = '_'
		}
	}
	return string(out)
}

// The recorders below are safe to call on a nil manager so components can run
// without metrics in tests.

func (m *MetricsManager) ListingMutated(operation string) {
	if m == nil {
		return
	}
	m.ListingMutations.WithLabelValues(operation).Inc()
}

func (m *MetricsManager) ImageUploaded(backend string, err error) {
	if m == nil {
		return
	}
	m.ImageUploads.WithLabelValues(backend, result(err)).Inc()
}

func (m *MetricsManager) ImageDeleted(backend string, err error) {
	if m == nil {
		return
	}
	m.ImageDeletes.WithLabelValues(backend, result(err)).Inc()
}

func (m *MetricsManager) ImagesOrphaned(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.OrphanedImagesTotal.Add(float64(n))
}

func (m *MetricsManager) QueryCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.QueryCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.QueryCacheLookups.WithLabelValues("miss").Inc()
}

// HTTPRequestObserved records latency for every request and counts error
// responses. route should be the router pattern, not the raw path.
func (m *MetricsManager) HTTPRequestObserved(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.APILatency.WithLabelValues(route, method).Observe(elapsed.Seconds())
	if status >= http.StatusBadRequest {
		m.APIErrorsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
