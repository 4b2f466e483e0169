package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics on a private registry
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Registry operation metrics
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// Manifest cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// Extension metrics
	ManifestsInstalled *prometheus.GaugeVec
	AssetsInstalled    *prometheus.CounterVec

	// Area metrics
	AreaMutations   *prometheus.CounterVec
	DanglingWidgets prometheus.Counter

	// Theme metrics
	ThemeActivations *prometheus.CounterVec

	startTime time.Time

	// Snapshot for the health endpoint
	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds running totals for JSON reporting
type Snapshot struct {
	TotalRequests int64   `json:"totalRequests"`
	TotalErrors   int64   `json:"totalErrors"`
	AvgLatencyMs  float64 `json:"avgLatencyMs"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
	totalDuration float64
}

// NewMetrics creates a metrics collector with its own registry, so several
// collectors can coexist in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canopy_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "canopy_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "canopy_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "route"},
		),

		// Registry operation metrics
		Operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canopy_registry_operations_total",
				Help: "Total number of registry operations",
			},
			[]string{"component", "operation", "status"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "canopy_registry_operation_duration_seconds",
				Help:    "Registry operation duration in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"component", "operation"},
		),

		// Manifest cache metrics
		CacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canopy_manifest_cache_hits_total",
				Help: "Manifest cache hits",
			},
			[]string{"key"},
		),
		CacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canopy_manifest_cache_misses_total",
				Help: "Manifest cache misses",
			},
			[]string{"key"},
		),

		// Extension metrics
		ManifestsInstalled: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "canopy_manifests_installed",
				Help: "Number of manifests found on the last scan",
			},
			[]string{"kind"},
		),
		AssetsInstalled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canopy_assets_installed_total",
				Help: "Static asset files copied into the web root",
			},
			[]string{"kind"},
		),

		// Area metrics
		AreaMutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canopy_area_mutations_total",
				Help: "Area id list mutations",
			},
			[]string{"operation"},
		),
		DanglingWidgets: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "canopy_area_dangling_widgets_total",
				Help: "Widget ids skipped on read because the instance no longer exists",
			},
		),

		// Theme metrics
		ThemeActivations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canopy_theme_activations_total",
				Help: "Theme activations by outcome",
			},
			[]string{"outcome"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "canopy_uptime_seconds",
			Help: "Backend uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the registry metrics are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, route, status string, duration time.Duration, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, route, status).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
	m.ResponseSize.WithLabelValues(method, route).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.totalDuration += duration.Seconds()
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordOperation records a registry operation
func (m *Metrics) RecordOperation(component, operation, status string, duration time.Duration) {
	m.Operations.WithLabelValues(component, operation, status).Inc()
	m.OperationDuration.WithLabelValues(component, operation).Observe(duration.Seconds())
}

// RecordCacheHit implements cache.Recorder
func (m *Metrics) RecordCacheHit(key string) {
	m.CacheHits.WithLabelValues(key).Inc()
}

// RecordCacheMiss implements cache.Recorder
func (m *Metrics) RecordCacheMiss(key string) {
	m.CacheMisses.WithLabelValues(key).Inc()
}

// SetManifestsInstalled sets the manifest count for a kind
func (m *Metrics) SetManifestsInstalled(kind string, count int) {
	m.ManifestsInstalled.WithLabelValues(kind).Set(float64(count))
}

// AddAssetsInstalled counts copied asset files
func (m *Metrics) AddAssetsInstalled(kind string, count int) {
	m.AssetsInstalled.WithLabelValues(kind).Add(float64(count))
}

// IncAreaMutation counts an area mutation
func (m *Metrics) IncAreaMutation(operation string) {
	m.AreaMutations.WithLabelValues(operation).Inc()
}

// IncDanglingWidget counts a dangling id skipped on read
func (m *Metrics) IncDanglingWidget() {
	m.DanglingWidgets.Inc()
}

// IncThemeActivation counts an activation outcome ("registered", "unchanged", "failed")
func (m *Metrics) IncThemeActivation(outcome string) {
	m.ThemeActivations.WithLabelValues(outcome).Inc()
}

// Snapshot returns running totals
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	s := m.snapshot
	m.mu.RUnlock()

	if s.TotalRequests > 0 {
		s.AvgLatencyMs = s.totalDuration / float64(s.TotalRequests) * 1000
	}
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
