package export

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics aggregates pipeline counters on a private registry so tests can
// instantiate them without colliding on the global default.
type Metrics struct {
	registry *prometheus.Registry

	exportsTotal   *prometheus.CounterVec
	exportDuration *prometheus.HistogramVec
	activeExports  prometheus.Gauge
	artifactBytes  *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		exportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deckrender_exports_total",
			Help: "Export jobs finished, by format and terminal status.",
		}, []string{"format", "status"}),
		exportDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "deckrender_export_duration_seconds",
			Help:    "Wall-clock duration of export jobs.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"format"}),
		activeExports: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "deckrender_active_exports",
			Help: "Export jobs currently rendering.",
		}),
		artifactBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deckrender_artifact_bytes_total",
			Help: "Bytes of artifacts produced, by format.",
		}, []string{"format"}),
	}

	m.registry.MustRegister(m.exportsTotal, m.exportDuration, m.activeExports, m.artifactBytes)
	return m
}

// Registry exposes the underlying registry so the API layer can serve both
// pipeline and HTTP metric families from one endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
