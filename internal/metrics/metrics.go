// Package metrics exposes Prometheus instrumentation for the scanner.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the scanner's Prometheus collectors.
type Recorder struct {
	scansTotal        *prometheus.CounterVec
	scanDuration      prometheus.Histogram
	assetsScanned     prometheus.Counter
	recommendations   *prometheus.CounterVec
	providerFallbacks *prometheus.CounterVec
	chainExhausted    *prometheus.CounterVec
	generatorFaults   *prometheus.CounterVec
	weightUpdates     *prometheus.CounterVec
}

// New registers and returns the scanner's metric set.
func New() *Recorder {
	return &Recorder{
		scansTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "consensus_scans_total",
				Help: "Completed scan cycles by completion status",
			},
			[]string{"status"},
		),
		scanDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "consensus_scan_duration_seconds",
				Help:    "Wall-clock duration of one scan cycle",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
		assetsScanned: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "consensus_assets_scanned_total",
				Help: "Assets evaluated across all scans",
			},
		),
		recommendations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "consensus_recommendations_total",
				Help: "Recommendations emitted by direction",
			},
			[]string{"direction"},
		),
		providerFallbacks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "consensus_provider_fallbacks_total",
				Help: "Provider failures that advanced a fallback chain",
			},
			[]string{"kind", "provider"},
		),
		chainExhausted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "consensus_chain_exhausted_total",
				Help: "Fallback chains exhausted with no usable provider",
			},
			[]string{"kind"},
		),
		generatorFaults: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "consensus_generator_faults_total",
				Help: "Generator panics caught and treated as no-signal",
			},
			[]string{"generator"},
		),
		weightUpdates: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "consensus_weight_updates_total",
				Help: "Adaptive weight transitions by kind",
			},
			[]string{"transition"},
		),
	}
}

// ScanCompleted records one finished scan cycle.
func (r *Recorder) ScanCompleted(status string, seconds float64, assets int) {
	r.scansTotal.WithLabelValues(status).Inc()
	r.scanDuration.Observe(seconds)
	r.assetsScanned.Add(float64(assets))
}

// RecommendationEmitted records one persisted consensus signal.
func (r *Recorder) RecommendationEmitted(direction string) {
	r.recommendations.WithLabelValues(direction).Inc()
}

// ProviderFallback records a single chain advance past a failed provider.
func (r *Recorder) ProviderFallback(kind, provider string) {
	r.providerFallbacks.WithLabelValues(kind, provider).Inc()
}

// ChainExhausted records a data kind with no usable provider for an asset.
func (r *Recorder) ChainExhausted(kind string) {
	r.chainExhausted.WithLabelValues(kind).Inc()
}

// GeneratorFault records a caught generator panic.
func (r *Recorder) GeneratorFault(generator string) {
	r.generatorFaults.WithLabelValues(generator).Inc()
}

// WeightTransition records a learner weight/lifecycle transition.
func (r *Recorder) WeightTransition(transition string) {
	r.weightUpdates.WithLabelValues(transition).Inc()
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
