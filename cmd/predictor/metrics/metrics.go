// Package metrics provides Prometheus instrumentation for the predictor.
//
// Metrics exposed:
//   - autompg_predictions_total: Counter of served predictions by origin
//   - autompg_predict_seconds: Histogram of prediction duration
//   - autompg_predicted_mpg: Gauge of the most recent prediction
//   - autompg_cache_lookups_total: Counter of cache lookups by result (hit, miss)
//   - autompg_errors_total: Counter of errors by component and reason
//   - autompg_model_loaded: Gauge, 1 when a model is loaded
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the predictor.
type Metrics struct {
	PredictionsTotal  *prometheus.CounterVec
	PredictSeconds    prometheus.Histogram
	PredictedMPG      prometheus.Gauge
	CacheLookupsTotal *prometheus.CounterVec
	ErrorsTotal       *prometheus.CounterVec
	ModelLoaded       prometheus.Gauge
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		PredictionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "autompg_predictions_total",
			Help: "Total number of served predictions by vehicle origin",
		}, []string{"origin"}),

		PredictSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "autompg_predict_seconds",
			Help:    "Time spent producing a prediction, cache lookup included",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}),

		PredictedMPG: factory.NewGauge(prometheus.GaugeOpts{
			Name: "autompg_predicted_mpg",
			Help: "Most recent predicted fuel efficiency in miles per gallon",
		}),

		CacheLookupsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "autompg_cache_lookups_total",
			Help: "Prediction cache lookups by result",
		}, []string{"result"}),

		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "autompg_errors_total",
			Help: "Total number of errors by component and reason",
		}, []string{"component", "reason"}),

		ModelLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "autompg_model_loaded",
			Help: "1 when the prediction model is loaded, 0 otherwise",
		}),
	}
}

// RecordPredict records one served prediction.
func (m *Metrics) RecordPredict(seconds float64, origin string, mpg float64) {
	m.PredictSeconds.Observe(seconds)
	m.PredictionsTotal.WithLabelValues(origin).Inc()
	m.PredictedMPG.Set(mpg)
}

// RecordCacheLookup counts a cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(component, reason string) {
	m.ErrorsTotal.WithLabelValues(component, reason).Inc()
}

// SetModelLoaded sets the model availability gauge.
func (m *Metrics) SetModelLoaded(loaded bool) {
	if loaded {
		m.ModelLoaded.Set(1)
	} else {
		m.ModelLoaded.Set(0)
	}
}
