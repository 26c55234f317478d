package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for finished pipeline runs.
const (
	OutcomePromoted = "promoted"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
	OutcomeDisabled = "disabled"
)

// Metrics holds the service's instruments. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	pipelineRuns      *prometheus.CounterVec
	stageDuration     *prometheus.HistogramVec
	trainedScore      prometheus.Gauge
	predictions       *prometheus.CounterVec
	predictionLatency prometheus.Histogram
}

// New registers every instrument on a fresh registry along with the Go
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		pipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "churn",
			Name:      "pipeline_runs_total",
			Help:      "Training pipeline runs by outcome.",
		}, []string{"outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "churn",
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of each training pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"stage"}),
		trainedScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "churn",
			Name:      "trained_model_accuracy",
			Help:      "Held-out accuracy of the most recently evaluated model.",
		}),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "churn",
			Name:      "predictions_total",
			Help:      "Predictions served by result.",
		}, []string{"result"}),
		predictionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "churn",
			Name:      "prediction_duration_seconds",
			Help:      "Latency of single-record predictions.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		m.pipelineRuns,
		m.stageDuration,
		m.trainedScore,
		m.predictions,
		m.predictionLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RunFinished(outcome string) {
	if m == nil {
		return
	}
	m.pipelineRuns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) SetTrainedScore(score float64) {
	if m == nil {
		return
	}
	m.trainedScore.Set(score)
}

// ObservePrediction records one prediction; result is "yes", "no" or
// "error".
func (m *Metrics) ObservePrediction(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.predictions.WithLabelValues(result).Inc()
	m.predictionLatency.Observe(d.Seconds())
}
