package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	generations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vocab",
			Name:      "generations_total",
			Help:      "Vocabulary generations by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	modelLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vocab",
			Name:      "model_call_duration_seconds",
			Help:      "Duration of remote model calls by provider and model",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"provider", "model"},
	)

	extractions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vocab",
			Name:      "extractions_total",
			Help:      "Document extractions by kind and result",
		},
		[]string{"kind", "result"},
	)

	resolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vocab",
			Name:      "model_resolutions_total",
			Help:      "Model resolutions by provider and source",
		},
		[]string{"provider", "source"},
	)

	registerOnce sync.Once
)

// Init registers collectors. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(generations, modelLatency, extractions, resolutions)
	})
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func ObserveGeneration(provider, outcome string) {
	generations.WithLabelValues(provider, outcome).Inc()
}

func ObserveModelCall(provider, model string, dur time.Duration) {
	modelLatency.WithLabelValues(provider, model).Observe(dur.Seconds())
}

func ObserveExtraction(kind, result string) {
	extractions.WithLabelValues(kind, result).Inc()
}

func ObserveResolution(provider, source string) {
	resolutions.WithLabelValues(provider, source).Inc()
}
