package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "genecross"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

var (
	submitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "submits_total",
		Help:      "Cross requests issued, by edit mode.",
	}, []string{"mode"})

	outcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "submit_outcomes_total",
		Help:      "Completed cross requests, by outcome.",
	}, []string{"outcome"})

	submitLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "submit_duration_seconds",
		Help:      "Time from submit to published result or error.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"outcome"})

	inFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "submits_in_flight",
		Help:      "Cross requests waiting for a response.",
	})

	rankedResults = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ranked_results",
		Help:      "Non-empty results per successful response.",
		Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
	})

	botUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bot_updates_total",
		Help:      "Telegram updates handled, by kind.",
	}, []string{"kind"})
)

func SubmitStarted(mode string) {
	submitsTotal.WithLabelValues(mode).Inc()
	inFlight.Inc()
}

func SubmitFinished(outcome string, started time.Time, results int) {
	inFlight.Dec()
	outcomesTotal.WithLabelValues(outcome).Inc()
	submitLatency.WithLabelValues(outcome).Observe(time.Since(started).Seconds())
	if outcome == OutcomeSuccess {
		rankedResults.Observe(float64(results))
	}
}

func BotUpdate(kind string) {
	botUpdatesTotal.WithLabelValues(kind).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
