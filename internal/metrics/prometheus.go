package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Error stages used as the "stage" label
const (
	StageFetch = "fetch"
	StageParse = "parse"
	StageSend  = "send"
)

// Spike outcomes used as the "outcome" label
const (
	OutcomeAlerted    = "alerted"
	OutcomeSendFailed = "send_failed"
	OutcomeSuppressed = "suppressed"
)

// Prometheus holds the exported scan metrics.
type Prometheus struct {
	CyclesTotal       prometheus.Counter
	PoolsEvaluated    prometheus.Counter
	SpikesTotal       *prometheus.CounterVec
	ErrorsTotal       *prometheus.CounterVec
	NotifiedTokens    prometheus.Gauge
	LastPollTimestamp prometheus.Gauge
	CycleDuration     prometheus.Histogram

	gatherer prometheus.Gatherer
}

// NewPrometheus registers the scan metrics on reg.
// A nil reg uses a fresh registry so repeated construction never panics.
func NewPrometheus(namespace string, reg *prometheus.Registry) *Prometheus {
	if namespace == "" {
		namespace = "pumpwatch"
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Prometheus{
		CyclesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "cycles_total",
			Help:      "Total number of scan cycles run",
		}),
		PoolsEvaluated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "pools_evaluated_total",
			Help:      "Total number of trending pool records evaluated",
		}),
		SpikesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "spikes_total",
			Help:      "Volume spikes by outcome (alerted, send_failed, suppressed)",
		}, []string{"outcome"}),
		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "errors_total",
			Help:      "Errors by stage (fetch, parse, send)",
		}, []string{"stage"}),
		NotifiedTokens: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "notified_tokens",
			Help:      "Number of token names alerted since start",
		}),
		LastPollTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "last_poll_timestamp_seconds",
			Help:      "Unix time of the last scan cycle",
		}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a full fetch-evaluate-notify cycle",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		gatherer: reg,
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}
