// Package metrics exports build and HTTP metrics to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	"github.com/agentstation/attrmap/pkg/attributes"
)

// DefaultNamespace prefixes every metric.
const DefaultNamespace = "attrmap"

// Attribute outcomes reported in attributes_total.
const (
	OutcomeDirect  = "direct"
	OutcomeReused  = "reused"
	OutcomeLearned = "learned"
	OutcomeMissing = "missing"
)

// Recorder collects metrics in its own registry. It implements
// attributes.Recorder and is safe for concurrent use.
type Recorder struct {
	registry *prometheus.Registry

	buildsTotal         *prometheus.CounterVec
	attributesTotal     *prometheus.CounterVec
	buildDuration       *prometheus.HistogramVec
	suggestionsTotal    *prometheus.CounterVec
	learnedTotal        prometheus.Counter
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

var _ attributes.Recorder = (*Recorder)(nil)

// New creates a Recorder. An empty namespace selects DefaultNamespace.
func New(namespace string) *Recorder {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.buildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builds_total",
			Help:      "Total number of attribute builds.",
		},
		[]string{"category_id"},
	)
	r.attributesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attributes_total",
			Help:      "Schema attributes by resolution outcome.",
		},
		[]string{"outcome"},
	)
	r.buildDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Duration of attribute builds in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"category_id"},
	)
	r.suggestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestions_total",
			Help:      "Suggestion provider requests by result.",
		},
		[]string{"result"},
	)
	r.learnedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "learned_equivalences_total",
		Help:      "Equivalences returned by the suggestion provider.",
	})
	r.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served by the API.",
		},
		[]string{"method", "path", "status"},
	)
	r.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	r.registry.MustRegister(
		r.buildsTotal,
		r.attributesTotal,
		r.buildDuration,
		r.suggestionsTotal,
		r.learnedTotal,
		r.httpRequestsTotal,
		r.httpRequestDuration,
	)
	return r
}

// ObserveBuild implements attributes.Recorder.
func (r *Recorder) ObserveBuild(categoryID string, stats attributes.Stats, elapsed time.Duration) {
	r.buildsTotal.WithLabelValues(categoryID).Inc()
	r.attributesTotal.WithLabelValues(OutcomeDirect).Add(float64(stats.Direct))
	r.attributesTotal.WithLabelValues(OutcomeReused).Add(float64(stats.Reused))
	r.attributesTotal.WithLabelValues(OutcomeLearned).Add(float64(stats.Learned))
	r.attributesTotal.WithLabelValues(OutcomeMissing).Add(float64(stats.Missing))
	r.buildDuration.WithLabelValues(categoryID).Observe(elapsed.Seconds())
}

// ObserveSuggestion implements attributes.Recorder.
func (r *Recorder) ObserveSuggestion(_ string, learned int, err error) {
	switch {
	case err != nil:
		r.suggestionsTotal.WithLabelValues("error").Inc()
	case learned == 0:
		r.suggestionsTotal.WithLabelValues("empty").Inc()
	default:
		r.suggestionsTotal.WithLabelValues("ok").Inc()
		r.learnedTotal.Add(float64(learned))
	}
}

// ObserveRequest records one served HTTP request.
func (r *Recorder) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	r.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Gather returns the current metric families.
func (r *Recorder) Gather() ([]*dto.MetricFamily, error) {
	return r.registry.Gather()
}
