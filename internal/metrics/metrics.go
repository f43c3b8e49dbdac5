// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tasklens"

var (
	Registry = prometheus.NewRegistry()

	TagsAssigned = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tags_assigned_total",
		Help:      "Tags assigned to tasks by dimension, category and classifier method.",
	}, []string{"dimension", "category", "method"})

	ClassificationFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "classification_fallbacks_total",
		Help:      "Learned classifications that fell back to keyword rules.",
	}, []string{"provider"})

	BatchFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "classify_batch_failures_total",
		Help:      "Items that failed inside a classification batch.",
	})

	InsightsGenerated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "insights_generated_total",
		Help:      "Insight sentences persisted.",
	})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP API requests by route and status code.",
	}, []string{"route", "code"})
)

func init() {
	Registry.MustRegister(
		TagsAssigned,
		ClassificationFallbacks,
		BatchFailures,
		InsightsGenerated,
		HTTPRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// ObserveTag counts one tag assignment across all three dimensions.
func ObserveTag(actionDomain, energyType, timeWeight, method string) {
	TagsAssigned.WithLabelValues("action_domain", actionDomain, method).Inc()
	TagsAssigned.WithLabelValues("energy_type", energyType, method).Inc()
	TagsAssigned.WithLabelValues("time_weight", timeWeight, method).Inc()
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
