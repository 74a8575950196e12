package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ObservationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobsignal_observations_total",
			Help: "Observations processed by ingest outcome",
		},
		[]string{"outcome"},
	)

	IngestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "jobsignal_ingest_duration_seconds",
			Help:    "Ingest batch duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		},
	)

	TitleParseConfidence = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "jobsignal_title_parse_confidence",
			Help:    "Role confidence produced by the title canonicalizer",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	LifecyclesClosedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobsignal_lifecycles_closed_total",
			Help: "Lifecycles closed by the sweep, by closure reason",
		},
		[]string{"reason"},
	)

	SweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "jobsignal_sweep_duration_seconds",
			Help:    "Closure sweep duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60},
		},
	)

	DuplicatesAnnotatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jobsignal_duplicates_annotated_total",
			Help: "Observed rows annotated as duplicates",
		},
	)

	ArchetypesUpsertedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobsignal_archetypes_upserted_total",
			Help: "Archetype rows written by the aggregator",
		},
		[]string{"record_type"},
	)

	AggregateKeyErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jobsignal_aggregate_key_errors_total",
			Help: "Archetype keys whose aggregation failed after retries",
		},
	)

	AggregateDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "jobsignal_aggregate_duration_seconds",
			Help:    "Aggregation pass duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		},
	)
)

func Init() {
	prometheus.MustRegister(ObservationsTotal)
	prometheus.MustRegister(IngestDuration)
	prometheus.MustRegister(TitleParseConfidence)
	prometheus.MustRegister(LifecyclesClosedTotal)
	prometheus.MustRegister(SweepDuration)
	prometheus.MustRegister(DuplicatesAnnotatedTotal)
	prometheus.MustRegister(ArchetypesUpsertedTotal)
	prometheus.MustRegister(AggregateKeyErrorsTotal)
	prometheus.MustRegister(AggregateDuration)
}

// Handler serves the scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
