// Package metrics exposes Prometheus collectors for the harvest pipeline.
// Collectors are fed from domain events so the pipeline itself stays free
// of instrumentation calls.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline collectors.
type Metrics struct {
	BatchesStarted   *prometheus.CounterVec
	BatchesCompleted *prometheus.CounterVec
	BatchesFailed    *prometheus.CounterVec
	RecipesProcessed *prometheus.CounterVec
	RecipesFailed    *prometheus.CounterVec
	MappingsMissing  *prometheus.CounterVec
}

// New registers the pipeline collectors with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		BatchesStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "harvester",
			Name:      "batches_started_total",
			Help:      "Number of harvest batches started.",
		}, []string{"provider"}),
		BatchesCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "harvester",
			Name:      "batches_completed_total",
			Help:      "Number of harvest batches completed, by completeness.",
		}, []string{"provider", "partial"}),
		BatchesFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "harvester",
			Name:      "batches_failed_total",
			Help:      "Number of harvest batches that failed, by error category.",
		}, []string{"provider", "category"}),
		RecipesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "harvester",
			Name:      "recipes_processed_total",
			Help:      "Number of recipes harvested and persisted.",
		}, []string{"provider"}),
		RecipesFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "harvester",
			Name:      "recipes_failed_total",
			Help:      "Number of recipe URLs that failed permanently, by error category.",
		}, []string{"provider", "category"}),
		MappingsMissing: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "harvester",
			Name:      "ingredient_mappings_missing_total",
			Help:      "Number of ingredient codes seen without a canonical mapping.",
		}, []string{"provider"}),
	}
}
