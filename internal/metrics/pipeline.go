package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Analysis pipeline Prometheus metrics.
var (
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dendrex",
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of each analysis pipeline stage in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"mode", "stage"},
	)

	AnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dendrex",
			Name:      "analyses_total",
			Help:      "Total number of analysis runs",
		},
		[]string{"mode", "status"},
	)

	AnalysisEntities = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dendrex",
			Name:      "analysis_entities",
			Help:      "Number of entities clustered per analysis run",
			Buckets:   []float64{1, 5, 10, 25, 50, 75, 100, 250, 500},
		},
		[]string{"mode"},
	)

	TruncatedEntitiesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dendrex",
			Name:      "truncated_entities_total",
			Help:      "Total number of entity ids dropped by the entity cap",
		},
		[]string{"mode"},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers the analysis pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(AnalysesTotal)
	prometheus.MustRegister(AnalysisEntities)
	prometheus.MustRegister(TruncatedEntitiesTotal)
	pipelineMetricsRegistered = true
}

// Pipeline records analysis measurements into the package collectors.
type Pipeline struct{}

// NewPipeline creates a recorder backed by the package collectors.
func NewPipeline() *Pipeline { return &Pipeline{} }

// ObserveStage records how long one stage took.
func (Pipeline) ObserveStage(mode, stage string, d time.Duration) {
	StageDuration.WithLabelValues(mode, stage).Observe(d.Seconds())
}

// ObserveRun records a finished run. entities and truncated are ignored for failed runs
// that never reached aggregation (entities < 0).
func (Pipeline) ObserveRun(mode, status string, entities, truncated int) {
	AnalysesTotal.WithLabelValues(mode, status).Inc()
	if entities >= 0 {
		AnalysisEntities.WithLabelValues(mode).Observe(float64(entities))
	}
	if truncated > 0 {
		TruncatedEntitiesTotal.WithLabelValues(mode).Add(float64(truncated))
	}
}
