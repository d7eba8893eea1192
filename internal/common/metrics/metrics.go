// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	// Pipeline metrics

	CompositionAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mockup_composition_attempts_total",
			Help: "Composition attempts by strategy and outcome",
		},
		[]string{"strategy", "outcome"},
	)

	CompositionAttemptDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mockup_composition_attempt_duration_seconds",
			Help:    "Duration of a single composition attempt",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 180},
		},
		[]string{"strategy"},
	)

	MockupsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mockup_generated_total",
			Help: "Mockups produced, by final strategy and whether the basic fallback was used",
		},
		[]string{"strategy", "fallback"},
	)

	TemplateResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mockup_template_resolutions_total",
			Help: "Template resolutions by kind and source",
		},
		[]string{"kind", "source"},
	)

	DesignFetchRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mockup_design_fetch_retries_total",
			Help: "Design image download attempts that failed and were retried",
		},
	)

	RemoteEditorSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mockup_remote_editor_sessions_active",
			Help: "Browser sessions currently held by the remote editor compositor",
		},
	)
)
