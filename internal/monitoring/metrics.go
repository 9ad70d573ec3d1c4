package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	JobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_job_runs_total",
			Help: "Total number of batch job runs by job and outcome",
		},
		[]string{"job", "outcome"},
	)
	ItemsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_items_processed_total",
			Help: "Total number of work items processed by job and outcome",
		},
		[]string{"job", "outcome"},
	)
	EmailsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_emails_sent_total",
			Help: "Total number of templated emails dispatched by template and status",
		},
		[]string{"template", "status"},
	)
	JobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scheduler_job_duration_seconds",
			Help:    "Duration of batch job runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"job"},
	)
	DegradedTokens = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_degraded_tokens_total",
			Help: "Tokens generated without the secure random source",
		},
	)
)

func InitMetrics() {
	for _, c := range []prometheus.Collector{JobRuns, ItemsProcessed, EmailsSent, JobDuration, DegradedTokens} {
		if err := prometheus.Register(c); err != nil {
			log.Error().Err(err).Msg("Failed to register metric")
		}
	}
}
