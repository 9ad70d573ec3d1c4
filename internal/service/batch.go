package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/maison-solution/rental-scheduler-service/internal/model"
	"github.com/maison-solution/rental-scheduler-service/internal/monitoring"
)

// WorkItem identifies one due entity within a batch run. Kind carries
// job-specific routing (e.g. invitation vs reminder).
type WorkItem struct {
	ID   uuid.UUID
	Kind string
}

// BatchJob is the contract every scheduled job satisfies: a read-only
// selection of due work followed by one side effect per item. Process must
// perform the side effect first and persist the state change only when the
// side effect succeeded, so a failed item stays selectable on the next run
// and a succeeded item never re-fires.
type BatchJob interface {
	Name() string
	Enabled(cfg *model.Settings) bool
	SelectDue(ctx context.Context, now time.Time, limit int) ([]WorkItem, error)
	Process(ctx context.Context, item WorkItem) error
}

// RunReport summarises one batch invocation.
type RunReport struct {
	Selected  int
	Succeeded int
	Failed    int
	// Skipped is true when the job was disabled or another instance of the
	// same job was already running.
	Skipped bool
}

// Runner executes batch jobs under the shared idempotency contract. A run
// record with a running-state uniqueness guarantee prevents two overlapping
// invocations of the same job; items are processed sequentially and each
// item's state is persisted immediately, never batched.
type Runner struct {
	jobRuns  JobRunRepository
	settings SettingsRepository
	now      func() time.Time
	// limit caps SelectDue so an external invoker can bound run time without
	// interrupting mid-item. Zero means no cap.
	limit int
}

func NewRunner(jobRuns JobRunRepository, settings SettingsRepository, limit int) *Runner {
	return &Runner{
		jobRuns:  jobRuns,
		settings: settings,
		now:      time.Now,
		limit:    limit,
	}
}

// Run executes one invocation of the job. Item-level failures are logged and
// left retryable; the returned error is non-nil only for run-level problems
// (settings unavailable, selection failure) or when every selected item
// failed.
func (r *Runner) Run(ctx context.Context, job BatchJob) (RunReport, error) {
	start := r.now()
	now := start.UTC()
	logger := log.With().Str("job", job.Name()).Logger()

	cfg, err := r.settings.Get(ctx)
	if err != nil {
		return RunReport{}, err
	}
	if !job.Enabled(cfg) {
		logger.Info().Msg("Job disabled, skipping run")
		return RunReport{Skipped: true}, nil
	}

	run, acquired, err := r.jobRuns.Begin(ctx, job.Name(), now)
	if err != nil {
		return RunReport{}, err
	}
	if !acquired {
		logger.Warn().Msg("Previous run still in progress, skipping")
		monitoring.JobRuns.WithLabelValues(job.Name(), "overlap").Inc()
		return RunReport{Skipped: true}, nil
	}

	report, runErr := r.process(ctx, job, now, logger)

	run.Selected = report.Selected
	run.Succeeded = report.Succeeded
	run.Failed = report.Failed
	run.Status = model.JobCompleted
	if runErr != nil {
		run.Status = model.JobFailed
	}
	if err := r.jobRuns.Finish(ctx, run, r.now().UTC()); err != nil {
		logger.Error().Err(err).Msg("Failed to close run record")
	}

	outcome := "completed"
	if runErr != nil {
		outcome = "failed"
	}
	monitoring.JobRuns.WithLabelValues(job.Name(), outcome).Inc()
	monitoring.JobDuration.WithLabelValues(job.Name()).Observe(time.Since(start).Seconds())

	logger.Info().
		Int("selected", report.Selected).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Msg("Run finished")
	return report, runErr
}

func (r *Runner) process(ctx context.Context, job BatchJob, now time.Time, logger zerolog.Logger) (RunReport, error) {
	items, err := job.SelectDue(ctx, now, r.limit)
	if err != nil {
		return RunReport{}, err
	}

	report := RunReport{Selected: len(items)}
	for _, item := range items {
		if err := job.Process(ctx, item); err != nil {
			// Transient per-item failure: logged with entity context and
			// left in place so the next run retries it.
			logger.Error().Err(err).Str("item_id", item.ID.String()).Str("kind", item.Kind).Msg("Item failed")
			monitoring.ItemsProcessed.WithLabelValues(job.Name(), "failed").Inc()
			report.Failed++
			continue
		}
		monitoring.ItemsProcessed.WithLabelValues(job.Name(), "succeeded").Inc()
		report.Succeeded++
	}

	if report.Selected > 0 && report.Succeeded == 0 {
		return report, ErrAllItemsFailed
	}
	return report, nil
}
