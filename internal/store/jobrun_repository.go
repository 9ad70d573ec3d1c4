package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"

	"github.com/maison-solution/rental-scheduler-service/internal/model"
)

// staleRunAge is how long a running record may live before it is considered
// abandoned (e.g. the process crashed) and reclaimed by the next invocation.
const staleRunAge = 4 * time.Hour

// JobRunRepository records batch invocations. A partial unique index on
// running rows gives each job at most one in-flight run.
type JobRunRepository struct {
	db *sql.DB
}

func NewJobRunRepository(db *sql.DB) *JobRunRepository {
	return &JobRunRepository{db: db}
}

// Begin inserts a running record for the job. When another run is already in
// flight the unique index rejects the insert and acquired is false; a stale
// running record older than staleRunAge is failed first so one crashed
// process cannot wedge the job forever.
func (r *JobRunRepository) Begin(ctx context.Context, jobName string, now time.Time) (*model.JobRun, bool, error) {
	reclaim := `UPDATE job_runs SET status = $1, ended_at = $2
                WHERE job_name = $3 AND status = $4 AND started_at < $5`
	if _, err := r.db.ExecContext(ctx, reclaim,
		model.JobFailed, now, jobName, model.JobRunning, now.Add(-staleRunAge)); err != nil {
		return nil, false, err
	}

	run := &model.JobRun{JobName: jobName, Status: model.JobRunning, StartedAt: now}
	query := `INSERT INTO job_runs (job_name, status, started_at) VALUES ($1, $2, $3) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, jobName, model.JobRunning, now).Scan(&run.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			log.Warn().Str("job", jobName).Msg("Run record already held")
			return nil, false, nil
		}
		return nil, false, err
	}
	return run, true, nil
}

// Finish closes the run record with its final counts.
func (r *JobRunRepository) Finish(ctx context.Context, run *model.JobRun, now time.Time) error {
	run.EndedAt = &now
	query := `UPDATE job_runs SET status = $2, selected = $3, succeeded = $4, failed = $5, ended_at = $6 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, run.ID, run.Status, run.Selected, run.Succeeded, run.Failed, now)
	return err
}
