package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/showyourapp/backend/internal/types"
)

// -----------------------------------------------------------------------------
// Ingestion Job Methods
// -----------------------------------------------------------------------------

// CreateJob inserts a new pending ingestion job and returns its ID.
func (db *DB) CreateJob(ctx context.Context, job *types.IngestionJob) (int64, error) {
	postsJSON, err := json.Marshal(job.Posts)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal posts: %w", err)
	}

	var id int64
	err = db.pool.QueryRow(ctx,
		`INSERT INTO ingestion_jobs
		     (source, status, total_posts, posts, created_listing_ids, log_entries, created_by)
		 VALUES ($1, 'pending', $2, $3, '[]', '[]', $4)
		 RETURNING id`,
		job.Source, len(job.Posts), postsJSON, job.CreatedByID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create job: %w", err)
	}
	return id, nil
}

// GetJob retrieves a full job snapshot. Returns nil if the job does not exist.
func (db *DB) GetJob(ctx context.Context, id int64) (*types.IngestionJob, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT id, source, status, total_posts, processed_posts, created_listings,
		        skipped_posts, error_count, posts, created_listing_ids,
		        COALESCE(error_message, ''), log_entries, cancel_requested,
		        created_by, created_at, started_at, completed_at
		 FROM ingestion_jobs WHERE id = $1`, id)

	job, err := scanJob(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// ListJobs retrieves recent jobs, newest first, optionally filtered by status.
// The posts payload is included; callers rendering summaries can drop it.
func (db *DB) ListJobs(ctx context.Context, status types.JobStatus, limit, offset int) ([]types.IngestionJob, int, error) {
	if limit <= 0 {
		limit = 20
	}

	where := ""
	args := []any{}
	if status != "" {
		where = " WHERE status = $1"
		args = append(args, string(status))
	}

	var total int
	if err := db.pool.QueryRow(ctx, "SELECT COUNT(*) FROM ingestion_jobs"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count jobs: %w", err)
	}

	query := `SELECT id, source, status, total_posts, processed_posts, created_listings,
	                 skipped_posts, error_count, posts, created_listing_ids,
	                 COALESCE(error_message, ''), log_entries, cancel_requested,
	                 created_by, created_at, started_at, completed_at
	          FROM ingestion_jobs` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []types.IngestionJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, total, nil
}

// OldestPendingJobID returns the id of the oldest pending job, if any.
func (db *DB) OldestPendingJobID(ctx context.Context) (int64, bool, error) {
	var id int64
	err := db.pool.QueryRow(ctx,
		`SELECT id FROM ingestion_jobs WHERE status = 'pending' ORDER BY created_at LIMIT 1`,
	).Scan(&id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to query pending jobs: %w", err)
	}
	return id, true, nil
}

// MarkJobRunning transitions a pending job to running and stamps its start
// time. Returns false if the job was not pending (already claimed or gone).
func (db *DB) MarkJobRunning(ctx context.Context, id int64) (bool, error) {
	tag, err := db.pool.Exec(ctx,
		`UPDATE ingestion_jobs SET status = 'running', started_at = NOW()
		 WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark job running: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateJobProgress persists the counters, created listing ids and log of a
// running job in a single statement, so readers never observe a torn commit.
func (db *DB) UpdateJobProgress(ctx context.Context, job *types.IngestionJob) error {
	idsJSON, err := json.Marshal(job.CreatedIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal created ids: %w", err)
	}
	logJSON, err := json.Marshal(job.LogEntries)
	if err != nil {
		return fmt.Errorf("failed to marshal log entries: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`UPDATE ingestion_jobs
		 SET processed_posts = $2, created_listings = $3, skipped_posts = $4,
		     error_count = $5, created_listing_ids = $6, log_entries = $7
		 WHERE id = $1`,
		job.ID, job.ProcessedPosts, job.CreatedCount, job.SkippedPosts,
		job.ErrorCount, idsJSON, logJSON)
	if err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}
	return nil
}

// FinishJob sets a terminal status exactly once. A job already terminal is
// left untouched.
func (db *DB) FinishJob(ctx context.Context, job *types.IngestionJob, status types.JobStatus, errorMessage string) error {
	if !status.Terminal() {
		return fmt.Errorf("non-terminal status %q passed to FinishJob", status)
	}
	logJSON, err := json.Marshal(job.LogEntries)
	if err != nil {
		return fmt.Errorf("failed to marshal log entries: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`UPDATE ingestion_jobs
		 SET status = $2, error_message = NULLIF($3, ''), log_entries = $4, completed_at = NOW()
		 WHERE id = $1 AND status IN ('pending', 'running')`,
		job.ID, string(status), errorMessage, logJSON)
	if err != nil {
		return fmt.Errorf("failed to finish job: %w", err)
	}
	return nil
}

// JobCancelRequested re-reads the cancellation flag. The processor polls this
// between posts.
func (db *DB) JobCancelRequested(ctx context.Context, id int64) (bool, error) {
	var cancel bool
	err := db.pool.QueryRow(ctx,
		`SELECT cancel_requested FROM ingestion_jobs WHERE id = $1`, id,
	).Scan(&cancel)
	if err != nil {
		return false, fmt.Errorf("failed to read cancel flag: %w", err)
	}
	return cancel, nil
}

// RequestJobCancel sets the cancellation flag on a non-terminal job.
// Returns false if the job is already terminal.
func (db *DB) RequestJobCancel(ctx context.Context, id int64) (bool, error) {
	tag, err := db.pool.Exec(ctx,
		`UPDATE ingestion_jobs SET cancel_requested = TRUE
		 WHERE id = $1 AND status IN ('pending', 'running')`, id)
	if err != nil {
		return false, fmt.Errorf("failed to request cancel: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// PurgeJobsBefore deletes job records created before the cutoff, regardless
// of status, and returns how many were removed.
func (db *DB) PurgeJobsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := db.pool.Exec(ctx,
		`DELETE FROM ingestion_jobs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// scanJob scans one job row, decoding the JSONB columns.
func scanJob(row pgx.Row) (*types.IngestionJob, error) {
	var (
		job       types.IngestionJob
		status    string
		postsJSON []byte
		idsJSON   []byte
		logJSON   []byte
	)
	err := row.Scan(&job.ID, &job.Source, &status, &job.TotalPosts, &job.ProcessedPosts,
		&job.CreatedCount, &job.SkippedPosts, &job.ErrorCount, &postsJSON, &idsJSON,
		&job.ErrorMessage, &logJSON, &job.CancelRequested, &job.CreatedByID,
		&job.CreatedAt, &job.StartedAt, &job.CompletedAt)
	if err != nil {
		return nil, err
	}

	job.Status = types.JobStatus(status)
	if postsJSON != nil {
		_ = json.Unmarshal(postsJSON, &job.Posts)
	}
	job.CreatedIDs = []int64{}
	if idsJSON != nil {
		_ = json.Unmarshal(idsJSON, &job.CreatedIDs)
	}
	job.LogEntries = []string{}
	if logJSON != nil {
		_ = json.Unmarshal(logJSON, &job.LogEntries)
	}
	return &job, nil
}
