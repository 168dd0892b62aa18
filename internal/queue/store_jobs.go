package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// CreateJob records a remote job accepted by a backend. The job starts pending.
// A transcode job requires a succeeded upload job and a transaction job
// requires a succeeded transcode job for the same workflow.
func (s *Store) CreateJob(ctx context.Context, workflowID int64, kind JobKind, remoteID string) (*Job, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(remoteID) == "" {
		return nil, errors.New("remote job id is required")
	}
	var id int64
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if prev, ok := kind.predecessor(); ok {
			var succeeded int
			if err := tx.QueryRowContext(ctx,
				`SELECT COUNT(1) FROM jobs WHERE workflow_id = ? AND kind = ? AND status = ?`,
				workflowID, prev, JobSucceeded,
			).Scan(&succeeded); err != nil {
				return err
			}
			if succeeded == 0 {
				return fmt.Errorf("%w: %s job needs a succeeded %s job", ErrStageOrder, kind, prev)
			}
		}

		timestamp := nowString()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO jobs (workflow_id, kind, remote_id, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
			workflowID, kind, remoteID, JobPending, timestamp, timestamp,
		)
		if err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, fmt.Errorf("create %s job: %w", kind, err)
	}
	return s.GetJob(ctx, id)
}

// GetJob fetches a job by identifier.
func (s *Store) GetJob(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// LatestJob returns the newest job of kind for a workflow, or nil.
func (s *Store) LatestJob(ctx context.Context, workflowID int64, kind JobKind) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+jobColumns+` FROM jobs WHERE workflow_id = ? AND kind = ? ORDER BY id DESC LIMIT 1`,
		workflowID, kind,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest job: %w", err)
	}
	return job, nil
}

// JobsForWorkflow returns the stage sequence of a workflow in creation order.
func (s *Store) JobsForWorkflow(ctx context.Context, workflowID int64) ([]*Job, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+jobColumns+` FROM jobs WHERE workflow_id = ? ORDER BY id`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// UpdateJobStatus records a polled status. Terminal jobs never change again;
// the returned bool reports whether the row was updated.
func (s *Store) UpdateJobStatus(ctx context.Context, id int64, status JobStatus, detail string) (bool, error) {
	timestamp := nowString()
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET status = ?, detail = COALESCE(?, detail), last_polled_at = ?, updated_at = ?
         WHERE id = ? AND status NOT IN (?, ?)`,
		status, nullableString(detail), timestamp, timestamp, id, JobSucceeded, JobFailed,
	)
	if err != nil {
		return false, fmt.Errorf("update job status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
