package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// rollbackUpdate builds the UPDATE that returns in-flight workflows to the
// start of their stage. A workflow interrupted while minting is failed instead
// so a transaction is never sent twice.
func rollbackUpdate(progressStage, extraWhere string) (string, []any) {
	var caseSQL strings.Builder
	args := make([]any, 0, len(stageRollbackTransitions)*2+8)
	caseSQL.WriteString("CASE status")
	for _, transition := range stageRollbackTransitions {
		caseSQL.WriteString(" WHEN ? THEN ?")
		args = append(args, transition.from, transition.to)
	}
	caseSQL.WriteString(" ELSE status END")

	query := `UPDATE workflows
        SET failed_status = CASE WHEN status = ? THEN status ELSE failed_status END,
            error_kind = CASE WHEN status = ? THEN 'transient' ELSE error_kind END,
            error_message = CASE WHEN status = ? THEN ? ELSE error_message END,
            status = ` + caseSQL.String() + `,
            progress_stage = ?, progress_percent = 0, progress_message = NULL,
            last_heartbeat = NULL, updated_at = ?
        WHERE status IN (` + makePlaceholders(len(stageRollbackTransitions)) + `)` + extraWhere
	head := []any{StatusMinting, StatusMinting, StatusMinting, DaemonStopReason}
	args = append(head, args...)
	args = append(args, progressStage, nowString())
	for _, transition := range stageRollbackTransitions {
		args = append(args, transition.from)
	}
	return query, args
}

// ResetStuckProcessing resets workflows in processing states back to the start of their current stage.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	query, args := rollbackUpdate("Reset from stuck processing", "")
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reset stuck workflows: %w", err)
	}
	return res.RowsAffected()
}

// ReclaimStaleProcessing returns workflows whose heartbeat expired to the start of their current stage.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args := rollbackUpdate("Reclaimed from stale processing", ` AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`)
	args = append(args, cutoff.UTC().Format(time.RFC3339Nano))
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale workflows: %w", err)
	}
	return res.RowsAffected()
}

// UpdateHeartbeat updates the last heartbeat timestamp for an in-flight workflow.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := nowString()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE workflows SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now, now, id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// RetryFailed moves a failed workflow back to the start of the stage it failed
// in. A workflow that failed while minting returns to MetadataReady with the
// mint request cleared, so the creator must confirm again.
func (s *Store) RetryFailed(ctx context.Context, id int64) (*Item, error) {
	item, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrNotFound
	}
	if item.Status != StatusFailed {
		return nil, fmt.Errorf("workflow %d is %s, only failed workflows can be retried", id, item.Status)
	}
	target, ok := retryTargets[item.FailedStatus]
	if !ok {
		target = StatusFormEntry
	}

	res, err := s.execWithRetry(ctx,
		`UPDATE workflows
         SET status = ?, mint_requested = CASE WHEN ? = ? THEN 0 ELSE mint_requested END,
             progress_stage = 'Retry requested', progress_percent = 0, progress_message = NULL,
             error_kind = NULL, error_message = NULL, failed_status = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		target, target, StatusMetadataReady, nowString(), id, StatusFailed,
	)
	if err != nil {
		return nil, fmt.Errorf("retry workflow: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, fmt.Errorf("workflow %d changed while retrying", id)
	}
	return s.GetByID(ctx, id)
}

// RequestMint enables minting for a workflow exactly once. It succeeds only
// while the workflow sits in MetadataReady with a token URI and no earlier
// request, and returns the idempotency key recorded for the mint.
func (s *Store) RequestMint(ctx context.Context, id int64) (string, error) {
	key := uuid.NewString()
	res, err := s.execWithRetry(ctx,
		`UPDATE workflows
         SET mint_requested = 1, mint_key = ?, progress_stage = 'Mint requested', updated_at = ?
         WHERE id = ? AND status = ? AND mint_requested = 0
           AND token_uri IS NOT NULL AND token_uri != ''`,
		key, nowString(), id, StatusMetadataReady,
	)
	if err != nil {
		return "", fmt.Errorf("request mint: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return "", err
	}
	if affected == 1 {
		return key, nil
	}

	item, err := s.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if item == nil {
		return "", ErrNotFound
	}
	switch {
	case item.MintRequested:
		return "", fmt.Errorf("%w: mint already requested", ErrMintUnavailable)
	case item.Status != StatusMetadataReady:
		return "", fmt.Errorf("%w: workflow is %s", ErrMintUnavailable, item.Status)
	default:
		return "", fmt.Errorf("%w: token uri is empty", ErrMintUnavailable)
	}
}

// IsMintUnavailable reports whether err came from a refused mint request.
func IsMintUnavailable(err error) bool {
	return errors.Is(err, ErrMintUnavailable)
}
