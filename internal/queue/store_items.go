package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// NewWorkflow describes the validated delivery form a workflow starts from.
type NewWorkflow struct {
	RequestID   string
	Creator     string
	Version     string
	Account     string
	Title       string
	Description string
	SourcePath  string
}

// Create inserts a workflow in FormEntry, waiting for the media lane to start
// the upload.
func (s *Store) Create(ctx context.Context, in NewWorkflow) (*Item, error) {
	if strings.TrimSpace(in.RequestID) == "" {
		return nil, errors.New("request id is required")
	}
	timestamp := nowString()
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO workflows (
            request_id, creator, version, account, title, description, source_path,
            status, progress_stage, progress_percent, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		in.RequestID,
		nullableString(in.Creator),
		nullableString(in.Version),
		nullableString(in.Account),
		in.Title,
		in.Description,
		in.SourcePath,
		StatusFormEntry,
		"Queued",
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert workflow: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a workflow by identifier. A missing workflow returns nil, nil.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+itemColumns+` FROM workflows WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get workflow: %w", err)
	}
	return item, nil
}

// FindActiveByRequest returns the newest workflow for requestID that has not
// failed, or nil.
func (s *Store) FindActiveByRequest(ctx context.Context, requestID string) (*Item, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+itemColumns+` FROM workflows WHERE request_id = ? AND status != ? ORDER BY id DESC LIMIT 1`,
		requestID,
		StatusFailed,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by request: %w", err)
	}
	return item, nil
}

// Update persists changes to an existing workflow.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	timestamp := nowString()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE workflows
         SET status = ?, upload_uuid = ?, token_uri = ?, metadata_json = ?,
             mint_requested = ?, mint_key = ?, tx_hash = ?, nft_token_id = ?, share_tx_hash = ?,
             progress_stage = ?, progress_percent = ?, progress_message = ?,
             error_kind = ?, error_message = ?, failed_status = ?, last_heartbeat = ?, updated_at = ?
         WHERE id = ?`,
		item.Status,
		nullableString(item.UploadUUID),
		nullableString(item.TokenURI),
		nullableString(item.MetadataJSON),
		boolToInt(item.MintRequested),
		nullableString(item.MintKey),
		nullableString(item.TxHash),
		nullableString(item.NFTTokenID),
		nullableString(item.ShareTxHash),
		nullableString(item.ProgressStage),
		item.ProgressPercent,
		nullableString(item.ProgressMessage),
		nullableString(item.ErrorKind),
		nullableString(item.ErrorMessage),
		nullableString(string(item.FailedStatus)),
		nullableTime(item.LastHeartbeat),
		timestamp,
		item.ID,
	); err != nil {
		return fmt.Errorf("update workflow: %w", err)
	}
	if updated, err := parseTimeString(timestamp); err == nil {
		item.UpdatedAt = updated
	}
	return nil
}

// UpdateProgress persists only the progress fields so a concurrent status
// change is never overwritten by a progress tick.
func (s *Store) UpdateProgress(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE workflows SET progress_stage = ?, progress_percent = ?, progress_message = ?, updated_at = ? WHERE id = ?`,
		nullableString(item.ProgressStage),
		item.ProgressPercent,
		nullableString(item.ProgressMessage),
		nowString(),
		item.ID,
	); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// List returns workflows filtered by status set (or all workflows when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + itemColumns + ` FROM workflows`
	var args []any
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		args = statusArgs(statuses)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// NextForStatuses returns the oldest workflow ready for one of the provided
// statuses. Workflows waiting in MetadataReady are only ready once the creator
// requested the mint.
func (s *Store) NextForStatuses(ctx context.Context, statuses ...Status) (*Item, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	args := statusArgs(statuses)
	args = append(args, StatusMetadataReady)
	query := `SELECT ` + itemColumns + ` FROM workflows
        WHERE status IN (` + makePlaceholders(len(statuses)) + `)
          AND (status != ? OR mint_requested = 1)
        ORDER BY created_at, id LIMIT 1`
	row := s.db.QueryRowContext(ensureContext(ctx), query, args...)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Remove deletes a workflow and its jobs. Workflows with a stage in flight are
// left alone.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	placeholders := makePlaceholders(len(processingStatuses))
	args := []any{id}
	for status := range processingStatuses {
		args = append(args, status)
	}
	res, err := s.execWithRetry(ctx, `DELETE FROM workflows WHERE id = ? AND status NOT IN (`+placeholders+`)`, args...)
	if err != nil {
		return false, fmt.Errorf("remove workflow: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}
	if err := s.execWithoutResultRetry(ctx, `DELETE FROM jobs WHERE workflow_id = ?`, id); err != nil {
		return true, fmt.Errorf("remove jobs: %w", err)
	}
	return true, nil
}
