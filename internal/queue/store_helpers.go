package queue

import (
	"database/sql"
	"errors"
	"time"
)

const itemColumns = "id, request_id, creator, version, account, title, description, source_path, status, upload_uuid, token_uri, metadata_json, mint_requested, mint_key, tx_hash, nft_token_id, share_tx_hash, progress_stage, progress_percent, progress_message, error_kind, error_message, failed_status, last_heartbeat, created_at, updated_at"

const jobColumns = "id, workflow_id, kind, remote_id, status, detail, last_polled_at, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(scanner rowScanner) (*Item, error) {
	var (
		item             Item
		creator          sql.NullString
		version          sql.NullString
		account          sql.NullString
		statusStr        string
		uploadUUID       sql.NullString
		tokenURI         sql.NullString
		metadata         sql.NullString
		mintRequested    int64
		mintKey          sql.NullString
		txHash           sql.NullString
		nftTokenID       sql.NullString
		shareTxHash      sql.NullString
		progressStage    sql.NullString
		progressMessage  sql.NullString
		errorKind        sql.NullString
		errorMessage     sql.NullString
		failedStatus     sql.NullString
		lastHeartbeatRaw sql.NullString
		createdRaw       string
		updatedRaw       string
	)

	if err := scanner.Scan(
		&item.ID,
		&item.RequestID,
		&creator,
		&version,
		&account,
		&item.Title,
		&item.Description,
		&item.SourcePath,
		&statusStr,
		&uploadUUID,
		&tokenURI,
		&metadata,
		&mintRequested,
		&mintKey,
		&txHash,
		&nftTokenID,
		&shareTxHash,
		&progressStage,
		&item.ProgressPercent,
		&progressMessage,
		&errorKind,
		&errorMessage,
		&failedStatus,
		&lastHeartbeatRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item.Creator = creator.String
	item.Version = version.String
	item.Account = account.String
	item.Status = Status(statusStr)
	item.UploadUUID = uploadUUID.String
	item.TokenURI = tokenURI.String
	item.MetadataJSON = metadata.String
	item.MintRequested = mintRequested != 0
	item.MintKey = mintKey.String
	item.TxHash = txHash.String
	item.NFTTokenID = nftTokenID.String
	item.ShareTxHash = shareTxHash.String
	item.ProgressStage = progressStage.String
	item.ProgressMessage = progressMessage.String
	item.ErrorKind = errorKind.String
	item.ErrorMessage = errorMessage.String
	item.FailedStatus = Status(failedStatus.String)

	if created, err := parseTimeString(createdRaw); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		item.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			item.LastHeartbeat = &heartbeat
		}
	}
	return &item, nil
}

func scanJob(scanner rowScanner) (*Job, error) {
	var (
		job        Job
		kind       string
		status     string
		detail     sql.NullString
		polledRaw  sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(&job.ID, &job.WorkflowID, &kind, &job.RemoteID, &status, &detail, &polledRaw, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	job.Kind = JobKind(kind)
	job.Status = JobStatus(status)
	job.Detail = detail.String
	if polledRaw.Valid {
		if polled, err := parseTimeString(polledRaw.String); err == nil {
			job.LastPolledAt = &polled
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	return &job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func nowString() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func statusArgs(statuses []Status) []any {
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}
	return args
}
