package ipc

import (
	"time"

	"clipto/internal/notifications"
	"clipto/internal/queue"
)

// Delivery is the wire form of one delivery workflow.
type Delivery struct {
	ID              int64     `json:"id"`
	RequestID       string    `json:"request_id"`
	Creator         string    `json:"creator"`
	Version         string    `json:"version,omitempty"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	SourcePath      string    `json:"source_path"`
	Status          string    `json:"status"`
	UploadUUID      string    `json:"upload_uuid,omitempty"`
	TokenURI        string    `json:"token_uri,omitempty"`
	MintRequested   bool      `json:"mint_requested"`
	MintEnabled     bool      `json:"mint_enabled"`
	TxHash          string    `json:"tx_hash,omitempty"`
	NFTTokenID      string    `json:"nft_token_id,omitempty"`
	ShareTxHash     string    `json:"share_tx_hash,omitempty"`
	ProgressStage   string    `json:"progress_stage,omitempty"`
	ProgressPercent float64   `json:"progress_percent"`
	ProgressMessage string    `json:"progress_message,omitempty"`
	ErrorKind       string    `json:"error_kind,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	FailedStatus    string    `json:"failed_status,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Jobs            []Job     `json:"jobs,omitempty"`
}

// Job is the wire form of one remote job handle.
type Job struct {
	Kind      string    `json:"kind"`
	RemoteID  string    `json:"remote_id"`
	Status    string    `json:"status"`
	Detail    string    `json:"detail,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FromItem converts a stored workflow into its wire form.
func FromItem(item *queue.Item) Delivery {
	if item == nil {
		return Delivery{}
	}
	return Delivery{
		ID:              item.ID,
		RequestID:       item.RequestID,
		Creator:         item.Creator,
		Version:         item.Version,
		Title:           item.Title,
		Description:     item.Description,
		SourcePath:      item.SourcePath,
		Status:          string(item.Status),
		UploadUUID:      item.UploadUUID,
		TokenURI:        item.TokenURI,
		MintRequested:   item.MintRequested,
		TxHash:          item.TxHash,
		NFTTokenID:      item.NFTTokenID,
		ShareTxHash:     item.ShareTxHash,
		ProgressStage:   item.ProgressStage,
		ProgressPercent: item.ProgressPercent,
		ProgressMessage: item.ProgressMessage,
		ErrorKind:       item.ErrorKind,
		ErrorMessage:    item.ErrorMessage,
		FailedStatus:    string(item.FailedStatus),
		CreatedAt:       item.CreatedAt,
		UpdatedAt:       item.UpdatedAt,
	}
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StageHealth describes readiness of a delivery stage.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// StatusResponse represents combined daemon/workflow status information.
type StatusResponse struct {
	Running     bool           `json:"running"`
	PID         int            `json:"pid"`
	Lanes       []string       `json:"lanes"`
	QueueStats  map[string]int `json:"queue_stats"`
	LastError   string         `json:"last_error"`
	LastItem    *Delivery      `json:"last_item"`
	LockPath    string         `json:"lock_path"`
	QueueDBPath string         `json:"queue_db_path"`
	StageHealth []StageHealth  `json:"stage_health"`
}

// SubmitRequest queues a new delivery.
type SubmitRequest struct {
	RequestID   string `json:"request_id"`
	Creator     string `json:"creator"`
	Version     string `json:"version"`
	Account     string `json:"account"`
	Title       string `json:"title"`
	Description string `json:"description"`
	SourcePath  string `json:"source_path"`
}

// DeliveryResponse contains a single delivery.
type DeliveryResponse struct {
	Delivery Delivery `json:"delivery"`
}

// ListRequest filters deliveries by status.
type ListRequest struct {
	Statuses []string `json:"statuses"`
}

// ListResponse contains deliveries.
type ListResponse struct {
	Deliveries []Delivery `json:"deliveries"`
}

// IDRequest addresses one delivery.
type IDRequest struct {
	ID int64 `json:"id"`
}

// MintResponse reports an accepted mint confirmation.
type MintResponse struct {
	MintKey string `json:"mint_key"`
}

// ShareRequest records a Lens post for a delivered delivery.
type ShareRequest struct {
	ID     int64  `json:"id"`
	TxHash string `json:"tx_hash"`
	Handle string `json:"handle"`
}

// RemoveResponse reports whether a delivery was removed.
type RemoveResponse struct {
	Removed bool `json:"removed"`
}

// EventsRequest fetches hub events newer than Since.
type EventsRequest struct {
	Since      int64 `json:"since"`
	DeliveryID int64 `json:"delivery_id"`
}

// EventsResponse returns events and the cursor for the next request.
type EventsResponse struct {
	Events []notifications.Record `json:"events"`
	Next   int64                  `json:"next"`
}

// HealthRequest fetches aggregate diagnostics.
type HealthRequest struct{}

// HealthResponse reports queue and database health.
type HealthResponse struct {
	Total          int    `json:"total"`
	Waiting        int    `json:"waiting"`
	Processing     int    `json:"processing"`
	AwaitingMint   int    `json:"awaiting_mint"`
	Failed         int    `json:"failed"`
	Done           int    `json:"done"`
	DBPath         string `json:"db_path"`
	IntegrityCheck bool   `json:"integrity_check"`
	TotalJobs      int    `json:"total_jobs"`
	Error          string `json:"error,omitempty"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// FromJobs converts stored remote jobs into their wire form.
func FromJobs(jobs []*queue.Job) []Job {
	out := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		if job == nil {
			continue
		}
		out = append(out, Job{
			Kind:      string(job.Kind),
			RemoteID:  job.RemoteID,
			Status:    string(job.Status),
			Detail:    job.Detail,
			UpdatedAt: job.UpdatedAt,
		})
	}
	return out
}
