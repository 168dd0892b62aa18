package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a delivery workflow.
type Status string

const (
	StatusFormEntry     Status = "form_entry"
	StatusUploading     Status = "uploading"
	StatusUploaded      Status = "uploaded"
	StatusTranscoding   Status = "transcoding"
	StatusMetadataReady Status = "metadata_ready"
	StatusMinting       Status = "minting"
	StatusMinted        Status = "minted"
	StatusIndexing      Status = "indexing"
	StatusDone          Status = "done"
	StatusFailed        Status = "failed"
)

// DaemonStopReason is the error message set when a transaction was in flight
// while the daemon went away.
const DaemonStopReason = "Daemon stopped while minting; verify the transaction before retrying"

var allStatuses = []Status{
	StatusFormEntry,
	StatusUploading,
	StatusUploaded,
	StatusTranscoding,
	StatusMetadataReady,
	StatusMinting,
	StatusMinted,
	StatusIndexing,
	StatusDone,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusUploading:   {},
	StatusTranscoding: {},
	StatusMinting:     {},
	StatusIndexing:    {},
}

type statusTransition struct {
	from Status
	to   Status
}

// Minting never rolls back to a retryable status: the transaction may already
// be on chain.
var stageRollbackTransitions = []statusTransition{
	{from: StatusUploading, to: StatusFormEntry},
	{from: StatusTranscoding, to: StatusUploaded},
	{from: StatusMinting, to: StatusFailed},
	{from: StatusIndexing, to: StatusMinted},
}

// retryTargets maps the status a workflow failed in to where a manual retry
// resumes it.
var retryTargets = map[Status]Status{
	StatusFormEntry:     StatusFormEntry,
	StatusUploading:     StatusFormEntry,
	StatusUploaded:      StatusUploaded,
	StatusTranscoding:   StatusUploaded,
	StatusMetadataReady: StatusMetadataReady,
	StatusMinting:       StatusMetadataReady,
	StatusMinted:        StatusMinted,
	StatusIndexing:      StatusMinted,
}

// HealthSummary describes aggregated workflow counts per key lifecycle states.
type HealthSummary struct {
	Total        int
	Waiting      int
	Processing   int
	AwaitingMint int
	Failed       int
	Done         int
}

// Item is one delivery workflow persisted in SQLite.
type Item struct {
	ID              int64
	RequestID       string
	Creator         string
	Version         string
	Account         string
	Title           string
	Description     string
	SourcePath      string
	Status          Status
	UploadUUID      string
	TokenURI        string
	MetadataJSON    string
	MintRequested   bool
	MintKey         string
	TxHash          string
	NFTTokenID      string
	ShareTxHash     string
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	ErrorKind       string
	ErrorMessage    string
	FailedStatus    Status
	LastHeartbeat   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight operation.
func (i Item) IsProcessing() bool {
	return IsProcessingStatus(i.Status)
}

// IsProcessingStatus reports whether a status reflects an in-flight operation.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsTerminal reports whether no further transitions occur from status.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

// MintEnabled reports whether the creator may confirm minting right now.
func (i Item) MintEnabled() bool {
	return i.Status == StatusMetadataReady && !i.MintRequested && strings.TrimSpace(i.TokenURI) != ""
}

// InitProgress resets progress fields for a new stage.
func (i *Item) InitProgress(stage, message string) {
	i.ProgressStage = stage
	i.ProgressMessage = message
	i.ProgressPercent = 0
	i.ErrorKind = ""
	i.ErrorMessage = ""
}

// SetProgress updates all three progress fields atomically.
func (i *Item) SetProgress(stage, message string, percent float64) {
	i.ProgressStage = stage
	i.ProgressMessage = message
	i.ProgressPercent = percent
}

// SetProgressComplete sets progress to 100% with the given stage and message.
func (i *Item) SetProgressComplete(stage, message string) {
	i.SetProgress(stage, message, 100)
}

// SetFailed marks the item as failed, remembering the status it failed in.
func (i *Item) SetFailed(kind, message string) {
	if i.Status != StatusFailed {
		i.FailedStatus = i.Status
	}
	i.Status = StatusFailed
	i.ErrorKind = kind
	i.ErrorMessage = message
	i.ProgressMessage = message
	i.ProgressStage = "Failed"
	i.LastHeartbeat = nil
}

// ProcessingLane partitions workflow stages between media and chain work.
type ProcessingLane string

const (
	LaneMedia ProcessingLane = "media"
	LaneChain ProcessingLane = "chain"
)

// LaneForStatus maps a status to the lane that owns it.
func LaneForStatus(status Status) ProcessingLane {
	switch status {
	case StatusMetadataReady, StatusMinting, StatusMinted, StatusIndexing, StatusDone:
		return LaneChain
	default:
		return LaneMedia
	}
}

// JobKind classifies a remote long-running operation.
type JobKind string

const (
	JobUpload      JobKind = "upload"
	JobTranscode   JobKind = "transcode"
	JobTransaction JobKind = "transaction"
)

// predecessor returns the kind that must have succeeded before kind may start.
func (k JobKind) predecessor() (JobKind, bool) {
	switch k {
	case JobTranscode:
		return JobUpload, true
	case JobTransaction:
		return JobTranscode, true
	default:
		return "", false
	}
}

// JobStatus is the remote state of a job as last observed.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobInProgress JobStatus = "in_progress"
	JobSucceeded  JobStatus = "succeeded"
	JobFailed     JobStatus = "failed"
)

// IsTerminal reports whether the job can no longer change.
func (s JobStatus) IsTerminal() bool {
	return s == JobSucceeded || s == JobFailed
}

// Job is a backend-tracked unit of long-running work.
type Job struct {
	ID           int64
	WorkflowID   int64
	Kind         JobKind
	RemoteID     string
	Status       JobStatus
	Detail       string
	LastPolledAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
