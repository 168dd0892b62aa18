package workflow

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"clipto/internal/queue"
	"clipto/internal/services"
)

const (
	// MsgFieldRequired is the inline error for an empty title or description.
	MsgFieldRequired = "This field cannot be empty"
	// MsgAddTitleAndDescription is the toast shown when the form is incomplete.
	MsgAddTitleAndDescription = "Please add title and description"
)

// Form is what the creator submits to start a delivery.
type Form struct {
	RequestID   string
	Creator     string
	Version     string
	Account     string
	Title       string
	Description string
	SourcePath  string
}

// ValidateForm checks the title and description. Both fields are reported
// when both are empty.
func ValidateForm(form Form) error {
	fields := services.FieldErrors{}
	if form.Title == "" {
		fields.Add("name", MsgFieldRequired)
	}
	if form.Description == "" {
		fields.Add("description", MsgFieldRequired)
	}
	return services.WithUserMessage(fields.Err(), MsgAddTitleAndDescription)
}

// Submitter turns validated forms into queued workflows.
type Submitter struct {
	store   *queue.Store
	machine *Machine
}

// NewSubmitter returns a Submitter backed by store.
func NewSubmitter(store *queue.Store) *Submitter {
	return &Submitter{store: store, machine: NewMachine()}
}

// Submit validates form and queues a workflow in form_entry. Nothing remote is
// contacted here; the media lane picks the workflow up.
func (s *Submitter) Submit(ctx context.Context, form Form) (*queue.Item, error) {
	if err := ValidateForm(form); err != nil {
		return nil, err
	}
	if err := s.machine.Check(StatusIdle, queue.StatusFormEntry, Facts{Title: form.Title, Description: form.Description}); err != nil {
		return nil, err
	}
	fields := services.FieldErrors{}
	if strings.TrimSpace(form.RequestID) == "" {
		fields.Add("request", "A booking request is required.")
	}
	if msg := checkVideo(form.SourcePath); msg != "" {
		fields.Add("file", msg)
	}
	if err := fields.Err(); err != nil {
		return nil, err
	}
	active, err := s.store.FindActiveByRequest(ctx, form.RequestID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, services.Wrap(services.ErrValidation, "submit", "request",
			fmt.Sprintf("request %s already has delivery #%d in %s", form.RequestID, active.ID, active.Status), nil)
	}
	source, err := filepath.Abs(form.SourcePath)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "submit", "file", "resolve path", err)
	}
	return s.store.Create(ctx, queue.NewWorkflow{
		RequestID:   strings.TrimSpace(form.RequestID),
		Creator:     strings.ToLower(strings.TrimSpace(form.Creator)),
		Version:     strings.TrimSpace(form.Version),
		Account:     strings.ToLower(strings.TrimSpace(form.Account)),
		Title:       form.Title,
		Description: form.Description,
		SourcePath:  source,
	})
}

var videoExtensions = map[string]struct{}{
	".mp4": {}, ".m4v": {}, ".mov": {}, ".webm": {}, ".avi": {},
	".mpeg": {}, ".mpg": {}, ".ogv": {}, ".3gp": {}, ".mkv": {}, ".flv": {},
}

// checkVideo accepts video/* files plus .mkv and .flv.
func checkVideo(path string) string {
	if strings.TrimSpace(path) == "" {
		return "A video file is required."
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "Video file not found."
	}
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := videoExtensions[ext]; ok {
		return ""
	}
	if strings.HasPrefix(mime.TypeByExtension(ext), "video/") {
		return ""
	}
	return "Only video files can be delivered."
}
