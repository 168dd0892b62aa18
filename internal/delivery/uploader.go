package delivery

import (
	"context"
	"path/filepath"
	"strings"

	"clipto/internal/backend"
	"clipto/internal/logging"
	"clipto/internal/notifications"
	"clipto/internal/progress"
	"clipto/internal/queue"
	"clipto/internal/services"
	"clipto/internal/stage"
	"clipto/internal/upload"
	"clipto/internal/workflow"
)

// UploadMessage is the personal_sign message that authorizes an upload link.
const UploadMessage = "I am uploading a video to complete the Order"

// Uploader moves a workflow from Uploading to Uploaded.
type Uploader struct {
	base
}

// NewUploader returns the upload stage handler.
func NewUploader(deps Deps) *Uploader {
	return &Uploader{base: newBase(deps, "uploader")}
}

// Prepare checks the source file before any remote call is made.
func (u *Uploader) Prepare(ctx context.Context, item *queue.Item) error {
	if _, err := u.deps.Uploader.Check(item.SourcePath); err != nil {
		return err
	}
	item.InitProgress(progress.PhaseUploading.String(), "Preparing upload")
	return nil
}

// Execute requests an upload link, streams the file and records the job.
func (u *Uploader) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, u.logger)

	account, signature, err := u.deps.Signer.Sign(ctx, UploadMessage)
	if err != nil {
		return services.Wrap(services.ErrProvider, "uploading", "sign", "wallet did not sign the upload message", err)
	}
	link, err := u.deps.Backend.CreateUploadLink(ctx, backend.UploadLinkRequest{
		Signed:    signature,
		Address:   account,
		Message:   UploadMessage,
		Extension: extension(item.SourcePath),
	})
	if err != nil {
		return services.WithUserMessage(err, "Error uploading file")
	}

	job, err := u.deps.Store.CreateJob(ctx, item.ID, queue.JobUpload, link.JobUUID)
	if err != nil {
		return services.Wrap(services.ErrUnexpected, "uploading", "record job", "could not record upload job", err)
	}
	item.UploadUUID = link.JobUUID
	if err := u.deps.Store.Update(ctx, item); err != nil {
		return services.Wrap(services.ErrUnexpected, "uploading", "persist", "could not store upload uuid", err)
	}

	endpoint, err := u.deps.Backend.ResumableURL(ctx, link.UploadURL)
	if err != nil {
		u.finishJob(ctx, job, queue.JobFailed, err.Error())
		return services.WithUserMessage(err, "Error uploading file")
	}

	reporter := u.reporter(item)
	err = u.deps.Uploader.Upload(ctx, endpoint, item.SourcePath, func(ev upload.Event) {
		if ev.Kind != upload.EventError {
			reporter.Uploading(ctx, ev.Percent)
		}
	})
	if err != nil {
		u.finishJob(ctx, job, queue.JobFailed, err.Error())
		return services.WithUserMessage(err, "Error uploading file")
	}
	u.finishJob(ctx, job, queue.JobSucceeded, "")

	jobs, err := u.deps.Store.JobsForWorkflow(ctx, item.ID)
	if err != nil {
		return services.Wrap(services.ErrUnexpected, "uploading", "load jobs", "could not load jobs", err)
	}
	if err := u.machine.Check(queue.StatusUploading, queue.StatusUploaded, workflow.FactsFor(item, jobs)); err != nil {
		return err
	}

	logger.Info("upload complete",
		logging.String(logging.FieldEventType, "upload_complete"),
		logging.String(logging.FieldJobID, link.JobUUID),
	)
	return nil
}

// Settled announces the upload once the delivery is stored as uploaded.
func (u *Uploader) Settled(ctx context.Context, item *queue.Item) {
	u.notify(ctx, notifications.EventUploaded, notifications.Payload{"id": item.ID, "title": item.Title})
}

// HealthCheck reports whether the collaborators are wired.
func (u *Uploader) HealthCheck(context.Context) stage.Health {
	switch {
	case u.deps.Uploader == nil, u.deps.Backend == nil:
		return stage.Unhealthy("uploader", "upload client not configured")
	case u.deps.Signer == nil:
		return stage.Unhealthy("uploader", "wallet not configured")
	default:
		return stage.Healthy("uploader")
	}
}

func (u *Uploader) finishJob(ctx context.Context, job *queue.Job, status queue.JobStatus, detail string) {
	if _, err := u.deps.Store.UpdateJobStatus(ctx, job.ID, status, detail); err != nil {
		u.logger.Warn("job status not persisted",
			logging.String(logging.FieldJobID, job.RemoteID),
			logging.Error(err),
			logging.String(logging.FieldEventType, "job_status_persist_failed"),
			logging.String(logging.FieldErrorHint, "check queue database access"),
		)
	}
}

// extension returns the text after the last dot of the file name.
func extension(path string) string {
	name := filepath.Base(path)
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}
