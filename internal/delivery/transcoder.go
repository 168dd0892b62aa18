package delivery

import (
	"context"
	"strings"

	"clipto/internal/backend"
	"clipto/internal/logging"
	"clipto/internal/metadata"
	"clipto/internal/notifications"
	"clipto/internal/poller"
	"clipto/internal/progress"
	"clipto/internal/queue"
	"clipto/internal/services"
	"clipto/internal/stage"
	"clipto/internal/workflow"
)

// PermalinkMessage is shown when transcoding or finalize fails.
const PermalinkMessage = "Error generating permalink"

// Transcoder waits for the remote transcode, finalizes the metadata once and
// moves the workflow from Transcoding to MetadataReady.
type Transcoder struct {
	base
}

// NewTranscoder returns the transcode stage handler.
func NewTranscoder(deps Deps) *Transcoder {
	return &Transcoder{base: newBase(deps, "transcoder")}
}

// Prepare requires the upload uuid recorded by the upload stage.
func (t *Transcoder) Prepare(ctx context.Context, item *queue.Item) error {
	if strings.TrimSpace(item.UploadUUID) == "" {
		return services.Wrap(services.ErrValidation, "transcoding", "prepare", "workflow has no upload uuid", nil)
	}
	return nil
}

// Execute polls the transcode, finalizes and loads the minted metadata.
func (t *Transcoder) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, t.logger)
	reporter := t.reporter(item)
	if reporter.Current().Phase <= progress.PhaseUploading {
		reporter.Resume(progress.Snapshot{Phase: progress.PhaseUploading, Percent: 100})
	}
	reporter.Transcoding(ctx)

	job, err := t.transcodeJob(ctx, item)
	if err != nil {
		return err
	}
	if job.Status != queue.JobSucceeded {
		query := func(ctx context.Context) (poller.Observation[backend.UploadStatus], error) {
			status, err := t.deps.Backend.UploadStatus(ctx, item.UploadUUID)
			if err != nil {
				return poller.Observation[backend.UploadStatus]{}, err
			}
			return poller.Observation[backend.UploadStatus]{
				Status: status.JobStatus(),
				Value:  status,
				Detail: status.TranscodingComplete,
			}, nil
		}
		tracker := trackJob(ctx, &t.base, job, poller.New(query, t.deps.Poll))
		if _, err := tracker.Run(ctx); err != nil {
			return services.WithUserMessage(pollFailure("transcoding", "poll", "transcode did not complete", err), PermalinkMessage)
		}
	}
	reporter.TranscodeComplete(ctx)

	if strings.TrimSpace(item.TokenURI) == "" {
		result, err := t.deps.Backend.Finalize(ctx, backend.FinalizeRequest{
			UploadUUID:  item.UploadUUID,
			Description: item.Description,
			Name:        item.Title,
		})
		if err != nil {
			return services.WithUserMessage(err, PermalinkMessage)
		}
		item.TokenURI = result.ArweaveMetadata
		if err := t.deps.Store.Update(ctx, item); err != nil {
			return services.Wrap(services.ErrUnexpected, "transcoding", "persist", "could not store token uri", err)
		}
		logger.Info("metadata finalized",
			logging.String(logging.FieldEventType, "finalize_complete"),
			logging.String("token_uri", item.TokenURI),
		)
	}

	raw, err := t.deps.Backend.Metadata(ctx, item.TokenURI)
	if err != nil {
		return services.WithUserMessage(err, PermalinkMessage)
	}
	if _, err := metadata.ParseNFT(raw); err != nil {
		return services.WithUserMessage(err, PermalinkMessage)
	}
	item.MetadataJSON = string(raw)

	jobs, err := t.deps.Store.JobsForWorkflow(ctx, item.ID)
	if err != nil {
		return services.Wrap(services.ErrUnexpected, "transcoding", "load jobs", "could not load jobs", err)
	}
	if err := t.machine.Check(queue.StatusTranscoding, queue.StatusMetadataReady, workflow.FactsFor(item, jobs)); err != nil {
		return err
	}
	return nil
}

// Settled tells the creator the mint can be confirmed. It runs once the
// delivery is stored as metadata_ready, so a mint request sent in reaction is
// accepted.
func (t *Transcoder) Settled(ctx context.Context, item *queue.Item) {
	title := item.Title
	if nft, err := metadata.ParseNFT([]byte(item.MetadataJSON)); err == nil && nft.Name != "" {
		title = nft.Name
	}
	t.notify(ctx, notifications.EventMintReady, notifications.Payload{"id": item.ID, "title": title})
}

// transcodeJob reuses the latest transcode job unless it failed.
func (t *Transcoder) transcodeJob(ctx context.Context, item *queue.Item) (*queue.Job, error) {
	job, err := t.deps.Store.LatestJob(ctx, item.ID, queue.JobTranscode)
	if err != nil {
		return nil, services.Wrap(services.ErrUnexpected, "transcoding", "load job", "could not load transcode job", err)
	}
	if job != nil && job.Status != queue.JobFailed {
		return job, nil
	}
	job, err = t.deps.Store.CreateJob(ctx, item.ID, queue.JobTranscode, item.UploadUUID)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "transcoding", "record job", "could not start transcode job", err)
	}
	return job, nil
}

// HealthCheck reports whether the backend client is wired.
func (t *Transcoder) HealthCheck(context.Context) stage.Health {
	if t.deps.Backend == nil {
		return stage.Unhealthy("transcoder", "backend client not configured")
	}
	return stage.Healthy("transcoder")
}
