package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"clipto/internal/config"
	"clipto/internal/logging"
	"clipto/internal/poller"
	"clipto/internal/progress"
	"clipto/internal/services"
)

// OversizeMessage is shown when the file exceeds the upload limit.
const OversizeMessage = "Error uploading file. File size should be less than 50mb"

// FileChangedMessage is shown when the video shrinks while it is uploading.
const FileChangedMessage = "video file changed during upload"

const (
	defaultChunkSize  = 5 * 1024 * 1024
	defaultMaxSize    = 50 * 1024 * 1024
	defaultAttempts   = 5
	defaultRetryDelay = time.Second
	maxRetryDelay     = 30 * time.Second
)

// EventKind distinguishes upload events.
type EventKind int

const (
	EventProgress EventKind = iota
	EventSuccess
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventSuccess:
		return "success"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is published for every acknowledged chunk and once at the end.
type Event struct {
	Kind    EventKind
	Sent    int64
	Total   int64
	Percent float64
	Err     error
}

// Uploader performs chunked uploads.
type Uploader struct {
	client     *http.Client
	chunkSize  int64
	maxSize    int64
	attempts   int
	retryDelay time.Duration
	logger     *slog.Logger
}

// Option customizes the uploader.
type Option func(*Uploader)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(u *Uploader) {
		if client != nil {
			u.client = client
		}
	}
}

// WithRetryDelay sets the base delay between chunk attempts.
func WithRetryDelay(delay time.Duration) Option {
	return func(u *Uploader) {
		if delay > 0 {
			u.retryDelay = delay
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(u *Uploader) {
		if logger != nil {
			u.logger = logger
		}
	}
}

// New builds an uploader from the upload section of cfg.
func New(cfg *config.Config, opts ...Option) *Uploader {
	u := &Uploader{
		client:     &http.Client{},
		chunkSize:  defaultChunkSize,
		maxSize:    defaultMaxSize,
		attempts:   defaultAttempts,
		retryDelay: defaultRetryDelay,
		logger:     logging.NewNop(),
	}
	if cfg != nil {
		if v := cfg.ChunkSizeBytes(); v > 0 {
			u.chunkSize = v
		}
		if v := cfg.MaxFileSizeBytes(); v > 0 {
			u.maxSize = v
		}
		if cfg.Upload.ChunkAttempts > 0 {
			u.attempts = cfg.Upload.ChunkAttempts
		}
	}
	for _, opt := range opts {
		opt(u)
	}
	u.logger = logging.NewComponentLogger(u.logger, "upload")
	return u
}

// Check reports whether path can be uploaded: readable, non-empty and within
// the size limit. It returns the file size.
func (u *Uploader) Check(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, services.Wrap(services.ErrValidation, "upload", "stat", "cannot read video file", err)
	}
	if info.Size() == 0 {
		return 0, services.Wrap(services.ErrValidation, "upload", "stat", "video file is empty", nil)
	}
	if info.Size() > u.maxSize {
		err := services.Wrap(services.ErrValidation, "upload", "stat",
			fmt.Sprintf("file is %d bytes, limit is %d", info.Size(), u.maxSize), nil)
		return 0, services.WithUserMessage(err, OversizeMessage)
	}
	return info.Size(), nil
}

// Start validates the file and begins uploading it to endpoint. The returned
// channel carries progress events and exactly one success or error event
// before it is closed. Canceling ctx stops the upload; the error event is then
// delivered only if the channel has room.
func (u *Uploader) Start(ctx context.Context, endpoint, path string) (<-chan Event, error) {
	size, err := u.Check(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "upload", "open", "cannot read video file", err)
	}

	events := make(chan Event, 8)
	go func() {
		defer close(events)
		defer file.Close()
		u.run(ctx, endpoint, file, size, contentType(path), events)
	}()
	return events, nil
}

// Upload runs Start and blocks until the upload finishes, forwarding every
// event to fn when it is non-nil.
func (u *Uploader) Upload(ctx context.Context, endpoint, path string, fn func(Event)) error {
	events, err := u.Start(ctx, endpoint, path)
	if err != nil {
		return err
	}
	var final error
	succeeded := false
	for ev := range events {
		if fn != nil {
			fn(ev)
		}
		switch ev.Kind {
		case EventError:
			final = ev.Err
		case EventSuccess:
			succeeded = true
		}
	}
	if final == nil && !succeeded {
		if final = ctx.Err(); final == nil {
			final = services.Wrap(services.ErrUnexpected, "upload", "run", "upload ended without a result", nil)
		}
	}
	return final
}

func (u *Uploader) run(ctx context.Context, endpoint string, file io.ReaderAt, total int64, ctype string, events chan<- Event) {
	buf := make([]byte, u.chunkSize)
	for offset := int64(0); offset < total; {
		want := min(int64(len(buf)), total-offset)
		n, err := file.ReadAt(buf[:want], offset)
		if err != nil && !errors.Is(err, io.EOF) {
			emitFinal(ctx, events, Event{Kind: EventError, Sent: offset, Total: total,
				Err: services.Wrap(services.ErrTransient, "upload", "read chunk", "", err)})
			return
		}
		// A short read means the file shrank after it was sized; sending what
		// is left would never reach total.
		if int64(n) < want {
			err := services.Wrap(services.ErrValidation, "upload", "read chunk",
				fmt.Sprintf("read %d of %d bytes at offset %d", n, want, offset), nil)
			emitFinal(ctx, events, Event{Kind: EventError, Sent: offset, Total: total,
				Err: services.WithUserMessage(err, FileChangedMessage)})
			return
		}
		chunk := buf[:n]
		if err := u.sendChunk(ctx, endpoint, chunk, offset, total, ctype); err != nil {
			emitFinal(ctx, events, Event{Kind: EventError, Sent: offset, Total: total, Err: err})
			return
		}
		offset += int64(n)
		if !emit(ctx, events, Event{Kind: EventProgress, Sent: offset, Total: total, Percent: progress.Fraction(offset, total)}) {
			return
		}
	}
	emitFinal(ctx, events, Event{Kind: EventSuccess, Sent: total, Total: total, Percent: 100})
}

func (u *Uploader) sendChunk(ctx context.Context, endpoint string, chunk []byte, offset, total int64, ctype string) error {
	var lastErr error
	for attempt := 0; attempt < u.attempts; attempt++ {
		if attempt > 0 {
			delay := poller.Backoff(u.retryDelay, maxRetryDelay, attempt-1)
			logging.WarnWithContext(logging.WithContext(ctx, u.logger), "chunk upload failed; retrying", "upload_chunk_retry",
				logging.Error(lastErr),
				logging.Int64("offset", offset),
				logging.Int("attempt", attempt+1),
				logging.Duration("retry_in", delay),
				logging.String(logging.FieldErrorHint, "check network connectivity to the upload host"),
				logging.String(logging.FieldImpact, "upload slowed"),
			)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		err := u.put(ctx, endpoint, chunk, offset, total, ctype)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		lastErr = err
		if !errors.Is(err, services.ErrTransient) {
			break
		}
	}
	return services.WithUserMessage(lastErr, "Error uploading: "+errorDetail(lastErr))
}

func (u *Uploader) put(ctx context.Context, endpoint string, chunk []byte, offset, total int64, ctype string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(chunk))
	if err != nil {
		return services.Wrap(services.ErrUnexpected, "upload", "build chunk request", "", err)
	}
	end := offset + int64(len(chunk)) - 1
	req.ContentLength = int64(len(chunk))
	req.Header.Set("Content-Type", ctype)
	req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, end, total))
	resp, err := u.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "upload", "put chunk", "", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	switch {
	case resp.StatusCode == http.StatusPermanentRedirect, resp.StatusCode < http.StatusMultipleChoices:
		return nil
	case resp.StatusCode == http.StatusRequestTimeout, resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= http.StatusInternalServerError:
		return services.Wrap(services.ErrTransient, "upload", "put chunk", fmt.Sprintf("server answered %d", resp.StatusCode), nil)
	default:
		return services.Wrap(services.ErrUnexpected, "upload", "put chunk", fmt.Sprintf("server answered %d", resp.StatusCode), nil)
	}
}

func emit(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// emitFinal delivers a terminal event. After cancellation it never blocks.
func emitFinal(ctx context.Context, events chan<- Event, ev Event) {
	if ctx.Err() == nil {
		emit(ctx, events, ev)
		return
	}
	select {
	case events <- ev:
	default:
	}
}

func errorDetail(err error) string {
	if err == nil {
		return "unknown error"
	}
	msg := err.Error()
	if idx := strings.LastIndex(msg, ": "); idx >= 0 && idx+2 < len(msg) {
		return msg[idx+2:]
	}
	return msg
}

func contentType(path string) string {
	if ctype := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); ctype != "" {
		return ctype
	}
	return "application/octet-stream"
}
