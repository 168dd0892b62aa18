// Package progress turns upload and transcode events into the phase and
// percent shown for a delivery.
package progress

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"clipto/internal/logging"
)

// Phase is a user-visible delivery phase. Phases only move forward.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseUploading
	PhaseTranscoding
	PhaseTranscodeComplete
	PhaseDone
)

var phaseNames = map[Phase]string{
	PhaseIdle:              "idle",
	PhaseUploading:         "uploading",
	PhaseTranscoding:       "transcoding",
	PhaseTranscodeComplete: "transcode_complete",
	PhaseDone:              "done",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

// ParsePhase maps a persisted phase name back to a Phase.
func ParsePhase(name string) (Phase, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for phase, candidate := range phaseNames {
		if candidate == name {
			return phase, true
		}
	}
	return PhaseIdle, false
}

// Label renders the display text for the phase.
func (p Phase) Label(percent int) string {
	switch p {
	case PhaseUploading:
		return fmt.Sprintf("Uploading %d%%...", percent)
	case PhaseTranscoding:
		return "Transcoding..."
	case PhaseTranscodeComplete:
		return "Transcoding Complete..."
	case PhaseDone:
		return "Done"
	default:
		return ""
	}
}

// Snapshot is the reporter state at one point in time.
type Snapshot struct {
	Phase   Phase
	Percent int
	Message string
}

// Sink receives every snapshot that changed the visible state.
type Sink func(ctx context.Context, snap Snapshot)

// Reporter enforces forward-only phases and a non-decreasing percent.
type Reporter struct {
	mu      sync.Mutex
	current Snapshot
	sink    Sink
	sampler *logging.ProgressSampler
	logger  *slog.Logger
}

// NewReporter returns a Reporter that forwards changes to sink.
func NewReporter(sink Sink, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Reporter{sink: sink, sampler: logging.NewProgressSampler(10), logger: logger}
}

// Resume seeds the reporter with a persisted snapshot so a restarted daemon
// never reports a lower phase or percent than before.
func (r *Reporter) Resume(snap Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap.Percent = clamp(snap.Percent)
	if snap.Message == "" {
		snap.Message = snap.Phase.Label(snap.Percent)
	}
	r.current = snap
}

// Current returns the latest snapshot.
func (r *Reporter) Current() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Uploading records an upload progress event. percent is rounded to the
// nearest integer and clamped to [0, 100].
func (r *Reporter) Uploading(ctx context.Context, percent float64) bool {
	return r.advance(ctx, PhaseUploading, Round(percent))
}

// Transcoding records that the remote transcode is running.
func (r *Reporter) Transcoding(ctx context.Context) bool {
	return r.advance(ctx, PhaseTranscoding, 100)
}

// TranscodeComplete records that transcoded media is ready for finalize.
func (r *Reporter) TranscodeComplete(ctx context.Context) bool {
	return r.advance(ctx, PhaseTranscodeComplete, 100)
}

// Done records the end of the tracked operation.
func (r *Reporter) Done(ctx context.Context) bool {
	return r.advance(ctx, PhaseDone, 100)
}

func (r *Reporter) advance(ctx context.Context, phase Phase, percent int) bool {
	r.mu.Lock()
	if phase < r.current.Phase {
		r.mu.Unlock()
		return false
	}
	if phase == r.current.Phase && percent <= r.current.Percent {
		r.mu.Unlock()
		return false
	}
	if phase > r.current.Phase && phase != PhaseUploading {
		percent = 100
	}
	next := Snapshot{Phase: phase, Percent: percent, Message: phase.Label(percent)}
	r.current = next
	emit := r.sampler.ShouldLog(percent, phase.String())
	sink := r.sink
	r.mu.Unlock()

	if emit {
		logging.WithContext(ctx, r.logger).Debug("delivery progress",
			logging.String(logging.FieldEventType, "progress"),
			logging.String("phase", phase.String()),
			logging.Int("percent", percent),
		)
	}
	if sink != nil {
		sink(ctx, next)
	}
	return true
}

// Round converts a raw percentage to the displayed integer.
func Round(percent float64) int {
	if math.IsNaN(percent) {
		return 0
	}
	return clamp(int(math.Round(percent)))
}

// Fraction returns sent/total as a percentage, or 0 when total is unknown.
func Fraction(sent, total int64) float64 {
	if total <= 0 || sent <= 0 {
		return 0
	}
	return float64(sent) * 100 / float64(total)
}

func clamp(percent int) int {
	switch {
	case percent < 0:
		return 0
	case percent > 100:
		return 100
	default:
		return percent
	}
}
