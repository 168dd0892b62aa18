package progress_test

import (
	"context"
	"math"
	"testing"

	"clipto/internal/progress"
)

func collect() (*progress.Reporter, *[]progress.Snapshot) {
	var seen []progress.Snapshot
	reporter := progress.NewReporter(func(_ context.Context, snap progress.Snapshot) {
		seen = append(seen, snap)
	}, nil)
	return reporter, &seen
}

func TestUploadPercentIsRoundedAndMonotonic(t *testing.T) {
	reporter, seen := collect()
	ctx := context.Background()

	reporter.Uploading(ctx, 12.4)
	reporter.Uploading(ctx, 12.6)
	reporter.Uploading(ctx, 9)
	reporter.Uploading(ctx, 12.9)
	reporter.Uploading(ctx, 250)

	got := make([]int, 0, len(*seen))
	for _, snap := range *seen {
		got = append(got, snap.Percent)
	}
	want := []int{12, 13, 100}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if msg := reporter.Current().Message; msg != "Uploading 100%..." {
		t.Fatalf("unexpected label %q", msg)
	}
}

func TestPhasesNeverMoveBackwards(t *testing.T) {
	reporter, seen := collect()
	ctx := context.Background()

	reporter.Uploading(ctx, 40)
	if !reporter.Transcoding(ctx) {
		t.Fatal("expected transcoding to advance")
	}
	if reporter.Uploading(ctx, 90) {
		t.Fatal("upload progress after transcoding must be ignored")
	}
	if reporter.Transcoding(ctx) {
		t.Fatal("repeated transcoding must be ignored")
	}
	reporter.TranscodeComplete(ctx)
	reporter.Done(ctx)

	labels := make([]string, 0, len(*seen))
	for _, snap := range *seen {
		labels = append(labels, snap.Message)
	}
	want := []string{"Uploading 40%...", "Transcoding...", "Transcoding Complete...", "Done"}
	if len(labels) != len(want) {
		t.Fatalf("expected %v, got %v", want, labels)
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, labels)
		}
	}
}

func TestResumeKeepsPersistedProgress(t *testing.T) {
	reporter, seen := collect()
	reporter.Resume(progress.Snapshot{Phase: progress.PhaseUploading, Percent: 55})
	if reporter.Uploading(context.Background(), 30) {
		t.Fatal("percent below resumed value must be ignored")
	}
	if len(*seen) != 0 {
		t.Fatalf("expected no emitted snapshots, got %v", *seen)
	}
	if reporter.Current().Message != "Uploading 55%..." {
		t.Fatalf("unexpected resumed label %q", reporter.Current().Message)
	}
}

func TestRoundAndFraction(t *testing.T) {
	cases := []struct {
		in   float64
		want int
	}{
		{-5, 0},
		{0.49, 0},
		{0.5, 1},
		{99.5, 100},
		{math.NaN(), 0},
	}
	for _, tc := range cases {
		if got := progress.Round(tc.in); got != tc.want {
			t.Fatalf("Round(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
	if got := progress.Fraction(5, 20); got != 25 {
		t.Fatalf("Fraction = %v, want 25", got)
	}
	if got := progress.Fraction(5, 0); got != 0 {
		t.Fatalf("Fraction with unknown total = %v", got)
	}
}

func TestParsePhase(t *testing.T) {
	phase, ok := progress.ParsePhase(" Transcode_Complete ")
	if !ok || phase != progress.PhaseTranscodeComplete {
		t.Fatalf("unexpected parse result %v %v", phase, ok)
	}
	if _, ok := progress.ParsePhase("minting"); ok {
		t.Fatal("expected unknown phase")
	}
}
