package main

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"

	"clipto/internal/notifications"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Clipto", statusError, "Not running", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Clipto:", "[ERROR] Not running")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Clipto", statusOK, "Running", true)
	plain := renderStatusLine("Clipto", statusOK, "Running", false)
	if want := text.FgGreen.Sprint(plain); got != want {
		t.Fatalf("expected green line %q, got %q", want, got)
	}
}

func TestStatusLabel(t *testing.T) {
	cases := map[string]string{
		"metadata_ready": "Metadata Ready",
		"form_entry":     "Form Entry",
		"done":           "Done",
		"":               "Unknown",
	}
	for in, want := range cases {
		if got := statusLabel(in); got != want {
			t.Fatalf("statusLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildQueueStatusRowsFollowsLifecycle(t *testing.T) {
	rows := buildQueueStatusRows(map[string]int{
		"failed":         1,
		"form_entry":     2,
		"metadata_ready": 3,
		"minted":         0,
	})
	if len(rows) != 3 {
		t.Fatalf("expected zero counts to be dropped, got %v", rows)
	}
	order := []string{rows[0][0], rows[1][0], rows[2][0]}
	want := []string{"Form Entry", "Metadata Ready", "Failed"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("row order = %v, want %v", order, want)
		}
	}
}

func TestRenderEventLine(t *testing.T) {
	line := renderEventLine(notifications.Record{
		Time:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local),
		Status:  "uploading",
		Message: "Uploading video",
		Percent: 42,
	}, false)
	requireContains(t, line, "03:04:05")
	requireContains(t, line, "Uploading")
	requireContains(t, line, " 42%")
	requireContains(t, line, "Uploading video")
}

func TestParseDeliveryID(t *testing.T) {
	if id, err := parseDeliveryID("#12"); err != nil || id != 12 {
		t.Fatalf("parseDeliveryID(#12) = %d, %v", id, err)
	}
	if _, err := parseDeliveryID("0"); err == nil {
		t.Fatal("expected zero to be rejected")
	}
	if _, err := parseDeliveryID("abc"); err == nil {
		t.Fatal("expected non-number to be rejected")
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatal("expected non-file writer to disable color")
	}
}
