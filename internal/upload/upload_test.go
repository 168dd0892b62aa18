package upload_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"clipto/internal/services"
	"clipto/internal/testsupport"
	"clipto/internal/upload"
)

type chunkServer struct {
	mu       sync.Mutex
	body     bytes.Buffer
	ranges   []string
	failures int
}

func (s *chunkServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.Method != http.MethodPut {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	if s.failures > 0 {
		s.failures--
		http.Error(w, "try again", http.StatusServiceUnavailable)
		return
	}
	data, _ := io.ReadAll(r.Body)
	s.body.Write(data)
	s.ranges = append(s.ranges, r.Header.Get("Content-Range"))
	w.WriteHeader(http.StatusPermanentRedirect)
}

func newUploader(t *testing.T) *upload.Uploader {
	cfg := testsupport.NewConfig(t, testsupport.WithChunkSizeKB(1))
	cfg.Upload.MaxFileSizeKB = 4
	cfg.Upload.ChunkAttempts = 3
	return upload.New(cfg, upload.WithRetryDelay(time.Millisecond))
}

func TestUploadSendsContentRangeChunks(t *testing.T) {
	server := &chunkServer{}
	httpServer := httptest.NewServer(server)
	defer httpServer.Close()

	path := filepath.Join(t.TempDir(), "clip.mp4")
	testsupport.WriteFile(t, path, 2500)

	var percents []float64
	var kinds []upload.EventKind
	err := newUploader(t).Upload(context.Background(), httpServer.URL, path, func(ev upload.Event) {
		kinds = append(kinds, ev.Kind)
		if ev.Kind == upload.EventProgress {
			percents = append(percents, ev.Percent)
		}
	})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	want := []string{"bytes 0-1023/2500", "bytes 1024-2047/2500", "bytes 2048-2499/2500"}
	if len(server.ranges) != len(want) {
		t.Fatalf("expected ranges %v, got %v", want, server.ranges)
	}
	for i := range want {
		if server.ranges[i] != want[i] {
			t.Fatalf("expected ranges %v, got %v", want, server.ranges)
		}
	}
	original, _ := os.ReadFile(path)
	if !bytes.Equal(server.body.Bytes(), original) {
		t.Fatal("reassembled body differs from source file")
	}
	if len(percents) != 3 || percents[2] != 100 {
		t.Fatalf("unexpected progress %v", percents)
	}
	if kinds[len(kinds)-1] != upload.EventSuccess {
		t.Fatalf("expected final success event, got %v", kinds)
	}
}

func TestUploadRetriesTransientChunkFailures(t *testing.T) {
	server := &chunkServer{failures: 2}
	httpServer := httptest.NewServer(server)
	defer httpServer.Close()

	path := filepath.Join(t.TempDir(), "clip.mp4")
	testsupport.WriteFile(t, path, 100)

	if err := newUploader(t).Upload(context.Background(), httpServer.URL, path, nil); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if server.body.Len() != 100 {
		t.Fatalf("expected 100 bytes received, got %d", server.body.Len())
	}
}

func TestUploadReportsErrorAfterAttempts(t *testing.T) {
	server := &chunkServer{failures: 10}
	httpServer := httptest.NewServer(server)
	defer httpServer.Close()

	path := filepath.Join(t.TempDir(), "clip.mp4")
	testsupport.WriteFile(t, path, 100)

	var sawError bool
	err := newUploader(t).Upload(context.Background(), httpServer.URL, path, func(ev upload.Event) {
		if ev.Kind == upload.EventError {
			sawError = true
		}
	})
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if !sawError {
		t.Fatal("expected error event")
	}
	if server.failures != 7 {
		t.Fatalf("expected 3 attempts, %d failures left", server.failures)
	}
}

func TestUploadRejectsOversizeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.mp4")
	testsupport.WriteFile(t, path, 5*1024)

	_, err := newUploader(t).Start(context.Background(), "http://127.0.0.1:1", path)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if msg := services.UserMessage(err); msg != upload.OversizeMessage {
		t.Fatalf("unexpected user message %q", msg)
	}
}

func TestUploadStopsOnCancel(t *testing.T) {
	release := make(chan struct{})
	httpServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer httpServer.Close()
	defer close(release)

	path := filepath.Join(t.TempDir(), "clip.mp4")
	testsupport.WriteFile(t, path, 100)

	uploader := newUploader(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- uploader.Upload(ctx, httpServer.URL, path, nil)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("upload did not stop after cancel")
	}
}

func TestEventKindString(t *testing.T) {
	if upload.EventSuccess.String() != "success" || upload.EventKind(9).String() != "unknown" {
		t.Fatal("unexpected event kind names")
	}
}
