package testsupport

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// WriteFile creates path (and its parents) holding size bytes. Byte i is
// i%251, so a chunk sent out of order or twice changes the content. A size
// below one writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	w := bufio.NewWriter(f)
	for i := int64(0); i < max(size, 1); i++ {
		_ = w.WriteByte(byte(i % 251))
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close %s: %v", path, err)
	}
}

// WaitFor fails the test unless cond turns true within timeout. what names
// the awaited condition in the failure message.
func WaitFor(t testing.TB, timeout time.Duration, what string, cond func() bool) {
	t.Helper()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	expired := time.After(timeout)
	for !cond() {
		select {
		case <-expired:
			t.Fatalf("timed out after %s waiting for %s", timeout, what)
		case <-ticker.C:
		}
	}
}
