package testsupport

import (
	"context"
	"testing"

	"clipto/internal/config"
	"clipto/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewWorkflow creates a FormEntry workflow for tests using the provided store.
func NewWorkflow(t testing.TB, store *queue.Store, requestID, sourcePath string) *queue.Item {
	t.Helper()

	item, err := store.Create(context.Background(), queue.NewWorkflow{
		RequestID:   requestID,
		Creator:     "0x2222222222222222222222222222222222222222",
		Version:     "1",
		Account:     "0x1111111111111111111111111111111111111111",
		Title:       "Birthday shoutout",
		Description: "A short video for the booking",
		SourcePath:  sourcePath,
	})
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return item
}

// SetStatus forces a workflow into status for tests.
func SetStatus(t testing.TB, store *queue.Store, item *queue.Item, status queue.Status) {
	t.Helper()

	item.Status = status
	if err := store.Update(context.Background(), item); err != nil {
		t.Fatalf("store.Update: %v", err)
	}
}
