package notifications

import (
	"context"
	"errors"
	"sync"
	"time"
)

// EventProgress is recorded by the hub for stage progress updates. It is never
// sent to ntfy.
const EventProgress Event = "progress"

// Record is one workflow event retained by a Hub.
type Record struct {
	Seq        int64     `json:"seq"`
	Time       time.Time `json:"time"`
	Event      Event     `json:"event"`
	WorkflowID int64     `json:"workflow_id,omitempty"`
	Status     string    `json:"status,omitempty"`
	Message    string    `json:"message,omitempty"`
	Percent    float64   `json:"percent,omitempty"`
}

// Hub keeps the most recent workflow events and fans them out to
// subscribers. Slow subscribers miss events rather than block publishers.
type Hub struct {
	mu       sync.Mutex
	capacity int
	records  []Record
	nextSeq  int64
	subs     map[chan Record]struct{}
}

// NewHub returns a hub retaining up to capacity records.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 256
	}
	return &Hub{capacity: capacity, nextSeq: 1, subs: make(map[chan Record]struct{})}
}

// Publish records event. It satisfies Service so a Hub can sit next to ntfy.
func (h *Hub) Publish(_ context.Context, event Event, payload Payload) error {
	rec := Record{
		Event:      event,
		WorkflowID: int64(payload.number("id")),
		Status:     payload.text("status"),
		Message:    payload.text("message"),
	}
	if rec.Message == "" && event == EventError {
		if err, ok := payload["error"].(error); ok && err != nil {
			rec.Message = err.Error()
		}
	}
	if v, ok := payload["percent"].(float64); ok {
		rec.Percent = v
	}
	h.Append(rec)
	return nil
}

// Append stores rec, assigning its sequence number and time.
func (h *Hub) Append(rec Record) Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec.Seq = h.nextSeq
	h.nextSeq++
	if rec.Time.IsZero() {
		rec.Time = time.Now().UTC()
	}
	h.records = append(h.records, rec)
	if over := len(h.records) - h.capacity; over > 0 {
		h.records = append(h.records[:0], h.records[over:]...)
	}
	for ch := range h.subs {
		select {
		case ch <- rec:
		default:
		}
	}
	return rec
}

// Since returns retained records with a sequence greater than seq, optionally
// limited to one workflow.
func (h *Hub) Since(seq, workflowID int64) []Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Record, 0, len(h.records))
	for _, rec := range h.records {
		if rec.Seq <= seq {
			continue
		}
		if workflowID != 0 && rec.WorkflowID != workflowID {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Subscribe streams new records until ctx is done.
func (h *Hub) Subscribe(ctx context.Context, buffer int) <-chan Record {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Record, buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
		close(ch)
	}()
	return ch
}

type fanout []Service

// Fanout publishes every event to each non-nil service.
func Fanout(services ...Service) Service {
	out := make(fanout, 0, len(services))
	for _, svc := range services {
		if svc != nil {
			out = append(out, svc)
		}
	}
	return out
}

func (f fanout) Publish(ctx context.Context, event Event, payload Payload) error {
	var errs []error
	for _, svc := range f {
		if err := svc.Publish(ctx, event, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
