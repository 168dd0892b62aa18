package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clipto/internal/config"
)

const userAgent = "Clipto-Go/0.1.0"

// Event names a workflow milestone.
type Event string

const (
	EventQueueStarted   Event = "queue_started"
	EventQueueCompleted Event = "queue_completed"
	EventUploaded       Event = "uploaded"
	EventMintReady      Event = "mint_ready"
	EventDelivered      Event = "delivered"
	EventShared         Event = "shared"
	EventError          Event = "error"
	EventTest           Event = "test"
)

// Payload carries event specific values.
type Payload map[string]any

// Service publishes workflow events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy backed service, or a noop one when no topic is
// configured.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		toggles: map[Event]bool{
			EventMintReady: cfg.Notifications.MintReady,
			EventDelivered: cfg.Notifications.Delivered,
			EventError:     cfg.Notifications.Errors,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	toggles  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if enabled, ok := n.toggles[event]; ok && !enabled {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventQueueStarted:
		return message{
			title: "Clipto - Deliveries Started",
			body:  fmt.Sprintf("Processing %d deliveries", payload.number("count")),
			tags:  []string{"clipto", "queue", "started"},
		}, true
	case EventQueueCompleted:
		duration := payload.elapsed("duration").Round(time.Second)
		if duration < 0 {
			duration = 0
		}
		done, failed := payload.number("processed"), payload.number("failed")
		if failed == 0 {
			return message{
				title: "Clipto - Deliveries Complete",
				body:  fmt.Sprintf("%d deliveries processed in %s", done, duration),
				tags:  []string{"clipto", "queue", "completed"},
			}, true
		}
		return message{
			title: "Clipto - Deliveries Complete (with errors)",
			body:  fmt.Sprintf("%d delivered, %d failed in %s", done, failed, duration),
			tags:  []string{"clipto", "queue", "completed"},
		}, true
	case EventUploaded:
		return message{
			title: "Clipto - Uploaded",
			body:  fmt.Sprintf("Uploaded %s for request %s", payload.text("title"), payload.text("requestId")),
			tags:  []string{"clipto", "upload"},
		}, true
	case EventMintReady:
		return message{
			title:    "Clipto - Ready to Mint",
			body:     fmt.Sprintf("%s is ready to mint. Run: clipto deliver mint %d", payload.text("title"), payload.number("id")),
			tags:     []string{"clipto", "mint", "ready"},
			priority: "high",
		}, true
	case EventDelivered:
		return message{
			title:    "Clipto - Delivered",
			body:     fmt.Sprintf("Successfully completed order %s (token %s)", payload.text("requestId"), payload.text("tokenId")),
			tags:     []string{"clipto", "delivered"},
			priority: "high",
		}, true
	case EventShared:
		return message{
			title: "Clipto - Shared",
			body:  fmt.Sprintf("Shared to Lens as @%s", payload.text("handle")),
			tags:  []string{"clipto", "lens"},
		}, true
	case EventError:
		var b strings.Builder
		b.WriteString("Error")
		if label := payload.text("context"); label != "" {
			b.WriteString(" with ")
			b.WriteString(label)
		}
		b.WriteString(": ")
		if err, ok := payload["error"].(error); ok && err != nil {
			b.WriteString(strings.TrimSpace(err.Error()))
		} else if text := payload.text("error"); text != "" {
			b.WriteString(text)
		} else {
			b.WriteString("unknown")
		}
		return message{
			title:    "Clipto - Error",
			body:     b.String(),
			tags:     []string{"clipto", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Clipto - Test",
			body:     "Notification system test",
			tags:     []string{"clipto", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (p Payload) text(key string) string {
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func (p Payload) number(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func (p Payload) elapsed(key string) time.Duration {
	if v, ok := p[key].(time.Duration); ok {
		return v
	}
	return 0
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
