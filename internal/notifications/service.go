package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PorunC/telegram-sticker-maker/internal/config"
)

const userAgent = "stickerpack/0.1"

// Service is the notification surface used by the task runner and CLI.
type Service interface {
	NotifyPackCreated(ctx context.Context, packName, packURL string, uploaded, failed int) error
	NotifyTaskFailed(ctx context.Context, label, reason string) error
	TestNotification(ctx context.Context) error
}

// NewService returns an ntfy-backed service, or a noop one when no topic is
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
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyPackCreated(ctx context.Context, packName, packURL string, uploaded, failed int) error {
	message := fmt.Sprintf("✅ Pack created: %s (%d stickers)", strings.TrimSpace(packName), uploaded)
	if failed > 0 {
		message = fmt.Sprintf("%s, %d failed", message, failed)
	}
	if packURL = strings.TrimSpace(packURL); packURL != "" {
		message = fmt.Sprintf("%s\n%s", message, packURL)
	}
	return n.send(ctx, payload{
		title:   "Stickerpack - Pack Created",
		message: message,
		tags:    []string{"stickerpack", "pack", "created"},
	})
}

func (n *ntfyService) NotifyTaskFailed(ctx context.Context, label, reason string) error {
	var b strings.Builder
	b.WriteString("❌ Pack creation failed")
	if label = strings.TrimSpace(label); label != "" {
		b.WriteString(" for ")
		b.WriteString(label)
	}
	b.WriteString(": ")
	if reason = strings.TrimSpace(reason); reason != "" {
		b.WriteString(reason)
	} else {
		b.WriteString("unknown")
	}
	return n.send(ctx, payload{
		title:    "Stickerpack - Error",
		message:  b.String(),
		tags:     []string{"stickerpack", "error"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "Stickerpack - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"stickerpack", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
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

type noopService struct{}

func (noopService) NotifyPackCreated(context.Context, string, string, int, int) error { return nil }
func (noopService) NotifyTaskFailed(context.Context, string, string) error           { return nil }
func (noopService) TestNotification(context.Context) error                           { return nil }
