package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PorunC/telegram-sticker-maker/internal/config"
	"github.com/PorunC/telegram-sticker-maker/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyPackCreated(context.Background(), "cats_by_bot", "", 3, 0); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

type captured struct {
	title, tags, priority, body string
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name   string
		send   func(notifications.Service) error
		expect captured
	}{
		{
			name: "pack created",
			send: func(s notifications.Service) error {
				return s.NotifyPackCreated(context.Background(), "cats_by_bot", "https://t.me/addstickers/cats_by_bot", 3, 1)
			},
			expect: captured{
				title: "Stickerpack - Pack Created",
				tags:  "stickerpack,pack,created",
				body:  "✅ Pack created: cats_by_bot (3 stickers), 1 failed\nhttps://t.me/addstickers/cats_by_bot",
			},
		},
		{
			name: "task failed",
			send: func(s notifications.Service) error {
				return s.NotifyTaskFailed(context.Background(), "cats", "no files converted successfully")
			},
			expect: captured{
				title:    "Stickerpack - Error",
				tags:     "stickerpack,error",
				priority: "high",
				body:     "❌ Pack creation failed for cats: no files converted successfully",
			},
		},
		{
			name: "test",
			send: func(s notifications.Service) error { return s.TestNotification(context.Background()) },
			expect: captured{
				title:    "Stickerpack - Test",
				tags:     "stickerpack,test",
				priority: "low",
				body:     "🧪 Notification system test",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got captured
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body, _ := io.ReadAll(r.Body)
				got = captured{
					title:    r.Header.Get("Title"),
					tags:     r.Header.Get("Tags"),
					priority: r.Header.Get("Priority"),
					body:     string(body),
				}
				w.WriteHeader(http.StatusOK)
			}))
			defer srv.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = srv.URL
			if err := tt.send(notifications.NewService(&cfg)); err != nil {
				t.Fatalf("send: %v", err)
			}
			if got != tt.expect {
				t.Fatalf("unexpected request\n got: %+v\nwant: %+v", got, tt.expect)
			}
		})
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic disabled", http.StatusForbidden)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	err := notifications.NewService(&cfg).TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
