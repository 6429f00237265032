package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/PorunC/telegram-sticker-maker/internal/logging"
	"github.com/PorunC/telegram-sticker-maker/internal/notifications"
	"github.com/PorunC/telegram-sticker-maker/internal/tasks"
)

// NotifyHook returns a task finish hook that publishes the outcome.
func NotifyHook(n notifications.Service, logger *slog.Logger) func(tasks.Progress) {
	logger = logging.NewComponentLogger(logger, "notifications")
	return func(p tasks.Progress) {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		var err error
		if p.Status == tasks.StatusCompleted && p.Result != nil {
			err = n.NotifyPackCreated(ctx, p.Result.PackName, p.Result.PackURL, p.Result.UploadedCount, p.Result.FailedCount)
		} else {
			label := ""
			if p.Result != nil {
				label = p.Result.PackName
			}
			err = n.NotifyTaskFailed(ctx, label, p.Message)
		}
		if err != nil {
			logger.Warn("notification failed", logging.String(logging.FieldTaskID, p.ID), logging.Error(err))
		}
	}
}
