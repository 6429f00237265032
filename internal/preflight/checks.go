package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/PorunC/telegram-sticker-maker/internal/config"
	"github.com/PorunC/telegram-sticker-maker/internal/deps"
	"github.com/PorunC/telegram-sticker-maker/internal/services"
	"github.com/PorunC/telegram-sticker-maker/internal/telegram"
)

// CheckTelegram verifies the bot token with a single getMe call.
func CheckTelegram(ctx context.Context, cfg *config.Config) Result {
	const name = "Telegram bot"

	client, err := telegram.NewFromConfig(cfg, nil)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	me, err := client.GetMe(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeTelegramError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("@%s (user %d)", me.Username, cfg.Telegram.UserID)}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps reports ffmpeg and ffprobe availability and, when ffmpeg
// resolves, whether it carries the VP9 and WebP encoders.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	statuses := deps.CheckBinaries(deps.Requirements(cfg))
	if len(statuses) > 0 && statuses[0].Available {
		statuses = append(statuses, deps.CheckEncoders(ctx, cfg.FFmpegBinary())...)
	}
	return statuses
}

func summarizeTelegramError(err error) string {
	var apiErr *telegram.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Code == 401:
		return "bot token rejected (401 Unauthorized)"
	case errors.Is(err, services.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "getMe timed out (Bot API unreachable)"
	default:
		return err.Error()
	}
}
