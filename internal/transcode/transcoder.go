package transcode

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/PorunC/telegram-sticker-maker/internal/analyzer"
	"github.com/PorunC/telegram-sticker-maker/internal/logging"
	"github.com/PorunC/telegram-sticker-maker/internal/media/ffprobe"
	"github.com/PorunC/telegram-sticker-maker/internal/services"
)

var (
	commandContext = exec.CommandContext
	probe          = ffprobe.Inspect
)

// Transcoder converts analyzed assets into sticker artifacts.
type Transcoder struct {
	ffmpeg  string
	ffprobe string
	logger  *slog.Logger
}

// New constructs a Transcoder using the given encoder and probe binaries.
func New(ffmpegBinary, ffprobeBinary string, logger *slog.Logger) *Transcoder {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	if strings.TrimSpace(ffprobeBinary) == "" {
		ffprobeBinary = "ffprobe"
	}
	return &Transcoder{
		ffmpeg:  ffmpegBinary,
		ffprobe: ffprobeBinary,
		logger:  logging.NewComponentLogger(logger, "transcoder"),
	}
}

// Transcode converts asset into an artifact at output that satisfies c. The
// static path may change the output extension to .webp when the lossy encoding
// is adopted; the returned artifact carries the final path. A returned error
// always comes with an unsuccessful artifact describing the failure.
func (t *Transcoder) Transcode(ctx context.Context, asset analyzer.MediaAsset, c Constraints, output string) (Artifact, error) {
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return failed(output, "", err), services.Wrap(services.ErrConfiguration, "transcode", "create output dir", "", err)
	}

	var (
		artifact Artifact
		err      error
	)
	if c.Kind == analyzer.KindVideo {
		artifact, err = t.transcodeVideo(ctx, asset, c, output)
	} else {
		artifact, err = t.transcodeStatic(ctx, asset, c, output)
	}
	logger := logging.WithContext(ctx, t.logger)
	if err != nil {
		logger.Error("conversion failed",
			logging.String("input", filepath.Base(asset.Path)),
			logging.String("kind", string(c.Kind)),
			logging.Error(err),
		)
		return artifact, err
	}
	if err := c.Check(artifact); err != nil {
		_ = os.Remove(artifact.Path)
		artifact.Success = false
		artifact.Message = err.Error()
		return artifact, err
	}
	logger.Info("conversion complete",
		logging.String("input", filepath.Base(asset.Path)),
		logging.String("output", filepath.Base(artifact.Path)),
		logging.String("format", artifact.Format),
		logging.Float64("size_kb", artifact.SizeKB()),
		logging.Int("width", artifact.Width),
		logging.Int("height", artifact.Height),
	)
	return artifact, nil
}

func (t *Transcoder) runFFmpeg(ctx context.Context, args ...string) error {
	cmd := commandContext(ctx, t.ffmpeg, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if len(detail) > 512 {
			detail = detail[len(detail)-512:]
		}
		return services.Wrap(services.ErrExternalTool, "transcode", "ffmpeg", detail, err)
	}
	return nil
}

func failed(path, format string, err error) Artifact {
	return Artifact{Path: path, Format: format, Success: false, Message: err.Error()}
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func formatKB(size int64) string {
	return fmt.Sprintf("%.1fKB", float64(size)/1024)
}
