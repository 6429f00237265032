package transcode

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/PorunC/telegram-sticker-maker/internal/analyzer"
	"github.com/PorunC/telegram-sticker-maker/internal/logging"
)

// VideoPlan holds the encoder parameters derived for one animated asset.
type VideoPlan struct {
	Width       int
	Height      int
	FPS         float64
	Duration    float64
	SpeedFactor float64
	Filter      string
}

// PlanVideo derives output geometry, timing, and the filter chain.
func PlanVideo(asset analyzer.MediaAsset, c Constraints) VideoPlan {
	plan := VideoPlan{SpeedFactor: 1}
	plan.Width, plan.Height = c.TargetSize(asset.Width, asset.Height)

	fps := asset.FrameRate
	if fps <= 0 {
		fps = float64(c.DefaultFPS)
	}
	plan.FPS = math.Min(fps, float64(c.MaxFPS))

	plan.Duration = c.MaxDuration
	if asset.Duration > 0 {
		plan.Duration = math.Min(asset.Duration, c.MaxDuration)
		if asset.Duration > c.MaxDuration {
			plan.SpeedFactor = asset.Duration / c.MaxDuration
		}
	}

	var filters []string
	switch {
	case c.Emoji:
		d := c.EmojiDimension
		filters = append(filters,
			fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", d, d),
			fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=black@0", d, d),
		)
	case asset.Width <= 0 || asset.Height <= 0:
		d := c.MaxDimension
		filters = append(filters, fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", d, d))
		plan.Width, plan.Height = 0, 0
	default:
		filters = append(filters, fmt.Sprintf("scale=%d:%d", plan.Width, plan.Height))
	}
	if plan.SpeedFactor > 1 {
		filters = append(filters, "setpts="+formatFloat(1/plan.SpeedFactor)+"*PTS")
	}
	plan.Filter = strings.Join(filters, ",")
	return plan
}

// Args returns the ffmpeg arguments for one ladder level.
func (p VideoPlan) Args(input string, crf, speed int, output string) []string {
	return []string{
		"-y",
		"-i", input,
		"-c:v", "libvpx-vp9",
		"-crf", strconv.Itoa(crf),
		"-b:v", "0",
		"-speed", strconv.Itoa(speed),
		"-pix_fmt", "yuva420p",
		"-vf", p.Filter,
		"-r", formatFloat(p.FPS),
		"-t", formatFloat(p.Duration),
		"-an",
		"-f", "webm",
		output,
	}
}

func (t *Transcoder) transcodeVideo(ctx context.Context, asset analyzer.MediaAsset, c Constraints, output string) (Artifact, error) {
	plan := PlanVideo(asset, c)
	logger := logging.WithContext(ctx, t.logger)
	logger.Debug("video plan",
		logging.String("input", asset.Path),
		logging.String("filter", plan.Filter),
		logging.Float64("fps", plan.FPS),
		logging.Float64("duration", plan.Duration),
		logging.Float64("speed_factor", plan.SpeedFactor),
	)

	encode := func(ctx context.Context, crf int, path string) error {
		return t.runFFmpeg(ctx, plan.Args(asset.Path, crf, c.VP9Speed, path)...)
	}
	ladder := Ladder{Levels: c.CRFLadder, Budget: c.MaxBytes, TempTag: "crf"}
	result, err := ladder.Search(ctx, output, encode)
	for _, attempt := range result.Attempts {
		if attempt.Err != nil {
			logger.Debug("ladder level failed", logging.Int("crf", attempt.Level), logging.Error(attempt.Err))
			continue
		}
		logger.Debug("ladder level", logging.Int("crf", attempt.Level), logging.SizeKB("size_kb", attempt.Size))
	}
	if err != nil {
		return failed(output, FormatWebM, err), err
	}

	artifact := Artifact{
		Path:     output,
		Size:     result.Size,
		Width:    plan.Width,
		Height:   plan.Height,
		Format:   FormatWebM,
		CRF:      result.Level,
		Duration: plan.Duration,
		FPS:      plan.FPS,
		Success:  true,
		Message:  fmt.Sprintf("WebM sticker created at CRF %d: %s", result.Level, formatKB(result.Size)),
	}
	t.measure(ctx, &artifact)
	return artifact, nil
}

// measure replaces planned geometry and timing with what the encoder produced.
// Probe failure keeps the planned values.
func (t *Transcoder) measure(ctx context.Context, a *Artifact) {
	res, err := probe(ctx, t.ffprobe, a.Path)
	if err != nil {
		logging.WithContext(ctx, t.logger).Debug("output probe unavailable", logging.Error(err))
		return
	}
	if stream, ok := res.VideoStream(); ok && stream.Width > 0 && stream.Height > 0 {
		a.Width, a.Height = stream.Width, stream.Height
	}
	if d := res.DurationSeconds(); d > 0 && !math.IsNaN(d) {
		a.Duration = d
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(math.Round(v*1e6)/1e6, 'f', -1, 64)
}
