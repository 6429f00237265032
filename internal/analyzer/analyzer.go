package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/PorunC/telegram-sticker-maker/internal/logging"
	"github.com/PorunC/telegram-sticker-maker/internal/media/ffprobe"
	"github.com/PorunC/telegram-sticker-maker/internal/services"
)

// Kind is the output classification a media asset is converted to.
type Kind string

const (
	KindStatic Kind = "static"
	KindVideo  Kind = "video"
)

// DefaultFrameRate is assumed when an animation declares no usable duration.
const DefaultFrameRate = 10.0

var (
	imageExtensions = map[string]struct{}{".gif": {}, ".png": {}, ".webp": {}, ".jpg": {}, ".jpeg": {}}
	videoExtensions = map[string]struct{}{".mp4": {}, ".avi": {}, ".mov": {}, ".webm": {}, ".mkv": {}}
)

var inspect = ffprobe.Inspect

// MediaAsset is the immutable description of one input file.
type MediaAsset struct {
	Path        string   `json:"path"`
	Size        int64    `json:"size"`
	Extension   string   `json:"extension"`
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	Animated    bool     `json:"animated"`
	Video       bool     `json:"video"`
	FrameCount  int      `json:"frame_count"`
	Duration    float64  `json:"duration"`
	FrameRate   float64  `json:"frame_rate"`
	Complexity  float64  `json:"complexity_score"`
	Recommended Kind     `json:"recommended_format"`
	Warnings    []string `json:"warnings,omitempty"`
}

// Analyzer classifies media files.
type Analyzer struct {
	ffprobeBinary string
	logger        *slog.Logger
}

// New constructs an Analyzer that probes video containers with the given binary.
func New(ffprobeBinary string, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		ffprobeBinary: ffprobeBinary,
		logger:        logging.NewComponentLogger(logger, "analyzer"),
	}
}

// Analyze reads the file at path and returns its classification. Only a
// missing or unreadable file is an error; metadata problems become warnings.
func (a *Analyzer) Analyze(ctx context.Context, path string) (MediaAsset, error) {
	info, err := os.Stat(path)
	if err != nil {
		return MediaAsset{}, services.Wrap(services.ErrNotFound, "analyze", "stat input", filepath.Base(path), err)
	}
	if info.IsDir() {
		return MediaAsset{}, services.Wrap(services.ErrNotFound, "analyze", "stat input", filepath.Base(path)+" is a directory", nil)
	}

	asset := MediaAsset{
		Path:      path,
		Size:      info.Size(),
		Extension: strings.ToLower(filepath.Ext(path)),
	}
	logger := logging.WithContext(ctx, a.logger)

	switch {
	case isImage(asset.Extension):
		meta, err := readImageMeta(path, asset.Extension)
		if err != nil {
			asset.Warnings = append(asset.Warnings, fmt.Sprintf("image metadata: %v", err))
			logger.Warn("image metadata unavailable", logging.String("path", path), logging.Error(err))
		} else {
			asset.Width, asset.Height = meta.width, meta.height
			asset.FrameCount = meta.frames
			asset.Animated = meta.frames > 1
			if asset.Animated {
				asset.Duration = float64(meta.totalDelayMS) / 1000.0
			}
		}
		if asset.FrameCount == 0 {
			asset.FrameCount = 1
		}
		asset.FrameRate = averageFrameRate(asset.FrameCount, asset.Duration)
		asset.Complexity = float64(asset.FrameCount)*0.1 + float64(asset.Width*asset.Height)/10000 + asset.Duration*2

	case isVideo(asset.Extension):
		asset.Video = true
		asset.Animated = true
		probe, err := inspect(ctx, a.ffprobeBinary, path)
		if err != nil {
			asset.Warnings = append(asset.Warnings, fmt.Sprintf("probe: %v", err))
			logger.Warn("video probe failed", logging.String("path", path), logging.Error(err))
		} else {
			if stream, ok := probe.VideoStream(); ok {
				asset.Width, asset.Height = stream.Width, stream.Height
				asset.FrameCount = stream.FrameCount()
				asset.FrameRate = stream.FrameRate()
			}
			if d := probe.DurationSeconds(); !math.IsNaN(d) && d > 0 {
				asset.Duration = d
			}
		}
		if asset.FrameCount == 0 && asset.FrameRate > 0 {
			asset.FrameCount = int(math.Round(asset.FrameRate * asset.Duration))
		}
		if asset.FrameRate == 0 {
			asset.FrameRate = averageFrameRate(asset.FrameCount, asset.Duration)
		}
		asset.Complexity = 50 + asset.Duration*10

	default:
		asset.Warnings = append(asset.Warnings, fmt.Sprintf("unrecognized extension %q", asset.Extension))
	}

	asset.Recommended = Recommend(asset.Animated)

	logger.Debug("media analyzed",
		logging.String("path", path),
		logging.Int("width", asset.Width),
		logging.Int("height", asset.Height),
		logging.Bool("animated", asset.Animated),
		logging.Int("frames", asset.FrameCount),
		logging.Float64("duration", asset.Duration),
		logging.String("recommended", string(asset.Recommended)),
	)
	return asset, nil
}

// Recommend maps the animation flag to an output kind.
func Recommend(animated bool) Kind {
	if animated {
		return KindVideo
	}
	return KindStatic
}

// IsSupported reports whether the extension is a known image or video container.
func IsSupported(ext string) bool {
	ext = strings.ToLower(ext)
	return isImage(ext) || isVideo(ext)
}

func isImage(ext string) bool {
	_, ok := imageExtensions[ext]
	return ok
}

func isVideo(ext string) bool {
	_, ok := videoExtensions[ext]
	return ok
}

func averageFrameRate(frames int, duration float64) float64 {
	if duration <= 0 || frames <= 0 {
		return DefaultFrameRate
	}
	return float64(frames) / duration
}
