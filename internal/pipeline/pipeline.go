package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PorunC/telegram-sticker-maker/internal/analyzer"
	"github.com/PorunC/telegram-sticker-maker/internal/config"
	"github.com/PorunC/telegram-sticker-maker/internal/fileutil"
	"github.com/PorunC/telegram-sticker-maker/internal/logging"
	"github.com/PorunC/telegram-sticker-maker/internal/naming"
	"github.com/PorunC/telegram-sticker-maker/internal/services"
	"github.com/PorunC/telegram-sticker-maker/internal/transcode"
	"github.com/PorunC/telegram-sticker-maker/internal/uploader"
)

// Share of overall progress spent converting; uploading covers the rest.
const conversionShare = 50.0

// Analyzer classifies an input file.
type Analyzer interface {
	Analyze(ctx context.Context, path string) (analyzer.MediaAsset, error)
}

// Transcoder converts one asset.
type Transcoder interface {
	Transcode(ctx context.Context, asset analyzer.MediaAsset, c transcode.Constraints, output string) (transcode.Artifact, error)
}

// Uploader creates a pack from converted files.
type Uploader interface {
	UploadBatch(ctx context.Context, req uploader.BatchRequest) uploader.UploadBatchResult
}

// Progress is one status update emitted while a request runs.
type Progress struct {
	Percent   float64
	Message   string
	Processed int
	Total     int
}

// Reporter receives progress updates. It may be nil.
type Reporter func(Progress)

// Request describes one make-a-pack run.
type Request struct {
	AccountID int64
	Label     string
	Title     string
	Files     []string
	Emojis    []string
	// Emoji converts to the square emoji size instead of sticker size.
	Emoji bool
	// Keep leaves converted files in the output directory with a manifest.
	Keep bool
}

// Conversion is the outcome for one input file.
type Conversion struct {
	Input    string             `json:"input"`
	Emoji    string             `json:"emoji"`
	Artifact transcode.Artifact `json:"artifact"`
	Err      error              `json:"-"`
}

// Result is the outcome of Run.
type Result struct {
	Upload       uploader.UploadBatchResult `json:"upload"`
	Conversions  []Conversion               `json:"conversions"`
	OutputDir    string                     `json:"output_dir,omitempty"`
	ManifestPath string                     `json:"manifest_path,omitempty"`
}

// Pipeline converts every input and then uploads the survivors in one batch.
type Pipeline struct {
	cfg        *config.Config
	analyzer   Analyzer
	transcoder Transcoder
	uploader   Uploader
	now        func() time.Time
	logger     *slog.Logger
}

// New constructs a Pipeline. The uploader may be nil for convert-only use.
func New(cfg *config.Config, a Analyzer, t Transcoder, u Uploader, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		analyzer:   a,
		transcoder: t,
		uploader:   u,
		now:        time.Now,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Run converts all files, then uploads the converted ones. Conversion failures
// are isolated per file and folded into the upload result. Cancellation is
// honored between files and before the upload.
func (p *Pipeline) Run(ctx context.Context, req Request, report Reporter) (Result, error) {
	if p.uploader == nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "pipeline", "run", "no uploader configured", nil)
	}
	report = orNop(report)

	outDir, cleanup, err := p.prepareOutputDir(req)
	if err != nil {
		return Result{}, err
	}
	defer cleanup()

	result := Result{}
	if req.Keep {
		result.OutputDir = outDir
	}

	conversions, err := p.convertAll(ctx, req, outDir, report)
	result.Conversions = conversions
	if err != nil {
		return result, err
	}

	var (
		files  []string
		emojis []string
		failed []string
	)
	for _, c := range conversions {
		if c.Err != nil {
			failed = append(failed, fmt.Sprintf("Conversion failed: %s: %v", filepath.Base(c.Input), c.Err))
			continue
		}
		files = append(files, c.Artifact.Path)
		emojis = append(emojis, c.Emoji)
	}
	if len(files) == 0 {
		return result, services.Wrap(services.ErrExternalTool, "pipeline", "convert", "no files converted successfully", conversionErrors(conversions))
	}

	if err := ctx.Err(); err != nil {
		return result, services.Wrap(services.ErrCancelled, "pipeline", "upload", "", err)
	}
	report(Progress{Percent: conversionShare, Message: "Uploading to Telegram...", Processed: len(req.Files), Total: len(req.Files)})

	upload := p.uploader.UploadBatch(services.WithStage(ctx, "upload"), uploader.BatchRequest{
		AccountID: req.AccountID,
		Label:     req.Label,
		Title:     req.Title,
		Files:     files,
		Emojis:    emojis,
	})
	upload.FailedCount += len(failed)
	upload.Errors = append(failed, upload.Errors...)
	result.Upload = upload

	if req.Keep && upload.PackName != "" {
		manifest, err := p.writeManifest(outDir, upload, conversions)
		if err != nil {
			logging.WithContext(ctx, p.logger).Warn("manifest not written", logging.Error(err))
		}
		result.ManifestPath = manifest
	}

	report(Progress{Percent: 100, Message: finalMessage(upload), Processed: len(req.Files), Total: len(req.Files)})
	if !upload.Success {
		return result, services.Wrap(services.ErrRemote, "pipeline", "upload", "Creation failed: "+strings.Join(upload.Errors, "; "), nil)
	}
	return result, nil
}

// Convert converts all files into the output directory without uploading and
// writes a manifest next to them.
func (p *Pipeline) Convert(ctx context.Context, req Request, report Reporter) (Result, error) {
	req.Keep = true
	report = orNop(report)
	outDir, cleanup, err := p.prepareOutputDir(req)
	if err != nil {
		return Result{}, err
	}
	defer cleanup()

	conversions, err := p.convertAll(ctx, req, outDir, report)
	result := Result{Conversions: conversions, OutputDir: outDir}
	if err != nil {
		return result, err
	}
	manifest, err := p.writeManifest(outDir, uploader.UploadBatchResult{PackName: naming.SanitizeLabel(req.Label), PackTitle: req.Title}, conversions)
	if err != nil {
		return result, err
	}
	result.ManifestPath = manifest
	report(Progress{Percent: 100, Message: "Conversion finished", Processed: len(req.Files), Total: len(req.Files)})
	if errs := conversionErrors(conversions); errs != nil && countOK(conversions) == 0 {
		return result, services.Wrap(services.ErrExternalTool, "pipeline", "convert", "no files converted successfully", errs)
	}
	return result, nil
}

// ConvertFile converts a single input into dir.
func (p *Pipeline) ConvertFile(ctx context.Context, input string, emoji bool, dir string) (transcode.Artifact, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return transcode.Artifact{}, services.Wrap(services.ErrConfiguration, "pipeline", "create dir", dir, err)
	}
	return p.convertOne(ctx, input, emoji, outputPath(dir, 0, input))
}

func (p *Pipeline) convertAll(ctx context.Context, req Request, outDir string, report Reporter) ([]Conversion, error) {
	if len(req.Files) == 0 {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "convert", "no input files", nil)
	}
	ctx = services.WithStage(ctx, "convert")
	logger := logging.WithContext(ctx, p.logger)
	emojis := uploader.PadEmojis(req.Emojis, len(req.Files), p.cfg.Telegram.DefaultEmoji)
	total := len(req.Files)

	conversions := make([]Conversion, 0, total)
	for i, input := range req.Files {
		if err := ctx.Err(); err != nil {
			return conversions, services.Wrap(services.ErrCancelled, "pipeline", "convert", "", err)
		}
		report(Progress{
			Percent:   float64(i) / float64(total) * conversionShare,
			Message:   fmt.Sprintf("Converting %s...", filepath.Base(input)),
			Processed: i,
			Total:     total,
		})

		conv := Conversion{Input: input, Emoji: emojis[i]}
		conv.Artifact, conv.Err = p.convertOne(ctx, input, req.Emoji, outputPath(outDir, i, input))
		if conv.Err != nil {
			logger.Warn("conversion failed", logging.String("input", filepath.Base(input)), logging.Error(conv.Err))
		}
		conversions = append(conversions, conv)
	}
	return conversions, nil
}

func (p *Pipeline) convertOne(ctx context.Context, input string, emoji bool, output string) (transcode.Artifact, error) {
	if strings.EqualFold(filepath.Ext(input), ".tgs") {
		return passthrough(input, output)
	}
	asset, err := p.analyzer.Analyze(ctx, input)
	if err != nil {
		return transcode.Artifact{Path: input, Message: err.Error()}, err
	}
	constraints := transcode.ConstraintsFor(p.cfg, asset.Recommended, emoji)
	if asset.Recommended == analyzer.KindVideo {
		output += ".webm"
	} else {
		output += ".png"
	}
	return p.transcoder.Transcode(ctx, asset, constraints, output)
}

// passthrough copies an already-encoded animated sticker unchanged.
func passthrough(input, output string) (transcode.Artifact, error) {
	output += ".tgs"
	if err := fileutil.CopyFile(input, output); err != nil {
		err = services.Wrap(services.ErrNotFound, "pipeline", "copy tgs", filepath.Base(input), err)
		return transcode.Artifact{Path: input, Message: err.Error()}, err
	}
	info, err := os.Stat(output)
	if err != nil {
		return transcode.Artifact{Path: output, Message: err.Error()}, err
	}
	return transcode.Artifact{Path: output, Size: info.Size(), Format: "tgs", Success: true, Message: "Animated sticker copied"}, nil
}

func (p *Pipeline) prepareOutputDir(req Request) (string, func(), error) {
	if req.Keep {
		dir := filepath.Join(p.cfg.Paths.OutputDir, naming.SanitizeLabel(req.Label))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", nil, services.Wrap(services.ErrConfiguration, "pipeline", "create output dir", dir, err)
		}
		return dir, func() {}, nil
	}
	if err := os.MkdirAll(p.cfg.Paths.WorkDir, 0o755); err != nil {
		return "", nil, services.Wrap(services.ErrConfiguration, "pipeline", "create work dir", p.cfg.Paths.WorkDir, err)
	}
	dir, err := os.MkdirTemp(p.cfg.Paths.WorkDir, "run-")
	if err != nil {
		return "", nil, services.Wrap(services.ErrConfiguration, "pipeline", "create run dir", "", err)
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}

// outputPath returns the extensionless destination for the index-th input.
func outputPath(dir string, index int, input string) string {
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(dir, fmt.Sprintf("%02d_%s", index+1, stem))
}

func conversionErrors(conversions []Conversion) error {
	var errs []error
	for _, c := range conversions {
		if c.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(c.Input), c.Err))
		}
	}
	return errors.Join(errs...)
}

func countOK(conversions []Conversion) int {
	n := 0
	for _, c := range conversions {
		if c.Err == nil {
			n++
		}
	}
	return n
}

func finalMessage(r uploader.UploadBatchResult) string {
	if r.Success {
		return "Sticker pack created!"
	}
	return "Creation failed: " + strings.Join(r.Errors, "; ")
}

func orNop(r Reporter) Reporter {
	if r == nil {
		return func(Progress) {}
	}
	return r
}
