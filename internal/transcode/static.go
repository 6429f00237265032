package transcode

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/PorunC/telegram-sticker-maker/internal/analyzer"
	"github.com/PorunC/telegram-sticker-maker/internal/logging"
	"github.com/PorunC/telegram-sticker-maker/internal/services"
)

func (t *Transcoder) transcodeStatic(ctx context.Context, asset analyzer.MediaAsset, c Constraints, output string) (Artifact, error) {
	pngPath := replaceExt(output, ".png")

	src, err := decodeImage(asset.Path)
	if err != nil {
		wrapped := services.Wrap(services.ErrValidation, "transcode", "decode image", filepath.Base(asset.Path), err)
		return failed(pngPath, FormatPNG, wrapped), wrapped
	}
	img := FitImage(src, c)
	bounds := img.Bounds()

	if err := writePNG(pngPath, img); err != nil {
		wrapped := services.Wrap(services.ErrExternalTool, "transcode", "encode png", "", err)
		return failed(pngPath, FormatPNG, wrapped), wrapped
	}
	size, err := fileSize(pngPath)
	if err != nil {
		return failed(pngPath, FormatPNG, err), err
	}

	artifact := Artifact{
		Path:    pngPath,
		Size:    size,
		Width:   bounds.Dx(),
		Height:  bounds.Dy(),
		Format:  FormatPNG,
		Success: true,
	}
	if size <= c.MaxBytes {
		artifact.Message = "Static sticker created: " + formatKB(size)
		return artifact, nil
	}

	logger := logging.WithContext(ctx, t.logger)
	logger.Info("lossless encoding over budget, trying lossy webp",
		logging.String("input", filepath.Base(asset.Path)),
		logging.SizeKB("size_kb", size),
		logging.Int64("budget", c.MaxBytes),
	)

	webpPath := replaceExt(output, ".webp")
	ladder := Ladder{
		Levels:  QualityLadder(c.WebPQualityStart, c.WebPQualityStep, c.WebPQualityFloor),
		Budget:  c.MaxBytes,
		TempTag: "q",
	}
	encode := func(ctx context.Context, quality int, path string) error {
		return t.runFFmpeg(ctx,
			"-y",
			"-i", pngPath,
			"-c:v", "libwebp",
			"-quality", strconv.Itoa(quality),
			"-compression_level", "6",
			"-f", "webp",
			path,
		)
	}
	result, err := ladder.Search(ctx, webpPath, encode)
	if err != nil {
		_ = os.Remove(pngPath)
		if errors.Is(err, services.ErrBudgetExceeded) {
			err = services.Wrap(services.ErrBudgetExceeded, "transcode", "static",
				fmt.Sprintf("%s still over %s at quality floor", filepath.Base(asset.Path), formatKB(c.MaxBytes)), err)
		}
		artifact.Success = false
		artifact.Message = err.Error()
		return artifact, err
	}
	_ = os.Remove(pngPath)

	artifact.Path = webpPath
	artifact.Size = result.Size
	artifact.Format = FormatWebP
	artifact.Quality = result.Level
	artifact.Message = fmt.Sprintf("Static sticker created at quality %d: %s", result.Level, formatKB(result.Size))
	return artifact, nil
}

// FitImage normalizes src to RGBA and scales it to the sticker shape: the
// longest side becomes the maximum dimension, or for emoji the image is fit
// inside a transparent square.
func FitImage(src image.Image, c Constraints) *image.NRGBA {
	b := src.Bounds()
	if c.Emoji {
		side := c.EmojiDimension
		w, h := fitWithin(b.Dx(), b.Dy(), side)
		dst := image.NewNRGBA(image.Rect(0, 0, side, side))
		offset := image.Pt((side-w)/2, (side-h)/2)
		xdraw.CatmullRom.Scale(dst, image.Rectangle{Min: offset, Max: offset.Add(image.Pt(w, h))}, src, b, draw.Over, nil)
		return dst
	}

	w, h := c.TargetSize(b.Dx(), b.Dy())
	if w == b.Dx() && h == b.Dy() {
		dst := image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
		return dst
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

func fitWithin(w, h, side int) (int, int) {
	if w <= 0 || h <= 0 {
		return side, side
	}
	if w >= h {
		return side, max(1, int(float64(h)*float64(side)/float64(w)))
	}
	return max(1, int(float64(w)*float64(side)/float64(h))), side
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(f, img); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
