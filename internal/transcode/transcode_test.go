package transcode

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/PorunC/telegram-sticker-maker/internal/analyzer"
	"github.com/PorunC/telegram-sticker-maker/internal/config"
	"github.com/PorunC/telegram-sticker-maker/internal/media/ffprobe"
	"github.com/PorunC/telegram-sticker-maker/internal/services"
)

func stickerConstraints(kind analyzer.Kind, emoji bool) Constraints {
	cfg := config.Default()
	return ConstraintsFor(&cfg, kind, emoji)
}

func TestTargetSize(t *testing.T) {
	c := stickerConstraints(analyzer.KindStatic, false)
	tests := []struct {
		w, h         int
		wantW, wantH int
	}{
		{600, 400, 512, 341},
		{400, 600, 341, 512},
		{100, 50, 512, 256},
		{512, 512, 512, 512},
		{0, 0, 512, 512},
		{2000, 3, 512, 1},
		{3, 2000, 1, 512},
	}
	for _, tc := range tests {
		w, h := c.TargetSize(tc.w, tc.h)
		if w != tc.wantW || h != tc.wantH {
			t.Fatalf("TargetSize(%d,%d) = %dx%d, want %dx%d", tc.w, tc.h, w, h, tc.wantW, tc.wantH)
		}
	}

	if img := FitImage(image.NewNRGBA(image.Rect(0, 0, 2000, 3)), c); img.Bounds().Dx() != 512 || img.Bounds().Dy() != 1 {
		t.Fatalf("thin image fit to %v, want 512x1", img.Bounds())
	}

	emoji := stickerConstraints(analyzer.KindVideo, true)
	if w, h := emoji.TargetSize(640, 480); w != 100 || h != 100 {
		t.Fatalf("emoji size = %dx%d, want 100x100", w, h)
	}
}

func TestPlanVideoShortClipKeepsTiming(t *testing.T) {
	asset := analyzer.MediaAsset{Path: "dance.gif", Width: 600, Height: 400, FrameCount: 5, Duration: 1.2, FrameRate: 5 / 1.2, Animated: true}
	plan := PlanVideo(asset, stickerConstraints(analyzer.KindVideo, false))

	if plan.Width != 512 || plan.Height != 341 {
		t.Fatalf("unexpected geometry %dx%d", plan.Width, plan.Height)
	}
	if plan.SpeedFactor != 1 || strings.Contains(plan.Filter, "setpts") {
		t.Fatalf("short clip must not be remapped: %+v", plan)
	}
	if plan.Duration != 1.2 {
		t.Fatalf("expected 1.2s, got %v", plan.Duration)
	}
	if plan.Filter != "scale=512:341" {
		t.Fatalf("unexpected filter %q", plan.Filter)
	}
}

func TestPlanVideoLongClipIsClamped(t *testing.T) {
	asset := analyzer.MediaAsset{Path: "long.mp4", Width: 1920, Height: 1080, Duration: 9, FrameRate: 60, Video: true, Animated: true}
	plan := PlanVideo(asset, stickerConstraints(analyzer.KindVideo, false))

	if plan.Duration > 3.0 {
		t.Fatalf("duration %v exceeds limit", plan.Duration)
	}
	if plan.FPS > 30 {
		t.Fatalf("fps %v exceeds limit", plan.FPS)
	}
	if plan.SpeedFactor != 3 {
		t.Fatalf("expected speed factor 3, got %v", plan.SpeedFactor)
	}
	if plan.Filter != "scale=512:288,setpts=0.333333*PTS" {
		t.Fatalf("unexpected filter %q", plan.Filter)
	}

	args := strings.Join(plan.Args("in.mp4", 40, 4, "out.webm"), " ")
	want := "-y -i in.mp4 -c:v libvpx-vp9 -crf 40 -b:v 0 -speed 4 -pix_fmt yuva420p -vf scale=512:288,setpts=0.333333*PTS -r 30 -t 3 -an -f webm out.webm"
	if args != want {
		t.Fatalf("args =\n%s\nwant\n%s", args, want)
	}
}

func TestPlanVideoEmojiAndUnknownInput(t *testing.T) {
	plan := PlanVideo(analyzer.MediaAsset{Width: 320, Height: 200, Duration: 2}, stickerConstraints(analyzer.KindVideo, true))
	want := "scale=100:100:force_original_aspect_ratio=decrease,pad=100:100:(ow-iw)/2:(oh-ih)/2:color=black@0"
	if plan.Filter != want {
		t.Fatalf("emoji filter = %q", plan.Filter)
	}

	unknown := PlanVideo(analyzer.MediaAsset{}, stickerConstraints(analyzer.KindVideo, false))
	if unknown.Duration != 3.0 || unknown.FPS != 10 {
		t.Fatalf("unknown input defaults wrong: %+v", unknown)
	}
}

func TestLadderAcceptsFirstFittingLevel(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "out.webm")
	sizes := map[int]int{30: 900, 35: 600, 40: 200, 45: 100}
	var tried []int
	encode := func(_ context.Context, level int, path string) error {
		tried = append(tried, level)
		return os.WriteFile(path, make([]byte, sizes[level]), 0o644)
	}

	ladder := Ladder{Levels: []int{30, 35, 40, 45}, Budget: 256, TempTag: "crf"}
	result, err := ladder.Search(context.Background(), output, encode)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Level != 40 || result.Size != 200 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(tried) != 3 {
		t.Fatalf("expected search to stop at level 40, tried %v", tried)
	}
	assertOnly(t, dir, "out.webm")

	again, err := ladder.Search(context.Background(), output, encode)
	if err != nil || again.Level != result.Level {
		t.Fatalf("repeat search diverged: %+v %v", again, err)
	}
}

func TestLadderEncoderFailureAdvances(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "out.webm")
	encode := func(_ context.Context, level int, path string) error {
		if level == 30 {
			_ = os.WriteFile(path, []byte("partial"), 0o644)
			return errors.New("encoder crashed")
		}
		return os.WriteFile(path, make([]byte, 10), 0o644)
	}
	result, err := Ladder{Levels: []int{30, 35}, Budget: 256}.Search(context.Background(), output, encode)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Level != 35 || result.Attempts[0].Err == nil {
		t.Fatalf("expected level 35 after failure, got %+v", result)
	}
	assertOnly(t, dir, "out.webm")
}

func TestLadderExhaustionLeavesNoResidue(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "out.webm")
	encode := func(_ context.Context, _ int, path string) error {
		return os.WriteFile(path, make([]byte, 1000), 0o644)
	}
	result, err := Ladder{Levels: []int{30, 40, 50}, Budget: 256}.Search(context.Background(), output, encode)
	if !errors.Is(err, services.ErrBudgetExceeded) {
		t.Fatalf("expected ErrBudgetExceeded, got %v", err)
	}
	if len(result.Attempts) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(result.Attempts))
	}
	assertOnly(t, dir)
}

func TestLadderStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Ladder{Levels: []int{30}, Budget: 1}.Search(ctx, filepath.Join(t.TempDir(), "x"), func(context.Context, int, string) error {
		t.Fatal("encode must not run")
		return nil
	})
	if !errors.Is(err, services.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

func TestQualityLadder(t *testing.T) {
	got := QualityLadder(95, 10, 10)
	want := []int{95, 85, 75, 65, 55, 45, 35, 25, 15}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("QualityLadder = %v, want %v", got, want)
	}
}

func TestCheckRejectsWrongShape(t *testing.T) {
	c := stickerConstraints(analyzer.KindStatic, false)
	if err := c.Check(Artifact{Size: 10, Width: 400, Height: 300}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected shape violation, got %v", err)
	}
	if err := c.Check(Artifact{Size: 600 * 1024, Width: 512, Height: 300}); !errors.Is(err, services.ErrBudgetExceeded) {
		t.Fatalf("expected budget violation, got %v", err)
	}
	if err := c.Check(Artifact{Size: 10, Width: 300, Height: 512}); err != nil {
		t.Fatalf("valid artifact rejected: %v", err)
	}
}

func TestTranscodeStaticSmallImage(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "small.png")
	writeTestPNG(t, input, solidImage(100, 50))
	stubFFmpeg(t, "fail")

	tr := New("ffmpeg", "ffprobe", nil)
	artifact, err := tr.Transcode(context.Background(), analyzer.MediaAsset{Path: input, Width: 100, Height: 50},
		stickerConstraints(analyzer.KindStatic, false), filepath.Join(dir, "out", "small.png"))
	if err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	if artifact.Format != FormatPNG || artifact.Width != 512 || artifact.Height != 256 || !artifact.Success {
		t.Fatalf("unexpected artifact %+v", artifact)
	}
	if _, err := os.Stat(artifact.Path); err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
}

func TestTranscodeStaticFallsBackToWebP(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "noise.png")
	writeTestPNG(t, input, noiseImage(512, 512))
	stubFFmpeg(t, "sized")

	tr := New("ffmpeg", "ffprobe", nil)
	artifact, err := tr.Transcode(context.Background(), analyzer.MediaAsset{Path: input, Width: 512, Height: 512},
		stickerConstraints(analyzer.KindStatic, false), filepath.Join(dir, "out", "noise.png"))
	if err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	if artifact.Format != FormatWebP || artifact.Quality != 55 {
		t.Fatalf("expected webp at quality 55, got %+v", artifact)
	}
	if filepath.Ext(artifact.Path) != ".webp" {
		t.Fatalf("expected .webp path, got %s", artifact.Path)
	}
	assertOnly(t, filepath.Join(dir, "out"), "noise.webp")
}

func TestTranscodeStaticFailsAtFloor(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "noise.png")
	writeTestPNG(t, input, noiseImage(512, 512))
	stubFFmpeg(t, "huge")

	c := stickerConstraints(analyzer.KindStatic, false)
	artifact, err := New("ffmpeg", "ffprobe", nil).Transcode(context.Background(), analyzer.MediaAsset{Path: input}, c, filepath.Join(dir, "out", "noise.png"))
	if !errors.Is(err, services.ErrBudgetExceeded) {
		t.Fatalf("expected ErrBudgetExceeded, got %v", err)
	}
	if artifact.Success {
		t.Fatal("artifact must not be successful")
	}
	assertOnly(t, filepath.Join(dir, "out"))
}

func TestTranscodeVideoSearchesLadder(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "dance.gif")
	if err := os.WriteFile(input, []byte("gif"), 0o644); err != nil {
		t.Fatal(err)
	}
	stubFFmpeg(t, "sized")
	original := probe
	probe = func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{
			Streams: []ffprobe.Stream{{CodecType: "video", Width: 512, Height: 341}},
			Format:  ffprobe.Format{Duration: "1.2"},
		}, nil
	}
	t.Cleanup(func() { probe = original })

	asset := analyzer.MediaAsset{Path: input, Width: 600, Height: 400, FrameCount: 5, Duration: 1.2, FrameRate: 5 / 1.2, Animated: true}
	out := filepath.Join(dir, "out", "dance.webm")
	artifact, err := New("ffmpeg", "ffprobe", nil).Transcode(context.Background(), asset, stickerConstraints(analyzer.KindVideo, false), out)
	if err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	if artifact.CRF != 40 {
		t.Fatalf("expected CRF 40, got %d", artifact.CRF)
	}
	if artifact.Size > 256*1024 || artifact.Duration > 1.2 {
		t.Fatalf("artifact outside limits: %+v", artifact)
	}
	assertOnly(t, filepath.Join(dir, "out"), "dance.webm")
}

func TestTranscodeVideoExhaustedLadder(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(input, []byte("mp4"), 0o644); err != nil {
		t.Fatal(err)
	}
	stubFFmpeg(t, "fail")

	_, err := New("ffmpeg", "ffprobe", nil).Transcode(context.Background(), analyzer.MediaAsset{Path: input, Width: 640, Height: 480, Duration: 2},
		stickerConstraints(analyzer.KindVideo, false), filepath.Join(dir, "out", "clip.webm"))
	if !errors.Is(err, services.ErrBudgetExceeded) {
		t.Fatalf("expected ErrBudgetExceeded, got %v", err)
	}
	assertOnly(t, filepath.Join(dir, "out"))
}

func assertOnly(t *testing.T, dir string, names ...string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	var got []string
	for _, e := range entries {
		got = append(got, e.Name())
	}
	if fmt.Sprint(got) != fmt.Sprint(names) && !(len(got) == 0 && len(names) == 0) {
		t.Fatalf("directory holds %v, want %v", got, names)
	}
}

func solidImage(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 40, B: 90, A: 255})
		}
	}
	return img
}

func noiseImage(w, h int) image.Image {
	rng := rand.New(rand.NewSource(7))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	rng.Read(img.Pix)
	return img
}

func writeTestPNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func stubFFmpeg(t *testing.T, mode string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cs := append([]string{"-test.run=TestHelperProcess", "--"}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "HELPER_MODE="+mode)
		return cmd
	}
	t.Cleanup(func() { commandContext = original })
}

// TestHelperProcess stands in for ffmpeg. In "sized" mode the output size
// shrinks as -crf rises or -quality falls.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for i, arg := range args {
		if arg == "--" {
			args = args[i+1:]
			break
		}
	}
	mode := os.Getenv("HELPER_MODE")
	if mode == "fail" || len(args) == 0 {
		fmt.Fprint(os.Stderr, "Conversion failed!")
		os.Exit(1)
	}
	output := args[len(args)-1]
	size := 0
	for i := 0; i+1 < len(args); i++ {
		n, _ := strconv.Atoi(args[i+1])
		switch args[i] {
		case "-crf":
			size = (65 - n) * 10 * 1024
		case "-quality":
			size = n * 8 * 1024
		}
	}
	if mode == "huge" {
		size = 2 << 20
	}
	if err := os.WriteFile(output, make([]byte, size), 0o644); err != nil {
		os.Exit(3)
	}
	os.Exit(0)
}
