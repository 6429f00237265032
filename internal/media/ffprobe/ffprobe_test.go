package ffprobe

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"testing"
)

const probeJSON = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1280, "height": 720,
     "nb_frames": "120", "r_frame_rate": "30/1", "avg_frame_rate": "24000/1001"},
    {"index": 1, "codec_name": "aac", "codec_type": "audio"}
  ],
  "format": {"filename": "clip.mp4", "nb_streams": 2, "duration": "5.005", "size": "204800"}
}`

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video"},
			{CodecType: "audio"},
			{CodecType: "audio"},
		},
		Format: Format{
			Duration: "123.45",
			Size:     "1000",
			BitRate:  "32000",
		},
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 1000 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
	if result.BitRate() != 32000 {
		t.Fatalf("unexpected bitrate: %d", result.BitRate())
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{
		Format: Format{
			Duration: "bad",
			Size:     "-1",
			BitRate:  "nope",
		},
	}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
	if result.BitRate() != 0 {
		t.Fatalf("expected bitrate 0, got %d", result.BitRate())
	}
}

func TestStreamFrameRate(t *testing.T) {
	tests := []struct {
		name   string
		stream Stream
		want   float64
	}{
		{name: "avg preferred", stream: Stream{AvgFrameRate: "25/1", RFrameRate: "30/1"}, want: 25},
		{name: "avg zero falls back", stream: Stream{AvgFrameRate: "0/0", RFrameRate: "30/1"}, want: 30},
		{name: "plain number", stream: Stream{RFrameRate: "12.5"}, want: 12.5},
		{name: "missing", stream: Stream{}, want: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.stream.FrameRate(); got != tc.want {
				t.Fatalf("FrameRate() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDurationFallsBackToStream(t *testing.T) {
	result := Result{Streams: []Stream{{CodecType: "video", Duration: "2.5"}}}
	if got := result.DurationSeconds(); got != 2.5 {
		t.Fatalf("expected stream duration 2.5, got %v", got)
	}
}

func TestInspectParsesOutput(t *testing.T) {
	original := commandContext
	commandContext = fakeProbe("ok")
	t.Cleanup(func() { commandContext = original })

	result, err := Inspect(context.Background(), "ffprobe", "clip.mp4")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	stream, ok := result.VideoStream()
	if !ok {
		t.Fatal("expected video stream")
	}
	if stream.Width != 1280 || stream.Height != 720 {
		t.Fatalf("unexpected dimensions %dx%d", stream.Width, stream.Height)
	}
	if stream.FrameCount() != 120 {
		t.Fatalf("unexpected frame count %d", stream.FrameCount())
	}
	if result.DurationSeconds() != 5.005 {
		t.Fatalf("unexpected duration %v", result.DurationSeconds())
	}
	if len(result.RawJSON()) == 0 {
		t.Fatal("expected raw json retained")
	}
}

func TestInspectReportsFailure(t *testing.T) {
	original := commandContext
	commandContext = fakeProbe("fail")
	t.Cleanup(func() { commandContext = original })

	if _, err := Inspect(context.Background(), "ffprobe", "broken.mp4"); err == nil {
		t.Fatal("expected error from failing probe")
	}
}

func TestInspectRejectsEmptyPath(t *testing.T) {
	if _, err := Inspect(context.Background(), "", "  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func fakeProbe(mode string) func(context.Context, string, ...string) *exec.Cmd {
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cs := append([]string{"-test.run=TestHelperProcess", "--", mode}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1")
		return cmd
	}
}

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
	if len(args) == 0 {
		os.Exit(2)
	}
	switch args[0] {
	case "ok":
		fmt.Fprint(os.Stdout, probeJSON)
		os.Exit(0)
	default:
		fmt.Fprint(os.Stderr, "Invalid data found when processing input")
		os.Exit(1)
	}
}
