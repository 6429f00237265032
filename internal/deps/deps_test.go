package deps

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/PorunC/telegram-sticker-maker/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	if err := os.WriteFile(present, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Optional", Command: "also-not-present", Optional: true},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary with detail, got %#v", results[1])
	}
	if results[3].Detail != "command not configured" {
		t.Fatalf("unexpected blank detail %q", results[3].Detail)
	}

	missing := Missing(results)
	if len(missing) != 2 || missing[0].Name != "Missing" || missing[1].Name != "Blank" {
		t.Fatalf("unexpected missing set %#v", missing)
	}
}

func TestRequirementsFollowConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Stickers.FFmpegBinary = "/opt/ffmpeg/bin/ffmpeg"
	reqs := Requirements(&cfg)
	if len(reqs) != 2 || reqs[0].Command != "/opt/ffmpeg/bin/ffmpeg" || reqs[1].Command != "ffprobe" {
		t.Fatalf("unexpected requirements %#v", reqs)
	}
}

func TestCheckEncoders(t *testing.T) {
	tests := []struct {
		mode  string
		avail []bool
	}{
		{mode: "both", avail: []bool{true, true}},
		{mode: "vp9only", avail: []bool{true, false}},
		{mode: "fail", avail: []bool{false, false}},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			stubCommand(t, tt.mode)
			got := CheckEncoders(context.Background(), "ffmpeg")
			for i, want := range tt.avail {
				if got[i].Available != want {
					t.Fatalf("%s available = %v, want %v (%s)", got[i].Name, got[i].Available, want, got[i].Detail)
				}
			}
		})
	}
}

func stubCommand(t *testing.T, mode string) {
	t.Helper()
	orig := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cs := append([]string{"-test.run=TestHelperProcess", "--", name}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "HELPER_MODE="+mode)
		return cmd
	}
	t.Cleanup(func() { commandContext = orig })
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	switch os.Getenv("HELPER_MODE") {
	case "fail":
		os.Exit(1)
	case "vp9only":
		fmt.Println("Encoders:\n ------\n V....D libvpx-vp9           libvpx VP9 (codec vp9)")
	default:
		fmt.Println("Encoders:\n ------\n V....D libvpx-vp9           libvpx VP9 (codec vp9)\n V....D libwebp              libwebp WebP image (codec webp)")
	}
	os.Exit(0)
}
