package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

var commandContext = exec.CommandContext

// RequiredEncoders are the ffmpeg encoders used for sticker output.
var RequiredEncoders = []string{"libvpx-vp9", "libwebp"}

// CheckEncoders asks ffmpeg which encoders it was built with and reports one
// status per required encoder.
func CheckEncoders(ctx context.Context, ffmpegBinary string) []Status {
	results := make([]Status, 0, len(RequiredEncoders))
	available, err := listEncoders(ctx, ffmpegBinary)
	for _, name := range RequiredEncoders {
		status := Status{Name: name, Command: ffmpegBinary, Description: "ffmpeg encoder"}
		switch {
		case err != nil:
			status.Detail = err.Error()
		case available[name]:
			status.Available = true
		default:
			status.Detail = fmt.Sprintf("%s not compiled into ffmpeg", name)
		}
		results = append(results, status)
	}
	return results
}

func listEncoders(ctx context.Context, ffmpegBinary string) (map[string]bool, error) {
	out, err := commandContext(ctx, ffmpegBinary, "-hide_banner", "-encoders").Output()
	if err != nil {
		return nil, fmt.Errorf("list encoders: %w", err)
	}
	encoders := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		// Rows look like " V....D libvpx-vp9  libvpx VP9 (codec vp9)".
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && len(fields[0]) == 6 {
			encoders[fields[1]] = true
		}
	}
	return encoders, scanner.Err()
}
