package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PorunC/telegram-sticker-maker/internal/analyzer"
)

// collectInputs expands directories into their supported files, sorted by
// name. Explicit file arguments are kept as given.
func collectInputs(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", arg, err)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", arg, err)
		}
		var found []string
		for _, e := range entries {
			if e.IsDir() || !acceptsInput(e.Name()) {
				continue
			}
			found = append(found, filepath.Join(arg, e.Name()))
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no supported input files found")
	}
	return files, nil
}

func acceptsInput(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".tgs" || analyzer.IsSupported(ext)
}

// splitEmojis accepts repeated flags and comma-separated values.
func splitEmojis(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			out = append(out, strings.TrimSpace(part))
		}
	}
	return out
}
