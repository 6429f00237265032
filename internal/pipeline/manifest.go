package pipeline

import (
	"path/filepath"
	"sort"
	"time"

	"github.com/PorunC/telegram-sticker-maker/internal/fileutil"
	"github.com/PorunC/telegram-sticker-maker/internal/uploader"
)

// ManifestName is the file written next to kept artifacts.
const ManifestName = "pack_info.json"

// Manifest describes a directory of converted stickers.
type Manifest struct {
	PackName    string          `json:"pack_name"`
	PackTitle   string          `json:"pack_title,omitempty"`
	PackURL     string          `json:"pack_url,omitempty"`
	CreatedAt   string          `json:"created_at"`
	FormatsUsed []string        `json:"formats_used"`
	Stickers    []ManifestEntry `json:"stickers"`
}

// ManifestEntry is one converted sticker.
type ManifestEntry struct {
	File   string  `json:"file"`
	Format string  `json:"format"`
	SizeKB float64 `json:"size_kb"`
	Emoji  string  `json:"emoji"`
}

func (p *Pipeline) writeManifest(dir string, upload uploader.UploadBatchResult, conversions []Conversion) (string, error) {
	m := Manifest{
		PackName:  upload.PackName,
		PackTitle: upload.PackTitle,
		PackURL:   upload.PackURL,
		CreatedAt: p.now().UTC().Format(time.RFC3339),
		Stickers:  []ManifestEntry{},
	}
	formats := map[string]struct{}{}
	for _, c := range conversions {
		if c.Err != nil {
			continue
		}
		formats[c.Artifact.Format] = struct{}{}
		m.Stickers = append(m.Stickers, ManifestEntry{
			File:   filepath.Base(c.Artifact.Path),
			Format: c.Artifact.Format,
			SizeKB: float64(int(c.Artifact.SizeKB()*10)) / 10,
			Emoji:  c.Emoji,
		})
	}
	for f := range formats {
		m.FormatsUsed = append(m.FormatsUsed, f)
	}
	sort.Strings(m.FormatsUsed)

	path := filepath.Join(dir, ManifestName)
	if err := fileutil.WriteJSON(path, m); err != nil {
		return "", err
	}
	return path, nil
}
