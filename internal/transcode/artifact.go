package transcode

// Format tags reported on artifacts.
const (
	FormatPNG  = "png"
	FormatWebP = "webp"
	FormatWebM = "webm"
)

// Artifact describes the output of one conversion.
type Artifact struct {
	Path     string  `json:"path"`
	Size     int64   `json:"size"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Format   string  `json:"format"`
	CRF      int     `json:"crf,omitempty"`
	Quality  int     `json:"quality,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	FPS      float64 `json:"fps,omitempty"`
	Success  bool    `json:"success"`
	Message  string  `json:"message"`
}

// SizeKB returns the artifact size in kilobytes.
func (a Artifact) SizeKB() float64 {
	return float64(a.Size) / 1024
}
