package transcode

import (
	"fmt"

	"github.com/PorunC/telegram-sticker-maker/internal/analyzer"
	"github.com/PorunC/telegram-sticker-maker/internal/config"
	"github.com/PorunC/telegram-sticker-maker/internal/services"
)

// Constraints bounds the artifact produced for one asset.
type Constraints struct {
	Kind             analyzer.Kind
	Emoji            bool
	MaxDimension     int
	EmojiDimension   int
	MaxDuration      float64
	MaxFPS           int
	DefaultFPS       int
	MaxBytes         int64
	CRFLadder        []int
	VP9Speed         int
	WebPQualityStart int
	WebPQualityStep  int
	WebPQualityFloor int
}

// ConstraintsFor builds sticker constraints for kind from configuration.
func ConstraintsFor(cfg *config.Config, kind analyzer.Kind, emoji bool) Constraints {
	s := cfg.Stickers
	c := Constraints{
		Kind:             kind,
		Emoji:            emoji,
		MaxDimension:     s.MaxDimension,
		EmojiDimension:   s.EmojiDimension,
		MaxDuration:      s.MaxDuration,
		MaxFPS:           s.MaxFPS,
		DefaultFPS:       s.DefaultFPS,
		CRFLadder:        append([]int(nil), s.CRFLadder...),
		VP9Speed:         s.VP9Speed,
		WebPQualityStart: s.WebPQualityStart,
		WebPQualityStep:  s.WebPQualityStep,
		WebPQualityFloor: s.WebPQualityFloor,
	}
	if kind == analyzer.KindVideo {
		c.MaxBytes = int64(s.VideoMaxKB) * 1024
	} else {
		c.MaxBytes = int64(s.StaticMaxKB) * 1024
	}
	return c
}

// TargetSize returns the output dimensions for a source of w×h. Sticker output
// puts the longest side at the maximum; emoji output is always square.
func (c Constraints) TargetSize(w, h int) (int, int) {
	if c.Emoji {
		return c.EmojiDimension, c.EmojiDimension
	}
	limit := c.MaxDimension
	if w <= 0 || h <= 0 {
		return limit, limit
	}
	if w >= h {
		return limit, max(1, int(float64(h)*float64(limit)/float64(w)))
	}
	return max(1, int(float64(w)*float64(limit)/float64(h))), limit
}

// Check reports whether an artifact satisfies the size and shape limits.
// Unknown dimensions (zero) are not checked.
func (c Constraints) Check(a Artifact) error {
	if a.Size > c.MaxBytes {
		return services.Wrap(services.ErrBudgetExceeded, "transcode", "check artifact",
			fmt.Sprintf("%d bytes exceeds %d", a.Size, c.MaxBytes), nil)
	}
	if a.Width == 0 || a.Height == 0 {
		return nil
	}
	if c.Emoji {
		if a.Width != c.EmojiDimension || a.Height != c.EmojiDimension {
			return services.Wrap(services.ErrValidation, "transcode", "check artifact",
				fmt.Sprintf("emoji must be %dx%d, got %dx%d", c.EmojiDimension, c.EmojiDimension, a.Width, a.Height), nil)
		}
		return nil
	}
	longest, other := a.Width, a.Height
	if other > longest {
		longest, other = other, longest
	}
	if longest != c.MaxDimension || other > c.MaxDimension {
		return services.Wrap(services.ErrValidation, "transcode", "check artifact",
			fmt.Sprintf("sticker must have one side of %d, got %dx%d", c.MaxDimension, a.Width, a.Height), nil)
	}
	return nil
}
