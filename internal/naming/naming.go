package naming

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/PorunC/telegram-sticker-maker/internal/logging"
	"github.com/PorunC/telegram-sticker-maker/internal/telegram"
	"github.com/PorunC/telegram-sticker-maker/internal/textutil"
)

const (
	// MaxNameLength is the Bot API limit for sticker set names.
	MaxNameLength = 64
	// MaxLabelLength bounds the sanitized label before suffixes are added.
	MaxLabelLength = 30
	// PlaceholderLabel replaces labels that sanitize to nothing.
	PlaceholderLabel = "stickers"
)

// SetLookup fetches a sticker set by name.
type SetLookup interface {
	GetStickerSet(ctx context.Context, name string) (*models.StickerSet, error)
}

// Identity is the resolved name of one pack.
type Identity struct {
	Label     string `json:"label"`
	Sanitized string `json:"sanitized"`
	Bot       string `json:"bot"`
	Name      string `json:"name"`
	Title     string `json:"title"`
}

// Namer derives unique set names by probing the Bot API for collisions.
type Namer struct {
	lookup SetLookup
	now    func() time.Time
	logger *slog.Logger
}

// New constructs a Namer.
func New(lookup SetLookup, logger *slog.Logger) *Namer {
	return &Namer{
		lookup: lookup,
		now:    time.Now,
		logger: logging.NewComponentLogger(logger, "naming"),
	}
}

// Suffix returns the required name suffix for bot.
func Suffix(bot string) string {
	return "_by_" + bot
}

// SanitizeLabel applies the set name charset, defaults empty results to the
// placeholder, and truncates to MaxLabelLength.
func SanitizeLabel(label string) string {
	clean := textutil.SanitizeIdentifier(label)
	if clean == "" {
		clean = PlaceholderLabel
	}
	if len(clean) > MaxLabelLength {
		clean = clean[:MaxLabelLength]
	}
	return clean
}

// Candidates lists names in order of preference.
func Candidates(clean string, accountID int64, bot string, unix int64) []string {
	suffix := Suffix(bot)
	return []string{
		clean + suffix,
		fmt.Sprintf("%s_%d%s", clean, accountID, suffix),
		fmt.Sprintf("%s_%d%s", clean, unix, suffix),
	}
}

// Fallback combines label, timestamp, and account id, cutting the label so the
// result fits MaxNameLength.
func Fallback(clean string, accountID int64, bot string, unix int64) string {
	tail := fmt.Sprintf("_%d_%d%s", unix, accountID, Suffix(bot))
	if room := MaxNameLength - len(tail); len(clean) > room {
		if room < 0 {
			room = 0
		}
		clean = clean[:room]
	}
	return clean + tail
}

// Generate returns the first candidate the Bot API reports as not existing.
// A transport failure while checking aborts generation, since existence could
// not be decided. The check and the later create call are not atomic; a
// concurrent creator can still take the name first.
func (n *Namer) Generate(ctx context.Context, label string, accountID int64, bot string) (string, error) {
	clean := SanitizeLabel(label)
	unix := n.now().Unix()
	logger := logging.WithContext(ctx, n.logger)

	for _, name := range Candidates(clean, accountID, bot, unix) {
		if len(name) > MaxNameLength {
			continue
		}
		_, err := n.lookup.GetStickerSet(ctx, name)
		if err == nil {
			logger.Info("pack name taken, trying next", logging.Pack(name))
			continue
		}
		if telegram.IsNotFound(err) {
			logger.Info("generated pack name", logging.Pack(name))
			return name, nil
		}
		return "", err
	}

	name := Fallback(clean, accountID, bot, unix)
	logger.Info("generated fallback pack name", logging.Pack(name))
	return name, nil
}

// Resolve returns label unchanged when it already carries the bot suffix and
// is a valid set name; otherwise it generates a new name.
func (n *Namer) Resolve(ctx context.Context, label string, accountID int64, bot, title string) (Identity, error) {
	id := Identity{Label: label, Bot: bot, Title: strings.TrimSpace(title)}
	if id.Title == "" {
		id.Title = DefaultTitle(label)
	}
	if HasSuffix(label, bot) {
		id.Sanitized = strings.TrimSuffix(label, Suffix(bot))
		id.Name = label
		return id, nil
	}
	id.Sanitized = SanitizeLabel(label)
	name, err := n.Generate(ctx, label, accountID, bot)
	if err != nil {
		return id, err
	}
	id.Name = name
	return id, nil
}

// HasSuffix reports whether name is already a valid set name for bot.
func HasSuffix(name, bot string) bool {
	return bot != "" &&
		strings.HasSuffix(name, Suffix(bot)) &&
		len(name) <= MaxNameLength &&
		textutil.SanitizeIdentifier(name) == name
}

// DefaultTitle builds a display title from a label.
func DefaultTitle(label string) string {
	label = strings.TrimSpace(strings.ReplaceAll(label, "_", " "))
	if label == "" {
		label = PlaceholderLabel
	}
	return cases.Title(language.Und).String(label) + " Stickers"
}

// ShareURL returns the public link for a set.
func ShareURL(base, name string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = "https://t.me/addstickers"
	}
	return base + "/" + name
}

// Pattern describes the names this bot can own; the Bot API has no listing call.
func Pattern(bot string) string {
	return "*" + Suffix(bot)
}
