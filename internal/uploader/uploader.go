package uploader

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot/models"

	"github.com/PorunC/telegram-sticker-maker/internal/logging"
	"github.com/PorunC/telegram-sticker-maker/internal/naming"
	"github.com/PorunC/telegram-sticker-maker/internal/services"
	"github.com/PorunC/telegram-sticker-maker/internal/telegram"
)

// API is the Bot API surface the orchestrator drives.
type API interface {
	GetMe(ctx context.Context) (*models.User, error)
	UploadStickerFile(ctx context.Context, userID int64, path string) (*models.File, error)
	CreateNewStickerSet(ctx context.Context, req telegram.CreateStickerSetRequest) error
	AddStickerToSet(ctx context.Context, userID int64, name string, sticker telegram.InputSticker, file *telegram.Attachment) error
	GetStickerSet(ctx context.Context, name string) (*models.StickerSet, error)
	DeleteStickerFromSet(ctx context.Context, fileID string) error
	DeleteStickerSet(ctx context.Context, name string) error
	SetStickerPositionInSet(ctx context.Context, fileID string, position int) error
	SetStickerEmojiList(ctx context.Context, fileID string, emojis []string) error
	SetStickerKeywords(ctx context.Context, fileID string, keywords []string) error
	SetStickerSetTitle(ctx context.Context, name, title string) error
	SetStickerSetThumbnail(ctx context.Context, name string, userID int64, path string) error
}

// Options configures an Orchestrator.
type Options struct {
	ShareBaseURL string
	DefaultEmoji string
	BackupDir    string
	Logger       *slog.Logger
}

// Orchestrator sequences Bot API calls into pack-level operations.
type Orchestrator struct {
	api          API
	namer        *naming.Namer
	bot          *models.User
	shareBaseURL string
	defaultEmoji string
	backupDir    string
	now          func() time.Time
	logger       *slog.Logger
}

// New validates the bot token with getMe and returns an Orchestrator bound to
// that bot. An invalid token is fatal here.
func New(ctx context.Context, api API, opts Options) (*Orchestrator, error) {
	logger := logging.NewComponentLogger(opts.Logger, "uploader")
	bot, err := api.GetMe(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "uploader", "validate token", "getMe failed", err)
	}
	if strings.TrimSpace(bot.Username) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "uploader", "validate token", "bot has no username", nil)
	}
	logger.Info("connected to bot", logging.String("bot", "@"+bot.Username))

	emoji := strings.TrimSpace(opts.DefaultEmoji)
	if emoji == "" {
		emoji = "😀"
	}
	return &Orchestrator{
		api:          api,
		namer:        naming.New(api, opts.Logger),
		bot:          bot,
		shareBaseURL: opts.ShareBaseURL,
		defaultEmoji: emoji,
		backupDir:    opts.BackupDir,
		now:          time.Now,
		logger:       logger,
	}, nil
}

// BotUsername returns the username of the bound bot.
func (o *Orchestrator) BotUsername() string {
	return o.bot.Username
}

// ShareURL returns the public link for a set.
func (o *Orchestrator) ShareURL(name string) string {
	return naming.ShareURL(o.shareBaseURL, name)
}

// NamePattern describes the set names owned by the bound bot.
func (o *Orchestrator) NamePattern() string {
	return naming.Pattern(o.bot.Username)
}

// ResolveIdentity names a pack for label, keeping labels that already end in
// the bot suffix.
func (o *Orchestrator) ResolveIdentity(ctx context.Context, label string, accountID int64, title string) (naming.Identity, error) {
	return o.namer.Resolve(ctx, label, accountID, o.bot.Username, title)
}

// PadEmojis returns exactly n emoji, filling missing or blank entries with
// fallback.
func PadEmojis(emojis []string, n int, fallback string) []string {
	out := make([]string, n)
	for i := range out {
		if i < len(emojis) {
			out[i] = strings.TrimSpace(emojis[i])
		}
		if out[i] == "" {
			out[i] = fallback
		}
	}
	return out
}

// DetectSetFormat derives a set's sticker format from its items.
func DetectSetFormat(set *models.StickerSet) string {
	for _, s := range set.Stickers {
		if s.IsVideo {
			return telegram.FormatVideo
		}
		if s.IsAnimated {
			return telegram.FormatAnimated
		}
	}
	return telegram.FormatStatic
}

func (o *Orchestrator) getSet(ctx context.Context, name string) (*models.StickerSet, error) {
	set, err := o.api.GetStickerSet(ctx, name)
	if err != nil {
		if telegram.IsNotFound(err) {
			return nil, services.Wrap(services.ErrNotFound, "uploader", "get sticker set", name, err)
		}
		return nil, err
	}
	return set, nil
}
