package uploader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PorunC/telegram-sticker-maker/internal/fileutil"
	"github.com/PorunC/telegram-sticker-maker/internal/logging"
	"github.com/PorunC/telegram-sticker-maker/internal/telegram"
)

// StickerInfo is one item in a set summary.
type StickerInfo struct {
	Position int    `json:"position"`
	FileID   string `json:"file_id"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Emoji    string `json:"emoji"`
	SetName  string `json:"set_name"`
	FileSize int64  `json:"file_size,omitempty"`
	IsVideo  bool   `json:"is_video"`
}

// SetAnalysis is a read-only summary of a set.
type SetAnalysis struct {
	Name          string         `json:"name"`
	Title         string         `json:"title"`
	StickerType   string         `json:"sticker_type"`
	IsAnimated    bool           `json:"is_animated"`
	IsVideo       bool           `json:"is_video"`
	TotalStickers int            `json:"total_stickers"`
	Stickers      []StickerInfo  `json:"stickers"`
	EmojiStats    map[string]int `json:"emoji_stats"`
	URL           string         `json:"url"`
}

// Analyze fetches a set and summarizes its items and emoji usage.
func (o *Orchestrator) Analyze(ctx context.Context, name string) (SetAnalysis, error) {
	set, err := o.getSet(ctx, name)
	if err != nil {
		return SetAnalysis{}, err
	}
	format := DetectSetFormat(set)
	analysis := SetAnalysis{
		Name:          set.Name,
		Title:         set.Title,
		StickerType:   string(set.StickerType),
		IsAnimated:    format == telegram.FormatAnimated,
		IsVideo:       format == telegram.FormatVideo,
		TotalStickers: len(set.Stickers),
		Stickers:      make([]StickerInfo, 0, len(set.Stickers)),
		EmojiStats:    map[string]int{},
		URL:           o.ShareURL(set.Name),
	}
	if analysis.StickerType == "" {
		analysis.StickerType = telegram.StickerTypeRegular
	}
	for i, s := range set.Stickers {
		analysis.Stickers = append(analysis.Stickers, StickerInfo{
			Position: i,
			FileID:   s.FileID,
			Width:    int(s.Width),
			Height:   int(s.Height),
			Emoji:    s.Emoji,
			SetName:  s.SetName,
			FileSize: int64(s.FileSize),
			IsVideo:  s.IsVideo,
		})
		analysis.EmojiStats[s.Emoji]++
	}
	return analysis, nil
}

// CloneResult reports a clone.
type CloneResult struct {
	Success        bool   `json:"success"`
	PackName       string `json:"pack_name,omitempty"`
	PackURL        string `json:"pack_url,omitempty"`
	ClonedStickers int    `json:"cloned_stickers"`
	Error          string `json:"error,omitempty"`
}

// Clone copies a set into a new one by reusing the existing file_ids; nothing
// is transcoded or re-uploaded. A target without the bot suffix is named like
// any new pack.
func (o *Orchestrator) Clone(ctx context.Context, source, target, title string, accountID int64) CloneResult {
	set, err := o.getSet(ctx, source)
	if err != nil {
		return CloneResult{Error: "Source sticker set not found"}
	}
	identity, err := o.ResolveIdentity(ctx, target, accountID, title)
	if err != nil {
		return CloneResult{Error: "Failed to generate pack name: " + err.Error()}
	}

	format := DetectSetFormat(set)
	stickers := make([]telegram.InputSticker, 0, len(set.Stickers))
	for _, s := range set.Stickers {
		stickers = append(stickers, telegram.InputSticker{
			Sticker:   s.FileID,
			Format:    format,
			EmojiList: PadEmojis([]string{s.Emoji}, 1, o.defaultEmoji),
		})
	}
	if len(stickers) == 0 {
		return CloneResult{PackName: identity.Name, Error: "Source sticker set is empty"}
	}

	err = o.api.CreateNewStickerSet(ctx, telegram.CreateStickerSetRequest{
		UserID:   accountID,
		Name:     identity.Name,
		Title:    identity.Title,
		Stickers: stickers,
	})
	if err != nil {
		return CloneResult{PackName: identity.Name, Error: "Failed to create cloned sticker set: " + err.Error()}
	}
	logging.WithContext(ctx, o.logger).Info("sticker set cloned",
		logging.String("source", source),
		logging.Pack(identity.Name),
		logging.Int("stickers", len(stickers)),
	)
	return CloneResult{
		Success:        true,
		PackName:       identity.Name,
		PackURL:        o.ShareURL(identity.Name),
		ClonedStickers: len(stickers),
	}
}

// BatchResult tallies independent per-entry operations.
type BatchResult struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors"`
}

// EmojiUpdate replaces the emoji list of one sticker.
type EmojiUpdate struct {
	FileID    string   `json:"file_id"`
	EmojiList []string `json:"emoji_list"`
}

// BatchUpdateEmojis applies each update independently; one failure does not
// stop the rest.
func (o *Orchestrator) BatchUpdateEmojis(ctx context.Context, updates []EmojiUpdate) BatchResult {
	result := BatchResult{Total: len(updates), Errors: []string{}}
	for _, u := range updates {
		if strings.TrimSpace(u.FileID) == "" || len(u.EmojiList) == 0 {
			result.Failed++
			result.Errors = append(result.Errors, "Missing file_id or emoji_list for update")
			continue
		}
		if err := o.api.SetStickerEmojiList(ctx, u.FileID, u.EmojiList); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, "Failed to update emoji for "+u.FileID)
			continue
		}
		result.Successful++
	}
	return result
}

// Reorganize moves each file id to its index in fileIDs.
func (o *Orchestrator) Reorganize(ctx context.Context, name string, fileIDs []string) BatchResult {
	logging.WithContext(ctx, o.logger).Info("reorganizing sticker set", logging.Pack(name))
	result := BatchResult{Total: len(fileIDs), Errors: []string{}}
	for position, id := range fileIDs {
		if err := o.api.SetStickerPositionInSet(ctx, id, position); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("Failed to move sticker %s to position %d", id, position))
			continue
		}
		result.Successful++
	}
	return result
}

type backupDocument struct {
	BackupTime float64     `json:"backup_time"`
	StickerSet SetAnalysis `json:"sticker_set"`
}

// Backup writes sticker_backup_<name>_<unix>.json with the set analysis and
// returns its path.
func (o *Orchestrator) Backup(ctx context.Context, name string) (string, error) {
	analysis, err := o.Analyze(ctx, name)
	if err != nil {
		return "", err
	}
	now := o.now()
	dir := o.backupDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("sticker_backup_%s_%d.json", name, now.Unix()))
	doc := backupDocument{
		BackupTime: float64(now.UnixNano()) / 1e9,
		StickerSet: analysis,
	}
	if err := fileutil.WriteJSON(path, doc); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	logging.WithContext(ctx, o.logger).Info("backup saved", logging.String("path", path))
	return path, nil
}

// DeleteSet removes a whole set.
func (o *Orchestrator) DeleteSet(ctx context.Context, name string) error {
	return o.api.DeleteStickerSet(ctx, name)
}

// DeleteSticker removes one sticker from its set.
func (o *Orchestrator) DeleteSticker(ctx context.Context, fileID string) error {
	return o.api.DeleteStickerFromSet(ctx, fileID)
}

// SetEmoji replaces the emoji list of one sticker.
func (o *Orchestrator) SetEmoji(ctx context.Context, fileID string, emojis []string) error {
	return o.api.SetStickerEmojiList(ctx, fileID, emojis)
}

// SetKeywords replaces the keywords of one sticker.
func (o *Orchestrator) SetKeywords(ctx context.Context, fileID string, keywords []string) error {
	return o.api.SetStickerKeywords(ctx, fileID, keywords)
}

// SetTitle renames a set.
func (o *Orchestrator) SetTitle(ctx context.Context, name, title string) error {
	return o.api.SetStickerSetTitle(ctx, name, title)
}

// SetThumbnail uploads a set thumbnail, or clears it when path is empty.
func (o *Orchestrator) SetThumbnail(ctx context.Context, name string, accountID int64, path string) error {
	return o.api.SetStickerSetThumbnail(ctx, name, accountID, path)
}

// Exists reports whether a set with name exists.
func (o *Orchestrator) Exists(ctx context.Context, name string) (bool, error) {
	if _, err := o.api.GetStickerSet(ctx, name); err != nil {
		if telegram.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
