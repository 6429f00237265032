package uploader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/PorunC/telegram-sticker-maker/internal/logging"
	"github.com/PorunC/telegram-sticker-maker/internal/telegram"
)

// BatchRequest is one create-pack call.
type BatchRequest struct {
	AccountID int64
	Label     string
	Title     string
	Files     []string
	Emojis    []string
}

// UploadBatchResult aggregates a batch upload. UploadedCount counts the items
// included in the create call.
type UploadBatchResult struct {
	Success       bool     `json:"success"`
	PackName      string   `json:"pack_name"`
	PackTitle     string   `json:"pack_title"`
	PackURL       string   `json:"pack_url"`
	Format        string   `json:"format"`
	UploadedCount int      `json:"uploaded_count"`
	FailedCount   int      `json:"failed_count"`
	Errors        []string `json:"errors"`
}

// UploadBatch creates one set from files with a single createNewStickerSet
// call. Missing files are counted as failed and skipped; expected failures are
// reported in the result rather than returned as errors.
func (o *Orchestrator) UploadBatch(ctx context.Context, req BatchRequest) UploadBatchResult {
	logger := logging.WithContext(ctx, o.logger)
	result := UploadBatchResult{Errors: []string{}}

	if len(req.Files) == 0 {
		result.Errors = append(result.Errors, "No sticker files provided")
		return result
	}

	identity, err := o.ResolveIdentity(ctx, req.Label, req.AccountID, req.Title)
	if err != nil {
		result.Errors = append(result.Errors, "Failed to generate pack name: "+err.Error())
		return result
	}
	result.PackName = identity.Name
	result.PackTitle = identity.Title

	emojis := PadEmojis(req.Emojis, len(req.Files), o.defaultEmoji)
	format := telegram.FormatForPath(req.Files[0])
	result.Format = format

	var (
		stickers []telegram.InputSticker
		files    []telegram.Attachment
	)
	for i, path := range req.Files {
		logger.Info("preparing sticker",
			logging.Int("index", i+1),
			logging.Int("total", len(req.Files)),
			logging.String("file", filepath.Base(path)),
		)
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			result.FailedCount++
			result.Errors = append(result.Errors, "File not found: "+filepath.Base(path))
			continue
		}
		field := fmt.Sprintf("sticker_%d", i)
		files = append(files, telegram.Attachment{Field: field, Path: path})
		stickers = append(stickers, telegram.InputSticker{
			Sticker:   telegram.Attach(field),
			Format:    format,
			EmojiList: []string{emojis[i]},
		})
		result.UploadedCount++
	}

	if len(stickers) == 0 {
		result.Errors = append(result.Errors, "No valid stickers to upload")
		return result
	}

	err = o.api.CreateNewStickerSet(ctx, telegram.CreateStickerSetRequest{
		UserID:   req.AccountID,
		Name:     identity.Name,
		Title:    identity.Title,
		Stickers: stickers,
		Files:    files,
	})
	if err != nil {
		logger.Error("sticker set creation failed",
			logging.Pack(identity.Name),
			logging.Error(err),
		)
		result.Errors = append(result.Errors, "Failed to create sticker set: "+err.Error())
		return result
	}

	result.Success = true
	result.PackURL = o.ShareURL(identity.Name)
	logger.Info("sticker set created",
		logging.Pack(identity.Name),
		logging.String("url", result.PackURL),
		logging.Int("uploaded", result.UploadedCount),
		logging.Int("failed", result.FailedCount),
	)
	return result
}

// AddRequest appends one file to an existing set.
type AddRequest struct {
	AccountID int64
	Name      string
	File      string
	Emoji     string
	Keywords  []string
}

// Add pre-uploads the file and appends it to the set by file_id.
func (o *Orchestrator) Add(ctx context.Context, req AddRequest) error {
	uploaded, err := o.api.UploadStickerFile(ctx, req.AccountID, req.File)
	if err != nil {
		return err
	}
	sticker := telegram.InputSticker{
		Sticker:   uploaded.FileID,
		Format:    telegram.FormatForPath(req.File),
		EmojiList: PadEmojis([]string{req.Emoji}, 1, o.defaultEmoji),
		Keywords:  req.Keywords,
	}
	if err := o.api.AddStickerToSet(ctx, req.AccountID, req.Name, sticker, nil); err != nil {
		return err
	}
	logging.WithContext(ctx, o.logger).Info("sticker added",
		logging.Pack(req.Name),
		logging.String("file", filepath.Base(req.File)),
	)
	return nil
}
