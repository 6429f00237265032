package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-telegram/bot/models"
)

// Sticker formats accepted by the Bot API.
const (
	FormatStatic   = "static"
	FormatVideo    = "video"
	FormatAnimated = "animated"
)

// StickerTypeRegular is the only set type created by this client.
const StickerTypeRegular = "regular"

// InputSticker describes one sticker in createNewStickerSet or addStickerToSet.
// Sticker is either "attach://<field>" or an existing file_id.
type InputSticker struct {
	Sticker   string   `json:"sticker"`
	Format    string   `json:"format"`
	EmojiList []string `json:"emoji_list"`
	Keywords  []string `json:"keywords,omitempty"`
}

// Attach returns the attach:// reference for a multipart field.
func Attach(field string) string {
	return "attach://" + field
}

// FormatForExt maps a file extension to a sticker format; unknown
// extensions are treated as static.
func FormatForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".webm":
		return FormatVideo
	case ".tgs":
		return FormatAnimated
	default:
		return FormatStatic
	}
}

// FormatForPath maps a file path to a sticker format.
func FormatForPath(path string) string {
	return FormatForExt(filepath.Ext(path))
}

// MIMEType returns the upload content type for a sticker file extension.
func MIMEType(ext string) string {
	switch strings.ToLower(ext) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".webm":
		return "video/webm"
	case ".tgs":
		return "application/x-tgsticker"
	default:
		return "application/octet-stream"
	}
}

// CreateStickerSetRequest holds the arguments of createNewStickerSet.
type CreateStickerSetRequest struct {
	UserID   int64
	Name     string
	Title    string
	Stickers []InputSticker
	Files    []Attachment
}

// GetMe validates the token and returns the bot identity.
func (c *Client) GetMe(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.callJSON(ctx, "getMe", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UploadStickerFile pre-uploads one sticker file and returns the stored file.
func (c *Client) UploadStickerFile(ctx context.Context, userID int64, path string) (*models.File, error) {
	form := url.Values{}
	form.Set("user_id", strconv.FormatInt(userID, 10))
	form.Set("sticker_format", FormatForPath(path))
	var file models.File
	if err := c.callMultipart(ctx, "uploadStickerFile", form, []Attachment{{Field: "sticker", Path: path}}, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

// CreateNewStickerSet creates a set from descriptors and their attachments in
// a single multipart call. With no attachments the call is sent as a form.
func (c *Client) CreateNewStickerSet(ctx context.Context, req CreateStickerSetRequest) error {
	stickers, err := json.Marshal(req.Stickers)
	if err != nil {
		return err
	}
	form := url.Values{}
	form.Set("user_id", strconv.FormatInt(req.UserID, 10))
	form.Set("name", req.Name)
	form.Set("title", req.Title)
	form.Set("sticker_type", StickerTypeRegular)
	form.Set("stickers", string(stickers))
	if len(req.Files) == 0 {
		return c.callForm(ctx, "createNewStickerSet", form, nil)
	}
	return c.callMultipart(ctx, "createNewStickerSet", form, req.Files, nil)
}

// AddStickerToSet appends one sticker, attaching file when it is non-nil.
func (c *Client) AddStickerToSet(ctx context.Context, userID int64, name string, sticker InputSticker, file *Attachment) error {
	encoded, err := json.Marshal(sticker)
	if err != nil {
		return err
	}
	form := url.Values{}
	form.Set("user_id", strconv.FormatInt(userID, 10))
	form.Set("name", name)
	form.Set("sticker", string(encoded))
	if file == nil {
		return c.callForm(ctx, "addStickerToSet", form, nil)
	}
	return c.callMultipart(ctx, "addStickerToSet", form, []Attachment{*file}, nil)
}

// GetStickerSet fetches the current state of a set.
func (c *Client) GetStickerSet(ctx context.Context, name string) (*models.StickerSet, error) {
	var set models.StickerSet
	if err := c.callJSON(ctx, "getStickerSet", map[string]string{"name": name}, &set); err != nil {
		return nil, err
	}
	return &set, nil
}

// DeleteStickerFromSet removes one sticker.
func (c *Client) DeleteStickerFromSet(ctx context.Context, fileID string) error {
	return c.callForm(ctx, "deleteStickerFromSet", url.Values{"sticker": {fileID}}, nil)
}

// DeleteStickerSet removes a whole set.
func (c *Client) DeleteStickerSet(ctx context.Context, name string) error {
	return c.callForm(ctx, "deleteStickerSet", url.Values{"name": {name}}, nil)
}

// SetStickerPositionInSet moves a sticker to a zero-based position.
func (c *Client) SetStickerPositionInSet(ctx context.Context, fileID string, position int) error {
	form := url.Values{}
	form.Set("sticker", fileID)
	form.Set("position", strconv.Itoa(position))
	return c.callForm(ctx, "setStickerPositionInSet", form, nil)
}

// SetStickerEmojiList replaces the emoji of a sticker. The list travels as a
// JSON string inside the form.
func (c *Client) SetStickerEmojiList(ctx context.Context, fileID string, emojis []string) error {
	encoded, err := json.Marshal(emojis)
	if err != nil {
		return err
	}
	form := url.Values{}
	form.Set("sticker", fileID)
	form.Set("emoji_list", string(encoded))
	return c.callForm(ctx, "setStickerEmojiList", form, nil)
}

// SetStickerKeywords replaces the search keywords of a sticker.
func (c *Client) SetStickerKeywords(ctx context.Context, fileID string, keywords []string) error {
	if keywords == nil {
		keywords = []string{}
	}
	encoded, err := json.Marshal(keywords)
	if err != nil {
		return err
	}
	form := url.Values{}
	form.Set("sticker", fileID)
	form.Set("keywords", string(encoded))
	return c.callForm(ctx, "setStickerKeywords", form, nil)
}

// SetStickerSetTitle renames a set.
func (c *Client) SetStickerSetTitle(ctx context.Context, name, title string) error {
	form := url.Values{}
	form.Set("name", name)
	form.Set("title", title)
	return c.callForm(ctx, "setStickerSetTitle", form, nil)
}

// SetStickerSetThumbnail uploads a thumbnail from path, or clears it when path
// is empty.
func (c *Client) SetStickerSetThumbnail(ctx context.Context, name string, userID int64, path string) error {
	form := url.Values{}
	form.Set("name", name)
	form.Set("user_id", strconv.FormatInt(userID, 10))
	if path == "" {
		form.Set("format", FormatStatic)
		return c.callForm(ctx, "setStickerSetThumbnail", form, nil)
	}
	form.Set("format", FormatForPath(path))
	form.Set("thumbnail", Attach("thumbnail"))
	return c.callMultipart(ctx, "setStickerSetThumbnail", form, []Attachment{{Field: "thumbnail", Path: path}}, nil)
}

// IsNotFound reports whether err is a Bot API rejection, which getStickerSet
// returns for names that do not exist.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
