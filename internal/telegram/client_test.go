package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PorunC/telegram-sticker-maker/internal/services"
)

type recordedCall struct {
	method      string
	contentType string
	form        map[string]string
	files       map[string]string
	json        map[string]any
}

type fakeAPI struct {
	mu        sync.Mutex
	calls     []recordedCall
	responses map[string]string
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		method := parts[len(parts)-1]
		call := recordedCall{method: method, contentType: r.Header.Get("Content-Type"), form: map[string]string{}, files: map[string]string{}}

		switch {
		case strings.HasPrefix(call.contentType, "multipart/form-data"):
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("parse multipart: %v", err)
			}
			for k, v := range r.MultipartForm.Value {
				call.form[k] = v[0]
			}
			for k, headers := range r.MultipartForm.File {
				fh, _ := headers[0].Open()
				data, _ := io.ReadAll(fh)
				fh.Close()
				call.files[k] = string(data)
			}
		case strings.HasPrefix(call.contentType, "application/x-www-form-urlencoded"):
			_ = r.ParseForm()
			for k, v := range r.PostForm {
				call.form[k] = v[0]
			}
		default:
			body, _ := io.ReadAll(r.Body)
			if len(body) > 0 {
				_ = json.Unmarshal(body, &call.json)
			}
		}

		f.mu.Lock()
		f.calls = append(f.calls, call)
		resp, ok := f.responses[method]
		f.mu.Unlock()
		if !ok {
			resp = `{"ok":true,"result":true}`
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, resp)
	})
}

func newTestClient(t *testing.T, responses map[string]string) (*Client, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{responses: responses}
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL, Token: "123:abc", HTTP: srv.Client()}), api
}

func TestGetMeDecodesUser(t *testing.T) {
	client, api := newTestClient(t, map[string]string{
		"getMe": `{"ok":true,"result":{"id":42,"is_bot":true,"first_name":"Sticker","username":"stickerbot"}}`,
	})
	user, err := client.GetMe(context.Background())
	if err != nil {
		t.Fatalf("GetMe: %v", err)
	}
	if user.Username != "stickerbot" || user.ID != 42 {
		t.Fatalf("unexpected user %+v", user)
	}
	if api.calls[0].contentType != "application/json" {
		t.Fatalf("getMe should use JSON, got %q", api.calls[0].contentType)
	}
}

func TestAPIErrorCarriesDescription(t *testing.T) {
	client, _ := newTestClient(t, map[string]string{
		"getStickerSet": `{"ok":false,"error_code":400,"description":"Bad Request: STICKERSET_INVALID","parameters":{"retry_after":5}}`,
	})
	_, err := client.GetStickerSet(context.Background(), "missing_by_bot")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != 400 || !strings.Contains(apiErr.Description, "STICKERSET_INVALID") {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
	if apiErr.Parameters == nil || apiErr.Parameters.RetryAfter != 5 {
		t.Fatalf("expected parameters, got %+v", apiErr.Parameters)
	}
	if !errors.Is(err, services.ErrRemote) || !IsNotFound(err) {
		t.Fatalf("expected remote classification, got %v", err)
	}
}

func TestMalformedResponseIsTransient(t *testing.T) {
	client, _ := newTestClient(t, map[string]string{"deleteStickerSet": `<html>bad gateway</html>`})
	err := client.DeleteStickerSet(context.Background(), "x_by_bot")
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if errors.Is(err, services.ErrRemote) {
		t.Fatal("protocol failure must not look like a business error")
	}
}

func TestNetworkErrorRedactsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := New(Options{BaseURL: url, Token: "999:secret", HTTP: &http.Client{Timeout: time.Second}})
	err := client.DeleteStickerFromSet(context.Background(), "file")
	if err == nil {
		t.Fatal("expected network error")
	}
	if strings.Contains(err.Error(), "999:secret") {
		t.Fatalf("token leaked in error: %v", err)
	}
	if services.Category(err) != "network" {
		t.Fatalf("expected network category, got %q", services.Category(err))
	}
}

func TestCreateNewStickerSetSendsMultipart(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	if err := os.WriteFile(a, []byte("AAA"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("BBB"), 0o644); err != nil {
		t.Fatal(err)
	}

	client, api := newTestClient(t, nil)
	err := client.CreateNewStickerSet(context.Background(), CreateStickerSetRequest{
		UserID: 42,
		Name:   "My_Pack_by_stickerbot",
		Title:  "My Pack",
		Stickers: []InputSticker{
			{Sticker: Attach("sticker_0"), Format: FormatStatic, EmojiList: []string{"😀"}},
			{Sticker: Attach("sticker_1"), Format: FormatStatic, EmojiList: []string{"🔥"}},
		},
		Files: []Attachment{{Field: "sticker_0", Path: a}, {Field: "sticker_1", Path: b}},
	})
	if err != nil {
		t.Fatalf("CreateNewStickerSet: %v", err)
	}

	call := api.calls[0]
	if call.method != "createNewStickerSet" {
		t.Fatalf("unexpected method %s", call.method)
	}
	if call.form["user_id"] != "42" || call.form["sticker_type"] != "regular" {
		t.Fatalf("unexpected form %v", call.form)
	}
	var stickers []InputSticker
	if err := json.Unmarshal([]byte(call.form["stickers"]), &stickers); err != nil {
		t.Fatalf("stickers field is not JSON: %v", err)
	}
	if len(stickers) != 2 || stickers[1].EmojiList[0] != "🔥" || stickers[0].Sticker != "attach://sticker_0" {
		t.Fatalf("unexpected stickers %+v", stickers)
	}
	if call.files["sticker_0"] != "AAA" || call.files["sticker_1"] != "BBB" {
		t.Fatalf("unexpected files %v", call.files)
	}
}

func TestMultipartMissingAttachmentFailsBeforeRequest(t *testing.T) {
	client, api := newTestClient(t, nil)
	_, err := client.UploadStickerFile(context.Background(), 1, filepath.Join(t.TempDir(), "gone.webm"))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(api.calls) != 0 {
		t.Fatal("no request should be sent")
	}
}

func TestFormPrimitives(t *testing.T) {
	client, api := newTestClient(t, nil)
	ctx := context.Background()

	steps := []struct {
		name string
		run  func() error
		want map[string]string
	}{
		{"setStickerEmojiList", func() error { return client.SetStickerEmojiList(ctx, "F1", []string{"😀", "🎉"}) },
			map[string]string{"sticker": "F1", "emoji_list": `["😀","🎉"]`}},
		{"setStickerKeywords", func() error { return client.SetStickerKeywords(ctx, "F1", nil) },
			map[string]string{"sticker": "F1", "keywords": `[]`}},
		{"setStickerPositionInSet", func() error { return client.SetStickerPositionInSet(ctx, "F2", 3) },
			map[string]string{"sticker": "F2", "position": "3"}},
		{"setStickerSetTitle", func() error { return client.SetStickerSetTitle(ctx, "p_by_bot", "New") },
			map[string]string{"name": "p_by_bot", "title": "New"}},
		{"deleteStickerFromSet", func() error { return client.DeleteStickerFromSet(ctx, "F3") },
			map[string]string{"sticker": "F3"}},
		{"addStickerToSet", func() error {
			return client.AddStickerToSet(ctx, 7, "p_by_bot", InputSticker{Sticker: "FILEID", Format: FormatVideo, EmojiList: []string{"😀"}}, nil)
		}, map[string]string{"user_id": "7", "name": "p_by_bot"}},
	}

	for i, step := range steps {
		if err := step.run(); err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		call := api.calls[i]
		if call.method != step.name {
			t.Fatalf("call %d: method %s, want %s", i, call.method, step.name)
		}
		if !strings.HasPrefix(call.contentType, "application/x-www-form-urlencoded") {
			t.Fatalf("%s: expected form encoding, got %s", step.name, call.contentType)
		}
		for k, v := range step.want {
			if call.form[k] != v {
				t.Fatalf("%s: field %s = %q, want %q", step.name, k, call.form[k], v)
			}
		}
	}
}

func TestGetStickerSetDecodesModels(t *testing.T) {
	client, _ := newTestClient(t, map[string]string{
		"getStickerSet": `{"ok":true,"result":{"name":"p_by_bot","title":"P","sticker_type":"regular","stickers":[
			{"file_id":"A","file_unique_id":"ua","type":"regular","width":512,"height":512,"is_animated":false,"is_video":true,"emoji":"😀","set_name":"p_by_bot","file_size":1024}
		]}}`,
	})
	set, err := client.GetStickerSet(context.Background(), "p_by_bot")
	if err != nil {
		t.Fatalf("GetStickerSet: %v", err)
	}
	if set.Title != "P" || len(set.Stickers) != 1 {
		t.Fatalf("unexpected set %+v", set)
	}
	s := set.Stickers[0]
	if s.FileID != "A" || s.Emoji != "😀" || !s.IsVideo || int(s.Width) != 512 {
		t.Fatalf("unexpected sticker %+v", s)
	}
}

func TestFormatAndMIMEHelpers(t *testing.T) {
	cases := map[string][2]string{
		".png":  {FormatStatic, "image/png"},
		".WEBP": {FormatStatic, "image/webp"},
		".webm": {FormatVideo, "video/webm"},
		".tgs":  {FormatAnimated, "application/x-tgsticker"},
		".gif":  {FormatStatic, "application/octet-stream"},
	}
	for ext, want := range cases {
		if got := FormatForExt(ext); got != want[0] {
			t.Fatalf("FormatForExt(%s) = %s, want %s", ext, got, want[0])
		}
		if got := MIMEType(ext); got != want[1] {
			t.Fatalf("MIMEType(%s) = %s, want %s", ext, got, want[1])
		}
	}
}
