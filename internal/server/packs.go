package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/PorunC/telegram-sticker-maker/internal/logging"
	"github.com/PorunC/telegram-sticker-maker/internal/uploader"
)

type configView struct {
	Config   redactedConfig `json:"config"`
	BotValid bool           `json:"bot_valid"`
	BotInfo  *botInfo       `json:"bot_info"`
}

type redactedConfig struct {
	BotToken       string `json:"bot_token"`
	UserID         int64  `json:"user_id"`
	PackNamePrefix string `json:"pack_name_prefix"`
	DefaultEmoji   string `json:"default_emoji"`
	ProxyEnabled   bool   `json:"proxy_enabled"`
	ProxyType      string `json:"proxy_type,omitempty"`
	ProxyHost      string `json:"proxy_host,omitempty"`
	ProxyPort      int    `json:"proxy_port,omitempty"`
	MaxUploadMB    int    `json:"max_upload_mb"`
}

type botInfo struct {
	Username string `json:"username"`
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	t := s.cfg.Telegram
	view := configView{
		Config: redactedConfig{
			BotToken:       maskToken(t.BotToken),
			UserID:         t.UserID,
			PackNamePrefix: t.PackNamePrefix,
			DefaultEmoji:   t.DefaultEmoji,
			ProxyEnabled:   t.Proxy.Enabled,
			MaxUploadMB:    s.cfg.Server.MaxUploadMB,
		},
	}
	if t.Proxy.Enabled {
		view.Config.ProxyType = t.Proxy.Type
		view.Config.ProxyHost = t.Proxy.Host
		view.Config.ProxyPort = t.Proxy.Port
	}
	if s.manager != nil {
		view.BotValid = true
		view.BotInfo = &botInfo{Username: s.manager.BotUsername()}
	}
	s.writeJSON(w, http.StatusOK, view)
}

// maskToken keeps the bot id prefix and hides the secret half.
func maskToken(token string) string {
	if token == "" {
		return ""
	}
	id, _, found := strings.Cut(token, ":")
	if !found {
		return "***"
	}
	return id + ":***"
}

func (s *Server) handlePackList(w http.ResponseWriter, _ *http.Request) {
	if !s.requireManager(w) {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"bot_username":   s.manager.BotUsername(),
		"naming_pattern": s.manager.NamePattern(),
		"message":        "The Bot API cannot list sticker sets; enter a pack name to manage it",
	})
}

type packResponse struct {
	Success bool                 `json:"success"`
	Pack    uploader.SetAnalysis `json:"pack"`
}

func (s *Server) handlePackShow(w http.ResponseWriter, r *http.Request) {
	if !s.requireManager(w) {
		return
	}
	analysis, err := s.manager.Analyze(r.Context(), r.PathValue("name"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, packResponse{Success: true, Pack: analysis})
}

func (s *Server) handlePackDelete(w http.ResponseWriter, r *http.Request) {
	if !s.requireManager(w) {
		return
	}
	name := r.PathValue("name")
	if err := s.manager.DeleteSet(r.Context(), name); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	logging.WithContext(r.Context(), s.logger).Info("sticker set deleted", logging.Pack(name))
	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type emojiRequest struct {
	Emojis []string `json:"emojis"`
}

func (s *Server) handleStickerEmoji(w http.ResponseWriter, r *http.Request) {
	if !s.requireManager(w) {
		return
	}
	var req emojiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	emojis := req.Emojis[:0]
	for _, e := range req.Emojis {
		if e = strings.TrimSpace(e); e != "" {
			emojis = append(emojis, e)
		}
	}
	if len(emojis) == 0 {
		s.writeError(w, http.StatusBadRequest, "emoji list must not be empty")
		return
	}
	if err := s.manager.SetEmoji(r.Context(), r.PathValue("file_id"), emojis); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleStickerDelete(w http.ResponseWriter, r *http.Request) {
	if !s.requireManager(w) {
		return
	}
	if err := s.manager.DeleteSticker(r.Context(), r.PathValue("file_id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
