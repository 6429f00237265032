package server

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/PorunC/telegram-sticker-maker/internal/logging"
	"github.com/PorunC/telegram-sticker-maker/internal/pipeline"
	"github.com/PorunC/telegram-sticker-maker/internal/tasks"
	"github.com/PorunC/telegram-sticker-maker/internal/uploader"
)

type createPackFile struct {
	Filename string `json:"filename"`
	FilePath string `json:"file_path"`
}

type createPackRequest struct {
	PackName  string           `json:"pack_name"`
	PackTitle string           `json:"pack_title"`
	Files     []createPackFile `json:"files"`
	Emojis    []string         `json:"emojis"`
	Emoji     bool             `json:"emoji"`
}

type createPackResponse struct {
	Success bool   `json:"success"`
	TaskID  string `json:"task_id"`
}

func (s *Server) handleCreatePack(w http.ResponseWriter, r *http.Request) {
	var req createPackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	switch {
	case strings.TrimSpace(req.PackName) == "":
		s.writeError(w, http.StatusBadRequest, "missing required field: pack_name")
		return
	case strings.TrimSpace(req.PackTitle) == "":
		s.writeError(w, http.StatusBadRequest, "missing required field: pack_title")
		return
	case len(req.Files) == 0:
		s.writeError(w, http.StatusBadRequest, "missing required field: files")
		return
	}
	if s.runner == nil {
		s.writeError(w, http.StatusBadRequest, "telegram bot token and user id are not configured")
		return
	}

	paths := make([]string, 0, len(req.Files))
	for _, f := range req.Files {
		path, ok := s.uploadedPath(f.FilePath)
		if !ok {
			s.writeError(w, http.StatusBadRequest, "file is not an upload: "+f.Filename)
			return
		}
		paths = append(paths, path)
	}

	pr := pipeline.Request{
		AccountID: s.cfg.Telegram.UserID,
		Label:     req.PackName,
		Title:     req.PackTitle,
		Files:     paths,
		Emojis:    req.Emojis,
		Emoji:     req.Emoji,
	}
	h := s.tasks.Submit(r.Context(), len(paths), func(ctx context.Context, h *tasks.Handle) (*uploader.UploadBatchResult, error) {
		res, err := s.runner.Run(ctx, pr, func(p pipeline.Progress) {
			h.Update(p.Percent, p.Message, p.Processed)
		})
		if res.Upload.PackName == "" && len(res.Upload.Errors) == 0 {
			return nil, err
		}
		return &res.Upload, err
	})
	logging.WithContext(r.Context(), s.logger).Info("pack creation submitted",
		logging.String(logging.FieldTaskID, h.ID()),
		logging.Pack(req.PackName),
		logging.Int("files", len(paths)),
	)
	s.writeJSON(w, http.StatusOK, createPackResponse{Success: true, TaskID: h.ID()})
}

// uploadedPath resolves p and reports whether it lies inside the upload
// directory.
func (s *Server) uploadedPath(p string) (string, bool) {
	if strings.TrimSpace(p) == "" {
		return "", false
	}
	dir, err := filepath.Abs(s.cfg.UploadDir())
	if err != nil {
		return "", false
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(dir, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return "", false
	}
	return abs, true
}

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := s.tasks.Get(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "task not found")
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleTaskList(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"tasks": s.tasks.List()})
}

func (s *Server) handleTaskCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.tasks.Get(id); !ok {
		s.writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if !s.tasks.Cancel(id) {
		s.writeError(w, http.StatusConflict, "task already finished")
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]bool{"success": true})
}
