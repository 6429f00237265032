package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/PorunC/telegram-sticker-maker/internal/logging"
	"github.com/PorunC/telegram-sticker-maker/internal/textutil"
)

// multipart parts above this stay on disk while parsing.
const multipartMemory = 8 << 20

type uploadedFile struct {
	Filename       string `json:"filename"`
	UniqueFilename string `json:"unique_filename"`
	FilePath       string `json:"file_path"`
	Size           int64  `json:"size"`
	Type           string `json:"type"`
}

type uploadResponse struct {
	Success bool           `json:"success"`
	Files   []uploadedFile `json:"files"`
	Errors  []string       `json:"errors"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := int64(s.cfg.Server.MaxUploadMB) << 20
	tooLargeMsg := fmt.Sprintf("upload exceeds %d MB", s.cfg.Server.MaxUploadMB)
	if r.ContentLength > limit {
		s.writeError(w, http.StatusRequestEntityTooLarge, tooLargeMsg)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, tooLargeMsg)
			return
		}
		s.writeError(w, http.StatusBadRequest, "no files selected")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 || headers[0].Filename == "" {
		s.writeError(w, http.StatusBadRequest, "no files selected")
		return
	}

	dir := s.cfg.UploadDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := uploadResponse{Files: []uploadedFile{}, Errors: []string{}}
	stamp := s.now().Unix()
	used := make(map[string]bool, len(headers))
	for _, fh := range headers {
		name := textutil.SanitizeUploadName(fh.Filename)
		ext := strings.ToLower(filepath.Ext(name))
		if !s.allowed(ext) {
			resp.Errors = append(resp.Errors, "unsupported file type: "+fh.Filename)
			continue
		}
		unique := uniqueUploadName(name, stamp, used)
		path := filepath.Join(dir, unique)
		size, err := saveUpload(fh, path)
		if err != nil {
			resp.Errors = append(resp.Errors, fmt.Sprintf("upload %s failed: %v", fh.Filename, err))
			continue
		}
		resp.Files = append(resp.Files, uploadedFile{
			Filename:       name,
			UniqueFilename: unique,
			FilePath:       path,
			Size:           size,
			Type:           ext,
		})
	}
	resp.Success = len(resp.Files) > 0
	logging.WithContext(r.Context(), s.logger).Info("files uploaded",
		logging.Int("saved", len(resp.Files)),
		logging.Int("rejected", len(resp.Errors)),
	)
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) allowed(ext string) bool {
	return slices.Contains(s.cfg.Server.AllowedExtensions, strings.TrimPrefix(ext, "."))
}

func saveUpload(fh *multipart.FileHeader, path string) (int64, error) {
	src, err := fh.Open()
	if err != nil {
		return 0, err
	}
	defer src.Close()

	dst, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, err
	}
	return n, nil
}

// uniqueUploadName stamps name with the request time. Repeats within one
// request get a counter so parts never share a path.
func uniqueUploadName(name string, stamp int64, used map[string]bool) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	unique := fmt.Sprintf("%s_%d%s", stem, stamp, ext)
	for n := 2; used[unique]; n++ {
		unique = fmt.Sprintf("%s_%d_%d%s", stem, stamp, n, ext)
	}
	used[unique] = true
	return unique
}
