package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/PorunC/telegram-sticker-maker/internal/config"
	"github.com/PorunC/telegram-sticker-maker/internal/logging"
	"github.com/PorunC/telegram-sticker-maker/internal/pipeline"
	"github.com/PorunC/telegram-sticker-maker/internal/services"
	"github.com/PorunC/telegram-sticker-maker/internal/tasks"
	"github.com/PorunC/telegram-sticker-maker/internal/uploader"
)

// Runner executes one convert-and-upload request.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request, report pipeline.Reporter) (pipeline.Result, error)
}

// Manager exposes the pack management operations served over HTTP.
type Manager interface {
	BotUsername() string
	NamePattern() string
	Analyze(ctx context.Context, name string) (uploader.SetAnalysis, error)
	DeleteSet(ctx context.Context, name string) error
	DeleteSticker(ctx context.Context, fileID string) error
	SetEmoji(ctx context.Context, fileID string, emojis []string) error
}

// Options wires a Server. Runner and Manager are nil when no bot credentials
// are configured; the endpoints that need them then answer 400.
type Options struct {
	Config  *config.Config
	Tasks   *tasks.Store
	Runner  Runner
	Manager Manager
	Logger  *slog.Logger
}

// Server is the JSON HTTP API.
type Server struct {
	cfg     *config.Config
	tasks   *tasks.Store
	runner  Runner
	manager Manager
	logger  *slog.Logger
	now     func() time.Time

	lock     *flock.Flock
	listener net.Listener
	server   *http.Server
	stopOnce sync.Once
}

// New constructs a Server.
func New(opts Options) (*Server, error) {
	if opts.Config == nil || opts.Tasks == nil {
		return nil, errors.New("server requires config and task store")
	}
	s := &Server{
		cfg:     opts.Config,
		tasks:   opts.Tasks,
		runner:  opts.Runner,
		manager: opts.Manager,
		logger:  logging.NewComponentLogger(opts.Logger, "api-server"),
		now:     time.Now,
		lock:    flock.New(filepath.Join(opts.Config.Paths.WorkDir, "stickerpack.lock")),
	}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler returns the routed, authenticated handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/config", s.handleConfig)
	mux.HandleFunc("POST /api/upload", s.handleUpload)
	mux.HandleFunc("POST /api/create-sticker-pack", s.handleCreatePack)
	mux.HandleFunc("GET /api/task-status/{id}", s.handleTaskStatus)
	mux.HandleFunc("GET /api/tasks", s.handleTaskList)
	mux.HandleFunc("DELETE /api/task/{id}", s.handleTaskCancel)
	mux.HandleFunc("GET /api/sticker-packs", s.handlePackList)
	mux.HandleFunc("GET /api/sticker-pack/{name}", s.handlePackShow)
	mux.HandleFunc("DELETE /api/sticker-pack/{name}", s.handlePackDelete)
	mux.HandleFunc("PUT /api/sticker-pack/{name}/sticker/{file_id}/emoji", s.handleStickerEmoji)
	mux.HandleFunc("DELETE /api/sticker-pack/{name}/sticker/{file_id}", s.handleStickerDelete)
	return requestIDMiddleware(authMiddleware(s.cfg.Paths.APIToken, mux))
}

// Start takes the work directory lock and begins serving on the configured
// bind address. The server shuts down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if err := s.cfg.EnsureDirectories(); err != nil {
		return err
	}
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return services.Wrap(services.ErrConfiguration, "server", "lock", "another stickerpack server is using "+s.cfg.Paths.WorkDir, nil)
	}

	listener, err := net.Listen("tcp", s.cfg.Paths.APIBind)
	if err != nil {
		_ = s.lock.Unlock()
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the listener down, waits for running tasks, and releases the
// lock. Only the first call has any effect.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
		s.tasks.Wait()
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("failed to release server lock", logging.Error(err))
		}
		s.logger.Info("api server stopped")
	})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}
