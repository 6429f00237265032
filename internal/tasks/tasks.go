package tasks

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PorunC/telegram-sticker-maker/internal/logging"
	"github.com/PorunC/telegram-sticker-maker/internal/services"
	"github.com/PorunC/telegram-sticker-maker/internal/uploader"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusStarting   Status = "starting"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Terminal reports whether no further updates will follow.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Progress is a read-only snapshot of one task.
type Progress struct {
	ID             string                      `json:"task_id"`
	Status         Status                      `json:"status"`
	Progress       float64                     `json:"progress"`
	Message        string                      `json:"message"`
	ProcessedFiles int                         `json:"processed_files"`
	TotalFiles     int                         `json:"total_files"`
	Result         *uploader.UploadBatchResult `json:"result,omitempty"`
	CreatedAt      time.Time                   `json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
}

// Job is the work run by a task. It reports through the handle and returns
// the final upload result, which may be non-nil alongside an error.
type Job func(ctx context.Context, h *Handle) (*uploader.UploadBatchResult, error)

// Store tracks tasks by identifier. Each entry is written only by its own
// worker; readers receive copies.
type Store struct {
	mu       sync.RWMutex
	tasks    map[string]*entry
	wg       sync.WaitGroup
	onFinish func(Progress)
	now      func() time.Time
	logger   *slog.Logger
}

type entry struct {
	progress Progress
	cancel   context.CancelFunc
}

// Option configures a Store.
type Option func(*Store)

// WithFinishHook registers fn to run after a task reaches a terminal status.
func WithFinishHook(fn func(Progress)) Option {
	return func(s *Store) { s.onFinish = fn }
}

// NewStore constructs an empty store.
func NewStore(logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		tasks:  make(map[string]*entry),
		now:    time.Now,
		logger: logging.NewComponentLogger(logger, "tasks"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle lets a worker report progress and lets callers cancel it.
type Handle struct {
	id    string
	store *Store
}

// ID returns the task identifier.
func (h *Handle) ID() string { return h.id }

// Update records progress. Percentages never move backwards.
func (h *Handle) Update(percent float64, message string, processed int) {
	h.store.mutate(h.id, func(p *Progress) {
		if p.Status.Terminal() {
			return
		}
		p.Status = StatusProcessing
		if percent > p.Progress {
			p.Progress = min(percent, 100)
		}
		if message != "" {
			p.Message = message
		}
		if processed > p.ProcessedFiles {
			p.ProcessedFiles = processed
		}
	})
}

// Cancel requests that the worker stop at its next checkpoint.
func (h *Handle) Cancel() {
	h.store.Cancel(h.id)
}

// Snapshot returns the current state of the task.
func (h *Handle) Snapshot() Progress {
	p, _ := h.store.Get(h.id)
	return p
}

// Submit registers a task and runs job on its own goroutine. The job context
// is detached from ctx's deadline and cancellation but keeps its values.
func (s *Store) Submit(ctx context.Context, totalFiles int, job Job) *Handle {
	id := uuid.NewString()
	now := s.now()
	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	jobCtx = services.WithTaskID(jobCtx, id)

	s.mu.Lock()
	s.tasks[id] = &entry{
		progress: Progress{
			ID:         id,
			Status:     StatusStarting,
			Message:    "Starting sticker pack creation...",
			TotalFiles: totalFiles,
			CreatedAt:  now,
			UpdatedAt:  now,
		},
		cancel: cancel,
	}
	s.mu.Unlock()

	h := &Handle{id: id, store: s}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.run(jobCtx, h, job)
	}()
	return h
}

func (s *Store) run(ctx context.Context, h *Handle, job Job) {
	logger := logging.WithContext(ctx, s.logger)
	logger.Info("task started")

	result, err := s.safeRun(ctx, h, job)

	s.mutate(h.id, func(p *Progress) {
		p.Result = result
		switch {
		case errors.Is(err, services.ErrCancelled):
			p.Status = StatusError
			p.Message = "cancelled"
		case err != nil:
			p.Status = StatusError
			p.Message = err.Error()
		case result != nil && !result.Success:
			p.Status = StatusError
			p.Message = "Creation failed"
		default:
			p.Status = StatusCompleted
			p.Progress = 100
			p.Message = "Sticker pack created!"
		}
	})

	final, _ := s.Get(h.id)
	if final.Status == StatusCompleted {
		logger.Info("task completed", logging.Float64("progress", final.Progress))
	} else {
		logger.Warn("task failed", logging.String("message", final.Message))
	}
	if s.onFinish != nil {
		s.onFinish(final)
	}
}

// safeRun converts a worker panic into a task error so one bad input cannot
// take down the process.
func (s *Store) safeRun(ctx context.Context, h *Handle, job Job) (result *uploader.UploadBatchResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = services.Wrap(services.ErrExternalTool, "task", "run", "Processing error", panicError{r})
		}
	}()
	return job(ctx, h)
}

type panicError struct{ v any }

func (p panicError) Error() string { return "panic: " + slog.AnyValue(p.v).String() }

// Get returns a copy of the task state.
func (s *Store) Get(id string) (Progress, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.tasks[id]
	if !ok {
		return Progress{}, false
	}
	return e.progress.clone(), true
}

// List returns snapshots of all tasks, newest first.
func (s *Store) List() []Progress {
	s.mu.RLock()
	out := make([]Progress, 0, len(s.tasks))
	for _, e := range s.tasks {
		out = append(out, e.progress.clone())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Cancel signals the task's worker. It returns false for unknown or finished
// tasks.
func (s *Store) Cancel(id string) bool {
	s.mu.RLock()
	e, ok := s.tasks[id]
	var cancel context.CancelFunc
	if ok && !e.progress.Status.Terminal() {
		cancel = e.cancel
	}
	s.mu.RUnlock()
	if cancel == nil {
		return false
	}
	cancel()
	return true
}

// Wait blocks until every submitted task has finished.
func (s *Store) Wait() {
	s.wg.Wait()
}

// Prune drops terminal tasks last updated before cutoff and returns how many
// were removed.
func (s *Store) Prune(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, e := range s.tasks {
		if e.progress.Status.Terminal() && e.progress.UpdatedAt.Before(cutoff) {
			delete(s.tasks, id)
			removed++
		}
	}
	return removed
}

func (s *Store) mutate(id string, fn func(*Progress)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.tasks[id]
	if !ok {
		return
	}
	fn(&e.progress)
	e.progress.UpdatedAt = s.now()
}

func (p Progress) clone() Progress {
	if p.Result != nil {
		r := *p.Result
		r.Errors = append([]string(nil), p.Result.Errors...)
		p.Result = &r
	}
	return p
}
