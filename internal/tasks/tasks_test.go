package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/PorunC/telegram-sticker-maker/internal/services"
	"github.com/PorunC/telegram-sticker-maker/internal/uploader"
)

func TestSubmitCompletes(t *testing.T) {
	var finished []Progress
	var mu sync.Mutex
	store := NewStore(nil, WithFinishHook(func(p Progress) {
		mu.Lock()
		finished = append(finished, p)
		mu.Unlock()
	}))

	h := store.Submit(context.Background(), 2, func(ctx context.Context, h *Handle) (*uploader.UploadBatchResult, error) {
		if id, ok := services.TaskIDFromContext(ctx); !ok || id != h.ID() {
			t.Errorf("task id missing from context: %q", id)
		}
		h.Update(25, "Converting a.png...", 1)
		h.Update(10, "", 0)
		if got := h.Snapshot(); got.Progress != 25 || got.Status != StatusProcessing || got.ProcessedFiles != 1 {
			t.Errorf("progress moved backwards: %+v", got)
		}
		return &uploader.UploadBatchResult{Success: true, PackName: "a_by_bot", Errors: []string{}}, nil
	})
	store.Wait()

	got, ok := store.Get(h.ID())
	if !ok {
		t.Fatalf("task %s not found", h.ID())
	}
	if got.Status != StatusCompleted || got.Progress != 100 || got.Message != "Sticker pack created!" {
		t.Fatalf("unexpected final state %+v", got)
	}
	if got.TotalFiles != 2 || got.Result == nil || got.Result.PackName != "a_by_bot" {
		t.Fatalf("unexpected result %+v", got)
	}
	if len(finished) != 1 || finished[0].ID != h.ID() {
		t.Fatalf("finish hook not called once: %+v", finished)
	}
}

func TestSubmitErrorStates(t *testing.T) {
	tests := []struct {
		name    string
		result  *uploader.UploadBatchResult
		err     error
		message string
	}{
		{name: "error", err: errors.New("boom"), message: "boom"},
		{name: "cancelled", err: services.Wrap(services.ErrCancelled, "pipeline", "convert", "", context.Canceled), message: "cancelled"},
		{name: "unsuccessful result", result: &uploader.UploadBatchResult{Errors: []string{"x"}}, message: "Creation failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore(nil)
			h := store.Submit(context.Background(), 1, func(context.Context, *Handle) (*uploader.UploadBatchResult, error) {
				return tt.result, tt.err
			})
			store.Wait()
			got := h.Snapshot()
			if got.Status != StatusError || got.Message != tt.message {
				t.Fatalf("unexpected state %+v", got)
			}
		})
	}
}

func TestPanicBecomesError(t *testing.T) {
	store := NewStore(nil)
	h := store.Submit(context.Background(), 1, func(context.Context, *Handle) (*uploader.UploadBatchResult, error) {
		panic("decoder exploded")
	})
	store.Wait()
	if got := h.Snapshot(); got.Status != StatusError {
		t.Fatalf("expected error status, got %+v", got)
	}
}

func TestCancelStopsWorker(t *testing.T) {
	store := NewStore(nil)
	started := make(chan struct{})
	h := store.Submit(context.Background(), 1, func(ctx context.Context, h *Handle) (*uploader.UploadBatchResult, error) {
		close(started)
		<-ctx.Done()
		return nil, services.Wrap(services.ErrCancelled, "pipeline", "convert", "", ctx.Err())
	})
	<-started
	if !store.Cancel(h.ID()) {
		t.Fatalf("Cancel returned false for running task")
	}
	store.Wait()
	if got := h.Snapshot(); got.Status != StatusError || got.Message != "cancelled" {
		t.Fatalf("unexpected state %+v", got)
	}
	if store.Cancel(h.ID()) {
		t.Fatalf("Cancel should report false for a finished task")
	}
	if store.Cancel("missing") {
		t.Fatalf("Cancel should report false for an unknown task")
	}
}

func TestCancelConcurrentWithUpdates(t *testing.T) {
	store := NewStore(nil)
	handles := make([]*Handle, 0, 20)
	for range 20 {
		h := store.Submit(context.Background(), 100, func(ctx context.Context, h *Handle) (*uploader.UploadBatchResult, error) {
			for i := range 100 {
				h.Update(float64(i), "working", i)
			}
			<-ctx.Done()
			return nil, services.Wrap(services.ErrCancelled, "pipeline", "convert", "", ctx.Err())
		})
		handles = append(handles, h)
	}

	var wg sync.WaitGroup
	for _, h := range handles {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for range 50 {
				store.Cancel(id)
			}
		}(h.ID())
	}
	wg.Wait()
	store.Wait()

	for _, h := range handles {
		if got := h.Snapshot(); got.Status != StatusError || got.Message != "cancelled" {
			t.Fatalf("task %s ended as %+v", h.ID(), got)
		}
	}
}

func TestSubmitIgnoresCallerCancellation(t *testing.T) {
	store := NewStore(nil)
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	h := store.Submit(ctx, 1, func(ctx context.Context, _ *Handle) (*uploader.UploadBatchResult, error) {
		<-release
		return &uploader.UploadBatchResult{Success: true}, ctx.Err()
	})
	cancel()
	close(release)
	store.Wait()
	if got := h.Snapshot(); got.Status != StatusCompleted {
		t.Fatalf("request cancellation leaked into task: %+v", got)
	}
}

func TestSnapshotsAreCopies(t *testing.T) {
	store := NewStore(nil)
	h := store.Submit(context.Background(), 1, func(context.Context, *Handle) (*uploader.UploadBatchResult, error) {
		return &uploader.UploadBatchResult{Success: true, Errors: []string{"original"}}, nil
	})
	store.Wait()

	snap := h.Snapshot()
	snap.Result.Errors[0] = "mutated"
	snap.Message = "mutated"
	again := h.Snapshot()
	if again.Result.Errors[0] != "original" || again.Message == "mutated" {
		t.Fatalf("snapshot mutation leaked into store: %+v", again)
	}
}

func TestListAndPrune(t *testing.T) {
	store := NewStore(nil)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	// Submit reads the clock before the worker starts, so run them one at a
	// time to keep timestamps ordered.
	first := store.Submit(context.Background(), 1, func(context.Context, *Handle) (*uploader.UploadBatchResult, error) {
		return &uploader.UploadBatchResult{Success: true}, nil
	})
	store.Wait()
	second := store.Submit(context.Background(), 1, func(context.Context, *Handle) (*uploader.UploadBatchResult, error) {
		return &uploader.UploadBatchResult{Success: true}, nil
	})
	store.Wait()

	list := store.List()
	if len(list) != 2 || list[0].ID != second.ID() || list[1].ID != first.ID() {
		t.Fatalf("unexpected list order %+v", list)
	}

	cutoff := first.Snapshot().UpdatedAt.Add(time.Second)
	if removed := store.Prune(cutoff); removed != 1 {
		t.Fatalf("expected one pruned task, got %d", removed)
	}
	if _, ok := store.Get(first.ID()); ok {
		t.Fatalf("pruned task still present")
	}
}
