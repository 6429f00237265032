package transcode

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/PorunC/telegram-sticker-maker/internal/services"
)

// EncodeFunc writes one encoding attempt at the given quality level to path.
type EncodeFunc func(ctx context.Context, level int, path string) error

// LadderAttempt records the outcome of one ladder level.
type LadderAttempt struct {
	Level int
	Size  int64
	Err   error
}

// LadderResult is the accepted level of a ladder search.
type LadderResult struct {
	Level    int
	Size     int64
	Attempts []LadderAttempt
}

// Ladder is an ordered list of encoder levels, most faithful first, searched
// against a byte budget.
type Ladder struct {
	Levels []int
	Budget int64
	// TempTag names the level in temporary file names, e.g. "crf".
	TempTag string
}

// QualityLadder returns start, start-step, ... for every value above floor.
func QualityLadder(start, step, floor int) []int {
	if step <= 0 {
		return []int{start}
	}
	var levels []int
	for q := start; q > floor; q -= step {
		levels = append(levels, q)
	}
	return levels
}

// Search evaluates levels in order and moves the first encoding whose size
// fits the budget to output. Each attempt writes to "<output>.tmp_<tag><level>",
// which is removed after evaluation whatever the outcome. An encoder failure
// only disqualifies its level. Exhausting the ladder returns ErrBudgetExceeded
// together with every attempt made.
func (l Ladder) Search(ctx context.Context, output string, encode EncodeFunc) (LadderResult, error) {
	var result LadderResult
	levels, budget := l.Levels, l.Budget
	tag := l.TempTag
	if tag == "" {
		tag = "crf"
	}
	if len(levels) == 0 {
		return result, services.Wrap(services.ErrValidation, "transcode", "ladder search", "empty ladder", nil)
	}
	for _, level := range levels {
		if err := ctx.Err(); err != nil {
			return result, services.Wrap(services.ErrCancelled, "transcode", "ladder search", "", err)
		}
		attempt, accepted, err := tryLevel(ctx, level, budget, fmt.Sprintf("%s.tmp_%s%d", output, tag, level), output, encode)
		result.Attempts = append(result.Attempts, attempt)
		if err != nil {
			return result, err
		}
		if accepted {
			result.Level = level
			result.Size = attempt.Size
			return result, nil
		}
	}
	return result, services.Wrap(services.ErrBudgetExceeded, "transcode", "ladder search",
		fmt.Sprintf("no level within %d bytes after %d attempts", budget, len(result.Attempts)), attemptErrors(result.Attempts))
}

func tryLevel(ctx context.Context, level int, budget int64, tmp, output string, encode EncodeFunc) (LadderAttempt, bool, error) {
	attempt := LadderAttempt{Level: level}
	defer os.Remove(tmp)

	if err := encode(ctx, level, tmp); err != nil {
		attempt.Err = err
		return attempt, false, nil
	}
	info, err := os.Stat(tmp)
	if err != nil {
		attempt.Err = err
		return attempt, false, nil
	}
	attempt.Size = info.Size()
	if attempt.Size > budget {
		return attempt, false, nil
	}
	if err := os.Rename(tmp, output); err != nil {
		return attempt, false, fmt.Errorf("move accepted encoding: %w", err)
	}
	return attempt, true, nil
}

func attemptErrors(attempts []LadderAttempt) error {
	var errs []error
	for _, a := range attempts {
		if a.Err != nil {
			errs = append(errs, fmt.Errorf("level %d: %w", a.Level, a.Err))
		}
	}
	return errors.Join(errs...)
}
