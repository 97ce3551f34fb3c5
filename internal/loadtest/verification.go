package loadtest

import (
	"errors"
	"fmt"

	"github.com/okian/budgetgm/internal/domain/challenge"
	"github.com/okian/budgetgm/internal/domain/model"
)

// ErrInconsistent reports a leaderboard that disagrees with what was submitted.
var ErrInconsistent = errors.New("leaderboard inconsistent")

// verifyLeaderboard checks ranking order, live percentiles, and that every
// accepted submission is present with its latest record.
func verifyLeaderboard(board []model.Standing, accepted map[string]model.Submission) error {
	seen := make(map[string]model.Submission, len(board))
	for i, s := range board {
		if s.Rank != i+1 {
			return fmt.Errorf("%w: entry %d has rank %d", ErrInconsistent, i, s.Rank)
		}
		if want := challenge.PercentileAt(i, len(board)); s.Percentile != want {
			return fmt.Errorf("%w: rank %d has percentile %.1f, want %.1f", ErrInconsistent, s.Rank, s.Percentile, want)
		}
		if i > 0 && challenge.Less(s.Submission, board[i-1].Submission) {
			return fmt.Errorf("%w: rank %d (%s) outranks rank %d", ErrInconsistent, s.Rank, s.Submission.Identity, i)
		}
		if _, dup := seen[s.Submission.Identity]; dup {
			return fmt.Errorf("%w: %s listed twice", ErrInconsistent, s.Submission.Identity)
		}
		seen[s.Submission.Identity] = s.Submission
	}

	for identity, want := range accepted {
		got, ok := seen[identity]
		if !ok {
			return fmt.Errorf("%w: %s missing", ErrInconsistent, identity)
		}
		if got.ID != want.ID || got.Record != want.Record {
			return fmt.Errorf("%w: %s shows %s %d-%d, last accepted was %s %d-%d", ErrInconsistent, identity,
				got.ID, got.Record.Wins, got.Record.Losses, want.ID, want.Record.Wins, want.Record.Losses)
		}
	}
	return nil
}
