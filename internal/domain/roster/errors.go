package roster

import (
	"errors"
	"fmt"
)

// ErrInvalidRoster is the parent kind of every roster rule violation.
var ErrInvalidRoster = errors.New("invalid roster")

// Sentinel kinds for roster errors. The rule violations wrap ErrInvalidRoster.
var (
	ErrRosterFull            = fmt.Errorf("%w: roster is full", ErrInvalidRoster)
	ErrDuplicatePlayer       = fmt.Errorf("%w: player already on roster", ErrInvalidRoster)
	ErrBudgetExceeded        = fmt.Errorf("%w: budget exceeded", ErrInvalidRoster)
	ErrPositionLimitExceeded = fmt.Errorf("%w: position limit exceeded", ErrInvalidRoster)
	ErrIncomplete            = fmt.Errorf("%w: roster incomplete", ErrInvalidRoster)
	ErrPlayerNotFound        = errors.New("player not found")
)
