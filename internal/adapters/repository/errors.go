package repository

import (
	"errors"

	"github.com/okian/budgetgm/internal/domain/challenge"
)

// Sentinel kinds for repository errors. Store contract errors are the
// challenge package sentinels so callers can match on one set.
var (
	ErrNotFound         = challenge.ErrNotFound
	ErrVersionConflict  = challenge.ErrVersionConflict
	ErrStoreUnavailable = challenge.ErrStoreUnavailable
	ErrNilChallenge     = errors.New("nil challenge document")
	ErrInvalidDate      = errors.New("invalid challenge date key")
)
