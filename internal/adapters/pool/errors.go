package pool

import "errors"

// Sentinel kinds for pool errors.
var (
	ErrEmptyPool   = errors.New("player pool is empty")
	ErrInvalidTier = errors.New("invalid tier key")
)
