package challenge

import "errors"

// Sentinel kinds for challenge errors.
var (
	ErrNotFound         = errors.New("challenge not found")
	ErrVersionConflict  = errors.New("challenge version conflict")
	ErrStoreUnavailable = errors.New("challenge store unavailable")
	ErrInvalidDate      = errors.New("invalid challenge date")
	ErrInvalidIdentity  = errors.New("invalid identity")
	ErrPoolUnavailable  = errors.New("player pool unavailable")
)
