package simulation

import "errors"

// Sentinel kinds for simulation errors.
var (
	ErrIncompleteRoster = errors.New("roster incomplete")
	ErrNilRand          = errors.New("nil random source")
)
