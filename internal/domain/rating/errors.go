package rating

import "errors"

// Sentinel kinds for rating errors.
var (
	ErrInvalidPolicy = errors.New("invalid tier policy")
)
