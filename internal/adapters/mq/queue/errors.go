package queue

import "errors"

// Sentinel kinds for enqueue failures.
var (
	ErrBackpressure = errors.New("simulation queue is full")
	ErrClosed       = errors.New("simulation queue is closed")
)
