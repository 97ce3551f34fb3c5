package repository

import "time"

// Default guard configuration constants.
const (
	defaultAttempts  = 3
	defaultBackoff   = 50 * time.Millisecond
	defaultOpTimeout = 2 * time.Second
)

// Option applies a configuration option to the RetryStore.
type Option func(*RetryStore)

// WithAttempts sets the total number of tries per operation.
func WithAttempts(n int) Option {
	return func(s *RetryStore) {
		if n > 0 {
			s.attempts = n
		}
	}
}

// WithBackoff sets the fixed delay between tries.
func WithBackoff(d time.Duration) Option {
	return func(s *RetryStore) {
		if d >= 0 {
			s.backoff = d
		}
	}
}

// WithTimeout bounds each individual store call.
func WithTimeout(d time.Duration) Option {
	return func(s *RetryStore) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithName labels the wrapped store in metrics.
func WithName(name string) Option {
	return func(s *RetryStore) {
		if name != "" {
			s.name = name
		}
	}
}
