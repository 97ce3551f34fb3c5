package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/budgetgm/internal/domain/challenge"
	"github.com/okian/budgetgm/internal/domain/model"
	"github.com/okian/budgetgm/pkg/metrics"
)

var _ challenge.Store = (*RetryStore)(nil)

// RetryStore bounds every call with a timeout and retries transient
// ErrStoreUnavailable failures. Conflicts and misses pass straight through.
type RetryStore struct {
	next     challenge.Store
	name     string
	attempts int
	backoff  time.Duration
	timeout  time.Duration
}

// Retry wraps next with timeout and retry handling.
func Retry(next challenge.Store, opts ...Option) *RetryStore {
	s := &RetryStore{
		next:     next,
		name:     "store",
		attempts: defaultAttempts,
		backoff:  defaultBackoff,
		timeout:  defaultOpTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load implements challenge.Store.
func (s *RetryStore) Load(ctx context.Context, date string) (*model.Challenge, error) {
	var doc *model.Challenge
	err := s.do(ctx, "load", func(ctx context.Context) error {
		var err error
		doc, err = s.next.Load(ctx, date)
		return err
	})
	return doc, err
}

// Save implements challenge.Store. A retried save keeps the caller's
// version, so a write that landed before a transport error surfaces as a
// conflict on the next try.
func (s *RetryStore) Save(ctx context.Context, doc *model.Challenge) error {
	return s.do(ctx, "save", func(ctx context.Context) error {
		return s.next.Save(ctx, doc)
	})
}

// Dates implements challenge.Store.
func (s *RetryStore) Dates(ctx context.Context) ([]string, error) {
	var dates []string
	err := s.do(ctx, "dates", func(ctx context.Context) error {
		var err error
		dates, err = s.next.Dates(ctx)
		return err
	})
	return dates, err
}

func (s *RetryStore) do(ctx context.Context, op string, fn func(context.Context) error) error {
	var err error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err = fn(callCtx)
		timedOut := errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
		cancel()

		if timedOut && err != nil && !errors.Is(err, ErrStoreUnavailable) {
			err = fmt.Errorf("%w: %s timed out after %s: %w", ErrStoreUnavailable, op, s.timeout, err)
		}
		metrics.RecordStoreOperation(s.name, op, result(err))
		if err == nil || !errors.Is(err, ErrStoreUnavailable) {
			return err
		}
		if attempt == s.attempts {
			break
		}
		metrics.RecordStoreRetry(s.name, op)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(s.backoff):
		}
	}
	return err
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrVersionConflict):
		return "conflict"
	default:
		return "error"
	}
}
