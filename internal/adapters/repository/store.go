// Package repository provides challenge document stores.
package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/budgetgm/internal/domain/challenge"
	"github.com/okian/budgetgm/internal/domain/model"
	"github.com/okian/budgetgm/pkg/metrics"
)

var _ challenge.Store = (*MemoryStore)(nil)

// MemoryStore keeps challenge documents in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]*model.Challenge
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]*model.Challenge)}
}

// Load returns a copy of the document for date.
func (s *MemoryStore) Load(ctx context.Context, date string) (*model.Challenge, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("memory", "load", msSince(start)) }()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[date]
	if !ok {
		return nil, ErrNotFound
	}
	return doc.Clone(), nil
}

// Save stores a copy of doc when its version matches the stored one.
func (s *MemoryStore) Save(ctx context.Context, doc *model.Challenge) error {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("memory", "save", msSince(start)) }()
	if doc == nil {
		return ErrNilChallenge
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkVersion(s.docs[doc.Date], doc); err != nil {
		return err
	}
	doc.Version++
	s.docs[doc.Date] = doc.Clone()
	metrics.UpdateChallengesStored(len(s.docs))
	return nil
}

// Dates lists stored dates in ascending order.
func (s *MemoryStore) Dates(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.docs))
	for d := range s.docs {
		out = append(out, d)
	}
	sort.Strings(out)
	return out, nil
}

// checkVersion enforces the optimistic concurrency contract shared by stores.
func checkVersion(current, incoming *model.Challenge) error {
	if current == nil {
		if incoming.Version != 0 {
			return ErrVersionConflict
		}
		return nil
	}
	if current.Version != incoming.Version {
		return ErrVersionConflict
	}
	return nil
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
