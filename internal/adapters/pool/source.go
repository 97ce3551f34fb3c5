// Package pool loads the canonical player pool and serves rated snapshots.
package pool

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/okian/budgetgm/internal/domain/model"
)

//go:embed data/player_pool.json
var defaultPool []byte

// Source supplies raw player lines grouped by their source tier.
type Source interface {
	Load(ctx context.Context) (map[int][]model.PlayerLine, error)
}

// record is one player entry of the pool file.
type record struct {
	Name     string         `json:"name"`
	Position string         `json:"position"`
	Team     string         `json:"team"`
	Stats    model.StatLine `json:"stats"`
}

// FileSource reads a pool file keyed by tier ("1".."5", "$1".."$5").
// An empty path serves the bundled pool.
type FileSource struct {
	path string
}

// NewFileSource creates a source for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Load implements Source.
func (s *FileSource) Load(ctx context.Context) (map[int][]model.PlayerLine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw := defaultPool
	if s.path != "" {
		b, err := os.ReadFile(s.path)
		if err != nil {
			return nil, fmt.Errorf("read pool %s: %w", s.path, err)
		}
		raw = b
	}
	return Decode(raw)
}

// Decode parses pool JSON. Records without a name are skipped.
func Decode(raw []byte) (map[int][]model.PlayerLine, error) {
	var byKey map[string][]record
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&byKey); err != nil {
		return nil, fmt.Errorf("decode pool: %w", err)
	}
	out := make(map[int][]model.PlayerLine, len(byKey))
	for key, records := range byKey {
		tier, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(key), "$"))
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTier, key)
		}
		for _, r := range records {
			if strings.TrimSpace(r.Name) == "" {
				continue
			}
			out[tier] = append(out[tier], model.PlayerLine{
				Name:     strings.TrimSpace(r.Name),
				Position: model.ParsePosition(r.Position),
				Team:     r.Team,
				Stats:    r.Stats.Normalized(),
			})
		}
	}
	return out, nil
}

// Flatten merges tiered lines into one list ordered by tier then input order.
func Flatten(byTier map[int][]model.PlayerLine) []model.PlayerLine {
	tiers := make([]int, 0, len(byTier))
	for t := range byTier {
		tiers = append(tiers, t)
	}
	sort.Ints(tiers)
	var out []model.PlayerLine
	for _, t := range tiers {
		out = append(out, byTier[t]...)
	}
	return out
}
