package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/okian/budgetgm/internal/domain/challenge"
	"github.com/okian/budgetgm/internal/domain/model"
	"github.com/okian/budgetgm/pkg/metrics"
)

const (
	fileExt      = ".json"
	dirPerm      = 0o755
	filePerm     = 0o644
	tempFilePfx  = ".tmp-"
	fileStoreTag = "file"
)

var _ challenge.Store = (*FileStore)(nil)

// FileStore keeps one JSON document per date in a directory. Writes go to a
// temp file and are renamed into place. Version checks are serialized within
// one process only.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates the directory if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", ErrStoreUnavailable, dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(date string) (string, error) {
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return filepath.Join(s.dir, date+fileExt), nil
}

// Load reads and decodes the document for date.
func (s *FileStore) Load(ctx context.Context, date string) (*model.Challenge, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency(fileStoreTag, "load", msSince(start)) }()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(date)
	if err != nil {
		return nil, err
	}
	return s.read(p)
}

func (s *FileStore) read(p string) (*model.Challenge, error) {
	raw, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrStoreUnavailable, p, err)
	}
	var doc model.Challenge
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", p, err)
	}
	if doc.Submissions == nil {
		doc.Submissions = map[string]model.Submission{}
	}
	return &doc, nil
}

// Save writes doc when its version matches the one on disk.
func (s *FileStore) Save(ctx context.Context, doc *model.Challenge) error {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency(fileStoreTag, "save", msSince(start)) }()
	if doc == nil {
		return ErrNilChallenge
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(doc.Date)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read(p)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if err := checkVersion(current, doc); err != nil {
		return err
	}

	next := doc.Clone()
	next.Version++
	raw, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", doc.Date, err)
	}
	if err := writeAtomic(s.dir, p, raw); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	doc.Version = next.Version
	return nil
}

// Dates lists the dates that have a document on disk, ascending.
func (s *FileStore) Dates(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", ErrStoreUnavailable, s.dir, err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		date := strings.TrimSuffix(name, fileExt)
		if _, err := time.Parse(model.DateLayout, date); err != nil {
			continue
		}
		out = append(out, date)
	}
	sort.Strings(out)
	return out, nil
}

func writeAtomic(dir, dst string, raw []byte) error {
	tmp, err := os.CreateTemp(dir, tempFilePfx+"*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	name := tmp.Name()
	defer func() { _ = os.Remove(name) }()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Chmod(name, filePerm); err != nil {
		return fmt.Errorf("chmod temp: %w", err)
	}
	if err := os.Rename(name, dst); err != nil {
		return fmt.Errorf("rename temp: %w", err)
	}
	return nil
}
