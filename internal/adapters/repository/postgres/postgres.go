// Package postgres stores challenge documents in PostgreSQL through gorm.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/budgetgm/internal/domain/challenge"
	"github.com/okian/budgetgm/internal/domain/model"
	"github.com/okian/budgetgm/pkg/metrics"
)

const storeTag = "postgres"

// challengeRow is the persisted shape of a challenge document.
type challengeRow struct {
	Date        string         `gorm:"primaryKey;type:varchar(10)"`
	PlayerPool  datatypes.JSON `gorm:"type:jsonb;not null"`
	Submissions datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'"`
	Version     int64          `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (challengeRow) TableName() string { return "challenges" }

var _ challenge.Store = (*Store)(nil)

// Store implements challenge.Store on a gorm connection.
type Store struct {
	db *gorm.DB
}

// Open connects to databaseURL and migrates the challenges table.
func Open(databaseURL string, debug bool) (*Store, error) {
	level := gormlogger.Silent
	if debug {
		level = gormlogger.Info
	}
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %w", challenge.ErrStoreUnavailable, err)
	}
	return New(db)
}

// New wraps an existing connection and migrates the challenges table.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&challengeRow{}); err != nil {
		return nil, fmt.Errorf("%w: migrate: %w", challenge.ErrStoreUnavailable, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Load implements challenge.Store.
func (s *Store) Load(ctx context.Context, date string) (*model.Challenge, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency(storeTag, "load", msSince(start)) }()

	var row challengeRow
	err := s.db.WithContext(ctx).First(&row, "date = ?", date).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, challenge.ErrNotFound
	}
	if err != nil {
		return nil, unavailable("load", err)
	}
	return decode(row)
}

// Save implements challenge.Store. Creation relies on the primary key to
// reject a second creator; updates compare-and-swap on version.
func (s *Store) Save(ctx context.Context, doc *model.Challenge) error {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency(storeTag, "save", msSince(start)) }()
	if doc == nil {
		return errors.New("nil challenge document")
	}
	row, err := encode(doc)
	if err != nil {
		return err
	}
	row.Version = doc.Version + 1

	db := s.db.WithContext(ctx)
	if doc.Version == 0 {
		err := db.Create(&row).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return challenge.ErrVersionConflict
		}
		if err != nil {
			return unavailable("create", err)
		}
		doc.Version = row.Version
		return nil
	}

	res := db.Model(&challengeRow{}).
		Where("date = ? AND version = ?", doc.Date, doc.Version).
		Updates(map[string]interface{}{
			"player_pool": row.PlayerPool,
			"submissions": row.Submissions,
			"version":     row.Version,
			"updated_at":  row.UpdatedAt,
		})
	if res.Error != nil {
		return unavailable("update", res.Error)
	}
	if res.RowsAffected == 0 {
		return challenge.ErrVersionConflict
	}
	doc.Version = row.Version
	return nil
}

// Dates implements challenge.Store.
func (s *Store) Dates(ctx context.Context) ([]string, error) {
	var dates []string
	err := s.db.WithContext(ctx).Model(&challengeRow{}).Order("date ASC").Pluck("date", &dates).Error
	if err != nil {
		return nil, unavailable("dates", err)
	}
	return dates, nil
}

func encode(doc *model.Challenge) (challengeRow, error) {
	pool, err := json.Marshal(doc.PlayerPool)
	if err != nil {
		return challengeRow{}, fmt.Errorf("encode pool: %w", err)
	}
	subs := doc.Submissions
	if subs == nil {
		subs = map[string]model.Submission{}
	}
	rawSubs, err := json.Marshal(subs)
	if err != nil {
		return challengeRow{}, fmt.Errorf("encode submissions: %w", err)
	}
	updated := doc.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	return challengeRow{
		Date:        doc.Date,
		PlayerPool:  datatypes.JSON(pool),
		Submissions: datatypes.JSON(rawSubs),
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   updated,
	}, nil
}

func decode(row challengeRow) (*model.Challenge, error) {
	doc := &model.Challenge{
		Date:        row.Date,
		Version:     row.Version,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
		Submissions: map[string]model.Submission{},
	}
	if err := json.Unmarshal(row.PlayerPool, &doc.PlayerPool); err != nil {
		return nil, fmt.Errorf("decode pool for %s: %w", row.Date, err)
	}
	if len(row.Submissions) > 0 {
		if err := json.Unmarshal(row.Submissions, &doc.Submissions); err != nil {
			return nil, fmt.Errorf("decode submissions for %s: %w", row.Date, err)
		}
	}
	return doc, nil
}

func unavailable(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("postgres %s: %w", op, err)
	}
	return fmt.Errorf("%w: postgres %s: %w", challenge.ErrStoreUnavailable, op, err)
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
