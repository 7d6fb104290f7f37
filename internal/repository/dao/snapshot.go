package dao

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrSnapshotConflict = errors.New("snapshot was modified by another writer")
)

// Snapshot is one whole-collection write under a fixed key. The ticket pool
// is always persisted wholesale, never as per-ticket rows, so a single row
// with a compare-and-swap version column is the entire storage model.
type Snapshot struct {
	Key           string    `gorm:"primaryKey"`
	SchemaVersion int       `gorm:"not null"`
	Version       int64     `gorm:"not null"`
	Payload       []byte    `gorm:"type:jsonb;not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

type SnapshotDAO struct {
	db *gorm.DB
}

func NewSnapshotDAO(db *gorm.DB) *SnapshotDAO {
	return &SnapshotDAO{
		db: db,
	}
}

func (d *SnapshotDAO) Get(ctx context.Context, key string) (Snapshot, error) {
	var snap Snapshot
	result := d.db.WithContext(ctx).Where("key = ?", key).First(&snap)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Snapshot{}, ErrSnapshotNotFound
		}

		return Snapshot{}, result.Error
	}

	return snap, nil
}

// Insert writes the first snapshot under key. A concurrent first write from
// another session surfaces as ErrSnapshotConflict via the primary key.
func (d *SnapshotDAO) Insert(ctx context.Context, snap Snapshot) (Snapshot, error) {
	snap.Version = 1
	snap.UpdatedAt = time.Now()

	result := d.db.WithContext(ctx).Create(&snap)
	if result.Error != nil {
		var pgErr *pgconn.PgError
		if errors.As(result.Error, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return Snapshot{}, ErrSnapshotConflict
		}

		return Snapshot{}, result.Error
	}

	return snap, nil
}

// CompareAndSwap overwrites the snapshot only if nobody has written since
// expectedVersion was read. Zero rows updated means another writer got
// there first.
func (d *SnapshotDAO) CompareAndSwap(ctx context.Context, snap Snapshot, expectedVersion int64) (Snapshot, error) {
	snap.Version = expectedVersion + 1
	snap.UpdatedAt = time.Now()

	result := d.db.WithContext(ctx).
		Model(&Snapshot{}).
		Where("key = ? AND version = ?", snap.Key, expectedVersion).
		Updates(map[string]interface{}{
			"schema_version": snap.SchemaVersion,
			"version":        snap.Version,
			"payload":        snap.Payload,
			"updated_at":     snap.UpdatedAt,
		})
	if result.Error != nil {
		return Snapshot{}, result.Error
	}
	if result.RowsAffected == 0 {
		return Snapshot{}, ErrSnapshotConflict
	}

	return snap, nil
}
