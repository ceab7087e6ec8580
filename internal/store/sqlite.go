package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/cruxsync/otp/otp"
)

// snapshotRow and patchRow are the gorm models backing SQLiteStore. Content
// and the operation are stored as JSON-encoded []byte columns (BLOB in
// SQLite); SQLite has no native JSON type.
type snapshotRow struct {
	ObjectID string `gorm:"primaryKey"`
	RevID    int64
	Content  []byte
}

func (snapshotRow) TableName() string { return "crux_snapshots" }

type patchRow struct {
	ObjectID  string `gorm:"primaryKey;index:idx_patch_object_rev,priority:1"`
	RevID     int64  `gorm:"primaryKey;index:idx_patch_object_rev,priority:2"`
	AuthorID  string
	Op        []byte
	CreatedAt time.Time
}

func (patchRow) TableName() string { return "crux_patches" }

// SQLiteStore is a durable ObjectStore backed by a cgo-free SQLite driver.
// Writes are serialized by SQLite's database-wide write lock: every commit
// opens an IMMEDIATE transaction, so a second writer blocks (or fails busy)
// rather than racing the first. CommitPatch does not retry on busy.
type SQLiteStore struct {
	db *gorm.DB
}

// OpenSQLiteStore opens (creating if necessary) a SQLite database at path
// and migrates its schema.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.AutoMigrate(&snapshotRow{}, &patchRow{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// LoadSnapshot implements ObjectStore.
func (s *SQLiteStore) LoadSnapshot(ctx context.Context, id otp.ObjectId) (otp.Snapshot, error) {
	var row snapshotRow
	err := s.db.WithContext(ctx).First(&row, "object_id = ?", string(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return otp.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return otp.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}

	var content any
	if err := json.Unmarshal(row.Content, &content); err != nil {
		return otp.Snapshot{}, fmt.Errorf("decode snapshot content: %w", err)
	}

	return otp.Snapshot{ObjectID: id, RevID: otp.RevId(row.RevID), Content: content}, nil
}

// PatchesAfter implements ObjectStore.
func (s *SQLiteStore) PatchesAfter(ctx context.Context, id otp.ObjectId, after otp.RevId) ([]otp.Patch, error) {
	var rows []patchRow
	err := s.db.WithContext(ctx).
		Where("object_id = ? AND rev_id > ?", string(id), int64(after)).
		Order("rev_id asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load patches: %w", err)
	}

	out := make([]otp.Patch, 0, len(rows))
	for _, row := range rows {
		op, err := otp.UnmarshalOperation(row.Op)
		if err != nil {
			return nil, fmt.Errorf("decode patch %d: %w", row.RevID, err)
		}
		out = append(out, otp.NewPatch(otp.RevId(row.RevID), id, otp.AuthorId(row.AuthorID), op))
	}
	return out, nil
}

// CommitPatch implements ObjectStore. It opens the write with BEGIN
// IMMEDIATE so SQLite grants the reserved lock up front: a concurrent
// commit against any object blocks (or fails busy, depending on driver
// timeout) rather than racing this one to the later COMMIT.
func (s *SQLiteStore) CommitPatch(ctx context.Context, patch otp.Patch, resulting otp.Snapshot) error {
	conn := s.db.WithContext(ctx)

	if err := conn.Exec("BEGIN IMMEDIATE").Error; err != nil {
		return fmt.Errorf("begin immediate: %w", err)
	}

	if err := commitPatchLocked(conn, patch, resulting); err != nil {
		conn.Exec("ROLLBACK")
		return err
	}

	if err := conn.Exec("COMMIT").Error; err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func commitPatchLocked(conn *gorm.DB, patch otp.Patch, resulting otp.Snapshot) error {
	var current snapshotRow
	err := conn.First(&current, "object_id = ?", string(patch.ObjectID)).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if patch.RevID != otp.ZeroRevID {
			return ErrConflict
		}
	case err != nil:
		return fmt.Errorf("load current snapshot: %w", err)
	default:
		if patch.RevID != otp.RevId(current.RevID)+1 {
			return ErrConflict
		}
	}

	opBytes, err := otp.MarshalOperation(patch.Op.Operation)
	if err != nil {
		return fmt.Errorf("marshal operation: %w", err)
	}

	if err := conn.Create(&patchRow{
		ObjectID:  string(patch.ObjectID),
		RevID:     int64(patch.RevID),
		AuthorID:  string(patch.AuthorID),
		Op:        opBytes,
		CreatedAt: time.Now(),
	}).Error; err != nil {
		return fmt.Errorf("insert patch: %w", err)
	}

	contentBytes, err := json.Marshal(resulting.Content)
	if err != nil {
		return fmt.Errorf("marshal snapshot content: %w", err)
	}

	if err := conn.Save(&snapshotRow{
		ObjectID: string(resulting.ObjectID),
		RevID:    int64(resulting.RevID),
		Content:  contentBytes,
	}).Error; err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}

	return nil
}
