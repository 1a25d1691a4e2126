// Package history keeps a local log of finished sync runs in BoltDB.
// Records are append-only and keyed by start time, so `tunno-client
// history` can show the most recent runs first.
package history

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var bucketRuns = []byte("runs")

// Record describes one finished sync run.
type Record struct {
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Phase       string    `json:"phase"` // completed, failed or idle (cancelled)
	SyncedItems int       `json:"synced_items"`
	TotalItems  int       `json:"total_items"`
	Errors      []string  `json:"errors,omitempty"`
}

// Store is a BoltDB-backed run history store.
type Store struct {
	db *bbolt.DB
}

// New opens the history database, creating the bucket if needed.
func New(ctx context.Context, dbPath string) (*Store, error) {
	db, err := bbolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketRuns); err != nil {
			return fmt.Errorf("failed to create runs bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append сохраняет запись о завершённом запуске. Ключ — наносекунды
// StartedAt в big-endian, чтобы курсор БД обходил записи хронологически.
func (s *Store) Append(ctx context.Context, record Record) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRuns)
		if bucket == nil {
			return fmt.Errorf("runs bucket not found")
		}

		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, uint64(record.StartedAt.UnixNano()))

		value, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal run record: %w", err)
		}

		if err := bucket.Put(key, value); err != nil {
			return fmt.Errorf("failed to save run record: %w", err)
		}

		return nil
	})
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	var records []Record

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRuns)
		if bucket == nil {
			return fmt.Errorf("runs bucket not found")
		}

		cursor := bucket.Cursor()
		for k, v := cursor.Last(); k != nil && len(records) < limit; k, v = cursor.Prev() {
			var record Record
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("failed to unmarshal run record: %w", err)
			}
			records = append(records, record)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}
