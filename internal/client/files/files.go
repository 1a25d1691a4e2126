// Package files stores downloaded media on the local filesystem. Files
// live in flat buckets (songs, thumbnails) under the client data
// directory and are addressed by generated filename only.
package files

import (
	"fmt"
	"os"
	"path/filepath"
)

// Bucket is a logical storage bucket.
type Bucket string

const (
	BucketSongs      Bucket = "songs"
	BucketThumbnails Bucket = "thumbnails"
)

// Storage управляет файлами внутри каталога данных клиента.
type Storage struct {
	root string
}

// New creates the bucket directories under root if needed.
func New(root string) (*Storage, error) {
	for _, bucket := range []Bucket{BucketSongs, BucketThumbnails} {
		dir := filepath.Join(root, string(bucket))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", bucket, err)
		}
	}

	return &Storage{root: root}, nil
}

// Path returns the absolute path of a file within a bucket.
func (s *Storage) Path(bucket Bucket, name string) string {
	return filepath.Join(s.root, string(bucket), name)
}

// Save writes content to a named file within a bucket.
func (s *Storage) Save(bucket Bucket, name string, content []byte) error {
	if err := os.WriteFile(s.Path(bucket, name), content, 0o644); err != nil {
		return fmt.Errorf("failed to save file %s: %w", name, err)
	}
	return nil
}

// Read reads a named file from a bucket.
func (s *Storage) Read(bucket Bucket, name string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(bucket, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", name, err)
	}
	return data, nil
}

// Delete removes a named file from a bucket. Deleting a file that does not
// exist is not an error.
func (s *Storage) Delete(bucket Bucket, name string) error {
	err := os.Remove(s.Path(bucket, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file %s: %w", name, err)
	}
	return nil
}

// FreeSpace returns the number of bytes available on the filesystem that
// holds the data directory. Used for the pre-transfer storage check.
func (s *Storage) FreeSpace() (uint64, error) {
	return freeSpace(s.root)
}
