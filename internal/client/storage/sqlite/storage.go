package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/tunno/tunno/internal/sqlitedb"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Storage is the on-device library database the sync engine writes into.
type Storage struct {
	db *sql.DB
}

// New opens (or creates) the local library database and runs migrations.
// Use ":memory:" for an in-memory database, useful for testing.
func New(ctx context.Context, dbPath string) (*Storage, error) {
	db, err := sqlitedb.Open(ctx, dbPath, embedMigrations)
	if err != nil {
		return nil, fmt.Errorf("failed to open local library: %w", err)
	}
	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for testing purposes.
func (s *Storage) DB() *sql.DB {
	return s.db
}
