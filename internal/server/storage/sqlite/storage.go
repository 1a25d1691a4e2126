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

// Storage is the SQLite-backed desktop library.
type Storage struct {
	db *sql.DB
}

// New opens the library database at dbPath, applying pending migrations.
// Use ":memory:" for tests.
func New(ctx context.Context, dbPath string) (*Storage, error) {
	db, err := sqlitedb.Open(ctx, dbPath, embedMigrations)
	if err != nil {
		return nil, fmt.Errorf("failed to open library database: %w", err)
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
