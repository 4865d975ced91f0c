package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"digikala/crawler/internal/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS urls (
	id INTEGER PRIMARY KEY,
	url TEXT UNIQUE,
	pid INTEGER
)`

type sqlRepository struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenSQLite opens (creating if needed) the database file at path and
// ensures the urls table exists.
func OpenSQLite(ctx context.Context, path string) (ImageRepository, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("%w: create directory %s: %w", ErrDatabase, dir, err)
		}
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrDatabase, path, err)
	}

	// One writer; the mutex below serializes inserts on top of this.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: create urls table: %w", ErrDatabase, err)
	}

	return NewSQLRepository(db), nil
}

// NewSQLRepository wraps an already migrated database handle.
func NewSQLRepository(db *sql.DB) ImageRepository {
	return &sqlRepository{db: db}
}

func (r *sqlRepository) Insert(ctx context.Context, url string, productID domain.ProductID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, "INSERT OR IGNORE INTO urls (url, pid) VALUES (?, ?)", url, int64(productID))
	if err != nil {
		return fmt.Errorf("%w: insert %s: %w", ErrDatabase, url, err)
	}
	return nil
}

func (r *sqlRepository) ListAll(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT url FROM urls ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("%w: list urls: %w", ErrDatabase, err)
	}
	defer rows.Close()

	urls := make([]string, 0)
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("%w: scan url: %w", ErrDatabase, err)
		}
		urls = append(urls, url)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list urls: %w", ErrDatabase, err)
	}
	return urls, nil
}

func (r *sqlRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM urls").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count urls: %w", ErrDatabase, err)
	}
	return n, nil
}

func (r *sqlRepository) Close() error {
	return r.db.Close()
}
