package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"digikala/crawler/internal/domain"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS urls (
	id BIGSERIAL PRIMARY KEY,
	url TEXT UNIQUE NOT NULL,
	pid BIGINT
)`

type postgresRepository struct {
	db *pgxpool.Pool
	mu sync.Mutex
}

// OpenPostgres connects to dsn and ensures the urls table exists.
func OpenPostgres(ctx context.Context, dsn string) (ImageRepository, error) {
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %w", ErrDatabase, err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping: %w", ErrDatabase, err)
	}

	if _, err := db.Exec(ctx, postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: create urls table: %w", ErrDatabase, err)
	}

	return &postgresRepository{db: db}, nil
}

func (r *postgresRepository) Insert(ctx context.Context, url string, productID domain.ProductID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
	INSERT INTO urls (url, pid)
	VALUES ($1, $2)
	ON CONFLICT (url) DO NOTHING`
	if _, err := r.db.Exec(ctx, query, url, int64(productID)); err != nil {
		return fmt.Errorf("%w: insert %s: %w", ErrDatabase, url, err)
	}
	return nil
}

func (r *postgresRepository) ListAll(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, "SELECT url FROM urls ORDER BY id")
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

func (r *postgresRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM urls").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count urls: %w", ErrDatabase, err)
	}
	return n, nil
}

func (r *postgresRepository) Close() error {
	r.db.Close()
	return nil
}
