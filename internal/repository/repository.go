package repository

import (
	"context"
	"errors"

	"digikala/crawler/internal/domain"
)

var ErrDatabase = errors.New("database error")

// ImageRepository is the append-only store of discovered image URLs.
// Insert is idempotent on url.
type ImageRepository interface {
	Insert(ctx context.Context, url string, productID domain.ProductID) error
	ListAll(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int, error)
	Close() error
}
