package service

import (
	"sync/atomic"
	"time"

	"digikala/crawler/internal/domain"
)

// stats aggregates per-run counters across all stage goroutines.
type stats struct {
	categoryFailures atomic.Int64
	pageFailures     atomic.Int64
	products         atomic.Int64
	productFailures  atomic.Int64
	images           atomic.Int64
	storeFailures    atomic.Int64
	downloaded       atomic.Int64
	downloadFailures atomic.Int64
}

func (s *stats) summary(categories int, elapsed time.Duration) *domain.Summary {
	return &domain.Summary{
		Categories:       categories,
		CategoryFailures: int(s.categoryFailures.Load()),
		PageFailures:     int(s.pageFailures.Load()),
		Products:         int(s.products.Load()),
		ProductFailures:  int(s.productFailures.Load()),
		Images:           int(s.images.Load()),
		StoreFailures:    int(s.storeFailures.Load()),
		Downloaded:       int(s.downloaded.Load()),
		DownloadFailures: int(s.downloadFailures.Load()),
		Elapsed:          elapsed,
	}
}
