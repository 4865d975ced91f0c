// Package service runs a crawl: category discovery, product enumeration,
// image resolution and download.
package service

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"digikala/crawler/internal/client"
	"digikala/crawler/internal/config"
	"digikala/crawler/internal/domain"
	"digikala/crawler/internal/limiter"
	"digikala/crawler/internal/metrics"
	"digikala/crawler/internal/repository"
	"digikala/crawler/internal/state"
)

// ImageDownloader stores the image behind a URL.
type ImageDownloader interface {
	Download(ctx context.Context, url string) domain.DownloadResult
}

type Service struct {
	catalog    client.CatalogClient
	repository repository.ImageRepository
	downloader ImageDownloader
	visited    state.VisitedSet
	permits    *limiter.Permits
	metrics    *metrics.Metrics
	cfg        config.CrawlerConfig

	stats *stats
}

func NewService(
	catalog client.CatalogClient,
	repository repository.ImageRepository,
	downloader ImageDownloader,
	visited state.VisitedSet,
	permits *limiter.Permits,
	m *metrics.Metrics,
	cfg config.CrawlerConfig,
) *Service {
	if cfg.MaxPages < 1 {
		cfg.MaxPages = 1
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Service{
		catalog:    catalog,
		repository: repository,
		downloader: downloader,
		visited:    visited,
		permits:    permits,
		metrics:    m,
		cfg:        cfg,
		stats:      &stats{},
	}
}

// Run crawls every configured seed to completion, or until ctx is done.
// The summary is returned in both cases.
func (s *Service) Run(ctx context.Context) (*domain.Summary, error) {
	start := time.Now()
	s.stats = &stats{}

	if err := s.visited.Reset(ctx); err != nil {
		return nil, fmt.Errorf("failed to reset visited categories: %w", err)
	}

	log.Infof("🚀 Starting %s crawl from %v (max %d pages, %d permits)",
		s.cfg.Mode, s.cfg.Seeds, s.cfg.MaxPages, s.permits.Size())

	traversal := s.NewTraversal(s.visited)

	// Seeds are claimed and expanded up front; each direct child then gets
	// its own explorer.
	var frontier []domain.Category
	for _, seed := range s.cfg.Seeds {
		category := domain.Category(seed)
		if !traversal.claim(ctx, category) {
			continue
		}
		result := traversal.expand(ctx, category)
		frontier = append(frontier, result.Children...)
	}

	categories := traversal.Explore(ctx, frontier)
	log.Infof("🔎 Discovered %d categories", len(categories))

	switch s.cfg.Mode {
	case config.ModePipeline:
		s.crawlPipeline(ctx, categories)
	default:
		s.crawlFanout(ctx, categories)
	}

	summary := s.stats.summary(len(categories), time.Since(start))
	logSummary(summary)

	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("crawl interrupted: %w", err)
	}
	return summary, nil
}

// crawlFanout runs one task per category and one per product. The permit
// pool is the only bound on network concurrency.
func (s *Service) crawlFanout(ctx context.Context, categories []domain.Category) {
	g := new(errgroup.Group)

	for _, category := range categories {
		g.Go(func() error {
			products := s.Enumerate(ctx, category, s.cfg.MaxPages)

			pg := new(errgroup.Group)
			for _, productID := range products {
				pg.Go(func() error {
					s.processProduct(ctx, productID)
					return nil
				})
			}
			return pg.Wait()
		})
	}

	_ = g.Wait()
}

// processProduct resolves one product and downloads all of its images.
func (s *Service) processProduct(ctx context.Context, productID domain.ProductID) {
	urls := s.Resolve(ctx, productID)
	if len(urls) == 0 {
		return
	}

	g := new(errgroup.Group)
	for _, url := range urls {
		g.Go(func() error {
			result := s.downloader.Download(ctx, url)
			if result.OK() {
				s.stats.downloaded.Add(1)
			} else {
				s.stats.downloadFailures.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// withPermit runs one network operation under the shared permit pool.
func (s *Service) withPermit(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.permits.Do(ctx, func(ctx context.Context) error {
		s.metrics.SetPermitsInFlight(s.permits.InFlight())
		return fn(ctx)
	})
}

func logSummary(summary *domain.Summary) {
	log.WithFields(log.Fields{
		"category_failures": summary.CategoryFailures,
		"page_failures":     summary.PageFailures,
		"product_failures":  summary.ProductFailures,
		"store_failures":    summary.StoreFailures,
		"download_failures": summary.DownloadFailures,
	}).Infof("✅ Crawl finished in %s: %d categories, %d products, %d images, %d downloaded",
		summary.Elapsed.Round(time.Millisecond),
		summary.Categories,
		summary.Products,
		summary.Images,
		summary.Downloaded,
	)
}
