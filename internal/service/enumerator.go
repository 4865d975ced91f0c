package service

import (
	"context"

	log "github.com/sirupsen/logrus"

	"digikala/crawler/internal/domain"
)

// Enumerate collects the product IDs of category from pages 1..maxPages.
// A failing page stops the walk; whatever was gathered before it is
// returned.
func (s *Service) Enumerate(ctx context.Context, category domain.Category, maxPages int) []domain.ProductID {
	var products []domain.ProductID
	s.walkPages(ctx, category, maxPages, func(page domain.PageResult) error {
		products = append(products, page.Products...)
		return nil
	})
	return products
}

// walkPages fetches listing pages in increasing order and hands each
// successful page to emit. Every page up to maxPages is requested; the walk
// ends early only on a page failure or when emit returns an error.
func (s *Service) walkPages(ctx context.Context, category domain.Category, maxPages int, emit func(domain.PageResult) error) {
	if maxPages < 1 {
		maxPages = 1
	}

	total := 0
	for pageNumber := 1; pageNumber <= maxPages; pageNumber++ {
		page := s.fetchPage(ctx, category, pageNumber)
		if page.Err != nil {
			log.WithFields(log.Fields{
				"category": category,
				"page":     pageNumber,
			}).Errorf("❌ Failed to fetch page, keeping %d products: %v", total, page.Err)
			return
		}

		total += len(page.Products)
		if err := emit(page); err != nil {
			return
		}
	}

	log.WithField("category", category).Infof("📦 Enumerated %d products", total)
}

func (s *Service) fetchPage(ctx context.Context, category domain.Category, pageNumber int) domain.PageResult {
	result := domain.PageResult{Category: category, PageNumber: pageNumber}

	result.Err = s.withPermit(ctx, func(ctx context.Context) error {
		page, err := s.catalog.GetProductPage(ctx, category, pageNumber)
		if err != nil {
			return err
		}
		result.Products = page.Products
		return nil
	})
	s.metrics.PageFetched(len(result.Products), result.Err)

	if result.Err != nil {
		s.stats.pageFailures.Add(1)
		return result
	}
	s.stats.products.Add(int64(len(result.Products)))
	return result
}
