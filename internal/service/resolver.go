package service

import (
	"context"

	log "github.com/sirupsen/logrus"

	"digikala/crawler/internal/domain"
)

// Resolve returns the image URLs of one product, main image first, and
// records each of them in the repository. Any failure yields no URLs.
func (s *Service) Resolve(ctx context.Context, productID domain.ProductID) []string {
	result := s.resolve(ctx, productID)
	s.metrics.ProductResolved(len(result.URLs), result.Err)

	logger := log.WithField("product_id", productID)
	if result.Err != nil {
		logger.Errorf("❌ Failed to resolve product images: %v", result.Err)
		s.stats.productFailures.Add(1)
		return nil
	}
	if len(result.URLs) == 0 {
		logger.Info("🖼️ No images found")
		return nil
	}

	s.stats.images.Add(int64(len(result.URLs)))
	for _, url := range result.URLs {
		s.record(ctx, url, productID)
	}

	logger.Debugf("Resolved %d images", len(result.URLs))
	return result.URLs
}

func (s *Service) resolve(ctx context.Context, productID domain.ProductID) domain.ProductResult {
	result := domain.ProductResult{ProductID: productID}
	result.Err = s.withPermit(ctx, func(ctx context.Context) error {
		urls, err := s.catalog.GetProductImages(ctx, productID)
		result.URLs = urls
		return err
	})
	if result.Err != nil {
		result.URLs = nil
	}
	return result
}

// record stores one image record. A failed insert is logged and the image
// is still downloaded.
func (s *Service) record(ctx context.Context, url string, productID domain.ProductID) {
	err := s.repository.Insert(ctx, url, productID)
	s.metrics.RecordInserted(err)
	if err != nil {
		log.WithFields(log.Fields{
			"product_id": productID,
			"url":        url,
		}).Errorf("❌ Failed to record image: %v", err)
		s.stats.storeFailures.Add(1)
	}
}
