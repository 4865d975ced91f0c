package service

import (
	"context"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"digikala/crawler/internal/domain"
	"digikala/crawler/internal/queue"
)

// crawlPipeline runs one producer per category feeding a bounded queue and
// a fixed pool of workers that resolve and download products. Workers exit
// once the last producer is done and the queue is drained.
func (s *Service) crawlPipeline(ctx context.Context, categories []domain.Category) {
	productQueue := queue.NewProductQueue(s.cfg.QueueSize)

	producers := new(errgroup.Group)
	for _, category := range categories {
		producer := productQueue.AddProducer()
		producers.Go(func() error {
			defer producer.Done()
			s.walkPages(ctx, category, s.cfg.MaxPages, func(page domain.PageResult) error {
				for _, productID := range page.Products {
					if err := producer.Push(ctx, productID); err != nil {
						return err
					}
				}
				return nil
			})
			return nil
		})
	}
	productQueue.Seal()

	workers := new(errgroup.Group)
	for i := 1; i <= s.cfg.Workers; i++ {
		workers.Go(func() error {
			log.Debugf("🚀 Starting worker %d", i)
			processed := 0
			for productID := range productQueue.Items() {
				s.processProduct(ctx, productID)
				processed++
			}
			log.Debugf("🛑 Worker %d stopping after %d products", i, processed)
			return nil
		})
	}

	_ = producers.Wait()
	_ = workers.Wait()
}
