// Package queue decouples product enumeration from image resolution.
package queue

import (
	"context"
	"sync"

	"digikala/crawler/internal/domain"
)

// ProductQueue is a bounded queue of product IDs with explicit completion.
// Every producer is registered with AddProducer before Seal is called; the
// channel returned by Items closes once all producers are done.
type ProductQueue struct {
	items     chan domain.ProductID
	producers sync.WaitGroup
	sealOnce  sync.Once
}

func NewProductQueue(size int) *ProductQueue {
	if size < 1 {
		size = 1
	}
	return &ProductQueue{items: make(chan domain.ProductID, size)}
}

// Producer pushes IDs into the queue. Done must be called exactly once;
// extra calls are ignored.
type Producer struct {
	q    *ProductQueue
	once sync.Once
}

func (q *ProductQueue) AddProducer() *Producer {
	q.producers.Add(1)
	return &Producer{q: q}
}

// Seal starts waiting for registered producers and closes the channel when
// they are all done. No producers may be added afterwards.
func (q *ProductQueue) Seal() {
	q.sealOnce.Do(func() {
		go func() {
			q.producers.Wait()
			close(q.items)
		}()
	})
}

// Items is the consumer side. Range over it; the loop ends when the queue
// is drained and every producer is done.
func (q *ProductQueue) Items() <-chan domain.ProductID {
	return q.items
}

// Push blocks while the queue is full.
func (p *Producer) Push(ctx context.Context, id domain.ProductID) error {
	select {
	case p.q.items <- id:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Producer) Done() {
	p.once.Do(p.q.producers.Done)
}
