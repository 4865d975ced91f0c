// Package limiter bounds the number of in-flight network operations.
package limiter

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Permits is a fixed-size pool shared by every stage of a crawl. A permit
// is held for the duration of one network operation only.
type Permits struct {
	sem      *semaphore.Weighted
	size     int64
	inFlight atomic.Int64
	peak     atomic.Int64
}

func NewPermits(size int) *Permits {
	if size < 1 {
		size = 1
	}
	return &Permits{
		sem:  semaphore.NewWeighted(int64(size)),
		size: int64(size),
	}
}

// Acquire blocks until a permit is free or ctx is done.
func (p *Permits) Acquire(ctx context.Context) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	n := p.inFlight.Add(1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	return nil
}

func (p *Permits) Release() {
	p.inFlight.Add(-1)
	p.sem.Release(1)
}

// Do runs fn while holding one permit.
func (p *Permits) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := p.Acquire(ctx); err != nil {
		return err
	}
	defer p.Release()
	return fn(ctx)
}

func (p *Permits) Size() int {
	return int(p.size)
}

// InFlight is the number of permits currently held.
func (p *Permits) InFlight() int {
	return int(p.inFlight.Load())
}

// Peak is the highest InFlight value observed.
func (p *Permits) Peak() int {
	return int(p.peak.Load())
}
