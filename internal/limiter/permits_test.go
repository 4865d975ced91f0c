package limiter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermits_NeverExceedsSize(t *testing.T) {
	p := NewPermits(3)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := p.Do(context.Background(), func(context.Context) error {
				assert.LessOrEqual(t, p.InFlight(), 3)
				time.Sleep(time.Millisecond)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, p.Size())
	assert.LessOrEqual(t, p.Peak(), 3)
	assert.GreaterOrEqual(t, p.Peak(), 1)
	assert.Zero(t, p.InFlight())
}

func TestPermits_AcquireHonorsContext(t *testing.T) {
	p := NewPermits(1)
	require.NoError(t, p.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	p.Release()
	require.NoError(t, p.Acquire(context.Background()))
	p.Release()
}

func TestPermits_DoReleasesOnError(t *testing.T) {
	p := NewPermits(1)
	errBoom := errors.New("boom")

	assert.ErrorIs(t, p.Do(context.Background(), func(context.Context) error { return errBoom }), errBoom)
	assert.Zero(t, p.InFlight())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, p.Do(ctx, func(context.Context) error { return nil }))
}

func TestNewPermits_MinimumOne(t *testing.T) {
	assert.Equal(t, 1, NewPermits(0).Size())
}
