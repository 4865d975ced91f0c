package service

import (
	"context"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"digikala/crawler/internal/client"
	"digikala/crawler/internal/domain"
	"digikala/crawler/internal/limiter"
	"digikala/crawler/internal/metrics"
	"digikala/crawler/internal/state"
)

// Traversal owns the visited set of one category discovery. Explorers
// started from the same Traversal never expand a category twice.
type Traversal struct {
	visited state.VisitedSet
	catalog client.CatalogClient
	permits *limiter.Permits
	metrics *metrics.Metrics
	stats   *stats

	mutex   sync.Mutex
	claimed []domain.Category
}

// NewTraversal starts a traversal over visited, which may already hold
// categories that must not be expanded.
func (s *Service) NewTraversal(visited state.VisitedSet) *Traversal {
	return &Traversal{
		visited: visited,
		catalog: s.catalog,
		permits: s.permits,
		metrics: s.metrics,
		stats:   s.stats,
	}
}

// Explore runs one breadth-first explorer per seed, all sharing the
// traversal's visited set, and returns every category claimed by this
// traversal so far.
func (t *Traversal) Explore(ctx context.Context, seeds []domain.Category) []domain.Category {
	g := new(errgroup.Group)
	for _, seed := range seeds {
		g.Go(func() error {
			t.exploreFrom(ctx, seed)
			return nil
		})
	}
	_ = g.Wait()

	return t.Categories()
}

// Categories returns the claimed categories in lexical order.
func (t *Traversal) Categories() []domain.Category {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	categories := make([]domain.Category, len(t.claimed))
	copy(categories, t.claimed)
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })
	return categories
}

func (t *Traversal) exploreFrom(ctx context.Context, seed domain.Category) {
	queue := []domain.Category{seed}

	for len(queue) > 0 {
		if ctx.Err() != nil {
			return
		}

		category := queue[0]
		queue = queue[1:]

		if !t.claim(ctx, category) {
			continue
		}

		result := t.expand(ctx, category)
		for _, child := range result.Children {
			seen, err := t.visited.Contains(ctx, child)
			if err == nil && seen {
				continue
			}
			queue = append(queue, child)
		}
	}
}

// claim marks category visited. It reports false when another explorer got
// there first or the visited set is unavailable.
func (t *Traversal) claim(ctx context.Context, category domain.Category) bool {
	added, err := t.visited.Add(ctx, category)
	if err != nil {
		log.WithField("category", category).Errorf("❌ Failed to mark category visited: %v", err)
		t.stats.categoryFailures.Add(1)
		return false
	}
	if !added {
		return false
	}

	t.mutex.Lock()
	t.claimed = append(t.claimed, category)
	t.mutex.Unlock()

	t.metrics.CategoryClaimed()
	return true
}

// expand fetches the direct children of category. A failure yields no
// children and is logged here.
func (t *Traversal) expand(ctx context.Context, category domain.Category) domain.CategoryResult {
	result := domain.CategoryResult{Category: category}

	result.Err = t.permits.Do(ctx, func(ctx context.Context) error {
		t.metrics.SetPermitsInFlight(t.permits.InFlight())
		children, err := t.catalog.GetSubCategories(ctx, category)
		result.Children = children
		return err
	})
	t.metrics.CategoryFetched(result.Err)

	if result.Err != nil {
		log.WithField("category", category).Errorf("❌ Failed to expand category: %v", result.Err)
		t.stats.categoryFailures.Add(1)
		result.Children = nil
		return result
	}

	log.WithField("category", category).Infof("📂 Found %d sub-categories", len(result.Children))
	return result
}
