package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"digikala/crawler/internal/client"
	"digikala/crawler/internal/config"
	"digikala/crawler/internal/domain"
	"digikala/crawler/internal/limiter"
	"digikala/crawler/internal/metrics"
	"digikala/crawler/internal/state"
)

func init() {
	log.SetOutput(io.Discard)
}

var errBoom = errors.New("boom")

type pageCall struct {
	Category   domain.Category
	PageNumber int
}

// fakeCatalog serves an in-memory category graph.
type fakeCatalog struct {
	children     map[domain.Category][]domain.Category
	pages        map[domain.Category][][]domain.ProductID
	totalPages   map[domain.Category]int
	images       map[domain.ProductID][]string
	failCategory map[domain.Category]bool
	failPage     map[pageCall]bool
	failProduct  map[domain.ProductID]bool
	latency      time.Duration

	mu          sync.Mutex
	expandCalls map[domain.Category]int
	pageCalls   []pageCall
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		children:     map[domain.Category][]domain.Category{},
		pages:        map[domain.Category][][]domain.ProductID{},
		totalPages:   map[domain.Category]int{},
		images:       map[domain.ProductID][]string{},
		failCategory: map[domain.Category]bool{},
		failPage:     map[pageCall]bool{},
		failProduct:  map[domain.ProductID]bool{},
		expandCalls:  map[domain.Category]int{},
	}
}

func (f *fakeCatalog) wait(ctx context.Context) error {
	if f.latency == 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(f.latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeCatalog) GetSubCategories(ctx context.Context, category domain.Category) ([]domain.Category, error) {
	f.mu.Lock()
	f.expandCalls[category]++
	f.mu.Unlock()

	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.failCategory[category] {
		return nil, errBoom
	}
	return f.children[category], nil
}

func (f *fakeCatalog) GetProductPage(ctx context.Context, category domain.Category, pageNumber int) (*client.ProductPage, error) {
	call := pageCall{Category: category, PageNumber: pageNumber}
	f.mu.Lock()
	f.pageCalls = append(f.pageCalls, call)
	f.mu.Unlock()

	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.failPage[call] {
		return nil, errBoom
	}

	page := &client.ProductPage{PageNumber: pageNumber, TotalPages: f.totalPages[category]}
	if pages := f.pages[category]; pageNumber <= len(pages) {
		page.Products = pages[pageNumber-1]
	}
	return page, nil
}

func (f *fakeCatalog) GetProductImages(ctx context.Context, productID domain.ProductID) ([]string, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.failProduct[productID] {
		return nil, errBoom
	}
	return f.images[productID], nil
}

func (f *fakeCatalog) FetchImage(ctx context.Context, url string) ([]byte, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return []byte(url), nil
}

func (f *fakeCatalog) pagesOf(category domain.Category) []int {
	f.mu.Lock()
	defer f.mu.Unlock()

	var pages []int
	for _, call := range f.pageCalls {
		if call.Category == category {
			pages = append(pages, call.PageNumber)
		}
	}
	return pages
}

// fakeRepository records inserts in memory.
type fakeRepository struct {
	mu      sync.Mutex
	records map[string]domain.ProductID
	order   []string
	err     error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{records: map[string]domain.ProductID{}}
}

func (r *fakeRepository) Insert(_ context.Context, url string, productID domain.ProductID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if _, ok := r.records[url]; !ok {
		r.records[url] = productID
		r.order = append(r.order, url)
	}
	return nil
}

func (r *fakeRepository) ListAll(context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...), nil
}

func (r *fakeRepository) Count(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order), nil
}

func (r *fakeRepository) Close() error { return nil }

// fakeDownloader fetches through the permit pool like the real one.
type fakeDownloader struct {
	catalog *fakeCatalog
	permits *limiter.Permits
	fail    map[string]bool

	mu   sync.Mutex
	urls []string
}

func (d *fakeDownloader) Download(ctx context.Context, url string) domain.DownloadResult {
	result := domain.DownloadResult{URL: url}
	if d.fail[url] {
		result.Err = errBoom
		return result
	}
	result.Err = d.permits.Do(ctx, func(ctx context.Context) error {
		_, err := d.catalog.FetchImage(ctx, url)
		return err
	})
	if result.Err == nil {
		d.mu.Lock()
		d.urls = append(d.urls, url)
		d.mu.Unlock()
		result.Key = "image_" + url
	}
	return result
}

func (d *fakeDownloader) downloaded() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.urls...)
}

type fixture struct {
	service    *Service
	catalog    *fakeCatalog
	repository *fakeRepository
	downloader *fakeDownloader
	permits    *limiter.Permits
	visited    state.VisitedSet
}

func newFixture(catalog *fakeCatalog, cfg config.CrawlerConfig, m *metrics.Metrics) *fixture {
	if cfg.MaxConcurrency == 0 {
		cfg.MaxConcurrency = 10
	}
	if cfg.Mode == "" {
		cfg.Mode = config.ModeFanout
	}

	permits := limiter.NewPermits(cfg.MaxConcurrency)
	repo := newFakeRepository()
	downloader := &fakeDownloader{catalog: catalog, permits: permits, fail: map[string]bool{}}
	visited := state.NewMemoryVisitedSet()

	return &fixture{
		service:    NewService(catalog, repo, downloader, visited, permits, m, cfg),
		catalog:    catalog,
		repository: repo,
		downloader: downloader,
		permits:    permits,
		visited:    visited,
	}
}
