package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob"
	"gocloud.dev/blob/memblob"

	"digikala/crawler/internal/client"
	"digikala/crawler/internal/config"
	"digikala/crawler/internal/domain"
	"digikala/crawler/internal/downloader"
	"digikala/crawler/internal/limiter"
	"digikala/crawler/internal/metrics"
	"digikala/crawler/internal/repository"
	"digikala/crawler/internal/state"
)

// smallCatalog is root -> {a, b}, two products per child, one image each.
func smallCatalog() *fakeCatalog {
	catalog := newFakeCatalog()
	catalog.children["root"] = categories("a", "b")
	catalog.pages["a"] = [][]domain.ProductID{products(1, 2)}
	catalog.pages["b"] = [][]domain.ProductID{products(3, 4)}
	for id := int64(1); id <= 4; id++ {
		catalog.images[domain.ProductID(id)] = []string{fmt.Sprintf("https://cdn/%d.jpg", id)}
	}
	return catalog
}

func TestRun_Modes(t *testing.T) {
	for _, mode := range []string{config.ModeFanout, config.ModePipeline} {
		t.Run(mode, func(t *testing.T) {
			reg := prometheus.NewRegistry()
			m := metrics.NewMetrics(reg)
			f := newFixture(smallCatalog(), config.CrawlerConfig{
				Seeds:     []string{"root"},
				MaxPages:  1,
				Mode:      mode,
				Workers:   2,
				QueueSize: 1,
			}, m)

			summary, err := f.service.Run(context.Background())
			require.NoError(t, err)

			assert.Equal(t, 3, summary.Categories)
			assert.Equal(t, 4, summary.Products)
			assert.Equal(t, 4, summary.Images)
			assert.Equal(t, 4, summary.Downloaded)
			assert.Zero(t, summary.DownloadFailures)
			assert.ElementsMatch(t, []string{
				"https://cdn/1.jpg", "https://cdn/2.jpg", "https://cdn/3.jpg", "https://cdn/4.jpg",
			}, f.downloader.downloaded())
			assert.Len(t, f.repository.records, 4)

			assert.InDelta(t, 3, testutil.ToFloat64(m.CategoriesDiscovered), 0)
			assert.InDelta(t, 4, testutil.ToFloat64(m.ProductsEnumerated), 0)
			assert.InDelta(t, 4, testutil.ToFloat64(m.ImagesResolved), 0)
		})
	}
}

func TestRun_ResetsVisitedBetweenRuns(t *testing.T) {
	f := newFixture(smallCatalog(), config.CrawlerConfig{Seeds: []string{"root"}}, nil)

	first, err := f.service.Run(context.Background())
	require.NoError(t, err)
	second, err := f.service.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Categories, second.Categories)
	assert.Equal(t, 2, f.catalog.expandCalls["root"])
}

func TestRun_LeafFailuresDoNotAbort(t *testing.T) {
	catalog := smallCatalog()
	catalog.failCategory["a"] = true
	catalog.failProduct[3] = true

	f := newFixture(catalog, config.CrawlerConfig{Seeds: []string{"root"}}, nil)
	f.downloader.fail["https://cdn/2.jpg"] = true

	summary, err := f.service.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Categories)
	assert.Equal(t, 1, summary.CategoryFailures)
	assert.Equal(t, 4, summary.Products)
	assert.Equal(t, 1, summary.ProductFailures)
	assert.Equal(t, 3, summary.Images)
	assert.Equal(t, 2, summary.Downloaded)
	assert.Equal(t, 1, summary.DownloadFailures)
}

func TestRun_PermitCapAcrossStages(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.latency = 2 * time.Millisecond
	catalog.children["root"] = categories("a", "b", "c")
	for _, c := range categories("a", "b", "c") {
		catalog.pages[c] = [][]domain.ProductID{products(1, 2, 3, 4, 5, 6), products(7, 8)}
	}
	for id := int64(1); id <= 8; id++ {
		catalog.images[domain.ProductID(id)] = []string{
			fmt.Sprintf("https://cdn/%d-main.jpg", id),
			fmt.Sprintf("https://cdn/%d-list.jpg", id),
		}
	}

	for _, mode := range []string{config.ModeFanout, config.ModePipeline} {
		t.Run(mode, func(t *testing.T) {
			f := newFixture(catalog, config.CrawlerConfig{
				Seeds:          []string{"root"},
				MaxPages:       2,
				MaxConcurrency: 3,
				Mode:           mode,
				Workers:        5,
				QueueSize:      4,
			}, nil)

			summary, err := f.service.Run(context.Background())
			require.NoError(t, err)

			assert.Equal(t, 24, summary.Products)
			assert.Equal(t, 48, summary.Downloaded)
			assert.LessOrEqual(t, f.permits.Peak(), 3)
			assert.Positive(t, f.permits.Peak())
			assert.Zero(t, f.permits.InFlight())
		})
	}
}

func TestRun_Cancelled(t *testing.T) {
	f := newFixture(smallCatalog(), config.CrawlerConfig{Seeds: []string{"root"}}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := f.service.Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	require.NotNil(t, summary)
	assert.Zero(t, summary.Downloaded)
}

// newCatalogServer mocks the catalog API: root has sub-categories a and b,
// each with one page of two products, each product with one image.
func newCatalogServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	listings := map[string]string{
		"root": `{"data":{"sub_categories_best_selling":[
			{"url":{"uri":"/search/category-a/"}},
			{"url":{"uri":"/search/category-b/"}}
		],"products":[]}}`,
		"a": `{"data":{"products":[{"id":1},{"id":2}],"pager":{"current_page":1,"total_pages":1}}}`,
		"b": `{"data":{"products":[{"id":3},{"id":4}],"pager":{"current_page":1,"total_pages":1}}}`,
	}

	mux.HandleFunc("/v1/categories/", func(w http.ResponseWriter, r *http.Request) {
		slug := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/categories/"), "/search/")
		body, ok := listings[slug]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, body)
	})
	mux.HandleFunc("/v2/product/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v2/product/"), "/")
		_, _ = fmt.Fprintf(w, `{"data":{"product":{"id":%s,"images":{"main":{"url":["%s/img/%s.jpg"]},"list":[]}}}}`,
			id, server.URL, id)
	})
	mux.HandleFunc("/img/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = io.WriteString(w, "jpeg:"+r.URL.Path)
	})

	return server
}

func countObjects(t *testing.T, bucket *blob.Bucket) int {
	t.Helper()
	n := 0
	iter := bucket.List(nil)
	for {
		_, err := iter.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return n
		}
		require.NoError(t, err)
		n++
	}
}

func TestRun_EndToEnd(t *testing.T) {
	for _, mode := range []string{config.ModeFanout, config.ModePipeline} {
		t.Run(mode, func(t *testing.T) {
			ctx := context.Background()
			server := newCatalogServer(t)

			policy := client.RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
			httpClient := client.NewHTTPClient(config.HTTPConfig{Timeout: 5 * time.Second}, policy, nil)
			t.Cleanup(func() { _ = httpClient.Close() })
			catalog := client.NewCatalogClient(server.URL, httpClient)

			repo, err := repository.OpenSQLite(ctx, filepath.Join(t.TempDir(), "images.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = repo.Close() })

			bucket := memblob.OpenBucket(nil)
			t.Cleanup(func() { _ = bucket.Close() })

			permits := limiter.NewPermits(10)
			svc := NewService(
				catalog,
				repo,
				downloader.New(catalog, bucket, permits, nil, ".jpg"),
				state.NewMemoryVisitedSet(),
				permits,
				nil,
				config.CrawlerConfig{Seeds: []string{"root"}, MaxPages: 1, Mode: mode, Workers: 5, QueueSize: 100},
			)

			summary, err := svc.Run(ctx)
			require.NoError(t, err)

			assert.Equal(t, 3, summary.Categories)
			assert.Equal(t, 4, summary.Products)
			assert.Equal(t, 4, summary.Images)
			assert.Equal(t, 4, summary.Downloaded)

			count, err := repo.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 4, count)

			urls, err := repo.ListAll(ctx)
			require.NoError(t, err)
			for _, u := range urls {
				assert.True(t, strings.HasPrefix(u, server.URL+"/img/"), u)
			}

			assert.Equal(t, 4, countObjects(t, bucket))
		})
	}
}
