package container

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gocloud.dev/blob"

	"digikala/crawler/internal/client"
	"digikala/crawler/internal/config"
	"digikala/crawler/internal/domain"
	"digikala/crawler/internal/downloader"
	"digikala/crawler/internal/limiter"
	"digikala/crawler/internal/metrics"
	"digikala/crawler/internal/proxy"
	"digikala/crawler/internal/repository"
	"digikala/crawler/internal/service"
	"digikala/crawler/internal/state"
)

// Container holds all initialized components
type Container struct {
	Config     *config.Config
	Client     client.CatalogClient
	Repository repository.ImageRepository
	Visited    state.VisitedSet
	Metrics    *metrics.Metrics
	Registry   *prometheus.Registry

	Service *service.Service

	httpClient *client.HTTPClient
	bucket     *blob.Bucket
	redis      *redis.Client
}

// OpenRepository opens the image record store selected by cfg.Driver.
func OpenRepository(ctx context.Context, cfg config.StorageConfig) (repository.ImageRepository, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return repository.OpenPostgres(ctx, cfg.Postgres.DSN())
	default:
		return repository.OpenSQLite(ctx, cfg.SQLitePath)
	}
}

// New creates a new container with all dependencies initialized. Components
// opened before a failure are closed again.
func New(ctx context.Context, cfg *config.Config) (_ *Container, err error) {
	container := &Container{
		Config: cfg,
	}
	defer func() {
		if err != nil {
			_ = container.Close()
		}
	}()

	// Initialize ProxySupplier
	proxySupplier := proxy.NewProxySupplier(ctx, cfg.HTTP.Proxies, cfg.Crawler.BaseURL)

	container.httpClient = client.NewHTTPClient(cfg.HTTP, client.RetryPolicyFromConfig(cfg.HTTP), proxySupplier)
	container.Client = client.NewCatalogClient(cfg.Crawler.BaseURL, container.httpClient)

	// Initialize repository
	repo, err := OpenRepository(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	container.Repository = repo
	log.Infof("✅ Opened %s image store", cfg.Storage.Driver)

	visited, err := container.openVisitedSet(ctx)
	if err != nil {
		return nil, err
	}
	container.Visited = visited

	bucket, err := downloader.OpenBucket(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	container.bucket = bucket

	container.Registry = prometheus.NewRegistry()
	container.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	container.Metrics = metrics.NewMetrics(container.Registry)

	permits := limiter.NewPermits(cfg.Crawler.MaxConcurrency)

	container.Service = service.NewService(
		container.Client,
		repo,
		downloader.New(container.Client, bucket, permits, container.Metrics, cfg.Storage.ImageExt),
		visited,
		permits,
		container.Metrics,
		cfg.Crawler,
	)

	return container, nil
}

func (c *Container) openVisitedSet(ctx context.Context) (state.VisitedSet, error) {
	if c.Config.Visited.Backend != config.VisitedRedis {
		return state.NewMemoryVisitedSet(), nil
	}

	redisCfg := c.Config.Visited.Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Addr(),
		Password: redisCfg.Password,
		DB:       redisCfg.Database,
	})
	c.redis = rdb

	// Test connection
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("✅ Connected to Redis successfully")
	return state.NewRedisVisitedSet(rdb, redisCfg.Key), nil
}

// Run executes one crawl. The metrics endpoint, when configured, is served
// for the duration of the crawl.
func (c *Container) Run(ctx context.Context) (*domain.Summary, error) {
	if addr := c.Config.Metrics.ListenAddr; addr != "" {
		metricsCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := metrics.Serve(metricsCtx, addr, c.Registry); err != nil {
				log.Errorf("❌ Metrics server failed: %v", err)
			}
		}()
	}

	return c.Service.Run(ctx)
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Info("Shutting down container...")

	var errs []error
	if c.Repository != nil {
		if err := c.Repository.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close repository: %w", err))
		}
	}
	if c.bucket != nil {
		if err := c.bucket.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close image bucket: %w", err))
		}
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if c.httpClient != nil {
		if err := c.httpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close http client: %w", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	log.Info("Container shut down successfully")
	return nil
}
