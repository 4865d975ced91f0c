// Package downloader writes product images to a blob bucket.
package downloader

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob" // mem:// for images_url

	"digikala/crawler/internal/config"
	"digikala/crawler/internal/domain"
	"digikala/crawler/internal/limiter"
	"digikala/crawler/internal/metrics"
)

// ImageFetcher returns the raw bytes behind an image URL.
type ImageFetcher interface {
	FetchImage(ctx context.Context, url string) ([]byte, error)
}

type Downloader struct {
	fetcher ImageFetcher
	bucket  *blob.Bucket
	permits *limiter.Permits
	metrics *metrics.Metrics
	ext     string
	now     func() time.Time
}

func New(fetcher ImageFetcher, bucket *blob.Bucket, permits *limiter.Permits, m *metrics.Metrics, ext string) *Downloader {
	return &Downloader{
		fetcher: fetcher,
		bucket:  bucket,
		permits: permits,
		metrics: m,
		ext:     ext,
		now:     time.Now,
	}
}

// OpenBucket opens the image sink: ImagesURL when set, otherwise a
// directory bucket at ImagesDir that is created on demand.
func OpenBucket(ctx context.Context, cfg config.StorageConfig) (*blob.Bucket, error) {
	if cfg.ImagesURL != "" {
		bucket, err := blob.OpenBucket(ctx, cfg.ImagesURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open image bucket %s: %w", cfg.ImagesURL, err)
		}
		return bucket, nil
	}

	bucket, err := fileblob.OpenBucket(cfg.ImagesDir, &fileblob.Options{
		CreateDir: true,
		Metadata:  fileblob.MetadataDontWrite,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open image directory %s: %w", cfg.ImagesDir, err)
	}
	return bucket, nil
}

// Download fetches url once (the HTTP client applies its own retry policy)
// and stores the bytes under a fresh name. Failures are logged and reported
// in the result, never returned as an error.
func (d *Downloader) Download(ctx context.Context, url string) domain.DownloadResult {
	result := d.download(ctx, url)
	d.metrics.Downloaded(result.Size, result.Err)

	if result.Err != nil {
		log.WithField("url", url).Errorf("❌ Failed to download image: %v", result.Err)
		return result
	}
	log.Infof("⬇️ Downloaded %s (%d bytes)", result.Key, result.Size)
	return result
}

func (d *Downloader) download(ctx context.Context, url string) domain.DownloadResult {
	result := domain.DownloadResult{URL: url}

	var data []byte
	err := d.permits.Do(ctx, func(ctx context.Context) error {
		d.metrics.SetPermitsInFlight(d.permits.InFlight())
		var err error
		data, err = d.fetcher.FetchImage(ctx, url)
		return err
	})
	if err != nil {
		result.Err = err
		return result
	}

	key := d.fileName()
	opts := &blob.WriterOptions{ContentType: contentType(data)}
	if err := d.bucket.WriteAll(ctx, key, data, opts); err != nil {
		result.Err = fmt.Errorf("failed to write %s: %w", key, err)
		return result
	}

	result.Key = key
	result.Size = len(data)
	return result
}

// fileName is image_<unix millis>_<random suffix><ext>. The suffix keeps
// names unique when downloads finish within the same millisecond.
func (d *Downloader) fileName() string {
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("image_%d_%s%s", d.now().UnixMilli(), suffix, d.ext)
}

func contentType(data []byte) string {
	if len(data) == 0 {
		return "application/octet-stream"
	}
	return http.DetectContentType(data)
}
