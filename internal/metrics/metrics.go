// Package metrics exposes Prometheus counters for every crawl stage.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const Namespace = "crawler"

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultEmpty   = "empty"
)

// Metrics holds all crawl metrics. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	CategoriesDiscovered prometheus.Counter
	CategoryFetches      *prometheus.CounterVec
	PageFetches          *prometheus.CounterVec
	ProductsEnumerated   prometheus.Counter
	ProductResolutions   *prometheus.CounterVec
	ImagesResolved       prometheus.Counter
	RecordInserts        *prometheus.CounterVec
	Downloads            *prometheus.CounterVec
	DownloadedBytes      prometheus.Counter
	PermitsInFlight      prometheus.Gauge
}

// NewMetrics registers all metrics with reg (the default registerer when nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		CategoriesDiscovered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "categories_discovered_total",
			Help:      "Categories claimed by the explorer",
		}),
		CategoryFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "category_fetches_total",
			Help:      "Sub-category requests by result",
		}, []string{"result"}),
		PageFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "page_fetches_total",
			Help:      "Listing page requests by result",
		}, []string{"result"}),
		ProductsEnumerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "products_enumerated_total",
			Help:      "Product IDs collected from listing pages",
		}),
		ProductResolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "product_resolutions_total",
			Help:      "Product detail lookups by result",
		}, []string{"result"}),
		ImagesResolved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "images_resolved_total",
			Help:      "Image URLs extracted from product details",
		}),
		RecordInserts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "record_inserts_total",
			Help:      "Image record inserts by result",
		}, []string{"result"}),
		Downloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "downloads_total",
			Help:      "Image downloads by result",
		}, []string{"result"}),
		DownloadedBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "downloaded_bytes_total",
			Help:      "Bytes written to the image bucket",
		}),
		PermitsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "permits_in_flight",
			Help:      "Network operations currently holding a permit",
		}),
	}
}

func resultLabel(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}

func (m *Metrics) CategoryClaimed() {
	if m == nil {
		return
	}
	m.CategoriesDiscovered.Inc()
}

func (m *Metrics) CategoryFetched(err error) {
	if m == nil {
		return
	}
	m.CategoryFetches.WithLabelValues(resultLabel(err)).Inc()
}

func (m *Metrics) PageFetched(products int, err error) {
	if m == nil {
		return
	}
	m.PageFetches.WithLabelValues(resultLabel(err)).Inc()
	m.ProductsEnumerated.Add(float64(products))
}

func (m *Metrics) ProductResolved(images int, err error) {
	if m == nil {
		return
	}
	label := resultLabel(err)
	if err == nil && images == 0 {
		label = ResultEmpty
	}
	m.ProductResolutions.WithLabelValues(label).Inc()
	m.ImagesResolved.Add(float64(images))
}

func (m *Metrics) RecordInserted(err error) {
	if m == nil {
		return
	}
	m.RecordInserts.WithLabelValues(resultLabel(err)).Inc()
}

func (m *Metrics) Downloaded(size int, err error) {
	if m == nil {
		return
	}
	m.Downloads.WithLabelValues(resultLabel(err)).Inc()
	m.DownloadedBytes.Add(float64(size))
}

func (m *Metrics) SetPermitsInFlight(n int) {
	if m == nil {
		return
	}
	m.PermitsInFlight.Set(float64(n))
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infof("📈 Serving metrics on %s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
