package client

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"
	"resty.dev/v3"

	"digikala/crawler/internal/config"
	"digikala/crawler/internal/proxy"
)

// HTTPClient issues GET requests through resty and applies a RetryPolicy.
// resty's own retry mechanism is disabled so the policy is the single source
// of truth.
type HTTPClient struct {
	httpClient    *resty.Client
	policy        RetryPolicy
	proxySupplier proxy.ProxySupplier
}

func NewHTTPClient(cfg config.HTTPConfig, policy RetryPolicy, proxySupplier proxy.ProxySupplier) *HTTPClient {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json, image/*;q=0.9, */*;q=0.8").
		SetTLSClientConfig(&tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // opt-in via config
		})
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}

	if proxySupplier != nil {
		if proxyURL := proxySupplier.Get(); proxyURL != "" {
			client.SetProxy(proxyURL)
			log.Infof("🔗 Using initial proxy: %s", proxyURL)
		}
	}

	return &HTTPClient{
		httpClient:    client,
		policy:        policy,
		proxySupplier: proxySupplier,
	}
}

// GetJSON fetches url with the given query parameters and decodes the body
// into target.
func (c *HTTPClient) GetJSON(ctx context.Context, url string, params map[string]string, target any) error {
	body, err := c.fetch(ctx, url, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("%w from %s: %w", ErrDecode, url, err)
	}
	return nil
}

// GetBytes fetches url and returns the raw body.
func (c *HTTPClient) GetBytes(ctx context.Context, url string) ([]byte, error) {
	return c.fetch(ctx, url, nil)
}

func (c *HTTPClient) Close() error {
	return c.httpClient.Close()
}

func (c *HTTPClient) fetch(ctx context.Context, url string, params map[string]string) ([]byte, error) {
	var body []byte
	err := c.policy.Do(ctx, func(int) error {
		var err error
		body, err = c.get(ctx, url, params)
		return err
	}, func(attempt int, err error) {
		log.WithFields(log.Fields{
			"url":     url,
			"attempt": attempt,
			"delay":   c.policy.Delay(attempt),
		}).Warnf("🔄 Retrying request: %v", err)
		c.rotateProxy(err)
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *HTTPClient) get(ctx context.Context, url string, params map[string]string) ([]byte, error) {
	req := c.httpClient.R().SetContext(ctx)
	if len(params) > 0 {
		req.SetQueryParams(params)
	}

	resp, err := req.Get(url)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("request cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}

	if !isSuccess(resp.StatusCode()) {
		return nil, &RequestError{
			URL:        url,
			StatusCode: resp.StatusCode(),
			Status:     resp.Status(),
		}
	}

	return resp.Bytes(), nil
}

// rotateProxy switches to the next proxy after a transport-level failure.
// HTTP status errors mean the proxy worked, so it is kept.
func (c *HTTPClient) rotateProxy(err error) {
	if c.proxySupplier == nil || StatusCode(err) != 0 {
		return
	}
	if next := c.proxySupplier.Get(); next != "" {
		log.Infof("🔄 Switching to proxy: %s", next)
		c.httpClient.SetProxy(next)
	}
}
