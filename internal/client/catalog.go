package client

import (
	"context"
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"

	"digikala/crawler/internal/domain"
)

// CatalogClient is the read side of the catalog API used by the crawler.
type CatalogClient interface {
	GetSubCategories(ctx context.Context, category domain.Category) ([]domain.Category, error)
	GetProductPage(ctx context.Context, category domain.Category, pageNumber int) (*ProductPage, error)
	GetProductImages(ctx context.Context, productID domain.ProductID) ([]string, error)
	FetchImage(ctx context.Context, url string) ([]byte, error)
}

// ProductPage is one page of a category listing.
type ProductPage struct {
	PageNumber int
	TotalPages int // 0 when the API does not report it
	Products   []domain.ProductID
}

type catalogClient struct {
	baseURL string
	http    *HTTPClient
	parser  *catalogParser
}

func NewCatalogClient(baseURL string, httpClient *HTTPClient) CatalogClient {
	return &catalogClient{
		baseURL: baseURL,
		http:    httpClient,
		parser:  newCatalogParser(),
	}
}

func (c *catalogClient) categoryURL(category domain.Category) string {
	return fmt.Sprintf("%s/v1/categories/%s/search/", c.baseURL, category)
}

func (c *catalogClient) productURL(productID domain.ProductID) string {
	return fmt.Sprintf("%s/v2/product/%d/", c.baseURL, productID)
}

func (c *catalogClient) GetSubCategories(ctx context.Context, category domain.Category) ([]domain.Category, error) {
	var resp domain.CategorySearchResponse
	if err := c.http.GetJSON(ctx, c.categoryURL(category), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch sub-categories of %s: %w", category, err)
	}

	children := c.parser.SubCategories(&resp)
	log.Debugf("Category %s has %d sub-categories", category, len(children))
	return children, nil
}

func (c *catalogClient) GetProductPage(ctx context.Context, category domain.Category, pageNumber int) (*ProductPage, error) {
	params := map[string]string{
		"th_no_track": "1",
		"page":        strconv.Itoa(pageNumber),
	}

	var resp domain.CategorySearchResponse
	if err := c.http.GetJSON(ctx, c.categoryURL(category), params, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch page %d of %s: %w", pageNumber, category, err)
	}

	page := c.parser.ProductPage(&resp, pageNumber)
	log.Debugf("Fetched page %d of %s with %d products", pageNumber, category, len(page.Products))
	return page, nil
}

func (c *catalogClient) GetProductImages(ctx context.Context, productID domain.ProductID) ([]string, error) {
	var resp domain.ProductDetailResponse
	if err := c.http.GetJSON(ctx, c.productURL(productID), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch product %d: %w", productID, err)
	}

	return c.parser.ProductImages(&resp), nil
}

func (c *catalogClient) FetchImage(ctx context.Context, url string) ([]byte, error) {
	return c.http.GetBytes(ctx, url)
}
