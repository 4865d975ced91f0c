package client

import (
	"digikala/crawler/internal/domain"
)

// catalogParser turns decoded API responses into crawl data. Every missing
// field is read as "no data".
type catalogParser struct{}

func newCatalogParser() *catalogParser {
	return &catalogParser{}
}

func (p *catalogParser) SubCategories(resp *domain.CategorySearchResponse) []domain.Category {
	children := make([]domain.Category, 0, len(resp.Data.SubCategories))
	for _, sub := range resp.Data.SubCategories {
		if sub.URL.URI == "" {
			continue
		}
		if slug := domain.CategoryFromURI(sub.URL.URI); slug != "" {
			children = append(children, slug)
		}
	}
	return children
}

func (p *catalogParser) ProductPage(resp *domain.CategorySearchResponse, pageNumber int) *ProductPage {
	page := &ProductPage{
		PageNumber: pageNumber,
		Products:   make([]domain.ProductID, 0, len(resp.Data.Products)),
	}
	if resp.Data.Pager != nil {
		page.TotalPages = resp.Data.Pager.TotalPages
	}
	for _, product := range resp.Data.Products {
		if product.ID == 0 {
			continue
		}
		page.Products = append(page.Products, product.ID)
	}
	return page
}

func (p *catalogParser) ProductImages(resp *domain.ProductDetailResponse) []string {
	return resp.Data.Product.Images.URLs()
}
