package domain

import "time"

// CategoryResult is the outcome of expanding one category node.
type CategoryResult struct {
	Category Category
	Children []Category
	Err      error
}

// PageResult is the outcome of one listing page request.
type PageResult struct {
	Category   Category
	PageNumber int
	Products   []ProductID
	Err        error
}

// ProductResult is the outcome of resolving one product's images.
type ProductResult struct {
	ProductID ProductID
	URLs      []string
	Err       error
}

// DownloadResult is the outcome of downloading one image.
type DownloadResult struct {
	URL  string
	Key  string // object key in the image bucket, empty on failure
	Size int
	Err  error
}

func (r DownloadResult) OK() bool {
	return r.Err == nil
}

// Summary is the terminal report of a crawl.
type Summary struct {
	Categories       int           `json:"categories"`
	CategoryFailures int           `json:"category_failures"`
	PageFailures     int           `json:"page_failures"`
	Products         int           `json:"products"`
	ProductFailures  int           `json:"product_failures"`
	Images           int           `json:"images"`
	StoreFailures    int           `json:"store_failures"`
	Downloaded       int           `json:"downloaded"`
	DownloadFailures int           `json:"download_failures"`
	Elapsed          time.Duration `json:"elapsed"`
}
