package domain

// CategorySearchResponse is the body of /v1/categories/{slug}/search/.
// The same endpoint serves sub-categories and, with ?page=N, products.
type CategorySearchResponse struct {
	Data CategorySearchData `json:"data"`
}

type CategorySearchData struct {
	SubCategories []SubCategory    `json:"sub_categories_best_selling"`
	Products      []ProductSummary `json:"products"`
	Pager         *Pager           `json:"pager,omitempty"`
}

type SubCategory struct {
	ID    int64       `json:"id"`
	Title string      `json:"title_fa"`
	URL   CategoryURL `json:"url"`
}

type CategoryURL struct {
	URI string `json:"uri"`
}

type ProductSummary struct {
	ID ProductID `json:"id"`
}

type Pager struct {
	CurrentPage int `json:"current_page"` // 1-based
	TotalPages  int `json:"total_pages"`
	TotalItems  int `json:"total_items"`
}

// ProductDetailResponse is the body of /v2/product/{id}/.
type ProductDetailResponse struct {
	Data struct {
		Product struct {
			ID     ProductID     `json:"id"`
			Images ProductImages `json:"images"`
		} `json:"product"`
	} `json:"data"`
}
