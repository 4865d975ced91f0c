package domain

// ProductImages mirrors the "images" object of the product detail response.
type ProductImages struct {
	Main *ImageRef  `json:"main,omitempty"`
	List []ImageRef `json:"list,omitempty"`
}

// ImageRef holds the CDN variants of one image; the first one is used.
type ImageRef struct {
	URL []string `json:"url,omitempty"`
}

func (r *ImageRef) first() string {
	if r == nil || len(r.URL) == 0 {
		return ""
	}
	return r.URL[0]
}

// URLs returns the main image followed by the gallery. Entries without a
// URL are skipped.
func (p ProductImages) URLs() []string {
	urls := make([]string, 0, len(p.List)+1)
	if u := p.Main.first(); u != "" {
		urls = append(urls, u)
	}
	for i := range p.List {
		if u := p.List[i].first(); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}
