package domain

import "strings"

// Category is a node of the catalog taxonomy, identified by its slug.
type Category string

func (c Category) String() string {
	return string(c)
}

const categoryURIMarker = "/search/category-"

// CategoryFromURI extracts the slug from a category search URI such as
// "/search/category-motorcycle-parts/". URIs without the marker are
// returned trimmed as-is.
func CategoryFromURI(uri string) Category {
	if i := strings.LastIndex(uri, categoryURIMarker); i >= 0 {
		uri = uri[i+len(categoryURIMarker):]
	}
	return Category(strings.TrimRight(uri, "/"))
}
