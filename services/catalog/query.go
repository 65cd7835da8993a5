package catalog

import (
	"net/url"
	"strconv"

	"shopfront/models"
)

// buildQuery turns filters into query parameters, omitting zero values so
// the server applies its own defaults.
func buildQuery(f models.ProductFilters) url.Values {
	values := url.Values{}
	if f.Category != "" {
		values.Set("category", f.Category)
	}
	if f.Brand != "" {
		values.Set("brand", f.Brand)
	}
	if f.MinPrice > 0 {
		values.Set("minPrice", strconv.FormatFloat(f.MinPrice, 'f', -1, 64))
	}
	if f.MaxPrice > 0 {
		values.Set("maxPrice", strconv.FormatFloat(f.MaxPrice, 'f', -1, 64))
	}
	if f.InStock != nil {
		values.Set("inStock", strconv.FormatBool(*f.InStock))
	}
	if f.Featured != nil {
		values.Set("featured", strconv.FormatBool(*f.Featured))
	}
	if f.Page > 0 {
		values.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		values.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.SortBy != "" {
		values.Set("sortBy", f.SortBy)
	}
	if f.SortOrder != "" {
		values.Set("sortOrder", f.SortOrder)
	}
	return values
}
