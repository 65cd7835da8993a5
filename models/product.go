package models

// ProductImage is a single catalog image.
type ProductImage struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// ProductRating aggregates review scores for a product.
type ProductRating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// ProductDiscount describes an active price reduction.
type ProductDiscount struct {
	Percentage float64 `json:"percentage"`
	Amount     float64 `json:"amount"`
}

// Product is a catalog entry as served by the products endpoints.
type Product struct {
	ID            string           `json:"_id"`
	Title         string           `json:"title"`
	Description   string           `json:"description,omitempty"`
	Price         float64          `json:"price"`
	OriginalPrice float64          `json:"originalPrice,omitempty"`
	Category      string           `json:"category,omitempty"`
	Brand         string           `json:"brand,omitempty"`
	Images        []ProductImage   `json:"images,omitempty"`
	Rating        ProductRating    `json:"rating"`
	Stock         int              `json:"stock"`
	InStock       bool             `json:"inStock"`
	Featured      bool             `json:"featured"`
	NewArrival    bool             `json:"newArrival"`
	BestSeller    bool             `json:"bestSeller"`
	Trending      bool             `json:"trending"`
	Discount      *ProductDiscount `json:"discount,omitempty"`
	Tags          []string         `json:"tags,omitempty"`
	CreatedAt     string           `json:"createdAt,omitempty"`
	UpdatedAt     string           `json:"updatedAt,omitempty"`
}

// ProductFilters narrows product list and search queries. Zero values are
// omitted from the outgoing query string.
type ProductFilters struct {
	Category  string
	Brand     string
	MinPrice  float64
	MaxPrice  float64
	InStock   *bool
	Featured  *bool
	Page      int
	Limit     int
	SortBy    string // "price", "rating", "createdAt" or "title"
	SortOrder string // "asc" or "desc"
}

// Pagination is the paging metadata attached to list responses.
type Pagination struct {
	CurrentPage  int  `json:"currentPage"`
	TotalPages   int  `json:"totalPages"`
	TotalItems   int  `json:"totalItems"`
	ItemsPerPage int  `json:"itemsPerPage"`
	HasNextPage  bool `json:"hasNextPage"`
	HasPrevPage  bool `json:"hasPrevPage"`
}
