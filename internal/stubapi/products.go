package stubapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"shopfront/models"
)

const defaultPageSize = 20

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	s.writeProductPage(w, r, func(models.Product) bool { return true })
}

func (s *Server) handleSearchProducts(w http.ResponseWriter, r *http.Request) {
	needle := strings.ToLower(r.URL.Query().Get("search"))
	s.writeProductPage(w, r, func(p models.Product) bool {
		if needle == "" {
			return true
		}
		return strings.Contains(strings.ToLower(p.Title), needle) ||
			strings.Contains(strings.ToLower(p.Description), needle)
	})
}

func (s *Server) handleProductsByCategory(w http.ResponseWriter, r *http.Request) {
	category := mux.Vars(r)["category"]
	s.writeProductPage(w, r, func(p models.Product) bool {
		return strings.EqualFold(p.Category, category)
	})
}

func (s *Server) handleFeaturedProducts(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	var featured []models.Product
	for _, id := range s.productOrder {
		if p := s.products[id]; p.Featured {
			featured = append(featured, p)
		}
	}
	s.mu.Unlock()
	writeSuccess(w, http.StatusOK, featured, nil)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	product, ok := s.products[id]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	writeSuccess(w, http.StatusOK, product, nil)
}

// writeProductPage applies query filters plus the given predicate and
// paginates the result.
func (s *Server) writeProductPage(w http.ResponseWriter, r *http.Request, match func(models.Product) bool) {
	query := r.URL.Query()

	s.mu.Lock()
	var filtered []models.Product
	for _, id := range s.productOrder {
		p := s.products[id]
		if match(p) && matchesQuery(p, query) {
			filtered = append(filtered, p)
		}
	}
	s.mu.Unlock()

	page := intQuery(query.Get("page"), 1)
	limit := intQuery(query.Get("limit"), defaultPageSize)
	total := len(filtered)
	totalPages := (total + limit - 1) / limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	meta := &models.Pagination{
		CurrentPage:  page,
		TotalPages:   totalPages,
		TotalItems:   total,
		ItemsPerPage: limit,
		HasNextPage:  page < totalPages,
		HasPrevPage:  page > 1,
	}
	writeSuccess(w, http.StatusOK, filtered[start:end], meta)
}

func matchesQuery(p models.Product, query map[string][]string) bool {
	get := func(key string) string {
		if vals := query[key]; len(vals) > 0 {
			return vals[0]
		}
		return ""
	}
	if category := get("category"); category != "" && !strings.EqualFold(p.Category, category) {
		return false
	}
	if brand := get("brand"); brand != "" && !strings.EqualFold(p.Brand, brand) {
		return false
	}
	if raw := get("minPrice"); raw != "" {
		if min, err := strconv.ParseFloat(raw, 64); err == nil && p.Price < min {
			return false
		}
	}
	if raw := get("maxPrice"); raw != "" {
		if max, err := strconv.ParseFloat(raw, 64); err == nil && p.Price > max {
			return false
		}
	}
	if raw := get("inStock"); raw != "" {
		if want, err := strconv.ParseBool(raw); err == nil && p.InStock != want {
			return false
		}
	}
	if raw := get("featured"); raw != "" {
		if want, err := strconv.ParseBool(raw); err == nil && p.Featured != want {
			return false
		}
	}
	return true
}

func intQuery(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
