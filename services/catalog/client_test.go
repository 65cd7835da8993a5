package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/afero"

	"shopfront/internal/store"
	"shopfront/models"
	"shopfront/services/api"
)

func newTestCatalog(t *testing.T, baseURL string) *Client {
	t.Helper()
	creds, err := store.NewCredentialStore(afero.NewMemMapFs(), "/data")
	if err != nil {
		t.Fatalf("create credential store: %v", err)
	}
	return NewClient(api.NewClient(baseURL, creds, nil))
}

func TestBuildQuery(t *testing.T) {
	boolPtr := func(v bool) *bool { return &v }

	cases := []struct {
		name    string
		filters models.ProductFilters
		want    string
	}{
		{"empty", models.ProductFilters{}, ""},
		{"category only", models.ProductFilters{Category: "audio"}, "category=audio"},
		{
			"price band",
			models.ProductFilters{MinPrice: 10.5, MaxPrice: 200},
			"maxPrice=200&minPrice=10.5",
		},
		{
			"stock flag false is still sent",
			models.ProductFilters{InStock: boolPtr(false)},
			"inStock=false",
		},
		{
			"paging and sort",
			models.ProductFilters{Page: 2, Limit: 50, SortBy: "price", SortOrder: "desc"},
			"limit=50&page=2&sortBy=price&sortOrder=desc",
		},
		{
			"everything",
			models.ProductFilters{
				Category: "audio", Brand: "acme", MinPrice: 1, MaxPrice: 2,
				InStock: boolPtr(true), Featured: boolPtr(true),
				Page: 1, Limit: 10, SortBy: "price", SortOrder: "asc",
			},
			"brand=acme&category=audio&featured=true&inStock=true&limit=10&maxPrice=2&minPrice=1&page=1&sortBy=price&sortOrder=asc",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := buildQuery(tc.filters).Encode(); got != tc.want {
				t.Errorf("buildQuery = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestListDecodesPage(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": []map[string]any{
				{"_id": "p1", "title": "Headphones", "price": 99.5},
				{"_id": "p2", "title": "Lamp", "price": 25},
			},
			"meta": map[string]any{
				"currentPage": 2,
				"totalPages":  5,
				"totalItems":  90,
				"hasNextPage": true,
				"hasPrevPage": true,
			},
		})
	}))
	defer server.Close()

	catalog := newTestCatalog(t, server.URL)
	products, meta, err := catalog.List(context.Background(), models.ProductFilters{Page: 2, Limit: 20})
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if gotQuery != "limit=20&page=2" {
		t.Errorf("unexpected query %q", gotQuery)
	}
	if len(products) != 2 || products[0].ID != "p1" || products[1].Title != "Lamp" {
		t.Errorf("unexpected products: %+v", products)
	}
	if meta == nil || meta.CurrentPage != 2 || meta.TotalItems != 90 || !meta.HasNextPage {
		t.Errorf("unexpected meta: %+v", meta)
	}
}

func TestSearchSetsQueryParam(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("search"); got != "desk lamp" {
			t.Errorf("expected search term, got %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true, "data": []any{}})
	}))
	defer server.Close()

	catalog := newTestCatalog(t, server.URL)
	products, _, err := catalog.Search(context.Background(), "desk lamp", models.ProductFilters{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(products) != 0 {
		t.Errorf("expected empty result, got %+v", products)
	}
}

func TestByCategoryEscapesPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/products/category/home%20office" {
			t.Errorf("unexpected path %s", r.URL.EscapedPath())
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true, "data": []any{}})
	}))
	defer server.Close()

	catalog := newTestCatalog(t, server.URL)
	if _, _, err := catalog.ByCategory(context.Background(), "home office", models.ProductFilters{}); err != nil {
		t.Fatalf("by category: %v", err)
	}
}

func TestGetProductNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "Product not found"})
	}))
	defer server.Close()

	catalog := newTestCatalog(t, server.URL)
	_, err := catalog.Get(context.Background(), "missing")
	if err == nil || err.Error() != "Product not found" {
		t.Fatalf("expected server message, got %v", err)
	}
}

func TestFeatured(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products/featured" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    []map[string]any{{"_id": "p1", "title": "Headphones", "featured": true}},
		})
	}))
	defer server.Close()

	catalog := newTestCatalog(t, server.URL)
	products, err := catalog.Featured(context.Background())
	if err != nil {
		t.Fatalf("featured: %v", err)
	}
	if len(products) != 1 || !products[0].Featured {
		t.Errorf("unexpected products: %+v", products)
	}
}
