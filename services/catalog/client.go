package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"shopfront/models"
	"shopfront/services/api"
)

// Client exposes the product browsing endpoints. It holds no state of its
// own; product data is display-only and never cached locally.
type Client struct {
	api *api.Client
}

// NewClient creates a catalog client on top of the shared API transport.
func NewClient(apiClient *api.Client) *Client {
	return &Client{api: apiClient}
}

// List fetches a filtered, paginated product page.
func (c *Client) List(ctx context.Context, filters models.ProductFilters) ([]models.Product, *models.Pagination, error) {
	return c.page(ctx, "/products", buildQuery(filters), "failed to fetch products")
}

// Get fetches a single product by id.
func (c *Client) Get(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := c.api.Get(ctx, "/products/"+url.PathEscape(id), &product); err != nil {
		return nil, api.WithFallback(err, "failed to fetch product")
	}
	return &product, nil
}

// Search runs a text search combined with the usual filters.
func (c *Client) Search(ctx context.Context, query string, filters models.ProductFilters) ([]models.Product, *models.Pagination, error) {
	values := buildQuery(filters)
	values.Set("search", query)
	return c.page(ctx, "/products/search", values, "failed to search products")
}

// ByCategory fetches the products of one category.
func (c *Client) ByCategory(ctx context.Context, category string, filters models.ProductFilters) ([]models.Product, *models.Pagination, error) {
	path := "/products/category/" + url.PathEscape(category)
	return c.page(ctx, path, buildQuery(filters), "failed to fetch products by category")
}

// Featured fetches the featured product selection.
func (c *Client) Featured(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := c.api.Get(ctx, "/products/featured", &products); err != nil {
		return nil, api.WithFallback(err, "failed to fetch featured products")
	}
	return products, nil
}

func (c *Client) page(ctx context.Context, path string, values url.Values, fallback string) ([]models.Product, *models.Pagination, error) {
	if encoded := values.Encode(); encoded != "" {
		path += "?" + encoded
	}
	env, err := c.api.DoEnvelope(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, nil, api.WithFallback(err, fallback)
	}

	var products []models.Product
	if env.Data != nil {
		if err := json.Unmarshal(env.Data, &products); err != nil {
			return nil, nil, fmt.Errorf("decode products: %w", err)
		}
	}
	return products, env.Meta, nil
}
