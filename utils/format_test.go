package utils

import (
	"testing"

	"shopfront/models"
)

func TestFormatPrice(t *testing.T) {
	cases := []struct {
		price float64
		want  string
	}{
		{0, "$0.00"},
		{9.9, "$9.90"},
		{1234.5, "$1,234.50"},
		{1000000, "$1,000,000.00"},
	}
	for _, tc := range cases {
		if got := FormatPrice(tc.price); got != tc.want {
			t.Errorf("FormatPrice(%v) = %q, want %q", tc.price, got, tc.want)
		}
	}
}

func TestDiscountPercent(t *testing.T) {
	cases := []struct {
		name     string
		original float64
		price    float64
		want     int
	}{
		{"no original price", 0, 50, 0},
		{"price above original", 50, 60, 0},
		{"equal", 50, 50, 0},
		{"half off", 100, 50, 50},
		{"rounds", 30, 20, 33},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DiscountPercent(tc.original, tc.price); got != tc.want {
				t.Errorf("DiscountPercent(%v, %v) = %d, want %d", tc.original, tc.price, got, tc.want)
			}
		})
	}
}

func TestProductBadge(t *testing.T) {
	cases := []struct {
		name    string
		product models.Product
		want    string
	}{
		{"none", models.Product{}, ""},
		{"new arrival", models.Product{NewArrival: true}, "New"},
		{"best seller", models.Product{BestSeller: true}, "Best Seller"},
		{"trending", models.Product{Trending: true}, "Trending"},
		{"discount", models.Product{Discount: &models.ProductDiscount{Percentage: 25}}, "25% OFF"},
		{"new arrival wins over discount", models.Product{
			NewArrival: true,
			Discount:   &models.ProductDiscount{Percentage: 25},
		}, "New"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ProductBadge(tc.product); got != tc.want {
				t.Errorf("ProductBadge = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestImageURL(t *testing.T) {
	withImage := models.Product{Images: []models.ProductImage{{URL: "https://cdn.example.com/p.jpg"}}}
	if got := ImageURL(withImage); got != "https://cdn.example.com/p.jpg" {
		t.Errorf("expected primary image, got %q", got)
	}

	if got := ImageURL(models.Product{}); got != FallbackImageURL {
		t.Errorf("expected fallback image, got %q", got)
	}
	if got := ImageURL(models.Product{Images: []models.ProductImage{{}}}); got != FallbackImageURL {
		t.Errorf("expected fallback for empty URL, got %q", got)
	}
}

func TestOnSale(t *testing.T) {
	if OnSale(models.Product{Price: 10, OriginalPrice: 20}) != true {
		t.Error("expected on sale")
	}
	if OnSale(models.Product{Price: 10}) != false {
		t.Error("expected not on sale without original price")
	}
	if OnSale(models.Product{Price: 10, OriginalPrice: 10}) != false {
		t.Error("expected not on sale at equal price")
	}
}
