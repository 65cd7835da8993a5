package utils

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"shopfront/models"
)

// FallbackImageURL is shown when a product carries no usable image.
const FallbackImageURL = "https://images.unsplash.com/photo-1560472354-b33ff0c44a43?w=300&h=300&fit=crop"

var pricePrinter = message.NewPrinter(language.English)

// FormatPrice renders a price as a USD display string with thousands
// separators, e.g. 1234.5 -> "$1,234.50".
func FormatPrice(price float64) string {
	return pricePrinter.Sprintf("$%.2f", price)
}

// DiscountPercent returns the rounded percentage saved against the original
// price, or 0 when there is no effective discount.
func DiscountPercent(originalPrice, price float64) int {
	if originalPrice <= 0 || originalPrice <= price {
		return 0
	}
	return int(math.Round((originalPrice - price) / originalPrice * 100))
}

// OnSale reports whether the product has an original price above its
// current one.
func OnSale(p models.Product) bool {
	return p.OriginalPrice > 0 && p.OriginalPrice > p.Price
}

// ProductBadge picks the single badge label for a product card, or "" when
// none applies. Order matches the storefront's display priority.
func ProductBadge(p models.Product) string {
	switch {
	case p.NewArrival:
		return "New"
	case p.BestSeller:
		return "Best Seller"
	case p.Trending:
		return "Trending"
	case p.Discount != nil && p.Discount.Percentage > 0:
		return pricePrinter.Sprintf("%.0f%% OFF", p.Discount.Percentage)
	default:
		return ""
	}
}

// ImageURL resolves the primary display image for a product, falling back
// to a stock placeholder.
func ImageURL(p models.Product) string {
	if len(p.Images) > 0 && p.Images[0].URL != "" {
		return p.Images[0].URL
	}
	return FallbackImageURL
}
