package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"shopfront/internal/logging"
	"shopfront/internal/stubapi"
	"shopfront/models"
)

func main() {
	addr := flag.String("addr", ":5000", "listen address")
	flag.Parse()

	logger := logging.New(os.Getenv("SHOPFRONT_LOG_LEVEL"), "")

	server := stubapi.NewServer()
	server.SeedProducts(demoProducts())

	logger.Info("stub storefront API listening", "addr", *addr)
	if err := http.ListenAndServe(*addr, server.Handler()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func demoProducts() []models.Product {
	return []models.Product{
		{
			ID:          "p-headphones",
			Title:       "Wireless Headphones",
			Description: "Over-ear, 30h battery",
			Price:       89.99, OriginalPrice: 129.99,
			Category: "electronics", Brand: "Aural",
			Stock: 12, InStock: true, Featured: true, BestSeller: true,
			Rating: models.ProductRating{Average: 4.5, Count: 231},
		},
		{
			ID:          "p-espresso",
			Title:       "Espresso Maker",
			Description: "15-bar pump, steam wand",
			Price:       149.00,
			Category:    "kitchen", Brand: "Brewhaus",
			Stock: 4, InStock: true, Featured: true, NewArrival: true,
			Rating: models.ProductRating{Average: 4.2, Count: 98},
		},
		{
			ID:          "p-backpack",
			Title:       "Commuter Backpack",
			Description: "25L, laptop sleeve, rain cover",
			Price:       54.50,
			Category:    "outdoors", Brand: "Trailhead",
			Stock: 30, InStock: true, Trending: true,
			Rating: models.ProductRating{Average: 4.7, Count: 412},
		},
		{
			ID:          "p-lamp",
			Title:       "Desk Lamp",
			Description: "Dimmable, USB-C charging port",
			Price:       32.00,
			Category:    "home", Brand: "Lumo",
			Stock: 0, InStock: false,
			Rating: models.ProductRating{Average: 3.9, Count: 57},
		},
	}
}
