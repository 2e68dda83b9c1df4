package entity

import "time"

// Product mirrors the `products` PostgreSQL table schema. A Product is
// created once per successful scrape; the originating SavedURL points at
// it through LinkedProductID.
type Product struct {
	ID            string
	SourceURL     string
	Name          string
	Price         float64
	OriginalPrice *float64
	Description   string
	Category      string
	Source        string
	Rating        *float64
	Tags          []string // Stored as JSONB in PostgreSQL
	ImageURL      string
	AffiliateURL  string
	CreatedAt     time.Time
}

// ProductData is what a single scrape of a page yields, before it is
// combined with the queue row into a Product.
type ProductData struct {
	Name          string
	Price         float64
	OriginalPrice *float64
	Description   string
	ImageURL      string
	Rating        *float64
	Tags          []string
	AffiliateURL  string
}
