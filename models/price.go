package models

// SizePrice is one size row scraped from a marketplace listing.
// Converted holds the price in the canonical comparison currency.
type SizePrice struct {
	Size      string  `json:"size"`
	Price     float64 `json:"price"`
	Converted float64 `json:"converted"`
	Currency  string  `json:"currency"`
	URL       string  `json:"url"`
	Available bool    `json:"available"`
}

// SourceResult is one marketplace's answer for one product lookup.
type SourceResult struct {
	Source      string      `json:"source"`
	ProductName string      `json:"productName"`
	Brand       string      `json:"brand"`
	StyleID     string      `json:"styleId,omitempty"`
	URL         string      `json:"url"`
	Sizes       []SizePrice `json:"sizes"`
	LowestPrice float64     `json:"lowestPrice"`
	Available   bool        `json:"available"`
}

// Lowest returns the cheapest converted price across the result's
// sizes, or 0 when no size is listed.
func (r SourceResult) Lowest() float64 {
	var lowest float64
	for _, s := range r.Sizes {
		if lowest == 0 || s.Converted < lowest {
			lowest = s.Converted
		}
	}
	return lowest
}

// FlatListing is one (source, size) offer flattened for aggregation.
type FlatListing struct {
	Source  string  `json:"source"`
	Size    string  `json:"size"`
	Price   float64 `json:"price"`
	URL     string  `json:"url"`
	Name    string  `json:"name"`
	Brand   string  `json:"brand"`
	StyleID string  `json:"styleId,omitempty"`
}

// AggregatedListing is a ranked comparison group. It is recomputed
// from scratch on every aggregation call, never mutated in place.
type AggregatedListing struct {
	GroupKey     string        `json:"groupKey"`
	Name         string        `json:"name"`
	Brand        string        `json:"brand"`
	LowestPrice  float64       `json:"lowestPrice"`
	HighestPrice float64       `json:"highestPrice"`
	AveragePrice float64       `json:"averagePrice"`
	BestDeal     FlatListing   `json:"bestDeal"`
	Members      []FlatListing `json:"members"`
}

// Product is one catalog entry from a search or trending page.
type Product struct {
	Name  string  `json:"name"`
	Brand string  `json:"brand"`
	URL   string  `json:"url"`
	Image string  `json:"image,omitempty"`
	Price float64 `json:"price"`
}
