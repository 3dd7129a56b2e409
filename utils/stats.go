package utils

import (
	"sort"
	"strings"

	"github.com/gigabite-pro/kickrax-sub000/models"
)

type SourceCount struct {
	Source string
	Count  int
}

// SummaryStats summarises one comparison run across marketplaces.
// Prices are in the canonical currency.
type SummaryStats struct {
	TotalOffers    int
	AveragePrice   float64
	MinimumPrice   float64
	MaximumPrice   float64
	CheapestOffer  models.FlatListing
	OffersBySource []SourceCount
	TopDeals       []models.FlatListing
}

// BuildSummaryStats flattens successful source results and computes
// run-level price statistics.
func BuildSummaryStats(results []models.SourceResult) SummaryStats {
	all := make([]models.FlatListing, 0)
	sourceCounts := make(map[string]int)

	for _, result := range results {
		source := strings.TrimSpace(result.Source)
		if source == "" {
			source = "unknown"
		}
		for _, size := range result.Sizes {
			all = append(all, models.FlatListing{
				Source:  source,
				Size:    size.Size,
				Price:   size.Converted,
				URL:     size.URL,
				Name:    result.ProductName,
				Brand:   result.Brand,
				StyleID: result.StyleID,
			})
			sourceCounts[source]++
		}
	}

	stats := SummaryStats{TotalOffers: len(all)}
	if len(all) == 0 {
		return stats
	}

	minPrice := all[0].Price
	maxPrice := all[0].Price
	cheapest := all[0]
	var totalPrice float64

	for _, offer := range all {
		totalPrice += offer.Price
		if offer.Price < minPrice {
			minPrice = offer.Price
			cheapest = offer
		}
		if offer.Price > maxPrice {
			maxPrice = offer.Price
		}
	}

	stats.AveragePrice = totalPrice / float64(len(all))
	stats.MinimumPrice = minPrice
	stats.MaximumPrice = maxPrice
	stats.CheapestOffer = cheapest

	perSource := make([]SourceCount, 0, len(sourceCounts))
	for source, count := range sourceCounts {
		perSource = append(perSource, SourceCount{Source: source, Count: count})
	}
	sort.Slice(perSource, func(i, j int) bool {
		if perSource[i].Count == perSource[j].Count {
			return perSource[i].Source < perSource[j].Source
		}
		return perSource[i].Count > perSource[j].Count
	})
	stats.OffersBySource = perSource

	topDeals := make([]models.FlatListing, len(all))
	copy(topDeals, all)
	sort.SliceStable(topDeals, func(i, j int) bool {
		return topDeals[i].Price < topDeals[j].Price
	})
	if len(topDeals) > 5 {
		topDeals = topDeals[:5]
	}
	stats.TopDeals = topDeals

	return stats
}
