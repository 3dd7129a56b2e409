package services

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/gigabite-pro/kickrax-sub000/models"
)

var (
	nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)
	nonAlphaRe = regexp.MustCompile(`[^a-z]+`)
	parenRe    = regexp.MustCompile(`\([^)]*\)`)
	sizeTokRe  = regexp.MustCompile(`(?i)\b(?:size|sz|us|uk|eu)\s*\d+(?:\.\d+)?\b|\b\d+(?:\.\d+)?\s*(?:us|uk|eu)\b`)
	condTokRe  = regexp.MustCompile(`(?i)\b(?:new|used|worn|preowned|pre-owned|deadstock|ds|vnds)\b`)
)

// GroupKey decides which listings describe the same shoe. A stable
// style code beats name matching every time; without one we fall back
// to a cleaned name prefix plus brand, which merges most cross-site
// title variants at the cost of the occasional false split.
func GroupKey(l models.FlatListing) string {
	if id := nonAlnumRe.ReplaceAllString(strings.ToLower(l.StyleID), ""); len(id) > 3 {
		return id
	}

	words := strings.Fields(cleanName(l.Name))
	if len(words) > 5 {
		words = words[:5]
	}
	brand := nonAlphaRe.ReplaceAllString(strings.ToLower(l.Brand), "")
	return strings.Join(words, " ") + "|" + brand
}

// cleanName strips the noise marketplaces bolt onto titles:
// parentheticals, size tokens, condition words.
func cleanName(name string) string {
	s := strings.ToLower(name)
	s = parenRe.ReplaceAllString(s, " ")
	s = sizeTokRe.ReplaceAllString(s, " ")
	s = condTokRe.ReplaceAllString(s, " ")
	s = nonAlnumRe.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// Aggregate groups flat listings into ranked price-comparison rows.
// Within a group members are sorted cheapest first; groups are ranked
// by member count descending, then lowest price ascending. Both sorts
// are stable, so equal inputs always produce identical output.
func Aggregate(listings []models.FlatListing) []models.AggregatedListing {
	index := make(map[string]int)
	var groups []models.AggregatedListing

	for _, l := range listings {
		key := GroupKey(l)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, models.AggregatedListing{
				GroupKey: key,
				Name:     l.Name,
				Brand:    l.Brand,
			})
		}
		groups[i].Members = append(groups[i].Members, l)
	}

	for i := range groups {
		g := &groups[i]

		var sum float64
		g.LowestPrice = g.Members[0].Price
		g.HighestPrice = g.Members[0].Price
		g.BestDeal = g.Members[0]
		for _, m := range g.Members {
			sum += m.Price
			if m.Price < g.LowestPrice {
				g.LowestPrice = m.Price
				g.BestDeal = m
			}
			if m.Price > g.HighestPrice {
				g.HighestPrice = m.Price
			}
		}
		g.AveragePrice = math.Round(sum / float64(len(g.Members)))

		sort.SliceStable(g.Members, func(a, b int) bool {
			return g.Members[a].Price < g.Members[b].Price
		})
	}

	sort.SliceStable(groups, func(a, b int) bool {
		if len(groups[a].Members) != len(groups[b].Members) {
			return len(groups[a].Members) > len(groups[b].Members)
		}
		return groups[a].LowestPrice < groups[b].LowestPrice
	})

	return groups
}
