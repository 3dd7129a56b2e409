package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gigabite-pro/kickrax-sub000/models"
)

func TestGroupKeyPrefersStyleCode(t *testing.T) {
	a := models.FlatListing{Name: "Air Jordan 1 Retro High OG", Brand: "Jordan", StyleID: "DZ5485-612"}
	b := models.FlatListing{Name: "Jordan 1 High OG Chicago (2022)", Brand: "Air Jordan", StyleID: "dz5485 612"}

	assert.Equal(t, "dz5485612", GroupKey(a))
	assert.Equal(t, GroupKey(a), GroupKey(b))
}

func TestGroupKeyFallsBackToCleanedNameAndBrand(t *testing.T) {
	a := models.FlatListing{Name: "Nike Dunk Low Panda (US 9) NEW", Brand: "Nike"}
	b := models.FlatListing{Name: "Nike Dunk Low Panda size 10.5 Deadstock", Brand: "Nike!"}
	c := models.FlatListing{Name: "Nike Dunk Low Panda", Brand: "Adidas"}

	assert.Equal(t, GroupKey(a), GroupKey(b))
	// Same name, different brand must not merge.
	assert.NotEqual(t, GroupKey(a), GroupKey(c))
}

func TestGroupKeyIgnoresShortIdentifiers(t *testing.T) {
	a := models.FlatListing{Name: "Yeezy Boost 350", Brand: "Adidas", StyleID: "ab1"}
	b := models.FlatListing{Name: "Yeezy Boost 350", Brand: "Adidas"}

	assert.Equal(t, GroupKey(a), GroupKey(b))
}

func TestAggregateSingleListingIsItsOwnBestDeal(t *testing.T) {
	l := models.FlatListing{Source: "stockx", Size: "9", Price: 180, Name: "Dunk Low", Brand: "Nike"}

	groups := Aggregate([]models.FlatListing{l})

	require.Len(t, groups, 1)
	assert.Equal(t, l, groups[0].BestDeal)
	assert.Equal(t, 180.0, groups[0].LowestPrice)
	assert.Equal(t, 180.0, groups[0].HighestPrice)
	assert.Equal(t, 180.0, groups[0].AveragePrice)
}

func TestAggregateFindsBestDealAcrossSources(t *testing.T) {
	listings := []models.FlatListing{
		{Source: "stockx", Size: "9", Price: 150, Name: "Jordan 4 Bred", Brand: "Jordan", StyleID: "fv5029-006"},
		{Source: "stockx", Size: "9.5", Price: 160, Name: "Jordan 4 Bred", Brand: "Jordan", StyleID: "fv5029-006"},
		{Source: "goat", Size: "9", Price: 140, Name: "Jordan 4 Retro Bred Reimagined", Brand: "Jordan", StyleID: "FV5029-006"},
	}

	groups := Aggregate(listings)

	require.Len(t, groups, 1)
	g := groups[0]
	assert.Equal(t, 140.0, g.LowestPrice)
	assert.Equal(t, 160.0, g.HighestPrice)
	assert.Equal(t, 150.0, g.AveragePrice)
	assert.Equal(t, "goat", g.BestDeal.Source)
	assert.Equal(t, "9", g.BestDeal.Size)

	require.Len(t, g.Members, 3)
	assert.Equal(t, 140.0, g.Members[0].Price)
	assert.Equal(t, 150.0, g.Members[1].Price)
	assert.Equal(t, 160.0, g.Members[2].Price)
}

func TestAggregateRanksByMemberCountThenLowestPrice(t *testing.T) {
	listings := []models.FlatListing{
		{Source: "stockx", Size: "8", Price: 300, StyleID: "aaaa-100", Name: "Shoe A"},
		{Source: "goat", Size: "8", Price: 310, StyleID: "aaaa-100", Name: "Shoe A"},
		{Source: "stockx", Size: "9", Price: 90, StyleID: "bbbb-200", Name: "Shoe B"},
		{Source: "stockx", Size: "10", Price: 120, StyleID: "cccc-300", Name: "Shoe C"},
	}

	groups := Aggregate(listings)

	require.Len(t, groups, 3)
	assert.Equal(t, "Shoe A", groups[0].Name)
	assert.Equal(t, "Shoe B", groups[1].Name)
	assert.Equal(t, "Shoe C", groups[2].Name)
}

func TestAggregateIsDeterministic(t *testing.T) {
	listings := []models.FlatListing{
		{Source: "goat", Size: "9", Price: 140, Name: "Samba OG", Brand: "Adidas"},
		{Source: "stockx", Size: "9", Price: 140, Name: "Samba OG", Brand: "Adidas"},
		{Source: "kickscrew", Size: "10", Price: 95, Name: "Gazelle", Brand: "Adidas"},
	}

	first := Aggregate(listings)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Aggregate(listings))
	}
	// Equal-price members keep input order.
	assert.Equal(t, "goat", first[0].Members[0].Source)
	assert.Equal(t, "stockx", first[0].Members[1].Source)
}

func TestAggregateRoundsAveragePrice(t *testing.T) {
	listings := []models.FlatListing{
		{Source: "stockx", Size: "9", Price: 100, StyleID: "dd1391-100"},
		{Source: "goat", Size: "9", Price: 101, StyleID: "dd1391-100"},
		{Source: "flightclub", Size: "9", Price: 103, StyleID: "dd1391-100"},
	}

	groups := Aggregate(listings)

	require.Len(t, groups, 1)
	assert.Equal(t, 101.0, groups[0].AveragePrice)
}

func TestAggregateEmptyInput(t *testing.T) {
	assert.Empty(t, Aggregate(nil))
}
