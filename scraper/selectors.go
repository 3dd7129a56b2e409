package scraper

// CSS selectors used across the marketplace adapters.
// Centralising them makes future markup churn trivial to absorb.
const (
	// StockX
	StockXReadySelector = `[data-component="product-header"], h1[data-testid="product-name"]`
	StockXCardSelector  = `[data-testid="productTile"], .tile.browse-grid-tile`
	StockXSizeRow       = `[data-testid="sizes-form"] button, .size-selector button`

	// GOAT
	GoatReadySelector = `[data-qa="product_display_name"], h1.product-name`
	GoatCardSelector  = `[data-qa="grid_cell_product"], .product-template-item`
	GoatSizeRow       = `[data-qa="size_item"], .size-picker-item`

	// Flight Club
	FlightClubReadySelector = `[data-qa="ProductName"], h1[itemprop="name"]`
	FlightClubCardSelector  = `[data-qa="ProductCard"], .product-card`
	FlightClubSizeRow       = `[data-qa="SizeChartItem"], .size-chart-item`

	// KicksCrew
	KicksCrewReadySelector = `h1.product-title, [data-testid="product-title"]`
	KicksCrewCardSelector  = `.product-grid-item, [data-testid="collection-card"]`
	KicksCrewSizeRow       = `.size-table-row, [data-testid="size-row"]`

	// Trending / search catalog (StockX browse grid)
	CatalogReadySelector = `[data-testid="browse-grid"], .browse-grid`
)
