package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gigabite-pro/kickrax-sub000/cache"
	"github.com/gigabite-pro/kickrax-sub000/config"
	"github.com/gigabite-pro/kickrax-sub000/models"
	"github.com/gigabite-pro/kickrax-sub000/scraper"
	"github.com/gigabite-pro/kickrax-sub000/services"
	"github.com/gigabite-pro/kickrax-sub000/utils"
)

func main() {
	var (
		searchQuery = flag.String("search", "", "search the catalog for a query")
		trending    = flag.Bool("trending", false, "show trending sneakers")
		productURL  = flag.String("product", "", "compare one product URL across all marketplaces")
		sourceID    = flag.String("source", "", "restrict -product to a single marketplace")
		outFile     = flag.String("out", "comparison.json", "output file for -product runs")
	)
	flag.Parse()

	cfg := config.Default()

	log.Printf("╔═══════════════════════════════════════════════════╗")
	log.Printf("║        Kickrax Sneaker Price Comparison           ║")
	log.Printf("╚═══════════════════════════════════════════════════╝")
	log.Printf("Mode     : %s", cfg.Mode)
	log.Printf("Currency : %s (rate %.2f)", cfg.CanonicalCurrency, cfg.ConversionRate)
	log.Printf("Retries  : %d (backoff %s)", cfg.MaxRetries, cfg.BackoffBase)

	engine := services.NewEngine(cfg)
	defer engine.Close()

	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(cfg)
		if err != nil {
			log.Printf("⚠ Redis unavailable, trending cache disabled: %v", err)
		} else {
			defer redisCache.Close()
			engine.WithCache(redisCache)
		}
	}

	token := utils.NewToken()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Printf("⚠ interrupt received, aborting")
		token.Signal()
	}()

	switch {
	case *searchQuery != "":
		runSearch(engine, *searchQuery, token)
	case *trending:
		runTrending(engine, token)
	case *productURL != "" && *sourceID != "":
		runSingleSource(engine, *sourceID, *productURL, token)
	case *productURL != "":
		runComparison(engine, cfg, *productURL, *outFile, token)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func runSearch(engine *services.Engine, query string, token *utils.Token) {
	products, err := engine.Search(query, token)
	if err != nil {
		log.Fatalf("✗ Search failed: %v", err)
	}
	log.Printf("✓ %d results for %q", len(products), query)
	printProducts(products)
}

func runTrending(engine *services.Engine, token *utils.Token) {
	products, err := engine.Trending(token)
	if err != nil {
		log.Fatalf("✗ Trending lookup failed: %v", err)
	}
	log.Printf("✓ %d trending sneakers", len(products))
	printProducts(products)
}

func printProducts(products []models.Product) {
	for i, p := range products {
		log.Printf("  %2d. %-45s $%.0f  %s", i+1, p.Name, p.Price, p.URL)
	}
}

func runSingleSource(engine *services.Engine, sourceID, productURL string, token *utils.Token) {
	result, err := engine.PriceBySource(sourceID, productURL, token)
	if err != nil {
		log.Fatalf("✗ %s lookup failed: %v", sourceID, err)
	}
	log.Printf("✓ %s: %s (%s)", result.Source, result.ProductName, result.StyleID)
	for _, size := range result.Sizes {
		log.Printf("    size %-5s %8.2f  available=%t", size.Size, size.Converted, size.Available)
	}
}

func runComparison(engine *services.Engine, cfg config.Config, productURL, outFile string, token *utils.Token) {
	var results []models.SourceResult
	for ev := range engine.ProductAllPrices(productURL, token) {
		if err := services.WriteEvent(os.Stdout, ev); err != nil {
			log.Fatalf("✗ Failed to write event stream: %v", err)
		}
		if ev.Kind == models.EventUpdate && ev.Update.Result != nil {
			results = append(results, *ev.Update.Result)
		}
		if ev.Kind == models.EventError {
			log.Fatalf("✗ Run failed: %s", ev.Error.Message)
		}
	}

	groups := services.Aggregate(scraper.Flatten(results))
	total, err := utils.WriteJSON(outFile, groups)
	if err != nil {
		log.Fatalf("✗ Failed to write JSON: %v", err)
	}

	log.Printf("═══════════════════════════════════════════════════")
	log.Printf("  DONE — %d comparison groups → %s", total, outFile)
	for _, g := range groups {
		log.Printf("    %-40s %d offers, from %.2f", g.Name, len(g.Members), g.LowestPrice)
	}

	stats := utils.BuildSummaryStats(results)
	log.Printf("  STATS")
	log.Printf("    Total Offers   : %d", stats.TotalOffers)
	log.Printf("    Average Price  : %.2f", stats.AveragePrice)
	log.Printf("    Minimum Price  : %.2f", stats.MinimumPrice)
	log.Printf("    Maximum Price  : %.2f", stats.MaximumPrice)
	if stats.TotalOffers > 0 {
		log.Printf("    Cheapest Offer : %s size %s | %.2f %s",
			stats.CheapestOffer.Source,
			stats.CheapestOffer.Size,
			stats.CheapestOffer.Price,
			cfg.CanonicalCurrency,
		)
	}

	log.Printf("    Offers per Source")
	for _, sc := range stats.OffersBySource {
		log.Printf("      - %s: %d", sc.Source, sc.Count)
	}

	log.Printf("    Top 5 Deals")
	for _, deal := range stats.TopDeals {
		log.Printf("      - %-12s size %-5s %.2f", deal.Source, deal.Size, deal.Price)
	}
}
