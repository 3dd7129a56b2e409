package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/chromedp/chromedp"

	"github.com/gigabite-pro/kickrax-sub000/cache"
	"github.com/gigabite-pro/kickrax-sub000/config"
	"github.com/gigabite-pro/kickrax-sub000/models"
	"github.com/gigabite-pro/kickrax-sub000/scraper"
	"github.com/gigabite-pro/kickrax-sub000/utils"
)

const trendingCacheKey = "kickrax:trending"

// Engine is the public face of the comparison service: catalog lookups
// against the primary marketplace plus the cross-marketplace price
// fan-out. One Engine per process; it owns the session pool.
type Engine struct {
	cfg     config.Config
	pool    *SessionPool
	orch    *Orchestrator
	catalog scraper.Catalog
	cache   cache.Cache
}

// NewEngine wires the adapter set and catalog for the configured
// execution mode.
func NewEngine(cfg config.Config) *Engine {
	pool := NewSessionPool(cfg)

	var sources []scraper.Source
	var catalog scraper.Catalog
	if cfg.Mode == config.ModeRemote {
		sources = scraper.NewRemoteSources(cfg)
		catalog = scraper.NewRemoteCatalog(cfg)
	} else {
		sources = scraper.NewBrowserSources(cfg)
		catalog = scraper.NewBrowserCatalog(cfg)
	}

	return &Engine{
		cfg:     cfg,
		pool:    pool,
		orch:    NewOrchestrator(cfg, pool, sources),
		catalog: catalog,
	}
}

// WithCache attaches a trending cache. Without one every Trending call
// hits the marketplace.
func (e *Engine) WithCache(c cache.Cache) *Engine {
	e.cache = c
	return e
}

// Search returns catalog matches for a free-text query.
func (e *Engine) Search(query string, token *utils.Token) ([]models.Product, error) {
	return e.catalogCall(token, func(ctx context.Context) ([]models.Product, error) {
		return e.catalog.Search(ctx, query, token)
	})
}

// Trending returns the marketplace's most-popular list, served from
// cache while fresh. Cache failures are treated as misses; a broken
// redis never breaks the lookup.
func (e *Engine) Trending(token *utils.Token) ([]models.Product, error) {
	cacheCtx, cancelCache := token.Context(context.Background())
	defer cancelCache()

	if e.cache != nil {
		if data, ok, err := e.cache.Get(cacheCtx, trendingCacheKey); err == nil && ok {
			var products []models.Product
			if jerr := json.Unmarshal(data, &products); jerr == nil {
				return products, nil
			}
		} else if err != nil {
			log.Printf("⚠ trending cache read: %v", err)
		}
	}

	products, err := e.catalogCall(token, func(ctx context.Context) ([]models.Product, error) {
		return e.catalog.Trending(ctx, token)
	})
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if data, jerr := json.Marshal(products); jerr == nil {
			if err := e.cache.Set(cacheCtx, trendingCacheKey, data, e.cfg.TrendingTTL); err != nil {
				log.Printf("⚠ trending cache write: %v", err)
			}
		}
	}
	return products, nil
}

// catalogCall runs one catalog scrape, on a pooled-browser tab in
// browser mode or directly in remote mode.
func (e *Engine) catalogCall(token *utils.Token, fn func(ctx context.Context) ([]models.Product, error)) ([]models.Product, error) {
	if e.cfg.Mode != config.ModeBrowser {
		return fn(context.Background())
	}

	sess, err := e.pool.AcquireShared(token)
	if err != nil {
		return nil, err
	}
	defer e.pool.Touch()

	tabCtx, cancelTab := chromedp.NewContext(sess.Context())
	defer cancelTab()
	return fn(tabCtx)
}

// ProductAllPrices streams one update per marketplace as each scrape
// finishes, then a terminal done or error event.
func (e *Engine) ProductAllPrices(productURL string, token *utils.Token) <-chan models.StreamEvent {
	return e.orch.Run(context.Background(), scraper.NewTarget(productURL), token)
}

// CompareAll runs the full fan-out to completion and returns ranked
// comparison groups alongside the per-source results.
func (e *Engine) CompareAll(productURL string, token *utils.Token) ([]models.AggregatedListing, []models.SourceResult, error) {
	var results []models.SourceResult
	for ev := range e.ProductAllPrices(productURL, token) {
		switch ev.Kind {
		case models.EventUpdate:
			if ev.Update.Result != nil {
				results = append(results, *ev.Update.Result)
			}
		case models.EventError:
			if token.Signalled() {
				return nil, nil, utils.ErrAborted
			}
			return nil, nil, errors.New(ev.Error.Message)
		}
	}
	return Aggregate(scraper.Flatten(results)), results, nil
}

// PriceBySource scrapes a single named marketplace.
func (e *Engine) PriceBySource(sourceID, productURL string, token *utils.Token) (*models.SourceResult, error) {
	return e.orch.RunOne(context.Background(), sourceID, scraper.NewTarget(productURL), token)
}

// Close tears down the pooled browser session.
func (e *Engine) Close() {
	e.pool.Release()
}
