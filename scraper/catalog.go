package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"github.com/gigabite-pro/kickrax-sub000/config"
	"github.com/gigabite-pro/kickrax-sub000/models"
	"github.com/gigabite-pro/kickrax-sub000/utils"
)

// Catalog looks up ordered product lists from the primary marketplace:
// a query search or the trending page. Single source, not a fan-out.
type Catalog interface {
	Search(ctx context.Context, query string, token *utils.Token) ([]models.Product, error)
	Trending(ctx context.Context, token *utils.Token) ([]models.Product, error)
}

const (
	searchURLFmt   = "https://stockx.com/search?s=%s"
	trendingURL    = "https://stockx.com/sneakers/most-popular"
	maxCatalogSize = 20
)

const catalogJS = `
(() => {
	const cards = Array.from(document.querySelectorAll('` + StockXCardSelector + `')).slice(0, 20);
	return cards.map((card) => {
		const link  = card.querySelector('a[href]');
		const img   = card.querySelector('img');
		const name  = card.querySelector('[data-testid="product-tile-title"], .name');
		const brand = card.querySelector('[data-testid="product-tile-brand"], .brand');
		const priceMatch = (card.textContent || '').match(/\$([\d,]+)/);
		return {
			name:  name ? name.textContent.trim() : '',
			brand: brand ? brand.textContent.trim() : '',
			url:   link ? link.href : '',
			image: img ? (img.src || '') : '',
			price: priceMatch ? parseFloat(priceMatch[1].replace(/,/g, '')) : 0,
		};
	}).filter((p) => p.name && p.url);
})();
`

// BrowserCatalog scrapes catalog pages through a tab on the shared
// pooled browser.
type BrowserCatalog struct {
	cfg config.Config
}

func NewBrowserCatalog(cfg config.Config) *BrowserCatalog {
	return &BrowserCatalog{cfg: cfg}
}

func (c *BrowserCatalog) Search(ctx context.Context, query string, token *utils.Token) ([]models.Product, error) {
	return c.scrape(ctx, fmt.Sprintf(searchURLFmt, url.QueryEscape(query)), token)
}

func (c *BrowserCatalog) Trending(ctx context.Context, token *utils.Token) ([]models.Product, error) {
	return c.scrape(ctx, trendingURL, token)
}

func (c *BrowserCatalog) scrape(ctx context.Context, pageURL string, token *utils.Token) ([]models.Product, error) {
	if err := token.Err(); err != nil {
		return nil, err
	}

	tabCtx, cancel := token.Context(ctx)
	defer cancel()
	tabCtx, cancelNav := context.WithTimeout(tabCtx, c.cfg.NavTimeout)
	defer cancelNav()

	if err := chromedp.Run(tabCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitVisible(CatalogReadySelector, chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", pageURL, AsTimeout(err))
	}

	if err := token.Sleep(c.cfg.RandomDelay()); err != nil {
		return nil, err
	}

	var products []models.Product
	if err := chromedp.Run(tabCtx, chromedp.Evaluate(catalogJS, &products)); err != nil {
		return nil, fmt.Errorf("extract catalog: %w", AsTimeout(err))
	}
	return products, nil
}

// RemoteCatalog serves the same pages through the stateless rendering
// service.
type RemoteCatalog struct {
	cfg    config.Config
	client *RenderClient
}

func NewRemoteCatalog(cfg config.Config) *RemoteCatalog {
	return &RemoteCatalog{cfg: cfg, client: NewRenderClient(cfg)}
}

func (c *RemoteCatalog) Search(ctx context.Context, query string, token *utils.Token) ([]models.Product, error) {
	return c.scrape(ctx, fmt.Sprintf(searchURLFmt, url.QueryEscape(query)), token)
}

func (c *RemoteCatalog) Trending(ctx context.Context, token *utils.Token) ([]models.Product, error) {
	return c.scrape(ctx, trendingURL, token)
}

func (c *RemoteCatalog) scrape(ctx context.Context, pageURL string, token *utils.Token) ([]models.Product, error) {
	if err := token.Err(); err != nil {
		return nil, err
	}

	reqCtx, cancel := token.Context(ctx)
	defer cancel()
	reqCtx, cancelTimeout := context.WithTimeout(reqCtx, c.cfg.NavTimeout)
	defer cancelTimeout()

	doc, err := c.client.Fetch(reqCtx, token, pageURL, CatalogReadySelector)
	if err != nil {
		return nil, err
	}
	return parseCatalog(doc), nil
}

func parseCatalog(doc *goquery.Document) []models.Product {
	var products []models.Product
	doc.Find(StockXCardSelector).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		link := card.Find("a[href]").First()
		href, _ := link.Attr("href")
		name := strings.TrimSpace(card.Find(`[data-testid="product-tile-title"], .name`).First().Text())
		if name == "" || href == "" {
			return true
		}

		var price float64
		if m := currencyPriceRe.FindStringSubmatch(card.Text()); m != nil {
			price, _ = strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		}
		image, _ := card.Find("img").First().Attr("src")

		products = append(products, models.Product{
			Name:  name,
			Brand: strings.TrimSpace(card.Find(`[data-testid="product-tile-brand"], .brand`).First().Text()),
			URL:   href,
			Image: image,
			Price: price,
		})
		return len(products) < maxCatalogSize
	})
	return products
}
