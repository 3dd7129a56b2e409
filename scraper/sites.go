package scraper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// profile describes one marketplace: where its product page lives and
// which selectors pull the name, brand and size grid out of it. The
// same profile feeds both execution strategies — browser tabs evaluate
// gridJS, the remote path parses the rendered HTML with goquery.
type profile struct {
	id       string
	currency string

	productURL func(t Target) string

	readySelector string
	nameSel       string
	brandSel      string
	styleSel      string
	rowSel        string
}

var siteProfiles = []profile{
	{
		id:       "stockx",
		currency: "USD",
		productURL: func(t Target) string {
			return "https://stockx.com/" + t.Slug
		},
		readySelector: StockXReadySelector,
		nameSel:       `h1[data-testid="product-name"]`,
		brandSel:      `[data-testid="product-brand"]`,
		styleSel:      `[data-testid="product-detail-style"]`,
		rowSel:        StockXSizeRow,
	},
	{
		id:       "goat",
		currency: "USD",
		productURL: func(t Target) string {
			return "https://www.goat.com/sneakers/" + t.Slug
		},
		readySelector: GoatReadySelector,
		nameSel:       `[data-qa="product_display_name"]`,
		brandSel:      `[data-qa="product_brand"]`,
		styleSel:      `[data-qa="product_sku"]`,
		rowSel:        GoatSizeRow,
	},
	{
		id:       "flightclub",
		currency: "USD",
		productURL: func(t Target) string {
			return "https://www.flightclub.com/" + t.Slug
		},
		readySelector: FlightClubReadySelector,
		nameSel:       `[data-qa="ProductName"]`,
		brandSel:      `[data-qa="ProductBrand"]`,
		styleSel:      `[data-qa="ProductSku"]`,
		rowSel:        FlightClubSizeRow,
	},
	{
		id:       "kickscrew",
		currency: "GBP",
		productURL: func(t Target) string {
			return "https://www.kickscrew.com/products/" + t.Slug
		},
		readySelector: KicksCrewReadySelector,
		nameSel:       `h1.product-title`,
		brandSel:      `.product-vendor`,
		styleSel:      `.product-sku`,
		rowSel:        KicksCrewSizeRow,
	},
}

// gridJS builds the in-page extraction snippet for this profile. Size
// rows carry the size in a data-size attribute or as the row's first
// numeric token; the price is whatever currency-looking number the row
// text contains.
func (p profile) gridJS() string {
	return fmt.Sprintf(`
(() => {
	const text = (sel) => {
		const el = document.querySelector(sel);
		return el ? el.textContent.trim() : '';
	};
	const rows = Array.from(document.querySelectorAll(%q));
	const sizes = rows.map((row) => {
		const raw = row.textContent || '';
		const sizeAttr = row.getAttribute('data-size');
		const sizeMatch = raw.match(/(\d+(?:\.\d+)?)/);
		const priceMatch = raw.match(/[$£€]\s?([\d,]+(?:\.\d+)?)/);
		return {
			size: sizeAttr || (sizeMatch ? sizeMatch[1] : ''),
			price: priceMatch ? parseFloat(priceMatch[1].replace(/,/g, '')) : 0,
			available: !row.disabled && !row.classList.contains('unavailable'),
		};
	}).filter((s) => s.size && s.price > 0);
	return {
		name: text(%q),
		brand: text(%q),
		styleId: text(%q),
		url: location.href,
		sizes,
	};
})();
`, p.rowSel, p.nameSel, p.brandSel, p.styleSel)
}

var priceTextRe = regexp.MustCompile(`[\d,]+(?:\.\d+)?`)
var sizeTextRe = regexp.MustCompile(`\d+(?:\.\d+)?`)
var currencyPriceRe = regexp.MustCompile(`[$£€]\s?([\d,]+(?:\.\d+)?)`)

// parse extracts the same grid from server-rendered HTML.
func (p profile) parse(doc *goquery.Document, pageURL string) (*rawResult, error) {
	raw := &rawResult{
		Name:    strings.TrimSpace(doc.Find(p.nameSel).First().Text()),
		Brand:   strings.TrimSpace(doc.Find(p.brandSel).First().Text()),
		StyleID: strings.TrimSpace(doc.Find(p.styleSel).First().Text()),
		URL:     pageURL,
	}
	if raw.Name == "" {
		return nil, ErrNotFound
	}

	doc.Find(p.rowSel).Each(func(_ int, row *goquery.Selection) {
		text := strings.TrimSpace(row.Text())

		size, ok := row.Attr("data-size")
		if !ok || size == "" {
			size = sizeTextRe.FindString(text)
		}

		var price float64
		if m := priceTextRe.FindString(stripSizePrefix(text, size)); m != "" {
			price, _ = strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
		}
		if size == "" || price <= 0 {
			return
		}

		_, disabled := row.Attr("disabled")
		raw.Sizes = append(raw.Sizes, rawSize{
			Size:      size,
			Price:     price,
			Available: !disabled && !row.HasClass("unavailable"),
		})
	})

	return raw, nil
}

// stripSizePrefix drops the leading size token so "9.5 $160" doesn't
// parse 9.5 as the price.
func stripSizePrefix(text, size string) string {
	if size == "" {
		return text
	}
	if idx := strings.Index(text, size); idx >= 0 {
		return text[idx+len(size):]
	}
	return text
}
