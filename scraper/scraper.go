package scraper

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/gigabite-pro/kickrax-sub000/config"
	"github.com/gigabite-pro/kickrax-sub000/models"
	"github.com/gigabite-pro/kickrax-sub000/utils"
)

// Source is one pluggable marketplace adapter. In browser mode ctx is
// an isolated tab context owned by the caller; in remote mode it is a
// plain request context and the adapter makes its own stateless calls.
// A nil result with a nil error never happens: "nothing found" is
// ErrNotFound.
type Source interface {
	ID() string
	Scrape(ctx context.Context, target Target, token *utils.Token) (*models.SourceResult, error)
}

// Target identifies the product being priced: the originating URL plus
// the slug and style code derived from it.
type Target struct {
	URL     string
	Slug    string
	StyleID string
}

var slugCleanRe = regexp.MustCompile(`[^a-z0-9]+`)

// NewTarget derives a lookup target from a product URL. The slug is
// the last path segment; a trailing style code like "dd1391-100" stays
// inside the slug and is also extracted on its own when present.
func NewTarget(productURL string) Target {
	t := Target{URL: productURL}

	u, err := url.Parse(productURL)
	if err != nil {
		t.Slug = slugify(productURL)
		return t
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) > 0 {
		t.Slug = slugify(segments[len(segments)-1])
	}
	if m := styleCodeRe.FindString(t.Slug); m != "" {
		t.StyleID = m
	}
	return t
}

var styleCodeRe = regexp.MustCompile(`[a-z]{1,3}\d{4,6}(?:-\d{3})?`)

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugCleanRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// rawResult is what a site profile extracts before normalization.
type rawResult struct {
	Name    string    `json:"name"`
	Brand   string    `json:"brand"`
	StyleID string    `json:"styleId"`
	URL     string    `json:"url"`
	Sizes   []rawSize `json:"sizes"`
}

type rawSize struct {
	Size      string  `json:"size"`
	Price     float64 `json:"price"`
	Available bool    `json:"available"`
}

// normalize turns a profile's raw extraction into a SourceResult:
// converts to the canonical currency with the fixed configured rate,
// caps the size list, and computes the lowest available price.
func normalize(sourceID string, raw *rawResult, currency string, cfg config.Config) *models.SourceResult {
	result := &models.SourceResult{
		Source:      sourceID,
		ProductName: strings.TrimSpace(raw.Name),
		Brand:       strings.TrimSpace(raw.Brand),
		StyleID:     strings.TrimSpace(raw.StyleID),
		URL:         raw.URL,
	}

	for _, size := range raw.Sizes {
		if size.Price <= 0 {
			continue
		}
		converted := size.Price
		if currency != cfg.CanonicalCurrency && cfg.ConversionRate > 0 {
			converted = size.Price * cfg.ConversionRate
		}
		result.Sizes = append(result.Sizes, models.SizePrice{
			Size:      strings.TrimSpace(size.Size),
			Price:     size.Price,
			Converted: converted,
			Currency:  currency,
			URL:       raw.URL,
			Available: size.Available,
		})
		if cfg.MaxSizesPerSource > 0 && len(result.Sizes) >= cfg.MaxSizesPerSource {
			break
		}
	}

	result.LowestPrice = result.Lowest()
	for _, s := range result.Sizes {
		if s.Available {
			result.Available = true
			break
		}
	}
	return result
}

// Flatten explodes non-nil source results into size-level listings for
// the aggregator. Prices are the canonical-currency conversions.
func Flatten(results []models.SourceResult) []models.FlatListing {
	var flat []models.FlatListing
	for _, r := range results {
		for _, s := range r.Sizes {
			url := s.URL
			if url == "" {
				url = r.URL
			}
			flat = append(flat, models.FlatListing{
				Source:  r.Source,
				Size:    s.Size,
				Price:   s.Converted,
				URL:     url,
				Name:    r.ProductName,
				Brand:   r.Brand,
				StyleID: r.StyleID,
			})
		}
	}
	return flat
}

// looksLikeChallenge spots the usual anti-bot interstitial copy.
func looksLikeChallenge(html string) bool {
	lower := strings.ToLower(html)
	for _, pattern := range []string{
		"verify you are human",
		"verifying you are human",
		"checking your browser",
		"press & hold",
		"just a moment",
	} {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// looksLikeRateLimit spots a 429 page rendered as HTML.
func looksLikeRateLimit(html string) bool {
	lower := strings.ToLower(html)
	return strings.Contains(lower, "too many requests") || strings.Contains(lower, "rate limit")
}
