package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/gigabite-pro/kickrax-sub000/config"
	"github.com/gigabite-pro/kickrax-sub000/models"
	"github.com/gigabite-pro/kickrax-sub000/utils"
)

// BrowserSource scrapes one marketplace through an isolated chromedp
// tab handed in by the orchestrator. The tab is never shared with
// another task and is closed by the caller on every exit path.
type BrowserSource struct {
	p   profile
	cfg config.Config
}

// NewBrowserSources returns the browser-mode adapter set, one per
// registered marketplace profile.
func NewBrowserSources(cfg config.Config) []Source {
	sources := make([]Source, 0, len(siteProfiles))
	for _, p := range siteProfiles {
		sources = append(sources, &BrowserSource{p: p, cfg: cfg})
	}
	return sources
}

func (s *BrowserSource) ID() string { return s.p.id }

// Scrape navigates the tab to the marketplace's product page, waits it
// out past any anti-bot interstitial, and extracts the size/price grid
// in one JS round-trip.
func (s *BrowserSource) Scrape(ctx context.Context, target Target, token *utils.Token) (*models.SourceResult, error) {
	if err := token.Err(); err != nil {
		return nil, err
	}

	tabCtx, cancel := token.Context(ctx)
	defer cancel()
	tabCtx, cancelNav := context.WithTimeout(tabCtx, s.cfg.NavTimeout)
	defer cancelNav()

	pageURL := s.p.productURL(target)
	if err := chromedp.Run(tabCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{
			"Accept-Language": "en-US,en;q=0.9",
		}),
		chromedp.Navigate(pageURL),
	); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", pageURL, AsTimeout(err))
	}

	if err := s.waitReady(tabCtx, token); err != nil {
		return nil, err
	}

	if err := token.Sleep(s.cfg.RandomDelay()); err != nil {
		return nil, err
	}

	var raw rawResult
	if err := chromedp.Run(tabCtx, chromedp.Evaluate(s.p.gridJS(), &raw)); err != nil {
		return nil, fmt.Errorf("extract size grid: %w", AsTimeout(err))
	}
	if raw.Name == "" {
		return nil, ErrNotFound
	}

	return normalize(s.p.id, &raw, s.p.currency, s.cfg), nil
}

// waitReady waits for the product header, polling through anti-bot
// interstitials up to ChallengeWait. An unresolved challenge demotes
// to Timeout; a rendered 429 page surfaces as RateLimited.
func (s *BrowserSource) waitReady(tabCtx context.Context, token *utils.Token) error {
	readyCtx, cancel := context.WithTimeout(tabCtx, s.cfg.ChallengeWait)
	defer cancel()

	for {
		if err := token.Err(); err != nil {
			return err
		}

		var ready bool
		checkJS := fmt.Sprintf(`document.querySelector(%q) !== null`, s.p.readySelector)
		if err := chromedp.Run(readyCtx, chromedp.Evaluate(checkJS, &ready)); err != nil {
			return fmt.Errorf("wait product page: %w", AsTimeout(err))
		}
		if ready {
			return nil
		}

		var body string
		if err := chromedp.Run(readyCtx, chromedp.OuterHTML("body", &body)); err == nil {
			if looksLikeRateLimit(body) {
				return ErrRateLimited
			}
			if !looksLikeChallenge(body) && readyCtx.Err() != nil {
				return ErrTimeout
			}
		}

		select {
		case <-readyCtx.Done():
			// Challenge never cleared within the bound.
			return ErrTimeout
		case <-token.Done():
			return utils.ErrAborted
		case <-time.After(500 * time.Millisecond):
		}
	}
}
