package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"

	"github.com/gigabite-pro/kickrax-sub000/config"
	"github.com/gigabite-pro/kickrax-sub000/models"
	"github.com/gigabite-pro/kickrax-sub000/scraper"
	"github.com/gigabite-pro/kickrax-sub000/utils"
)

// Orchestrator fans one product lookup out across all marketplace
// adapters at once and streams results back in completion order. Every
// adapter that starts produces exactly one update event, hit or miss,
// followed by a single terminal done or error event.
type Orchestrator struct {
	cfg     config.Config
	pool    *SessionPool
	sources []scraper.Source
}

func NewOrchestrator(cfg config.Config, pool *SessionPool, sources []scraper.Source) *Orchestrator {
	return &Orchestrator{cfg: cfg, pool: pool, sources: sources}
}

// Run launches the fan-out and returns the event stream. The channel
// is buffered for the full run so slow consumers never block a
// scraper, and is closed after the terminal event.
func (o *Orchestrator) Run(ctx context.Context, target scraper.Target, token *utils.Token) <-chan models.StreamEvent {
	events := make(chan models.StreamEvent, len(o.sources)+1)
	go o.run(ctx, target, token, events)
	return events
}

func (o *Orchestrator) run(ctx context.Context, target scraper.Target, token *utils.Token, events chan<- models.StreamEvent) {
	defer close(events)

	runID := uuid.NewString()[:8]
	start := time.Now()
	log.Printf("[run %s] comparing %q across %d sources", runID, target.Slug, len(o.sources))

	var sess BrowserSession
	if o.cfg.Mode == config.ModeBrowser {
		var err error
		sess, err = o.pool.AcquireExclusive(token)
		if err != nil {
			log.Printf("[run %s] ✗ session: %v", runID, err)
			events <- models.ErrorEvent(err.Error())
			return
		}
		defer o.pool.EndExclusive()
	}

	var wg sync.WaitGroup
	for _, src := range o.sources {
		// Adapters not yet started when cancellation fires are skipped
		// entirely and emit no update.
		if token.Signalled() {
			break
		}
		wg.Add(1)
		go func(src scraper.Source) {
			defer wg.Done()
			events <- models.UpdateEvent(src.ID(), o.scrapeOne(ctx, sess, src, target, token, runID))
		}(src)
	}
	wg.Wait()

	if token.Signalled() {
		log.Printf("[run %s] ✗ aborted after %s", runID, time.Since(start).Round(time.Millisecond))
		events <- models.ErrorEvent("aborted")
		return
	}

	elapsed := time.Since(start)
	log.Printf("[run %s] ✓ done in %s", runID, elapsed.Round(time.Millisecond))
	events <- models.DoneEvent(elapsed.Milliseconds())
}

// scrapeOne runs a single adapter in its own tab (browser mode) or as
// an independent remote call. Failures become a nil result; the update
// event is emitted either way.
func (o *Orchestrator) scrapeOne(ctx context.Context, sess BrowserSession, src scraper.Source, target scraper.Target, token *utils.Token, runID string) *models.SourceResult {
	taskCtx := ctx
	if sess != nil {
		var cancelTab context.CancelFunc
		taskCtx, cancelTab = chromedp.NewContext(sess.Context())
		defer cancelTab()
	}

	result, err := src.Scrape(taskCtx, target, token)
	if err != nil {
		switch {
		case scraper.IsAborted(err):
			log.Printf("[run %s] [%s] aborted", runID, src.ID())
		case scraper.IsNotFound(err):
			log.Printf("[run %s] [%s] ✗ no match", runID, src.ID())
		default:
			log.Printf("[run %s] [%s] ⚠ %v", runID, src.ID(), err)
		}
		return nil
	}

	log.Printf("[run %s] [%s] ✓ %d sizes, lowest %.2f %s",
		runID, src.ID(), len(result.Sizes), result.LowestPrice, o.cfg.CanonicalCurrency)
	return result
}

// RunOne scrapes a single named marketplace, for targeted lookups that
// skip the fan-out.
func (o *Orchestrator) RunOne(ctx context.Context, sourceID string, target scraper.Target, token *utils.Token) (*models.SourceResult, error) {
	var src scraper.Source
	for _, s := range o.sources {
		if s.ID() == sourceID {
			src = s
			break
		}
	}
	if src == nil {
		return nil, fmt.Errorf("%w: unknown source %q", scraper.ErrNotFound, sourceID)
	}

	taskCtx := ctx
	if o.cfg.Mode == config.ModeBrowser {
		sess, err := o.pool.AcquireShared(token)
		if err != nil {
			return nil, err
		}
		defer o.pool.Touch()

		var cancelTab context.CancelFunc
		taskCtx, cancelTab = chromedp.NewContext(sess.Context())
		defer cancelTab()
	}

	return src.Scrape(taskCtx, target, token)
}
