package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gigabite-pro/kickrax-sub000/config"
	"github.com/gigabite-pro/kickrax-sub000/models"
	"github.com/gigabite-pro/kickrax-sub000/utils"
)

// RenderClient talks to the stateless remote rendering service: one
// POST per page, no session held between calls. Rate-limited calls are
// retried with linear backoff through utils.Connector.
type RenderClient struct {
	renderURL string
	apiKey    string
	http      *http.Client
	conn      utils.Connector
}

// NewRenderClient builds a client from config. Every call carries an
// explicit timeout via the request context.
func NewRenderClient(cfg config.Config) *RenderClient {
	return &RenderClient{
		renderURL: strings.TrimRight(cfg.RemoteRenderURL, "/") + "/render",
		apiKey:    cfg.RemoteRenderKey,
		http:      &http.Client{Timeout: cfg.NavTimeout},
		conn: utils.Connector{
			MaxAttempts: cfg.MaxRetries,
			BackoffBase: cfg.BackoffBase,
			Retryable:   IsRateLimited,
		},
	}
}

type renderRequest struct {
	URL     string `json:"url"`
	WaitFor string `json:"waitFor,omitempty"`
}

// Fetch renders pageURL remotely and returns the parsed document.
// HTTP status maps onto the failure taxonomy: 404 NotFound, 403
// Blocked, 429 RateLimited (retried here), timeouts Timeout.
func (c *RenderClient) Fetch(ctx context.Context, token *utils.Token, pageURL, waitFor string) (*goquery.Document, error) {
	var doc *goquery.Document

	_, err := c.conn.Do(token, func() error {
		body, err := json.Marshal(renderRequest{URL: pageURL, WaitFor: waitFor})
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.renderURL, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return ErrTimeout
			}
			return AsTimeout(err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return ErrRateLimited
		case resp.StatusCode == http.StatusNotFound:
			return ErrNotFound
		case resp.StatusCode == http.StatusForbidden:
			return ErrBlocked
		case resp.StatusCode >= 400:
			return fmt.Errorf("render %s: status %s", pageURL, resp.Status)
		}

		doc, err = goquery.NewDocumentFromReader(resp.Body)
		if err != nil {
			return fmt.Errorf("parse rendered page: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// RemoteSource scrapes one marketplace via the rendering service. No
// shared browser session exists in this mode; each task's call chain
// is fully independent.
type RemoteSource struct {
	p      profile
	cfg    config.Config
	client *RenderClient
}

// NewRemoteSources returns the remote-protocol adapter set, all
// sharing one stateless client.
func NewRemoteSources(cfg config.Config) []Source {
	client := NewRenderClient(cfg)
	sources := make([]Source, 0, len(siteProfiles))
	for _, p := range siteProfiles {
		sources = append(sources, &RemoteSource{p: p, cfg: cfg, client: client})
	}
	return sources
}

func (s *RemoteSource) ID() string { return s.p.id }

func (s *RemoteSource) Scrape(ctx context.Context, target Target, token *utils.Token) (*models.SourceResult, error) {
	if err := token.Err(); err != nil {
		return nil, err
	}

	reqCtx, cancel := token.Context(ctx)
	defer cancel()
	reqCtx, cancelTimeout := context.WithTimeout(reqCtx, s.cfg.NavTimeout)
	defer cancelTimeout()

	pageURL := s.p.productURL(target)
	doc, err := s.client.Fetch(reqCtx, token, pageURL, s.p.readySelector)
	if err != nil {
		return nil, err
	}

	if looksLikeChallenge(docHTML(doc)) {
		// The stateless service can't sit out an interstitial.
		return nil, ErrTimeout
	}

	raw, err := s.p.parse(doc, pageURL)
	if err != nil {
		return nil, err
	}
	return normalize(s.p.id, raw, s.p.currency, s.cfg), nil
}

func docHTML(doc *goquery.Document) string {
	html, err := doc.Find("body").Html()
	if err != nil {
		return ""
	}
	return html
}
