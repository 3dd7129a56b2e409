package utils

import (
	"context"

	"github.com/chromedp/chromedp"

	"github.com/gigabite-pro/kickrax-sub000/config"
)

// NewAllocator creates a Chrome exec allocator context from the given
// Config. One allocator means one Chrome process; every scrape task
// gets its own tab via chromedp.NewContext on top of it.
func NewAllocator(parent context.Context, cfg config.Config) (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(cfg.UserAgent),
		chromedp.WindowSize(1440, 900),
	)
	return chromedp.NewExecAllocator(parent, opts...)
}

// NewRemoteAllocator attaches to a hosted Chrome over its devtools
// websocket (credential rides in the URL). Used when
// RemoteAllocatorURL is configured instead of launching Chrome here.
func NewRemoteAllocator(parent context.Context, cfg config.Config) (context.Context, context.CancelFunc) {
	return chromedp.NewRemoteAllocator(parent, cfg.RemoteAllocatorURL)
}
