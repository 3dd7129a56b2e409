package scraper

import (
	"context"
	"errors"

	"github.com/gigabite-pro/kickrax-sub000/utils"
)

// Failure classes surfaced by marketplace adapters. Cancellation is
// utils.ErrAborted, owned by the token.
var (
	// ErrRateLimited marks a 429-class response; retried with backoff
	// up to a cap, then surfaced.
	ErrRateLimited = errors.New("rate limited")
	// ErrBlocked marks an anti-bot interstitial; waited out up to a
	// bound, then demoted to ErrTimeout.
	ErrBlocked = errors.New("blocked by anti-bot challenge")
	// ErrNotFound means the marketplace has no matching product.
	// Terminal but not an error for the run: it becomes a null result.
	ErrNotFound = errors.New("product not found")
	// ErrTimeout marks a navigation or remote call that exceeded its
	// budget. Per-source failure, never fatal to the run.
	ErrTimeout = errors.New("timed out")
	// ErrConnectionFailure means the shared browser session could not
	// be established. The pool resets so later callers retry cleanly.
	ErrConnectionFailure = errors.New("cannot establish browser session")
)

// IsRateLimited reports whether err is rate-limit class.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsNotFound reports whether err is the terminal no-match outcome.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// AsTimeout demotes context deadline errors to the Timeout class so a
// slow marketplace degrades to a per-source failure.
func AsTimeout(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}

// IsAborted reports cooperative cancellation.
func IsAborted(err error) bool {
	return errors.Is(err, utils.ErrAborted) || errors.Is(err, context.Canceled)
}
