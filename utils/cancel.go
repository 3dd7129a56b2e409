package utils

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrAborted reports cooperative cancellation. It is never retried and
// always propagated immediately.
var ErrAborted = errors.New("aborted")

// sleepSlice bounds how long a Sleep can run without observing the
// token, so cancellation lands within one slice.
const sleepSlice = 100 * time.Millisecond

// Token is a cooperative cancellation flag shared by every task
// spawned for one request. It is signalled at most once; tasks check
// it immediately before every suspension point.
type Token struct {
	once sync.Once
	done chan struct{}
}

// NewToken creates an unsignalled token.
func NewToken() *Token {
	return &Token{done: make(chan struct{})}
}

// Signal fires the token. Safe to call more than once.
func (t *Token) Signal() {
	t.once.Do(func() { close(t.done) })
}

// Signalled reports whether the token has fired.
func (t *Token) Signalled() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Err returns ErrAborted once the token has fired, nil before.
func (t *Token) Err() error {
	if t.Signalled() {
		return ErrAborted
	}
	return nil
}

// Done exposes the underlying channel for select loops.
func (t *Token) Done() <-chan struct{} {
	return t.done
}

// Sleep waits for d in slices no longer than 100ms, returning
// ErrAborted as soon as the token fires.
func (t *Token) Sleep(d time.Duration) error {
	for d > 0 {
		slice := d
		if slice > sleepSlice {
			slice = sleepSlice
		}
		select {
		case <-t.done:
			return ErrAborted
		case <-time.After(slice):
		}
		d -= slice
	}
	return t.Err()
}

// Context derives a context that is cancelled when either the token
// fires or the returned CancelFunc runs. It bridges the token into
// chromedp and net/http calls.
func (t *Token) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-t.done:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
