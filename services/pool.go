package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/gigabite-pro/kickrax-sub000/config"
	"github.com/gigabite-pro/kickrax-sub000/scraper"
	"github.com/gigabite-pro/kickrax-sub000/utils"
)

// BrowserSession is the one shared browser handle. Callers never
// navigate on it directly; they open their own tab off Context() so
// navigation state stays per-task.
type BrowserSession interface {
	Context() context.Context
	Close() error
}

// ConnectFunc establishes the underlying browser connection. Injected
// so tests can count connect attempts.
type ConnectFunc func(ctx context.Context) (BrowserSession, error)

type chromeSession struct {
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
}

func (s *chromeSession) Context() context.Context { return s.browserCtx }

func (s *chromeSession) Close() error {
	s.cancelBrowser()
	s.cancelAlloc()
	return nil
}

// chromeConnect launches or attaches to Chrome per config: a remote
// devtools endpoint when configured, a local headless process
// otherwise.
func chromeConnect(cfg config.Config) ConnectFunc {
	return func(ctx context.Context) (BrowserSession, error) {
		var allocCtx context.Context
		var cancelAlloc context.CancelFunc
		if cfg.RemoteAllocatorURL != "" {
			allocCtx, cancelAlloc = utils.NewRemoteAllocator(ctx, cfg)
		} else {
			allocCtx, cancelAlloc = utils.NewAllocator(ctx, cfg)
		}

		browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
		// A no-op run forces the browser to actually start.
		if err := chromedp.Run(browserCtx); err != nil {
			cancelBrowser()
			cancelAlloc()
			return nil, err
		}
		return &chromeSession{
			browserCtx:    browserCtx,
			cancelBrowser: cancelBrowser,
			cancelAlloc:   cancelAlloc,
		}, nil
	}
}

// connectCall is the single-flight record: later callers wait on done
// instead of dialing a second browser.
type connectCall struct {
	done chan struct{}
	sess BrowserSession
	err  error
}

// SessionPool owns the one shared browser connection: lazy single-
// flight connect, idle-timeout eviction, exclusive holds for
// multi-step flows.
type SessionPool struct {
	cfg     config.Config
	connect ConnectFunc

	mu       sync.Mutex
	session  BrowserSession
	inflight *connectCall
	// exclusive counts overlapping exclusive holds; the idle timer
	// only re-arms when it drops back to zero.
	exclusive int
	idleTimer *time.Timer
	// idleGen invalidates timer callbacks that were already dispatched
	// when the timer was stopped or re-armed.
	idleGen uint64
}

// NewSessionPool builds a pool that dials Chrome per config.
func NewSessionPool(cfg config.Config) *SessionPool {
	return NewSessionPoolWith(cfg, chromeConnect(cfg))
}

// NewSessionPoolWith builds a pool around a custom connector.
func NewSessionPoolWith(cfg config.Config, connect ConnectFunc) *SessionPool {
	return &SessionPool{cfg: cfg, connect: connect}
}

// AcquireShared returns the live session, joins an in-flight connect,
// or becomes the connector itself. Callers must Touch() once their
// operation completes so the idle timer re-arms.
func (p *SessionPool) AcquireShared(token *utils.Token) (BrowserSession, error) {
	p.mu.Lock()
	if p.session != nil {
		p.stopIdleLocked()
		sess := p.session
		p.mu.Unlock()
		return sess, nil
	}
	if call := p.inflight; call != nil {
		p.mu.Unlock()
		select {
		case <-call.done:
			return call.sess, call.err
		case <-token.Done():
			return nil, utils.ErrAborted
		}
	}
	call := &connectCall{done: make(chan struct{})}
	p.inflight = call
	p.mu.Unlock()

	sess, err := p.dial(token)

	p.mu.Lock()
	// Cleared on success and failure alike so a failed connect leaves
	// the pool Disconnected and future callers retry cleanly.
	p.inflight = nil
	if err == nil {
		p.session = sess
	}
	p.mu.Unlock()

	call.sess, call.err = sess, err
	close(call.done)
	return sess, err
}

// AcquireExclusive hands the session to one multi-step flow. The idle
// timer stays disarmed until EndExclusive.
func (p *SessionPool) AcquireExclusive(token *utils.Token) (BrowserSession, error) {
	sess, err := p.AcquireShared(token)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.exclusive++
	p.stopIdleLocked()
	p.mu.Unlock()
	return sess, nil
}

// EndExclusive releases one exclusive hold. The idle timer re-arms
// only once every overlapping hold has ended.
func (p *SessionPool) EndExclusive() {
	p.mu.Lock()
	if p.exclusive > 0 {
		p.exclusive--
	}
	if p.exclusive == 0 && p.session != nil {
		p.armIdleLocked()
	}
	p.mu.Unlock()
}

// Touch re-arms the idle timer after a shared-mode operation.
func (p *SessionPool) Touch() {
	p.mu.Lock()
	if p.session != nil && p.exclusive == 0 {
		p.armIdleLocked()
	}
	p.mu.Unlock()
}

// Release closes the connection if present and clears all pool state.
// Close errors are swallowed; teardown is best-effort.
func (p *SessionPool) Release() {
	p.mu.Lock()
	sess := p.session
	p.session = nil
	p.exclusive = 0
	p.stopIdleLocked()
	p.mu.Unlock()

	if sess != nil {
		_ = sess.Close()
	}
}

func (p *SessionPool) dial(token *utils.Token) (BrowserSession, error) {
	conn := utils.Connector{
		MaxAttempts: p.cfg.MaxRetries,
		BackoffBase: p.cfg.BackoffBase,
		Retryable:   scraper.IsRateLimited,
	}

	var sess BrowserSession
	attempts, err := conn.Do(token, func() error {
		s, cerr := p.connect(context.Background())
		if cerr != nil {
			return cerr
		}
		sess = s
		return nil
	})
	if err != nil {
		if scraper.IsAborted(err) || scraper.IsRateLimited(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", scraper.ErrConnectionFailure, err)
	}
	if attempts > 1 {
		log.Printf("session: ⚠ connected after %d attempts", attempts)
	}
	return sess, nil
}

func (p *SessionPool) armIdleLocked() {
	p.stopIdleLocked()
	if p.cfg.IdleTimeout <= 0 {
		return
	}
	gen := p.idleGen
	p.idleTimer = time.AfterFunc(p.cfg.IdleTimeout, func() { p.evictIdle(gen) })
}

func (p *SessionPool) stopIdleLocked() {
	p.idleGen++
	if p.idleTimer != nil {
		p.idleTimer.Stop()
		p.idleTimer = nil
	}
}

// evictIdle runs from the idle timer. A callback that was already
// dispatched when Stop() raced it carries a stale generation and must
// not touch a session a fresh acquisition now holds.
func (p *SessionPool) evictIdle(gen uint64) {
	p.mu.Lock()
	if gen != p.idleGen || p.exclusive > 0 || p.session == nil {
		p.mu.Unlock()
		return
	}
	sess := p.session
	p.session = nil
	p.idleTimer = nil
	p.mu.Unlock()

	_ = sess.Close()
	log.Printf("session: idle for %s, browser released", p.cfg.IdleTimeout)
}
