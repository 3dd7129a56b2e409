package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gigabite-pro/kickrax-sub000/config"
	"github.com/gigabite-pro/kickrax-sub000/scraper"
	"github.com/gigabite-pro/kickrax-sub000/utils"
)

type fakeSession struct {
	closed atomic.Int32
}

func (s *fakeSession) Context() context.Context { return context.Background() }

func (s *fakeSession) Close() error {
	s.closed.Add(1)
	return nil
}

func poolConfig() config.Config {
	return config.Config{
		IdleTimeout: time.Hour,
		MaxRetries:  3,
		BackoffBase: time.Millisecond,
	}
}

func TestPoolSingleFlightConnect(t *testing.T) {
	var connects atomic.Int32
	sess := &fakeSession{}
	release := make(chan struct{})

	pool := NewSessionPoolWith(poolConfig(), func(ctx context.Context) (BrowserSession, error) {
		connects.Add(1)
		<-release
		return sess, nil
	})

	const callers = 8
	var wg sync.WaitGroup
	token := utils.NewToken()
	results := make([]BrowserSession, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := pool.AcquireShared(token)
			assert.NoError(t, err)
			results[i] = got
		}(i)
	}

	// Let every caller reach the pool before the dial completes.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), connects.Load())
	for _, got := range results {
		assert.Same(t, sess, got)
	}
}

func TestPoolReusesLiveSession(t *testing.T) {
	var connects atomic.Int32
	sess := &fakeSession{}
	pool := NewSessionPoolWith(poolConfig(), func(ctx context.Context) (BrowserSession, error) {
		connects.Add(1)
		return sess, nil
	})

	token := utils.NewToken()
	for i := 0; i < 5; i++ {
		got, err := pool.AcquireShared(token)
		require.NoError(t, err)
		assert.Same(t, sess, got)
		pool.Touch()
	}
	assert.Equal(t, int32(1), connects.Load())
}

func TestPoolFailedConnectLeavesPoolUsable(t *testing.T) {
	var connects atomic.Int32
	sess := &fakeSession{}
	pool := NewSessionPoolWith(poolConfig(), func(ctx context.Context) (BrowserSession, error) {
		if connects.Add(1) == 1 {
			return nil, errors.New("chrome refused to start")
		}
		return sess, nil
	})

	token := utils.NewToken()
	_, err := pool.AcquireShared(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, scraper.ErrConnectionFailure)

	got, err := pool.AcquireShared(token)
	require.NoError(t, err)
	assert.Same(t, sess, got)
	assert.Equal(t, int32(2), connects.Load())
}

func TestPoolRetriesRateLimitedConnect(t *testing.T) {
	var connects atomic.Int32
	sess := &fakeSession{}
	pool := NewSessionPoolWith(poolConfig(), func(ctx context.Context) (BrowserSession, error) {
		if connects.Add(1) < 3 {
			return nil, scraper.ErrRateLimited
		}
		return sess, nil
	})

	got, err := pool.AcquireShared(utils.NewToken())
	require.NoError(t, err)
	assert.Same(t, sess, got)
	assert.Equal(t, int32(3), connects.Load())
}

func TestPoolIdleEvictionClosesSessionOnce(t *testing.T) {
	cfg := poolConfig()
	cfg.IdleTimeout = 30 * time.Millisecond

	sess := &fakeSession{}
	var connects atomic.Int32
	pool := NewSessionPoolWith(cfg, func(ctx context.Context) (BrowserSession, error) {
		connects.Add(1)
		return sess, nil
	})

	token := utils.NewToken()
	_, err := pool.AcquireShared(token)
	require.NoError(t, err)
	pool.Touch()

	assert.Eventually(t, func() bool {
		return sess.closed.Load() == 1
	}, time.Second, 10*time.Millisecond)

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), sess.closed.Load())

	// Next acquire reconnects from scratch.
	_, err = pool.AcquireShared(token)
	require.NoError(t, err)
	assert.Equal(t, int32(2), connects.Load())
}

func TestPoolStaleIdleTimerNeverClosesAcquiredSession(t *testing.T) {
	cfg := poolConfig()
	cfg.IdleTimeout = time.Millisecond

	var current *fakeSession
	pool := NewSessionPoolWith(cfg, func(ctx context.Context) (BrowserSession, error) {
		current = &fakeSession{}
		return current, nil
	})

	token := utils.NewToken()
	for i := 0; i < 200; i++ {
		sess, err := pool.AcquireShared(token)
		require.NoError(t, err)

		// Give a timer callback that fired just before the acquire
		// stopped it every chance to run.
		time.Sleep(2 * time.Millisecond)
		assert.Equal(t, int32(0), sess.(*fakeSession).closed.Load(),
			"iteration %d: session closed while acquired", i)

		pool.Touch()
		time.Sleep(time.Millisecond)
	}
}

func TestPoolOverlappingExclusiveHolds(t *testing.T) {
	cfg := poolConfig()
	cfg.IdleTimeout = 20 * time.Millisecond

	sess := &fakeSession{}
	pool := NewSessionPoolWith(cfg, func(ctx context.Context) (BrowserSession, error) {
		return sess, nil
	})

	token := utils.NewToken()
	_, err := pool.AcquireExclusive(token)
	require.NoError(t, err)
	_, err = pool.AcquireExclusive(token)
	require.NoError(t, err)

	// First flow finishes; the second still holds the session, so the
	// idle timer must stay disarmed.
	pool.EndExclusive()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), sess.closed.Load())

	pool.EndExclusive()
	assert.Eventually(t, func() bool {
		return sess.closed.Load() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestPoolExclusiveHoldBlocksIdleEviction(t *testing.T) {
	cfg := poolConfig()
	cfg.IdleTimeout = 20 * time.Millisecond

	sess := &fakeSession{}
	pool := NewSessionPoolWith(cfg, func(ctx context.Context) (BrowserSession, error) {
		return sess, nil
	})

	token := utils.NewToken()
	_, err := pool.AcquireExclusive(token)
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), sess.closed.Load())

	pool.EndExclusive()
	assert.Eventually(t, func() bool {
		return sess.closed.Load() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestPoolReleaseTearsDownSession(t *testing.T) {
	sess := &fakeSession{}
	pool := NewSessionPoolWith(poolConfig(), func(ctx context.Context) (BrowserSession, error) {
		return sess, nil
	})

	_, err := pool.AcquireShared(utils.NewToken())
	require.NoError(t, err)

	pool.Release()
	assert.Equal(t, int32(1), sess.closed.Load())

	// Release on an empty pool is a no-op.
	pool.Release()
	assert.Equal(t, int32(1), sess.closed.Load())
}

func TestPoolAcquireAbortsWhileJoiningInflightConnect(t *testing.T) {
	release := make(chan struct{})
	pool := NewSessionPoolWith(poolConfig(), func(ctx context.Context) (BrowserSession, error) {
		<-release
		return &fakeSession{}, nil
	})
	defer close(release)

	first := utils.NewToken()
	go pool.AcquireShared(first)
	time.Sleep(20 * time.Millisecond)

	second := utils.NewToken()
	done := make(chan error, 1)
	go func() {
		_, err := pool.AcquireShared(second)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	second.Signal()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, utils.ErrAborted)
	case <-time.After(time.Second):
		t.Fatal("joining caller did not observe its token")
	}
}
