package scraper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gigabite-pro/kickrax-sub000/config"
	"github.com/gigabite-pro/kickrax-sub000/utils"
)

const stockxProductHTML = `<html><body>
<div data-component="product-header">
  <h1 data-testid="product-name">Nike Dunk Low Retro White Black Panda</h1>
  <span data-testid="product-brand">Nike</span>
  <span data-testid="product-detail-style">DD1391-100</span>
</div>
<form data-testid="sizes-form">
  <button data-size="9">US 9 $123</button>
  <button data-size="9.5">US 9.5 $118</button>
  <button data-size="10" disabled>US 10 $130</button>
</form>
</body></html>`

func renderConfig(serverURL string) config.Config {
	return config.Config{
		Mode:              config.ModeRemote,
		RemoteRenderURL:   serverURL,
		RemoteRenderKey:   "test-key",
		NavTimeout:        5 * time.Second,
		MaxRetries:        3,
		BackoffBase:       time.Millisecond,
		CanonicalCurrency: "USD",
		ConversionRate:    1.27,
		MaxSizesPerSource: 20,
	}
}

func renderServer(t *testing.T, handler func(w http.ResponseWriter, req renderRequest)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/render", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req renderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		handler(w, req)
	}))
}

func TestRemoteSourceScrapesProductPage(t *testing.T) {
	server := renderServer(t, func(w http.ResponseWriter, req renderRequest) {
		assert.Equal(t, "https://stockx.com/dunk-low-panda", req.URL)
		w.Write([]byte(stockxProductHTML))
	})
	defer server.Close()

	cfg := renderConfig(server.URL)
	sources := NewRemoteSources(cfg)
	require.NotEmpty(t, sources)
	require.Equal(t, "stockx", sources[0].ID())

	result, err := sources[0].Scrape(context.Background(), NewTarget("https://stockx.com/dunk-low-panda"), utils.NewToken())
	require.NoError(t, err)

	assert.Equal(t, "Nike Dunk Low Retro White Black Panda", result.ProductName)
	assert.Equal(t, "Nike", result.Brand)
	assert.Equal(t, "DD1391-100", result.StyleID)
	require.Len(t, result.Sizes, 3)
	assert.Equal(t, "9.5", result.Sizes[1].Size)
	assert.Equal(t, 118.0, result.Sizes[1].Price)
	assert.True(t, result.Sizes[1].Available)
	assert.False(t, result.Sizes[2].Available)
	assert.Equal(t, 118.0, result.LowestPrice)
	assert.True(t, result.Available)
}

func TestRemoteSourceMissingProductIsNotFound(t *testing.T) {
	server := renderServer(t, func(w http.ResponseWriter, req renderRequest) {
		w.Write([]byte(`<html><body><h1>Something else entirely</h1></body></html>`))
	})
	defer server.Close()

	sources := NewRemoteSources(renderConfig(server.URL))
	_, err := sources[0].Scrape(context.Background(), NewTarget("https://stockx.com/nope"), utils.NewToken())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoteSourceChallengePageIsTimeout(t *testing.T) {
	server := renderServer(t, func(w http.ResponseWriter, req renderRequest) {
		w.Write([]byte(`<html><body><p>Verify you are human by completing the action below.</p></body></html>`))
	})
	defer server.Close()

	sources := NewRemoteSources(renderConfig(server.URL))
	_, err := sources[0].Scrape(context.Background(), NewTarget("https://stockx.com/x"), utils.NewToken())
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestRenderClientStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, ErrNotFound},
		{http.StatusForbidden, ErrBlocked},
	}

	for _, tc := range cases {
		server := renderServer(t, func(w http.ResponseWriter, req renderRequest) {
			w.WriteHeader(tc.status)
		})

		client := NewRenderClient(renderConfig(server.URL))
		_, err := client.Fetch(context.Background(), utils.NewToken(), "https://stockx.com/x", "")
		assert.ErrorIs(t, err, tc.want, "status %d", tc.status)
		server.Close()
	}
}

func TestRenderClientRetriesRateLimit(t *testing.T) {
	calls := 0
	server := renderServer(t, func(w http.ResponseWriter, req renderRequest) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`<html><body>ok</body></html>`))
	})
	defer server.Close()

	client := NewRenderClient(renderConfig(server.URL))
	doc, err := client.Fetch(context.Background(), utils.NewToken(), "https://stockx.com/x", "")

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, doc.Text(), "ok")
}

func TestRenderClientRateLimitExhaustion(t *testing.T) {
	server := renderServer(t, func(w http.ResponseWriter, req renderRequest) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	defer server.Close()

	client := NewRenderClient(renderConfig(server.URL))
	_, err := client.Fetch(context.Background(), utils.NewToken(), "https://stockx.com/x", "")
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestRemoteKicksCrewConvertsToCanonicalCurrency(t *testing.T) {
	server := renderServer(t, func(w http.ResponseWriter, req renderRequest) {
		w.Write([]byte(`<html><body>
<h1 class="product-title">Air Max 95</h1>
<span class="product-vendor">Nike</span>
<span class="product-sku">DM9104-002</span>
<div class="size-table-row" data-size="8">US 8 £100.00</div>
</body></html>`))
	})
	defer server.Close()

	sources := NewRemoteSources(renderConfig(server.URL))
	var kickscrew Source
	for _, s := range sources {
		if s.ID() == "kickscrew" {
			kickscrew = s
		}
	}
	require.NotNil(t, kickscrew)

	result, err := kickscrew.Scrape(context.Background(), NewTarget("https://www.kickscrew.com/products/air-max-95"), utils.NewToken())
	require.NoError(t, err)

	require.Len(t, result.Sizes, 1)
	assert.Equal(t, 100.0, result.Sizes[0].Price)
	assert.InDelta(t, 127.0, result.Sizes[0].Converted, 0.001)
	assert.Equal(t, "GBP", result.Sizes[0].Currency)
}
