package polymarket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polyarb/internal/adapters/polymarket"
	"github.com/alejandrodnm/polyarb/internal/domain"
)

var (
	candleStart = time.Date(2025, 10, 16, 15, 30, 0, 0, time.UTC)
	candleEnd   = candleStart.Add(15 * time.Minute)
)

func newCryptoClient(srv *httptest.Server) *polymarket.Client {
	return polymarket.NewClient("", "",
		polymarket.WithCryptoBase(srv.URL),
		polymarket.WithRetryWait(time.Millisecond),
	)
}

func TestFetchReferencePrice_OK(t *testing.T) {
	data := readFixture(t, "crypto_price.json")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/crypto/crypto-price", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "BTC", q.Get("symbol"))
		assert.Equal(t, "fifteen", q.Get("variant"))
		assert.Equal(t, "2025-10-16T15:30:00Z", q.Get("eventStartTime"))
		assert.Equal(t, "2025-10-16T15:45:00Z", q.Get("endDate"))
		w.Write(data)
	}))
	defer srv.Close()

	price, ok, err := newCryptoClient(srv).FetchReferencePrice(context.Background(), "btc", domain.Interval15m, candleStart, candleEnd)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 111250.42, price, 1e-6)
}

func TestFetchReferencePrice_NotYetAvailable(t *testing.T) {
	pending := readFixture(t, "crypto_price_pending.json")

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"null open price", func(w http.ResponseWriter, r *http.Request) { w.Write(pending) }},
		{"not found", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			price, ok, err := newCryptoClient(srv).FetchReferencePrice(context.Background(), "eth", domain.Interval1h, candleStart, candleStart.Add(time.Hour))
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Zero(t, price)
		})
	}
}

func TestFetchReferencePrice_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newCryptoClient(srv)

	_, ok, err := client.FetchReferencePrice(context.Background(), "btc", domain.Interval4h, candleStart, candleStart.Add(4*time.Hour))
	require.Error(t, err)
	assert.False(t, ok)

	_, _, err = client.FetchReferencePrice(context.Background(), "btc", domain.IntervalUnknown, candleStart, candleEnd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported interval")
}
