package cache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polyarb/internal/cache"
	"github.com/alejandrodnm/polyarb/internal/domain"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func TestPriceCache_DeltaKeepsSizes(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	c := cache.NewPriceCache(cache.WithClock(clk.Now))

	c.ApplyBook(domain.OrderBook{
		TokenID: "tok",
		Asks:    []domain.BookEntry{{Price: 0.52, Size: 200}},
		Bids:    []domain.BookEntry{{Price: 0.50, Size: 90}},
	}, clk.t)
	c.Update("tok", domain.PriceUpdate{BestAsk: domain.Float(0.51), BestBid: domain.Float(0.49)})

	p, ok := c.Get("tok")
	require.True(t, ok)
	assert.Equal(t, 0.51, p.BestAsk.Value)
	assert.Equal(t, 200.0, p.BestAskSize.Value)
	assert.Equal(t, 0.49, p.BestBid.Value)
	assert.Equal(t, 90.0, p.BestBidSize.Value)
	assert.Equal(t, clk.t, p.UpdatedAt, "zero timestamp takes the cache clock")
}

func TestPriceCache_EmptyBookSideIsNotErased(t *testing.T) {
	c := cache.NewPriceCache()
	ts := time.Now()
	c.ApplyBook(domain.OrderBook{TokenID: "tok", Asks: []domain.BookEntry{{Price: 0.3, Size: 5}}}, ts)
	c.ApplyBook(domain.OrderBook{TokenID: "tok", Bids: []domain.BookEntry{{Price: 0.2, Size: 7}}}, ts)

	p, _ := c.Get("tok")
	assert.Equal(t, domain.Float(0.3), p.BestAsk)
	assert.Equal(t, domain.Float(0.2), p.BestBid)
}

func TestPriceCache_Get_Unknown(t *testing.T) {
	_, ok := cache.NewPriceCache().Get("nope")
	assert.False(t, ok)
}

func TestPriceCache_PruneOlderThan(t *testing.T) {
	clk := &fakeClock{t: time.Unix(10_000, 0)}
	c := cache.NewPriceCache(cache.WithClock(clk.Now))

	c.Update("old", domain.PriceUpdate{BestAsk: domain.Float(0.4), Timestamp: clk.t.Add(-2 * time.Minute)})
	c.Update("fresh", domain.PriceUpdate{BestAsk: domain.Float(0.4), Timestamp: clk.t.Add(-10 * time.Second)})

	removed := c.PruneOlderThan(0)
	assert.Equal(t, 1, removed)
	_, ok := c.Get("old")
	assert.False(t, ok)
	_, ok = c.Get("fresh")
	assert.True(t, ok)
	assert.Equal(t, 1, c.Len())
}
