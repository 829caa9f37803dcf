package detector_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polyarb/internal/cache"
	"github.com/alejandrodnm/polyarb/internal/detector"
	"github.com/alejandrodnm/polyarb/internal/domain"
	"github.com/alejandrodnm/polyarb/internal/registry"
)

type singleFixture struct {
	prices *cache.PriceCache
	reg    *registry.Registry
	det    *detector.Single
}

func newSingleFixture(cfg detector.SingleConfig, markets ...domain.Market) singleFixture {
	prices := cache.NewPriceCache()
	reg := registry.New(nil)
	pairs := make([]domain.MarketPair, 0, len(markets))
	for _, m := range markets {
		pairs = append(pairs, domain.NewMarketPair(m))
	}
	reg.SetMarkets(pairs)
	return singleFixture{prices: prices, reg: reg, det: detector.NewSingle(cfg, prices, reg)}
}

func binaryMarket(id string, liquidity float64) domain.Market {
	return domain.Market{ID: id, Question: "Will " + id + "?", YesTokenID: id + "-yes", NoTokenID: id + "-no", Liquidity: liquidity}
}

func (f singleFixture) setAsk(token string, price, size float64) {
	f.prices.Update(token, domain.PriceUpdate{BestAsk: domain.Float(price), BestAskSize: domain.Float(size), Timestamp: time.Now()})
}

func (f singleFixture) setBid(token string, price, size float64) {
	f.prices.Update(token, domain.PriceUpdate{BestBid: domain.Float(price), BestBidSize: domain.Float(size), Timestamp: time.Now()})
}

var defaultSingleCfg = detector.SingleConfig{MinProfit: 0.005, MinLiquidity: 100}

func TestSingle_BuyBoth(t *testing.T) {
	f := newSingleFixture(defaultSingleCfg, binaryMarket("m1", 5000))
	f.setAsk("m1-yes", 0.48, 100)
	f.setAsk("m1-no", 0.51, 100)

	opp, ok := f.det.EvaluateOnPriceUpdate("m1-no")
	require.True(t, ok)
	assert.Equal(t, domain.KindBuyBoth, opp.Kind)
	assert.InDelta(t, 0.99, opp.Total, 1e-9)
	assert.InDelta(t, 0.01, opp.Profit, 1e-9)
	assert.Equal(t, 100.0, opp.MaxShares)
	assert.Equal(t, "m1", opp.Market.ID)
	assert.NotEmpty(t, opp.ID)
}

func TestSingle_NoOpportunityWhenCostAboveOne(t *testing.T) {
	f := newSingleFixture(defaultSingleCfg, binaryMarket("m1", 5000))
	f.setAsk("m1-yes", 0.50, 100)
	f.setAsk("m1-no", 0.51, 100)

	_, ok := f.det.EvaluateOnPriceUpdate("m1-yes")
	assert.False(t, ok)
}

func TestSingle_Gates(t *testing.T) {
	cases := []struct {
		name      string
		liquidity float64
		noSize    float64
		noAsk     float64
		want      bool
	}{
		{"passes", 5000, 100, 0.51, true},
		{"below threshold", 5000, 100, 0.516, false},
		{"low liquidity", 99, 100, 0.51, false},
		{"zero size", 5000, 0, 0.51, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newSingleFixture(defaultSingleCfg, binaryMarket("m1", tc.liquidity))
			f.setAsk("m1-yes", 0.48, 100)
			f.setAsk("m1-no", tc.noAsk, tc.noSize)
			_, ok := f.det.EvaluateOnPriceUpdate("m1-yes")
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestSingle_SellBoth(t *testing.T) {
	f := newSingleFixture(defaultSingleCfg, binaryMarket("m1", 5000))
	f.setBid("m1-yes", 0.55, 40)
	f.setBid("m1-no", 0.48, 60)

	opp, ok := f.det.EvaluateOnPriceUpdate("m1-yes")
	require.True(t, ok)
	assert.Equal(t, domain.KindSellBoth, opp.Kind)
	assert.InDelta(t, 0.03, opp.Profit, 1e-9)
	assert.Equal(t, opp.Profit, opp.ProfitPercent)
	assert.Equal(t, 40.0, opp.MaxShares)
}

func TestSingle_BuyBothShortCircuitsSellBoth(t *testing.T) {
	f := newSingleFixture(defaultSingleCfg, binaryMarket("m1", 5000))
	f.setAsk("m1-yes", 0.48, 100)
	f.setAsk("m1-no", 0.51, 100)
	f.setBid("m1-yes", 0.55, 100)
	f.setBid("m1-no", 0.50, 100)

	opp, ok := f.det.EvaluateOnPriceUpdate("m1-yes")
	require.True(t, ok)
	assert.Equal(t, domain.KindBuyBoth, opp.Kind)
	assert.Len(t, f.det.ScanAll(), 1)
}

func TestSingle_MissingDataAndUnknownToken(t *testing.T) {
	f := newSingleFixture(defaultSingleCfg, binaryMarket("m1", 5000))
	f.setAsk("m1-yes", 0.40, 100)

	_, ok := f.det.EvaluateOnPriceUpdate("m1-yes")
	assert.False(t, ok)

	f.setAsk("ghost", 0.01, 100)
	_, ok = f.det.EvaluateOnPriceUpdate("ghost")
	assert.False(t, ok)
}

func TestSingle_ScanAllSortedByAbsoluteProfit(t *testing.T) {
	f := newSingleFixture(defaultSingleCfg, binaryMarket("small", 5000), binaryMarket("big", 5000), binaryMarket("none", 5000))
	f.setAsk("small-yes", 0.49, 10)
	f.setAsk("small-no", 0.50, 10)
	f.setAsk("big-yes", 0.40, 10)
	f.setAsk("big-no", 0.50, 10)
	f.setAsk("none-yes", 0.60, 10)
	f.setAsk("none-no", 0.60, 10)

	opps := f.det.ScanAll()
	require.Len(t, opps, 2)
	assert.Equal(t, "big", opps[0].Market.ID)
	assert.Equal(t, "small", opps[1].Market.ID)
}

func TestSingle_FindBestNearMiss(t *testing.T) {
	f := newSingleFixture(defaultSingleCfg, binaryMarket("a", 5000), binaryMarket("b", 5000), binaryMarket("illiquid", 10))
	f.setAsk("a-yes", 0.52, 10)
	f.setAsk("a-no", 0.50, 10) // gap -0.02
	f.setBid("b-yes", 0.50, 10)
	f.setBid("b-no", 0.495, 10) // gap -0.005
	f.setAsk("illiquid-yes", 0.30, 10)
	f.setAsk("illiquid-no", 0.30, 10)

	_, ok := f.det.EvaluateOnPriceUpdate("a-yes")
	assert.False(t, ok)

	nm, ok := f.det.FindBestNearMiss()
	require.True(t, ok)
	assert.Equal(t, "b", nm.Market.ID)
	assert.Equal(t, domain.KindSellBoth, nm.Kind)
	assert.InDelta(t, -0.005, nm.Gap, 1e-9)
}
