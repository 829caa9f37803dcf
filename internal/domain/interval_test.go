package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterval_OrderMatchesDuration(t *testing.T) {
	ordered := []Interval{Interval15m, Interval30m, Interval1h, Interval4h, Interval1d}
	for i := 1; i < len(ordered); i++ {
		assert.Greater(t, ordered[i], ordered[i-1])
		assert.Greater(t, ordered[i].Duration(), ordered[i-1].Duration())
	}
	assert.Equal(t, time.Duration(0), IntervalUnknown.Duration())
}

func TestParseInterval(t *testing.T) {
	assert.Equal(t, Interval15m, ParseInterval("15m"))
	assert.Equal(t, Interval1h, ParseInterval("HOURLY"))
	assert.Equal(t, Interval1d, ParseInterval(" 1d "))
	assert.Equal(t, IntervalUnknown, ParseInterval("5m"))
}

func TestParseMarketInfo_ExplicitMetadataWins(t *testing.T) {
	end := time.Date(2025, 10, 16, 16, 0, 0, 0, time.UTC)
	p := NewMarketPair(Market{
		ID: "m1", Slug: "btc-updown-15m-1760629500", YesTokenID: "up", NoTokenID: "down",
		EndTime: end, Asset: "Bitcoin", Interval: Interval4h,
	})

	info, ok := ParseMarketInfo(p)
	require.True(t, ok)
	assert.Equal(t, "btc", info.Asset)
	assert.Equal(t, Interval4h, info.Interval)
	assert.Equal(t, end, info.Resolution)
	assert.Equal(t, end.Add(-4*time.Hour), info.CandleStart)
	assert.False(t, info.ReferencePrice.Valid)
}

func TestParseMarketInfo_TimestampSlug(t *testing.T) {
	// 1760628600 = 2025-10-16T15:30:00Z
	p := NewMarketPair(Market{ID: "m2", Slug: "eth-updown-15m-1760628600", YesTokenID: "u", NoTokenID: "d"})

	info, ok := ParseMarketInfo(p)
	require.True(t, ok)
	assert.Equal(t, "eth", info.Asset)
	assert.Equal(t, Interval15m, info.Interval)
	assert.Equal(t, time.Date(2025, 10, 16, 15, 45, 0, 0, time.UTC), info.Resolution)
	assert.Equal(t, time.Date(2025, 10, 16, 15, 30, 0, 0, time.UTC), info.CandleStart)
}

func TestParseMarketInfo_TimestampSlugPrefersEndTime(t *testing.T) {
	end := time.Date(2025, 10, 16, 15, 45, 2, 0, time.UTC)
	p := NewMarketPair(Market{ID: "m2", Slug: "eth-updown-15m-1760628600", YesTokenID: "u", NoTokenID: "d", EndTime: end})

	info, ok := ParseMarketInfo(p)
	require.True(t, ok)
	assert.Equal(t, end, info.Resolution)
	assert.Equal(t, end.Add(-15*time.Minute), info.CandleStart)
}

func TestParseMarketInfo_DescriptiveSlugs(t *testing.T) {
	end := time.Date(2025, 10, 16, 20, 0, 0, 0, time.UTC)
	cases := []struct {
		slug     string
		asset    string
		interval Interval
	}{
		{"bitcoin-up-or-down-october-16-3pm-et", "btc", Interval1h},
		{"ethereum-up-or-down-on-october-16", "eth", Interval1d},
		{"solana-up-or-down-october-16-2025", "sol", Interval1d},
		{"xrp-up-or-down-4h-october-16-12pm-et", "xrp", Interval4h},
	}
	for _, tc := range cases {
		t.Run(tc.slug, func(t *testing.T) {
			info, ok := ParseMarketInfo(NewMarketPair(Market{ID: tc.slug, Slug: tc.slug, YesTokenID: "u", NoTokenID: "d", EndTime: end}))
			require.True(t, ok)
			assert.Equal(t, tc.asset, info.Asset)
			assert.Equal(t, tc.interval, info.Interval)
			assert.Equal(t, end, info.Resolution)
		})
	}
}

func TestParseMarketInfo_Rejects(t *testing.T) {
	end := time.Now()
	cases := []Market{
		{ID: "a", Slug: "will-trump-win-2028", EndTime: end},
		{ID: "b", Slug: "bitcoin-up-or-down-october-16-3pm-et"},             // sin EndTime
		{ID: "c", Slug: "dogecoin-up-or-down-october-16-3pm-et", EndTime: end}, // asset desconocido
		{ID: "d", Slug: "bitcoin-up-or-down-someday", EndTime: end},
		{ID: "e", Asset: "btc", Interval: Interval1h},                       // explícito sin EndTime
	}
	for _, m := range cases {
		_, ok := ParseMarketInfo(NewMarketPair(m))
		assert.False(t, ok, "market %s should be rejected", m.ID)
	}
}
