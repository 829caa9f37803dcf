package domain

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Interval es la duración de la vela de un mercado up/down.
// El orden de las constantes es el orden long/short: mayor valor = vela más larga.
type Interval int

const (
	IntervalUnknown Interval = iota
	Interval15m
	Interval30m
	Interval1h
	Interval4h
	Interval1d
)

var intervalNames = map[Interval]string{
	Interval15m: "15m",
	Interval30m: "30m",
	Interval1h:  "1h",
	Interval4h:  "4h",
	Interval1d:  "1d",
}

func (i Interval) String() string {
	if s, ok := intervalNames[i]; ok {
		return s
	}
	return "unknown"
}

// Duration devuelve la longitud de la vela. 0 para IntervalUnknown.
func (i Interval) Duration() time.Duration {
	switch i {
	case Interval15m:
		return 15 * time.Minute
	case Interval30m:
		return 30 * time.Minute
	case Interval1h:
		return time.Hour
	case Interval4h:
		return 4 * time.Hour
	case Interval1d:
		return 24 * time.Hour
	default:
		return 0
	}
}

// ParseInterval acepta "15m", "30m", "1h", "4h", "1d" y algunos alias.
func ParseInterval(s string) Interval {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "15m", "15min", "fifteen":
		return Interval15m
	case "30m", "30min", "thirty":
		return Interval30m
	case "1h", "60m", "hourly":
		return Interval1h
	case "4h", "240m", "fourhour":
		return Interval4h
	case "1d", "24h", "daily":
		return Interval1d
	default:
		return IntervalUnknown
	}
}

// MarketInfo es la vista cross-market de un mercado up/down. ParseMarketInfo la
// construye al registrar. ReferencePrice es el único campo mutable y se rellena
// cuando se carga la referencia.
type MarketInfo struct {
	Pair        MarketPair
	Asset       string
	Interval    Interval
	Resolution  time.Time
	CandleStart time.Time

	ReferencePrice OptFloat
}

// MarketID devuelve el ID del mercado subyacente.
func (mi *MarketInfo) MarketID() string { return mi.Pair.Market.ID }

// Slug devuelve el slug del mercado subyacente.
func (mi *MarketInfo) Slug() string { return mi.Pair.Market.Slug }

// Key identifica el mercado en los caches de referencia y en el dedup de pares:
// el slug, o el ID si el mercado no tiene slug.
func (mi *MarketInfo) Key() string { return mi.Pair.Market.Label() }

// UpTokenID es el token YES: paga si el cierre queda en o sobre la referencia.
func (mi *MarketInfo) UpTokenID() string { return mi.Pair.YesTokenID }

// DownTokenID es el token NO.
func (mi *MarketInfo) DownTokenID() string { return mi.Pair.NoTokenID }

var (
	// btc-updown-15m-1767707100 (timestamp = inicio de la vela)
	timestampSlugRE = regexp.MustCompile(`^([a-z0-9]+)-updown-(15m|30m|1h|4h|1d)-(\d{9,})$`)
	// bitcoin-up-or-down-october-16-3pm-et, ethereum-up-or-down-on-october-16
	descriptiveSlugRE = regexp.MustCompile(`^([a-z0-9]+)-up-or-down-(.+)$`)
	hourSuffixRE      = regexp.MustCompile(`(^|-)\d{1,2}(am|pm)-et$`)
	dateSuffixRE      = regexp.MustCompile(`(january|february|march|april|may|june|july|august|september|october|november|december)-\d{1,2}(-\d{4})?$`)
)

var assetAliases = map[string]string{
	"bitcoin":  "btc",
	"btc":      "btc",
	"ethereum": "eth",
	"eth":      "eth",
	"solana":   "sol",
	"sol":      "sol",
	"xrp":      "xrp",
	"ripple":   "xrp",
}

// NormalizeAsset devuelve el símbolo corto en minúsculas (bitcoin → btc).
func NormalizeAsset(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if a, ok := assetAliases[s]; ok {
		return a
	}
	return s
}

// ParseMarketInfo deriva la metadata cross-market de un par. Orden: metadata
// explícita del Market, slug con timestamp, slug descriptivo. Lo demás se
// rechaza (ok=false).
//
// Resolution es el EndTime si se conoce; CandleStart = Resolution - Interval.
func ParseMarketInfo(p MarketPair) (MarketInfo, bool) {
	m := p.Market

	if m.Asset != "" && m.Interval != IntervalUnknown {
		if m.EndTime.IsZero() {
			return MarketInfo{}, false
		}
		return newMarketInfo(p, NormalizeAsset(m.Asset), m.Interval, m.EndTime), true
	}

	slug := strings.ToLower(m.Slug)

	if parts := timestampSlugRE.FindStringSubmatch(slug); parts != nil {
		interval := ParseInterval(parts[2])
		start, err := strconv.ParseInt(parts[3], 10, 64)
		if err != nil {
			return MarketInfo{}, false
		}
		resolution := m.EndTime
		if resolution.IsZero() {
			resolution = time.Unix(start, 0).UTC().Add(interval.Duration())
		}
		return newMarketInfo(p, NormalizeAsset(parts[1]), interval, resolution), true
	}

	if parts := descriptiveSlugRE.FindStringSubmatch(slug); parts != nil {
		asset, known := assetAliases[parts[1]]
		if !known || m.EndTime.IsZero() {
			return MarketInfo{}, false
		}
		interval := descriptiveInterval(parts[2])
		if interval == IntervalUnknown {
			return MarketInfo{}, false
		}
		return newMarketInfo(p, asset, interval, m.EndTime), true
	}

	return MarketInfo{}, false
}

func newMarketInfo(p MarketPair, asset string, interval Interval, resolution time.Time) MarketInfo {
	resolution = resolution.UTC()
	return MarketInfo{
		Pair:        p,
		Asset:       asset,
		Interval:    interval,
		Resolution:  resolution,
		CandleStart: resolution.Add(-interval.Duration()),
	}
}

// descriptiveInterval infiere el intervalo de la parte final de un slug descriptivo.
func descriptiveInterval(rest string) Interval {
	tokens := strings.Split(rest, "-")
	for _, t := range tokens {
		switch t {
		case "15m":
			return Interval15m
		case "30m":
			return Interval30m
		case "4h":
			return Interval4h
		case "1h", "hourly":
			return Interval1h
		}
	}
	switch {
	case strings.Contains(rest, "15-minute"):
		return Interval15m
	case strings.Contains(rest, "4-hour"):
		return Interval4h
	case hourSuffixRE.MatchString(rest):
		return Interval1h
	case dateSuffixRE.MatchString(rest):
		return Interval1d
	}
	return IntervalUnknown
}
