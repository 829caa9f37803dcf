package detector

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/polyarb/internal/cache"
	"github.com/alejandrodnm/polyarb/internal/domain"
	"github.com/alejandrodnm/polyarb/internal/registry"
)

const (
	// ResolutionTolerance absorbe el jitter entre los timestamps de resolución.
	ResolutionTolerance = 300 * time.Second
	// DefaultLegSize se usa cuando una pata tiene ask pero no size.
	// Sobreestima las patas con poca profundidad.
	DefaultLegSize = 1000.0
	// DefaultReferenceRetry es la espera mínima entre fetches de un mercado sin precio.
	DefaultReferenceRetry = 15 * time.Second
)

// CrossConfig contiene los parámetros del detector cross-market.
type CrossConfig struct {
	MinProfit      float64
	DefaultLegSize float64       // 0 = DefaultLegSize
	ReferenceRetry time.Duration // 0 = DefaultReferenceRetry
}

// Cross detecta arbitraje de zona entre mercados up/down que resuelven a la vez.
type Cross struct {
	base
	cfg    CrossConfig
	prices *cache.PriceCache
	reg    *registry.Registry
	refs   *cache.ReferencePriceCache

	loaded      bool                 // hubo una carga de referencias sin errores
	lastAttempt map[string]time.Time // Key() → último fetch sin precio
}

// NewCross crea el detector. refs es el cache de referencias compartido con el registry.
func NewCross(cfg CrossConfig, prices *cache.PriceCache, reg *registry.Registry, refs *cache.ReferencePriceCache, opts ...Option) *Cross {
	if cfg.DefaultLegSize <= 0 {
		cfg.DefaultLegSize = DefaultLegSize
	}
	if cfg.ReferenceRetry <= 0 {
		cfg.ReferenceRetry = DefaultReferenceRetry
	}
	return &Cross{
		base:        newBase(opts),
		cfg:         cfg,
		prices:      prices,
		reg:         reg,
		refs:        refs,
		lastAttempt: make(map[string]time.Time),
	}
}

// EvaluateOnPriceUpdate empareja el mercado dueño de tokenID con cada mercado vivo
// del mismo asset, otro intervalo y resolución dentro de ResolutionTolerance.
// Devuelve el candidato con mayor MaxProfit.
func (d *Cross) EvaluateOnPriceUpdate(tokenID string) (domain.CrossMarketOpportunity, bool) {
	p, ok := d.reg.LookupByToken(tokenID)
	if !ok {
		return domain.CrossMarketOpportunity{}, false
	}
	owner, ok := d.reg.Info(p.Market.ID)
	now := d.now()
	if !ok || !owner.Resolution.After(now) {
		return domain.CrossMarketOpportunity{}, false
	}

	var (
		best  domain.CrossMarketOpportunity
		found bool
	)
	for _, other := range d.reg.Infos() {
		if other == owner || other.Asset != owner.Asset || other.Interval == owner.Interval {
			continue
		}
		if !other.Resolution.After(now) || absDuration(other.Resolution.Sub(owner.Resolution)) > ResolutionTolerance {
			continue
		}
		opp, _, ok := d.evaluate(owner, other, d.cfg.MinProfit)
		if ok && (!found || opp.MaxProfit > best.MaxProfit) {
			best, found = opp, true
		}
	}
	return best, found
}

// ScanAll evalúa todos los pares candidatos y ordena por MaxProfit descendente.
func (d *Cross) ScanAll() []domain.CrossMarketOpportunity {
	return d.scan(d.cfg.MinProfit, nil)
}

type groupKey struct {
	asset  string
	bucket int64
}

// scan agrupa por (asset, round(resolution / tolerance)) y evalúa una vez cada
// par con intervalos distintos. diag puede ser nil.
func (d *Cross) scan(minProfit float64, diag *domain.CrossDiagnostics) []domain.CrossMarketOpportunity {
	now := d.now()
	groups := make(map[groupKey][]*domain.MarketInfo)
	var keys []groupKey
	for _, info := range d.reg.Infos() {
		if !info.Resolution.After(now) {
			continue
		}
		if diag != nil {
			diag.Markets++
		}
		k := groupKey{asset: info.Asset, bucket: resolutionBucket(info.Resolution)}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], info)
	}

	var opps []domain.CrossMarketOpportunity
	seen := make(map[string]struct{})
	for _, k := range keys {
		members := groups[k]
		if len(members) < 2 {
			continue
		}
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				a, b := members[i], members[j]
				if a.Interval == b.Interval {
					continue
				}
				key := domain.PairKey(a.Key(), b.Key())
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}

				opp, reason, ok := d.evaluate(a, b, minProfit)
				if diag != nil {
					diag.PairsConsidered++
					recordIssue(diag, a, b, reason)
				}
				if ok {
					opps = append(opps, opp)
				}
			}
		}
	}

	sort.SliceStable(opps, func(i, j int) bool {
		return opps[i].MaxProfit > opps[j].MaxProfit
	})
	return opps
}

// evaluate calcula la oportunidad de zona de un par. reason se rellena si faltan
// datos; un par filtrado por profit da ok=false sin reason.
func (d *Cross) evaluate(a, b *domain.MarketInfo, minProfit float64) (domain.CrossMarketOpportunity, domain.PairIssueReason, bool) {
	long, short := a, b
	if short.Interval > long.Interval {
		long, short = short, long
	}
	if !long.ReferencePrice.Valid || !short.ReferencePrice.Valid {
		return domain.CrossMarketOpportunity{}, domain.IssueMissingReference, false
	}

	longRef, shortRef := long.ReferencePrice.Value, short.ReferencePrice.Value
	zone := domain.SelectZone(longRef, shortRef)

	longUp, _ := d.prices.Get(long.UpTokenID())
	longDown, _ := d.prices.Get(long.DownTokenID())
	shortUp, _ := d.prices.Get(short.UpTokenID())
	shortDown, _ := d.prices.Get(short.DownTokenID())

	legLong, legShort := longUp, shortDown
	if zone.Strategy == domain.StrategyLongDownShortUp {
		legLong, legShort = longDown, shortUp
	}

	hasBothPrices := legLong.BestAsk.Positive() && legShort.BestAsk.Positive()
	if !hasBothPrices {
		return domain.CrossMarketOpportunity{}, domain.IssueMissingAsk, false
	}

	entryCost := legLong.BestAsk.Or(0) + legShort.BestAsk.Or(0)
	identical := longRef == shortRef
	maxProfit := 2.0 - entryCost
	if identical {
		maxProfit = -entryCost
	}
	if !identical && maxProfit < minProfit {
		return domain.CrossMarketOpportunity{}, "", false
	}

	now := d.now()
	return domain.CrossMarketOpportunity{
		ID:                  uuid.New().String(),
		Asset:               long.Asset,
		Long:                long.Pair.Market,
		Short:               short.Pair.Market,
		LongInterval:        long.Interval,
		ShortInterval:       short.Interval,
		Resolution:          long.Resolution,
		LongUpTokenID:       long.UpTokenID(),
		LongDownTokenID:     long.DownTokenID(),
		ShortUpTokenID:      short.UpTokenID(),
		ShortDownTokenID:    short.DownTokenID(),
		LongRef:             longRef,
		ShortRef:            shortRef,
		Zone:                zone,
		LongUpAsk:           longUp.BestAsk,
		LongDownAsk:         longDown.BestAsk,
		ShortUpAsk:          shortUp.BestAsk,
		ShortDownAsk:        shortDown.BestAsk,
		EntryCost:           entryCost,
		MaxProfit:           maxProfit,
		ZoneWidth:           zone.Width(),
		ZonePercent:         zone.Percent(),
		MaxShares:           math.Min(d.legSize(legLong), d.legSize(legShort)),
		MinutesToResolution: math.Max(0, long.Resolution.Sub(now).Minutes()),
		DetectedAt:          now,
	}, "", true
}

func (d *Cross) legSize(p domain.TokenPrice) float64 {
	if p.BestAskSize.Valid {
		return p.BestAskSize.Value
	}
	return d.cfg.DefaultLegSize
}

func resolutionBucket(t time.Time) int64 {
	return int64(math.Round(float64(t.Unix()) / ResolutionTolerance.Seconds()))
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
