package detector

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/alejandrodnm/polyarb/internal/cache"
	"github.com/alejandrodnm/polyarb/internal/domain"
	"github.com/alejandrodnm/polyarb/internal/registry"
)

// SingleConfig contiene los umbrales del detector de mercado único.
type SingleConfig struct {
	MinProfit    float64 // beneficio mínimo por share (USD)
	MinLiquidity float64 // liquidez mínima del mercado (USD)
}

// Single detecta BUY_BOTH / SELL_BOTH en un mercado binario.
type Single struct {
	base
	cfg    SingleConfig
	prices *cache.PriceCache
	reg    *registry.Registry
}

// NewSingle crea el detector sobre el cache y el registry dados.
func NewSingle(cfg SingleConfig, prices *cache.PriceCache, reg *registry.Registry, opts ...Option) *Single {
	return &Single{base: newBase(opts), cfg: cfg, prices: prices, reg: reg}
}

// Evaluate prueba BUY_BOTH y solo si no califica SELL_BOTH. Nunca devuelve ambas.
func (d *Single) Evaluate(p domain.MarketPair) (domain.Opportunity, bool) {
	yes, _ := d.prices.Get(p.YesTokenID)
	no, _ := d.prices.Get(p.NoTokenID)

	if q, ok := domain.QuoteBuyBoth(yes, no); ok && d.passes(p.Market, q) {
		return d.opportunity(p, q), true
	}
	if q, ok := domain.QuoteSellBoth(yes, no); ok && d.passes(p.Market, q) {
		return d.opportunity(p, q), true
	}
	return domain.Opportunity{}, false
}

// EvaluateOnPriceUpdate re-evalúa el mercado dueño de tokenID.
// Un token no registrado no produce oportunidad.
func (d *Single) EvaluateOnPriceUpdate(tokenID string) (domain.Opportunity, bool) {
	p, ok := d.reg.LookupByToken(tokenID)
	if !ok {
		return domain.Opportunity{}, false
	}
	return d.Evaluate(p)
}

// ScanAll evalúa cada mercado una vez y ordena por |profit| descendente.
func (d *Single) ScanAll() []domain.Opportunity {
	var opps []domain.Opportunity
	seen := make(map[string]struct{})
	for _, p := range d.reg.Pairs() {
		if _, dup := seen[p.Market.ID]; dup {
			continue
		}
		seen[p.Market.ID] = struct{}{}
		if opp, ok := d.Evaluate(p); ok {
			opps = append(opps, opp)
		}
	}
	sort.SliceStable(opps, func(i, j int) bool {
		return math.Abs(opps[i].Profit) > math.Abs(opps[j].Profit)
	})
	return opps
}

func (d *Single) passes(m domain.Market, q domain.ArbitrageQuote) bool {
	if q.Profit < d.cfg.MinProfit {
		return false
	}
	return d.sizeAndLiquidityOK(m, q)
}

func (d *Single) sizeAndLiquidityOK(m domain.Market, q domain.ArbitrageQuote) bool {
	return m.Liquidity >= d.cfg.MinLiquidity && q.MaxShares > 0
}

func (d *Single) opportunity(p domain.MarketPair, q domain.ArbitrageQuote) domain.Opportunity {
	return domain.Opportunity{
		ID:             uuid.New().String(),
		Market:         p.Market,
		YesTokenID:     p.YesTokenID,
		NoTokenID:      p.NoTokenID,
		DetectedAt:     d.now(),
		ArbitrageQuote: q,
	}
}
