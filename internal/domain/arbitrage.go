package domain

import "math"

// OpportunityKind distingue las dos formas de arbitraje de un mercado binario.
type OpportunityKind int

const (
	KindBuyBoth  OpportunityKind = iota // comprar YES + NO por menos de $1
	KindSellBoth                        // mintear por $1 y vender YES + NO por más
)

func (k OpportunityKind) String() string {
	switch k {
	case KindBuyBoth:
		return "BUY_BOTH"
	case KindSellBoth:
		return "SELL_BOTH"
	default:
		return "UNKNOWN"
	}
}

// ArbitrageQuote es el cálculo de una forma de arbitraje sobre el top of book,
// sin aplicar umbrales.
type ArbitrageQuote struct {
	Kind          OpportunityKind
	YesPrice      float64 // ask (BUY_BOTH) o bid (SELL_BOTH)
	NoPrice       float64
	YesSize       float64
	NoSize        float64
	Total         float64 // coste total (BUY_BOTH) o suma de bids (SELL_BOTH)
	Profit        float64 // por share, con signo
	ProfitPercent float64
	MaxShares     float64 // min(YesSize, NoSize)
}

// QuoteBuyBoth evalúa la compra de ambos lados a best ask.
// ok=false si falta el ask de alguno de los dos tokens.
// Un size desconocido cuenta como 0.
func QuoteBuyBoth(yes, no TokenPrice) (ArbitrageQuote, bool) {
	if !yes.BestAsk.Positive() || !no.BestAsk.Positive() {
		return ArbitrageQuote{}, false
	}
	q := ArbitrageQuote{
		Kind:     KindBuyBoth,
		YesPrice: yes.BestAsk.Value,
		NoPrice:  no.BestAsk.Value,
		YesSize:  yes.BestAskSize.Or(0),
		NoSize:   no.BestAskSize.Or(0),
	}
	q.Total = q.YesPrice + q.NoPrice
	q.Profit = 1.0 - q.Total
	q.ProfitPercent = q.Profit / q.Total
	q.MaxShares = math.Min(q.YesSize, q.NoSize)
	return q, true
}

// QuoteSellBoth evalúa mint + venta de ambos lados a best bid.
// ProfitPercent = Profit: la base de coste es el mint de $1, no la suma de bids.
func QuoteSellBoth(yes, no TokenPrice) (ArbitrageQuote, bool) {
	if !yes.BestBid.Positive() || !no.BestBid.Positive() {
		return ArbitrageQuote{}, false
	}
	q := ArbitrageQuote{
		Kind:     KindSellBoth,
		YesPrice: yes.BestBid.Value,
		NoPrice:  no.BestBid.Value,
		YesSize:  yes.BestBidSize.Or(0),
		NoSize:   no.BestBidSize.Or(0),
	}
	q.Total = q.YesPrice + q.NoPrice
	q.Profit = q.Total - 1.0
	q.ProfitPercent = q.Profit
	q.MaxShares = math.Min(q.YesSize, q.NoSize)
	return q, true
}
