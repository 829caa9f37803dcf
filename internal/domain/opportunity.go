package domain

import "time"

// Opportunity es un arbitraje de mercado único que pasó todos los filtros.
// Es un valor inmutable: cada evaluación produce uno nuevo.
type Opportunity struct {
	ID         string
	Market     Market
	YesTokenID string
	NoTokenID  string
	DetectedAt time.Time

	ArbitrageQuote
}

// Key identifica la oportunidad entre evaluaciones (mismo mercado, misma forma).
func (o Opportunity) Key() string {
	return o.Kind.String() + ":" + o.Market.ID
}

// EstimatedProfit devuelve el beneficio total si se ejecutan MaxShares.
func (o Opportunity) EstimatedProfit() float64 {
	return o.Profit * o.MaxShares
}
