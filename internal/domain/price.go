package domain

import "time"

// OptFloat es un float que puede faltar. Cero es un valor válido; la ausencia
// solo se expresa con Valid.
type OptFloat struct {
	Value float64
	Valid bool
}

// Float devuelve un OptFloat presente.
func Float(v float64) OptFloat {
	return OptFloat{Value: v, Valid: true}
}

// Or devuelve el valor si está presente, o def si no.
func (o OptFloat) Or(def float64) float64 {
	if o.Valid {
		return o.Value
	}
	return def
}

// Positive indica si el valor está presente y es mayor que cero.
func (o OptFloat) Positive() bool {
	return o.Valid && o.Value > 0
}

// PriceUpdate lleva los campos de un snapshot o delta. Un campo sin valor
// significa "no reportado", nunca "cero".
type PriceUpdate struct {
	BestAsk     OptFloat
	BestAskSize OptFloat
	BestBid     OptFloat
	BestBidSize OptFloat
	Timestamp   time.Time
}

// TokenPrice es el top of book cacheado de un token.
type TokenPrice struct {
	TokenID     string
	BestAsk     OptFloat
	BestAskSize OptFloat
	BestBid     OptFloat
	BestBidSize OptFloat
	UpdatedAt   time.Time
}

// Merge aplica u sobre p: lo reportado sobrescribe, lo no reportado se mantiene.
// UpdatedAt toma u.Timestamp.
func (p TokenPrice) Merge(u PriceUpdate) TokenPrice {
	if u.BestAsk.Valid {
		p.BestAsk = u.BestAsk
	}
	if u.BestAskSize.Valid {
		p.BestAskSize = u.BestAskSize
	}
	if u.BestBid.Valid {
		p.BestBid = u.BestBid
	}
	if u.BestBidSize.Valid {
		p.BestBidSize = u.BestBidSize
	}
	p.UpdatedAt = u.Timestamp
	return p
}
