// Package cache contiene el estado de precios en memoria que leen los detectores.
// Ningún cache es seguro para uso concurrente: el scanner serializa el acceso.
package cache

import (
	"time"

	"github.com/alejandrodnm/polyarb/internal/domain"
)

// DefaultMaxAge es la antigüedad máxima de un precio antes de podarlo.
const DefaultMaxAge = 60 * time.Second

// Option configura un PriceCache.
type Option func(*PriceCache)

// WithClock reemplaza time.Now (útil en tests).
func WithClock(now func() time.Time) Option {
	return func(c *PriceCache) { c.now = now }
}

// PriceCache guarda el top of book de cada token.
type PriceCache struct {
	prices map[string]domain.TokenPrice
	now    func() time.Time
}

// NewPriceCache crea un cache vacío.
func NewPriceCache(opts ...Option) *PriceCache {
	c := &PriceCache{
		prices: make(map[string]domain.TokenPrice),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Update mergea u en el registro de tokenID. Los campos que u no trae conservan
// su valor. Un timestamp cero se reemplaza por el reloj del cache.
func (c *PriceCache) Update(tokenID string, u domain.PriceUpdate) domain.TokenPrice {
	if u.Timestamp.IsZero() {
		u.Timestamp = c.now()
	}
	p, ok := c.prices[tokenID]
	if !ok {
		p = domain.TokenPrice{TokenID: tokenID}
	}
	p = p.Merge(u)
	c.prices[tokenID] = p
	return p
}

// ApplyBook deriva best bid/ask del snapshot y lo mergea con Update.
func (c *PriceCache) ApplyBook(book domain.OrderBook, ts time.Time) domain.TokenPrice {
	u := book.Update()
	u.Timestamp = ts
	return c.Update(book.TokenID, u)
}

// Get devuelve una copia del precio cacheado.
func (c *PriceCache) Get(tokenID string) (domain.TokenPrice, bool) {
	p, ok := c.prices[tokenID]
	return p, ok
}

// Len devuelve el número de tokens con precio.
func (c *PriceCache) Len() int { return len(c.prices) }

// PruneOlderThan elimina los registros actualizados antes de now - maxAge y
// devuelve cuántos borró. maxAge <= 0 usa DefaultMaxAge.
func (c *PriceCache) PruneOlderThan(maxAge time.Duration) int {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	cutoff := c.now().Add(-maxAge)
	removed := 0
	for id, p := range c.prices {
		if p.UpdatedAt.Before(cutoff) {
			delete(c.prices, id)
			removed++
		}
	}
	return removed
}
