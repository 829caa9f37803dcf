package cache

import "time"

type referenceEntry struct {
	price      float64
	resolution time.Time
}

// ReferencePriceCache guarda precios de referencia por clave de mercado (slug o ID).
// Cada clave se escribe una sola vez: el open de una vela no cambia al publicarse.
// It outlives registry rebuilds.
type ReferencePriceCache struct {
	entries map[string]referenceEntry
}

// NewReferencePriceCache crea un cache vacío.
func NewReferencePriceCache() *ReferencePriceCache {
	return &ReferencePriceCache{entries: make(map[string]referenceEntry)}
}

// Set guarda el precio de key. Devuelve false si ya existía (no sobrescribe).
func (c *ReferencePriceCache) Set(key string, price float64, resolution time.Time) bool {
	if key == "" {
		return false
	}
	if _, ok := c.entries[key]; ok {
		return false
	}
	c.entries[key] = referenceEntry{price: price, resolution: resolution}
	return true
}

// Get devuelve el precio de referencia de key.
func (c *ReferencePriceCache) Get(key string) (float64, bool) {
	e, ok := c.entries[key]
	return e.price, ok
}

// Len devuelve el número de claves cacheadas.
func (c *ReferencePriceCache) Len() int { return len(c.entries) }

// Prune elimina las entradas de mercados resueltos antes de before.
func (c *ReferencePriceCache) Prune(before time.Time) int {
	removed := 0
	for key, e := range c.entries {
		if !e.resolution.IsZero() && e.resolution.Before(before) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}
