// Package detector evalúa arbitraje sobre el cache de precios y el registry.
// Los detectores devuelven valores y nunca notifican. No son seguros para uso
// concurrente.
package detector

import "time"

// Option configura un detector.
type Option func(*base)

// WithClock reemplaza time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

type base struct {
	now func() time.Time
}

func newBase(opts []Option) base {
	b := base{now: time.Now}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}
