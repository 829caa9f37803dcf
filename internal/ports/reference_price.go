package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/polyarb/internal/domain"
)

// ReferencePriceSource da el precio de apertura de la vela contra la que
// resuelve un mercado up/down.
type ReferencePriceSource interface {
	// FetchReferencePrice devuelve ok=false si el precio aún no se publicó.
	// err queda para fallos de transporte o decoding.
	FetchReferencePrice(ctx context.Context, asset string, interval domain.Interval, start, resolution time.Time) (price float64, ok bool, err error)
}
