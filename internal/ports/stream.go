package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/polyarb/internal/domain"
)

// StreamHandler recibe los eventos de precio del stream.
// Las llamadas llegan desde la goroutine del stream, una a la vez.
type StreamHandler interface {
	HandleBook(book domain.OrderBook, ts time.Time)
	HandleDelta(tokenID string, u domain.PriceUpdate)
}

// PriceStream mantiene una suscripción en tiempo real a los tokens dados.
type PriceStream interface {
	// Run bloquea hasta que ctx se cancela, reconectando ante errores.
	Run(ctx context.Context, tokenIDs []string, h StreamHandler) error
}
