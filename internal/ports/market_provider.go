package ports

import (
	"context"

	"github.com/alejandrodnm/polyarb/internal/domain"
)

// MarketProvider descubre los mercados binarios a vigilar.
type MarketProvider interface {
	// FetchMarkets devuelve los pares YES/NO actualmente activos.
	// La lista reemplaza por completo a la anterior en el registry.
	FetchMarkets(ctx context.Context) ([]domain.MarketPair, error)
}
