package ports

import (
	"context"

	"github.com/alejandrodnm/polyarb/internal/domain"
)

// Notifier entrega oportunidades al usuario (consola, Telegram...).
type Notifier interface {
	NotifyOpportunity(ctx context.Context, opp domain.Opportunity) error
	NotifyCrossOpportunity(ctx context.Context, opp domain.CrossMarketOpportunity) error
}
