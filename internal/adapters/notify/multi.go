package notify

import (
	"context"
	"errors"

	"github.com/alejandrodnm/polyarb/internal/domain"
	"github.com/alejandrodnm/polyarb/internal/ports"
)

// Multi reparte cada oportunidad a varios notificadores. Un fallo no impide
// la entrega al resto; los errores se devuelven juntos.
type Multi struct {
	notifiers []ports.Notifier
}

// NewMulti ignora los notificadores nil.
func NewMulti(notifiers ...ports.Notifier) *Multi {
	m := &Multi{}
	for _, n := range notifiers {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}
	return m
}

// Len devuelve el número de notificadores activos.
func (m *Multi) Len() int { return len(m.notifiers) }

func (m *Multi) NotifyOpportunity(ctx context.Context, opp domain.Opportunity) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.NotifyOpportunity(ctx, opp); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) NotifyCrossOpportunity(ctx context.Context, opp domain.CrossMarketOpportunity) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.NotifyCrossOpportunity(ctx, opp); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
