package scanner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alejandrodnm/polyarb/internal/domain"
	"github.com/alejandrodnm/polyarb/internal/metrics"
	"github.com/alejandrodnm/polyarb/internal/ports"
)

const (
	defaultQueueSize = 256
	defaultCooldown  = 60 * time.Second
	notifyTimeout    = 10 * time.Second
)

// DispatcherConfig controla la cola y el cooldown de notificaciones.
type DispatcherConfig struct {
	QueueSize int           // 0 = 256
	Cooldown  time.Duration // 0 = 60s; negativo desactiva el cooldown
}

type dispatchEvent struct {
	key    string
	single *domain.Opportunity
	cross  *domain.CrossMarketOpportunity
}

type sentRecord struct {
	at     time.Time
	profit float64
}

// Dispatcher entrega oportunidades a un Notifier desde su propia goroutine.
// Encolar nunca bloquea: con la cola llena el evento se descarta y se cuenta.
// Una misma clave no se reenvía dentro del cooldown salvo que su
// profit haya mejorado.
type Dispatcher struct {
	notifier ports.Notifier
	metrics  *metrics.Metrics
	cooldown time.Duration
	now      func() time.Time
	log      *slog.Logger

	queue chan dispatchEvent
	done  chan struct{}

	mu      sync.Mutex
	sent    map[string]sentRecord
	started bool
	closed  bool
	dropped int
}

// NewDispatcher crea el dispatcher. Hay que llamar a Start antes de encolar.
func NewDispatcher(n ports.Notifier, cfg DispatcherConfig, m *metrics.Metrics) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.Cooldown == 0 {
		cfg.Cooldown = defaultCooldown
	}
	if m == nil {
		m = metrics.New()
	}
	return &Dispatcher{
		notifier: n,
		metrics:  m,
		cooldown: cfg.Cooldown,
		now:      time.Now,
		log:      slog.Default().With("component", "dispatcher"),
		queue:    make(chan dispatchEvent, cfg.QueueSize),
		done:     make(chan struct{}),
		sent:     make(map[string]sentRecord),
	}
}

// Start lanza el worker. Termina cuando ctx se cancela o tras Stop.
// Llamadas repetidas, o después de Stop, no hacen nada.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	go d.loop(ctx)
}

// Stop deja de aceptar eventos y espera a que la cola se vacíe.
// Sin Start previo no hay worker que esperar: lo encolado se descarta.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	started := d.started
	d.mu.Unlock()
	if started {
		<-d.done
	}
}

// Dropped devuelve cuántos eventos se descartaron por cola llena.
func (d *Dispatcher) Dropped() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}

// Opportunity encola una oportunidad de mercado único.
// Devuelve false si fue suprimida por cooldown o descartada.
func (d *Dispatcher) Opportunity(opp domain.Opportunity) bool {
	return d.enqueue(dispatchEvent{key: opp.Key(), single: &opp}, opp.Profit)
}

// Cross encola una oportunidad cross-market.
func (d *Dispatcher) Cross(opp domain.CrossMarketOpportunity) bool {
	return d.enqueue(dispatchEvent{key: "CROSS:" + opp.Key(), cross: &opp}, opp.MaxProfit)
}

func (d *Dispatcher) enqueue(ev dispatchEvent, profit float64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}

	now := d.now()
	if prev, ok := d.sent[ev.key]; ok && d.cooldown > 0 {
		if now.Sub(prev.at) < d.cooldown && profit <= prev.profit {
			return false
		}
	}

	select {
	case d.queue <- ev:
		d.sent[ev.key] = sentRecord{at: now, profit: profit}
		return true
	default:
		d.dropped++
		d.metrics.DroppedEvents.Inc()
		d.log.Warn("dispatch queue full, event dropped", "key", ev.key)
		return false
	}
}

func (d *Dispatcher) loop(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-d.queue:
			if !ok {
				return
			}
			d.deliver(ctx, ev)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev dispatchEvent) {
	nctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	var (
		err  error
		kind string
	)
	switch {
	case ev.single != nil:
		kind = ev.single.Kind.String()
		err = d.notifier.NotifyOpportunity(nctx, *ev.single)
	case ev.cross != nil:
		kind = "CROSS"
		err = d.notifier.NotifyCrossOpportunity(nctx, *ev.cross)
	}
	if err != nil {
		d.metrics.NotificationErrors.Inc()
		d.log.Warn("notifier error", "key", ev.key, "err", err)
		return
	}
	d.metrics.NotificationsSent.WithLabelValues(kind).Inc()
}
