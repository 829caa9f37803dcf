package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alejandrodnm/polyarb/internal/domain"
	"github.com/alejandrodnm/polyarb/internal/metrics"
	"github.com/alejandrodnm/polyarb/internal/ports"
)

const (
	defaultWSURL = "wss://ws-subscriptions-clob.polymarket.com/ws/market"

	writeWait         = 10 * time.Second
	readWait          = 60 * time.Second
	pingPeriod        = 10 * time.Second
	reconnectDelay    = 1 * time.Second
	maxReconnectDelay = 60 * time.Second
)

// Stream es la suscripción al canal market del websocket del CLOB.
// Implementa ports.PriceStream.
type Stream struct {
	url       string
	dialer    *websocket.Dialer
	pingEvery time.Duration
	baseDelay time.Duration
	maxDelay  time.Duration
	metrics   *metrics.Metrics
	now       func() time.Time
	log       *slog.Logger
}

// StreamOption configura el Stream.
type StreamOption func(*Stream)

// WithPingPeriod cambia el intervalo de PING.
func WithPingPeriod(d time.Duration) StreamOption {
	return func(s *Stream) {
		if d > 0 {
			s.pingEvery = d
		}
	}
}

// WithReconnectDelay cambia la espera base y el tope del backoff de reconexión.
func WithReconnectDelay(base, maxDelay time.Duration) StreamOption {
	return func(s *Stream) {
		if base > 0 {
			s.baseDelay = base
		}
		if maxDelay >= base && maxDelay > 0 {
			s.maxDelay = maxDelay
		}
	}
}

// WithStreamMetrics cuenta las reconexiones.
func WithStreamMetrics(m *metrics.Metrics) StreamOption {
	return func(s *Stream) { s.metrics = m }
}

// NewStream crea un Stream contra wsURL. Vacío usa el endpoint de producción.
func NewStream(wsURL string, opts ...StreamOption) *Stream {
	if wsURL == "" {
		wsURL = defaultWSURL
	}
	s := &Stream{
		url:       wsURL,
		dialer:    &websocket.Dialer{HandshakeTimeout: 15 * time.Second},
		pingEvery: pingPeriod,
		baseDelay: reconnectDelay,
		maxDelay:  maxReconnectDelay,
		now:       time.Now,
		log:       slog.Default().With("component", "stream"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ ports.PriceStream = (*Stream)(nil)

// Run se conecta, se suscribe a tokenIDs y entrega los eventos a h hasta que
// ctx se cancela. Cada desconexión se reintenta con backoff exponencial.
func (s *Stream) Run(ctx context.Context, tokenIDs []string, h ports.StreamHandler) error {
	if len(tokenIDs) == 0 {
		<-ctx.Done()
		return nil
	}

	delay := s.baseDelay
	for {
		start := s.now()
		err := s.session(ctx, tokenIDs, h)
		if ctx.Err() != nil {
			return nil
		}

		// una sesión larga resetea el backoff
		if s.now().Sub(start) > s.maxDelay {
			delay = s.baseDelay
		}
		s.log.Warn("stream disconnected, reconnecting", "err", err, "delay", delay)
		if s.metrics != nil {
			s.metrics.StreamReconnects.Inc()
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		delay = min(delay*2, s.maxDelay)
	}
}

// session mantiene una conexión hasta que falla la lectura o se cancela ctx.
func (s *Stream) session(ctx context.Context, tokenIDs []string, h ports.StreamHandler) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("stream.dial: %w", err)
	}

	var writeMu sync.Mutex
	write := func(msgType int, data []byte) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteMessage(msgType, data)
	}

	sub, err := json.Marshal(wsSubscribe{Type: "market", AssetsIDs: tokenIDs})
	if err != nil {
		conn.Close()
		return fmt.Errorf("stream.subscribe: %w", err)
	}
	if err := write(websocket.TextMessage, sub); err != nil {
		conn.Close()
		return fmt.Errorf("stream.subscribe: %w", err)
	}
	s.log.Info("stream subscribed", "tokens", len(tokenIDs))

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.pingEvery)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				// desbloquea ReadMessage
				conn.Close()
				return
			case <-ticker.C:
				if err := write(websocket.TextMessage, []byte("PING")); err != nil {
					s.log.Debug("ping failed", "err", err)
					conn.Close()
					return
				}
			}
		}
	}()

	defer func() {
		close(done)
		wg.Wait()
		conn.Close()
	}()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(readWait))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("stream.read: %w", err)
		}
		s.dispatch(data, h)
	}
}

// dispatch decodifica un mensaje del canal market. Puede ser un objeto o un
// array de objetos. PONG y mensajes desconocidos se ignoran.
func (s *Stream) dispatch(data []byte, h ports.StreamHandler) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "PONG" {
		return
	}

	if trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			s.log.Debug("unparseable stream message", "err", err)
			return
		}
		for _, item := range items {
			s.dispatchOne(item, h)
		}
		return
	}
	s.dispatchOne(data, h)
}

func (s *Stream) dispatchOne(raw json.RawMessage, h ports.StreamHandler) {
	var env wsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.log.Debug("unparseable stream event", "err", err)
		return
	}

	switch env.EventType {
	case "book":
		var msg orderBookResponse
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.log.Debug("bad book event", "err", err)
			return
		}
		if msg.AssetID == "" {
			return
		}
		h.HandleBook(mapOrderBook(msg), parseMillis(msg.Timestamp, s.now()))

	case "price_change":
		var msg wsPriceChangeMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.log.Debug("bad price_change event", "err", err)
			return
		}
		ts := parseMillis(msg.Timestamp, s.now())
		for _, pc := range msg.PriceChanges {
			if pc.AssetID == "" {
				continue
			}
			u, ok := priceChangeUpdate(pc, ts)
			if !ok {
				continue
			}
			h.HandleDelta(pc.AssetID, u)
		}
	}
}

// priceChangeUpdate convierte un price_change en un update solo de precios:
// best_bid y best_ask no traen size, así que los sizes quedan sin reportar.
func priceChangeUpdate(pc wsPriceChange, ts time.Time) (domain.PriceUpdate, bool) {
	u := domain.PriceUpdate{
		BestAsk:   parseOptDecimal(pc.BestAsk),
		BestBid:   parseOptDecimal(pc.BestBid),
		Timestamp: ts,
	}
	if u.BestAsk.Valid && u.BestAsk.Value <= 0 {
		u.BestAsk = domain.OptFloat{}
	}
	if u.BestBid.Valid && u.BestBid.Value <= 0 {
		u.BestBid = domain.OptFloat{}
	}
	return u, u.BestAsk.Valid || u.BestBid.Valid
}
