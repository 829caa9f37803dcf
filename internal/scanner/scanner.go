package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/alejandrodnm/polyarb/internal/cache"
	"github.com/alejandrodnm/polyarb/internal/detector"
	"github.com/alejandrodnm/polyarb/internal/domain"
	"github.com/alejandrodnm/polyarb/internal/metrics"
	"github.com/alejandrodnm/polyarb/internal/ports"
	"github.com/alejandrodnm/polyarb/internal/registry"
)

// Config contiene la configuración del scanner.
type Config struct {
	ScanInterval          time.Duration
	MarketRefreshInterval time.Duration
	ReferenceInterval     time.Duration
	StaleMaxAge           time.Duration // precios más viejos se podan en cada scan
	ReferenceMaxAge       time.Duration // referencias de mercados resueltos hace más se podan
	ReferenceConcurrency  int

	Single detector.SingleConfig
	Cross  detector.CrossConfig

	EnableCross bool
}

// DefaultConfig devuelve una configuración sensata para producción.
func DefaultConfig() Config {
	return Config{
		ScanInterval:          5 * time.Second,
		MarketRefreshInterval: 60 * time.Second,
		ReferenceInterval:     30 * time.Second,
		StaleMaxAge:           cache.DefaultMaxAge,
		ReferenceMaxAge:       24 * time.Hour,
		ReferenceConcurrency:  detector.DefaultReferenceConcurrency,
		Single:                detector.SingleConfig{MinProfit: 0.005, MinLiquidity: 100},
		Cross:                 detector.CrossConfig{MinProfit: 0.01, DefaultLegSize: detector.DefaultLegSize},
		EnableCross:           true,
	}
}

// Deps son los colaboradores del scanner. References, Stream, Dispatcher y
// Printer son opcionales.
type Deps struct {
	Markets    ports.MarketProvider
	Books      ports.BookProvider
	References ports.ReferencePriceSource
	Stream     ports.PriceStream
	Dispatcher *Dispatcher
	Printer    ReportPrinter
	Metrics    *metrics.Metrics
}

// Option configura el Scanner.
type Option func(*Scanner)

// WithClock reemplaza time.Now en el scanner, los caches y los detectores.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) { s.now = now }
}

// Scanner es dueño de los caches, el registry y los detectores, y su único
// escritor. mu serializa cada cambio de estado con las evaluaciones que
// dispara; las llamadas de red van fuera del lock.
type Scanner struct {
	cfg  Config
	deps Deps
	m    *metrics.Metrics
	log  *slog.Logger
	now  func() time.Time

	mu     sync.Mutex
	prices *cache.PriceCache
	refs   *cache.ReferencePriceCache
	reg    *registry.Registry
	single *detector.Single
	cross  *detector.Cross

	// estado del stream, solo lo toca la goroutine de Run
	streamTokens []string
	streamCancel context.CancelFunc
	streamWG     sync.WaitGroup
}

// New crea un Scanner con todas las dependencias inyectadas.
func New(cfg Config, deps Deps, opts ...Option) *Scanner {
	s := &Scanner{
		cfg:  cfg,
		deps: deps,
		m:    deps.Metrics,
		log:  slog.Default().With("component", "scanner"),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.m == nil {
		s.m = metrics.New()
	}

	s.prices = cache.NewPriceCache(cache.WithClock(s.now))
	s.refs = cache.NewReferencePriceCache()
	s.reg = registry.New(s.refs)
	s.single = detector.NewSingle(cfg.Single, s.prices, s.reg, detector.WithClock(s.now))
	s.cross = detector.NewCross(cfg.Cross, s.prices, s.reg, s.refs, detector.WithClock(s.now))
	return s
}

// RefreshMarkets reemplaza el registry con la lista actual del proveedor y carga
// los orderbooks. Un fallo de books se loguea y deja precios sin datos; solo se
// devuelve error si falla el discovery.
func (s *Scanner) RefreshMarkets(ctx context.Context) error {
	pairs, err := s.deps.Markets.FetchMarkets(ctx)
	if err != nil {
		return fmt.Errorf("scanner.RefreshMarkets: fetch markets: %w", err)
	}

	s.mu.Lock()
	n := s.reg.SetMarkets(pairs)
	upDown := len(s.reg.Infos())
	s.mu.Unlock()

	s.m.TrackedMarkets.Set(float64(n))
	s.m.CrossMarkets.Set(float64(upDown))
	s.log.Info("markets refreshed", "received", len(pairs), "registered", n, "up_down", upDown)

	s.RefreshBooks(ctx)
	return nil
}

// RefreshBooks descarga los orderbooks de todos los tokens registrados.
func (s *Scanner) RefreshBooks(ctx context.Context) {
	s.mu.Lock()
	tokens := s.reg.AllTokenIDs()
	s.mu.Unlock()
	if len(tokens) == 0 {
		return
	}

	books, err := s.deps.Books.FetchOrderBooks(ctx, tokens)
	if err != nil {
		s.log.Warn("book fetch failed", "tokens", len(tokens), "err", err)
		return
	}

	ts := s.now()
	applied := 0
	s.mu.Lock()
	for _, id := range tokens {
		book, ok := books[id]
		if !ok {
			continue
		}
		book.TokenID = id
		s.prices.ApplyBook(book, ts)
		applied++
	}
	s.mu.Unlock()

	s.m.PriceEvents.WithLabelValues("book").Add(float64(applied))
	s.log.Debug("books applied", "requested", len(tokens), "received", applied)
}

// ApplyBook mergea un snapshot del book y re-evalúa el mercado dueño.
func (s *Scanner) ApplyBook(book domain.OrderBook, ts time.Time) {
	s.mu.Lock()
	s.prices.ApplyBook(book, ts)
	ev := s.evaluateLocked(book.TokenID)
	s.mu.Unlock()

	s.m.PriceEvents.WithLabelValues("book").Inc()
	s.dispatch(ev)
}

// ApplyDelta mergea un delta del stream y re-evalúa el mercado dueño.
// Los tokens no registrados se cachean pero no producen nada.
func (s *Scanner) ApplyDelta(tokenID string, u domain.PriceUpdate) {
	s.mu.Lock()
	s.prices.Update(tokenID, u)
	ev := s.evaluateLocked(tokenID)
	s.mu.Unlock()

	s.m.PriceEvents.WithLabelValues("delta").Inc()
	s.dispatch(ev)
}

// HandleBook implementa ports.StreamHandler.
func (s *Scanner) HandleBook(book domain.OrderBook, ts time.Time) { s.ApplyBook(book, ts) }

// HandleDelta implementa ports.StreamHandler.
func (s *Scanner) HandleDelta(tokenID string, u domain.PriceUpdate) { s.ApplyDelta(tokenID, u) }

type evaluation struct {
	single    domain.Opportunity
	hasSingle bool
	cross     domain.CrossMarketOpportunity
	hasCross  bool
}

func (s *Scanner) evaluateLocked(tokenID string) evaluation {
	start := time.Now()
	var ev evaluation
	ev.single, ev.hasSingle = s.single.EvaluateOnPriceUpdate(tokenID)
	if s.cfg.EnableCross {
		ev.cross, ev.hasCross = s.cross.EvaluateOnPriceUpdate(tokenID)
	}
	s.m.EvaluationSeconds.WithLabelValues("event").Observe(time.Since(start).Seconds())
	return ev
}

func (s *Scanner) dispatch(ev evaluation) {
	if ev.hasSingle {
		s.m.Detections.WithLabelValues(ev.single.Kind.String()).Inc()
		if s.deps.Dispatcher != nil {
			s.deps.Dispatcher.Opportunity(ev.single)
		}
	}
	if ev.hasCross {
		s.m.Detections.WithLabelValues("CROSS").Inc()
		if s.deps.Dispatcher != nil {
			s.deps.Dispatcher.Cross(ev.cross)
		}
	}
}

// LoadReferences pide las referencias que faltan fuera del lock y las aplica.
// force salta el atajo de carga previa y el retry delay.
func (s *Scanner) LoadReferences(ctx context.Context, force bool) int {
	if s.deps.References == nil || !s.cfg.EnableCross {
		return 0
	}

	s.mu.Lock()
	reqs := s.cross.PendingReferences(force)
	s.mu.Unlock()
	if len(reqs) == 0 {
		return 0
	}

	results := detector.FetchReferences(ctx, s.deps.References, reqs, s.cfg.ReferenceConcurrency)
	for _, r := range results {
		switch {
		case r.Err != nil:
			s.m.ReferenceLoads.WithLabelValues("error").Inc()
		case !r.OK:
			s.m.ReferenceLoads.WithLabelValues("unavailable").Inc()
		default:
			s.m.ReferenceLoads.WithLabelValues("ok").Inc()
		}
	}

	s.mu.Lock()
	applied := s.cross.ApplyReferencePrices(results)
	s.mu.Unlock()

	s.log.Debug("reference prices loaded", "requested", len(reqs), "applied", applied, "force", force)
	return applied
}

// Scan corre ambos detectores, poda estado viejo y despacha lo encontrado.
func (s *Scanner) Scan(_ context.Context) Report {
	start := time.Now()
	now := s.now()

	s.mu.Lock()
	r := Report{At: now, Markets: s.reg.Len()}
	r.PrunedPrices = s.prices.PruneOlderThan(s.staleMaxAge())
	if s.cfg.ReferenceMaxAge > 0 {
		s.refs.Prune(now.Add(-s.cfg.ReferenceMaxAge))
	}
	r.Opportunities = s.single.ScanAll()
	r.NearMiss, r.HasNearMiss = s.single.FindBestNearMiss()
	if s.cfg.EnableCross {
		r.CrossOpportunities = s.cross.ScanAll()
		r.AllCross, r.CrossDiagnostics = s.cross.FindAllOpportunities()
	}
	r.TrackedPrices = s.prices.Len()
	s.mu.Unlock()

	r.Duration = time.Since(start)
	s.m.EvaluationSeconds.WithLabelValues("scan").Observe(r.Duration.Seconds())
	s.m.PrunedPrices.Add(float64(r.PrunedPrices))
	if len(r.Opportunities) > 0 {
		s.m.BestProfit.WithLabelValues(r.Opportunities[0].Kind.String()).Set(r.Opportunities[0].Profit)
	}
	if len(r.CrossOpportunities) > 0 {
		s.m.BestProfit.WithLabelValues("CROSS").Set(r.CrossOpportunities[0].MaxProfit)
	}

	for _, opp := range r.Opportunities {
		s.dispatch(evaluation{single: opp, hasSingle: true})
	}
	for _, opp := range r.CrossOpportunities {
		s.dispatch(evaluation{cross: opp, hasCross: true})
	}
	return r
}

// staleMaxAge es la edad a partir de la cual se poda un precio. Con stream, un
// token sin actividad solo se rellena en el próximo refresh de mercados, así
// que se le da ese margen extra.
func (s *Scanner) staleMaxAge() time.Duration {
	age := s.cfg.StaleMaxAge
	if age <= 0 {
		age = cache.DefaultMaxAge
	}
	if s.deps.Stream != nil {
		age += s.cfg.MarketRefreshInterval
	}
	return age
}

// RunOnce hace refresh → referencias → scan una sola vez.
func (s *Scanner) RunOnce(ctx context.Context) (Report, error) {
	if err := s.RefreshMarkets(ctx); err != nil {
		return Report{}, err
	}
	s.LoadReferences(ctx, true)
	r := s.runScan(ctx)
	return r, nil
}

// Run ejecuta los loops de refresh, referencias y scan hasta que ctx se cancele.
func (s *Scanner) Run(ctx context.Context) error {
	s.log.Info("scanner starting",
		"scan_interval", s.cfg.ScanInterval,
		"market_refresh", s.cfg.MarketRefreshInterval,
		"cross", s.cfg.EnableCross,
		"stream", s.deps.Stream != nil,
	)

	if err := s.RefreshMarkets(ctx); err != nil {
		s.log.Error("market refresh failed", "err", err)
	}
	s.LoadReferences(ctx, true)
	s.syncStream(ctx)
	s.runScan(ctx)

	scanTicker := time.NewTicker(s.cfg.ScanInterval)
	defer scanTicker.Stop()
	marketTicker := time.NewTicker(s.cfg.MarketRefreshInterval)
	defer marketTicker.Stop()
	refTicker := time.NewTicker(s.cfg.ReferenceInterval)
	defer refTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.stopStream()
			s.log.Info("scanner stopped")
			return nil
		case <-scanTicker.C:
			if s.deps.Stream == nil {
				s.RefreshBooks(ctx)
			}
			s.runScan(ctx)
		case <-marketTicker.C:
			if err := s.RefreshMarkets(ctx); err != nil {
				s.log.Warn("market refresh failed", "err", err)
				continue
			}
			s.LoadReferences(ctx, true)
			s.syncStream(ctx)
		case <-refTicker.C:
			s.LoadReferences(ctx, false)
		}
	}
}

func (s *Scanner) runScan(ctx context.Context) Report {
	r := s.Scan(ctx)
	r.Log(s.log)
	if s.deps.Printer != nil {
		s.deps.Printer.PrintReport(r)
	}
	return r
}

// syncStream (re)arranca el stream si cambió el set de tokens.
func (s *Scanner) syncStream(ctx context.Context) {
	if s.deps.Stream == nil {
		return
	}
	s.mu.Lock()
	tokens := s.reg.AllTokenIDs()
	s.mu.Unlock()
	slices.Sort(tokens)

	if s.streamCancel != nil && slices.Equal(tokens, s.streamTokens) {
		return
	}
	s.stopStream()
	if len(tokens) == 0 {
		return
	}

	sctx, cancel := context.WithCancel(ctx)
	s.streamCancel = cancel
	s.streamTokens = tokens

	s.streamWG.Add(1)
	go func() {
		defer s.streamWG.Done()
		if err := s.deps.Stream.Run(sctx, tokens, s); err != nil && sctx.Err() == nil {
			s.log.Warn("price stream exited", "err", err)
		}
	}()
	s.log.Info("price stream started", "tokens", len(tokens))
}

func (s *Scanner) stopStream() {
	if s.streamCancel == nil {
		return
	}
	s.streamCancel()
	s.streamWG.Wait()
	s.streamCancel = nil
	s.streamTokens = nil
}
