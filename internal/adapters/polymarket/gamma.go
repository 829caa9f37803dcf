package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/polyarb/internal/domain"
)

const (
	gammaEventsPath  = "/events"
	gammaMarketsPath = "/markets"
	gammaPageSize    = 100

	defaultEventConcurrency = 4
)

// DiscoveryConfig decide qué mercados devuelve FetchMarkets.
type DiscoveryConfig struct {
	Assets    []string          // btc, eth, sol, xrp
	Intervals []domain.Interval // velas up/down a descubrir
	Lookahead int               // ventanas futuras además de la actual

	IncludeGeneral    bool    // añadir mercados activos de /markets
	MinLiquidity      float64 // filtro para mercados generales
	MaxGeneralMarkets int
}

// DefaultDiscoveryConfig descubre los up/down de btc y eth en todas las velas.
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		Assets:            []string{"btc", "eth"},
		Intervals:         []domain.Interval{domain.Interval15m, domain.Interval1h, domain.Interval4h},
		Lookahead:         1,
		MinLiquidity:      1000,
		MaxGeneralMarkets: 500,
	}
}

// FetchMarkets descubre los mercados a escanear: los up/down de cada asset e
// intervalo para la ventana actual y las siguientes, y opcionalmente los
// mercados generales con liquidez suficiente.
func (c *Client) FetchMarkets(ctx context.Context) ([]domain.MarketPair, error) {
	slugs := windowSlugs(c.discovery, c.now())

	pairs, err := c.fetchUpDownMarkets(ctx, slugs)
	if err != nil {
		return nil, fmt.Errorf("gamma.FetchMarkets: %w", err)
	}

	if c.discovery.IncludeGeneral {
		general, err := c.fetchGeneralMarkets(ctx)
		if err != nil {
			if len(pairs) == 0 {
				return nil, fmt.Errorf("gamma.FetchMarkets: %w", err)
			}
			slog.Warn("general market discovery failed", "err", err)
		}
		pairs = append(pairs, general...)
	}

	slog.Debug("markets discovered", "slugs", len(slugs), "pairs", len(pairs))
	return pairs, nil
}

// updownWindow es un slug up/down con su metadata conocida.
type updownWindow struct {
	Slug     string
	Asset    string
	Interval domain.Interval
	Start    time.Time
}

// windowSlugs calcula <asset>-updown-<interval>-<start> para la ventana que
// contiene now y las Lookahead siguientes. start es unix seconds alineado a la vela.
func windowSlugs(d DiscoveryConfig, now time.Time) []updownWindow {
	var windows []updownWindow
	for _, asset := range d.Assets {
		asset = domain.NormalizeAsset(asset)
		for _, iv := range d.Intervals {
			dur := iv.Duration()
			if dur == 0 {
				continue
			}
			start := now.UTC().Truncate(dur)
			for i := 0; i <= max(d.Lookahead, 0); i++ {
				s := start.Add(time.Duration(i) * dur)
				windows = append(windows, updownWindow{
					Slug:     fmt.Sprintf("%s-updown-%s-%d", asset, iv, s.Unix()),
					Asset:    asset,
					Interval: iv,
					Start:    s,
				})
			}
		}
	}
	return windows
}

// fetchUpDownMarkets consulta /events?slug= para cada ventana. Un slug que no
// existe todavía no es error. Solo falla si fallan todas las consultas.
func (c *Client) fetchUpDownMarkets(ctx context.Context, windows []updownWindow) ([]domain.MarketPair, error) {
	if len(windows) == 0 {
		return nil, nil
	}

	var (
		mu       sync.Mutex
		pairs    []domain.MarketPair
		failed   int
		firstErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultEventConcurrency)
	for _, w := range windows {
		g.Go(func() error {
			found, err := c.fetchEventMarkets(gctx, w)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				if firstErr == nil {
					firstErr = fmt.Errorf("event %s: %w", w.Slug, err)
				}
				slog.Debug("event lookup failed", "slug", w.Slug, "err", err)
				return nil
			}
			pairs = append(pairs, found...)
			return nil
		})
	}
	_ = g.Wait()

	if failed == len(windows) {
		return nil, firstErr
	}
	return pairs, nil
}

func (c *Client) fetchEventMarkets(ctx context.Context, w updownWindow) ([]domain.MarketPair, error) {
	u := fmt.Sprintf("%s%s?slug=%s", c.gammaBase, gammaEventsPath, url.QueryEscape(w.Slug))

	var events []gammaEvent
	if err := c.get(ctx, c.gammaLimiter, u, &events); err != nil {
		return nil, err
	}

	var pairs []domain.MarketPair
	for i := range events {
		ev := &events[i]
		if ev.Closed {
			continue
		}
		for _, gm := range ev.Markets {
			if gm.Closed {
				continue
			}
			p, ok := mapGammaMarket(gm, ev)
			if !ok {
				continue
			}
			p.Market.Asset = w.Asset
			p.Market.Interval = w.Interval
			if p.Market.Slug == "" {
				p.Market.Slug = w.Slug
			}
			if p.Market.EndTime.IsZero() {
				p.Market.EndTime = w.Start.Add(w.Interval.Duration())
			}
			pairs = append(pairs, p)
		}
	}
	return pairs, nil
}

// fetchGeneralMarkets pagina /markets activos hasta MaxGeneralMarkets y filtra
// por liquidez y orderbook habilitado.
func (c *Client) fetchGeneralMarkets(ctx context.Context) ([]domain.MarketPair, error) {
	limit := c.discovery.MaxGeneralMarkets
	if limit <= 0 {
		limit = gammaPageSize
	}

	var pairs []domain.MarketPair
	for offset := 0; offset < limit; offset += gammaPageSize {
		q := url.Values{}
		q.Set("active", "true")
		q.Set("closed", "false")
		q.Set("limit", fmt.Sprint(gammaPageSize))
		q.Set("offset", fmt.Sprint(offset))
		u := c.gammaBase + gammaMarketsPath + "?" + q.Encode()

		var page []gammaMarket
		if err := c.get(ctx, c.gammaLimiter, u, &page); err != nil {
			if offset == 0 {
				return nil, fmt.Errorf("GET /markets: %w", err)
			}
			slog.Debug("gamma page failed, stopping", "offset", offset, "err", err)
			break
		}

		for _, gm := range page {
			if !gm.Active || gm.Closed || !gm.EnableOrderBook {
				continue
			}
			if gammaLiquidity(gm) < c.discovery.MinLiquidity {
				continue
			}
			if p, ok := mapGammaMarket(gm, nil); ok {
				pairs = append(pairs, p)
			}
		}

		if len(page) < gammaPageSize {
			break
		}
	}
	return pairs, nil
}
