package detector

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/polyarb/internal/domain"
	"github.com/alejandrodnm/polyarb/internal/ports"
)

// DefaultReferenceConcurrency limita los fetches de referencia en paralelo.
const DefaultReferenceConcurrency = 4

// ReferenceRequest identifica la vela cuyo precio de apertura hace falta.
type ReferenceRequest struct {
	MarketID   string
	Key        string // slug o, si no hay, ID del mercado
	Slug       string
	Asset      string
	Interval   domain.Interval
	Start      time.Time
	Resolution time.Time
}

// ReferenceResult es la respuesta de la fuente para un ReferenceRequest.
// OK=false sin Err significa "todavía no publicado".
type ReferenceResult struct {
	Request ReferenceRequest
	Price   float64
	OK      bool
	Err     error
}

// PendingReferences restaura desde el cache las referencias que falten y devuelve
// los mercados que aún necesitan fetch. Si la carga anterior fue correcta y no
// falta ninguna, no devuelve nada salvo con force.
//
// Un mercado consultado hace poco sin resultado espera el retry delay (force lo
// ignora). Las velas que todavía no empezaron nunca se piden.
func (d *Cross) PendingReferences(force bool) []ReferenceRequest {
	now := d.now()
	var missing []*domain.MarketInfo
	for _, info := range d.reg.Infos() {
		if info.ReferencePrice.Valid {
			continue
		}
		if d.refs != nil {
			if price, ok := d.refs.Get(info.Key()); ok {
				info.ReferencePrice = domain.Float(price)
				continue
			}
		}
		if !info.Resolution.After(now) {
			continue
		}
		missing = append(missing, info)
	}

	if len(missing) == 0 && d.loaded && !force {
		return nil
	}

	reqs := make([]ReferenceRequest, 0, len(missing))
	for _, info := range missing {
		if info.CandleStart.After(now) {
			continue
		}
		if last, ok := d.lastAttempt[info.Key()]; ok && !force && now.Sub(last) < d.cfg.ReferenceRetry {
			continue
		}
		reqs = append(reqs, ReferenceRequest{
			MarketID:   info.MarketID(),
			Key:        info.Key(),
			Slug:       info.Slug(),
			Asset:      info.Asset,
			Interval:   info.Interval,
			Start:      info.CandleStart,
			Resolution: info.Resolution,
		})
	}
	return reqs
}

// ApplyReferencePrices guarda los precios obtenidos en la MarketInfo viva y en
// el cache, y devuelve cuántos se aplicaron. Si el mercado salió del registry
// entre medias, el precio igual queda cacheado por su clave.
func (d *Cross) ApplyReferencePrices(results []ReferenceResult) int {
	now := d.now()
	applied := 0
	failed := false
	for _, r := range results {
		key := r.Request.Key
		if key == "" {
			key = r.Request.Slug
		}
		if r.Err != nil {
			failed = true
			d.lastAttempt[key] = now
			slog.Debug("reference price unavailable", "market", key, "err", r.Err)
			continue
		}
		if !r.OK {
			d.lastAttempt[key] = now
			continue
		}
		delete(d.lastAttempt, key)
		if d.refs != nil {
			d.refs.Set(key, r.Price, r.Request.Resolution)
		}
		info, ok := d.reg.Info(r.Request.MarketID)
		if !ok || info.Key() != key || info.ReferencePrice.Valid {
			continue
		}
		info.ReferencePrice = domain.Float(r.Price)
		applied++
	}
	if !failed {
		d.loaded = true
	}
	return applied
}

// LoadReferencePrices encadena PendingReferences, FetchReferences y
// ApplyReferencePrices. Para callers que no sueltan un lock durante el I/O.
func (d *Cross) LoadReferencePrices(ctx context.Context, src ports.ReferencePriceSource, force bool) int {
	reqs := d.PendingReferences(force)
	if len(reqs) == 0 {
		return 0
	}
	return d.ApplyReferencePrices(FetchReferences(ctx, src, reqs, DefaultReferenceConcurrency))
}

// FetchReferences consulta la fuente para cada request con a lo sumo limit
// llamadas en vuelo. Nunca falla: los errores quedan en cada ReferenceResult.
func FetchReferences(ctx context.Context, src ports.ReferencePriceSource, reqs []ReferenceRequest, limit int) []ReferenceResult {
	results := make([]ReferenceResult, len(reqs))
	if limit <= 0 {
		limit = DefaultReferenceConcurrency
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, req := range reqs {
		g.Go(func() error {
			price, ok, err := src.FetchReferencePrice(gctx, req.Asset, req.Interval, req.Start, req.Resolution)
			results[i] = ReferenceResult{Request: req, Price: price, OK: ok, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
