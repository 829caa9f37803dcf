// Package registry indexa los mercados vigilados por token y por ID.
package registry

import (
	"log/slog"

	"github.com/alejandrodnm/polyarb/internal/cache"
	"github.com/alejandrodnm/polyarb/internal/domain"
)

// Registry mapea tokens e IDs de mercado a su par, e IDs a la MarketInfo
// cross-market. SetMarkets lo reconstruye entero. No es
// seguro para uso concurrente.
type Registry struct {
	refs *cache.ReferencePriceCache

	order   []string // market ids en orden de registro
	byToken map[string]string
	pairs   map[string]domain.MarketPair
	infos   map[string]*domain.MarketInfo
}

// New crea un registry vacío. refs puede ser nil.
func New(refs *cache.ReferencePriceCache) *Registry {
	r := &Registry{refs: refs}
	r.reset(0)
	return r
}

func (r *Registry) reset(n int) {
	r.order = make([]string, 0, n)
	r.byToken = make(map[string]string, n*2)
	r.pairs = make(map[string]domain.MarketPair, n)
	r.infos = make(map[string]*domain.MarketInfo)
}

// SetMarkets reemplaza el contenido por pairs y devuelve cuántos aceptó.
// Descarta pares inválidos, IDs duplicados y pares que reusan un token ya
// reclamado antes en la lista. Las referencias del cache se restauran.
func (r *Registry) SetMarkets(pairs []domain.MarketPair) int {
	r.reset(len(pairs))

	for _, p := range pairs {
		id := p.Market.ID
		if !p.Valid() {
			slog.Debug("registry: invalid pair skipped", "market_id", id)
			continue
		}
		if _, dup := r.pairs[id]; dup {
			slog.Debug("registry: duplicated market skipped", "market_id", id)
			continue
		}
		if owner, taken := r.byToken[p.YesTokenID]; taken {
			slog.Debug("registry: token already claimed", "market_id", id, "token_id", p.YesTokenID, "owner", owner)
			continue
		}
		if owner, taken := r.byToken[p.NoTokenID]; taken {
			slog.Debug("registry: token already claimed", "market_id", id, "token_id", p.NoTokenID, "owner", owner)
			continue
		}

		r.order = append(r.order, id)
		r.pairs[id] = p
		r.byToken[p.YesTokenID] = id
		r.byToken[p.NoTokenID] = id

		info, ok := domain.ParseMarketInfo(p)
		if !ok {
			continue
		}
		if r.refs != nil {
			if price, ok := r.refs.Get(info.Key()); ok {
				info.ReferencePrice = domain.Float(price)
			}
		}
		r.infos[id] = &info
	}
	return len(r.order)
}

// LookupByToken devuelve el par dueño de tokenID.
func (r *Registry) LookupByToken(tokenID string) (domain.MarketPair, bool) {
	id, ok := r.byToken[tokenID]
	if !ok {
		return domain.MarketPair{}, false
	}
	return r.pairs[id], true
}

// LookupByMarketID devuelve el par de un mercado.
func (r *Registry) LookupByMarketID(marketID string) (domain.MarketPair, bool) {
	p, ok := r.pairs[marketID]
	return p, ok
}

// AllTokenIDs devuelve YES y NO de cada mercado, en orden de registro.
func (r *Registry) AllTokenIDs() []string {
	ids := make([]string, 0, len(r.order)*2)
	for _, id := range r.order {
		p := r.pairs[id]
		ids = append(ids, p.YesTokenID, p.NoTokenID)
	}
	return ids
}

// Pairs devuelve todos los pares en orden de registro.
func (r *Registry) Pairs() []domain.MarketPair {
	out := make([]domain.MarketPair, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.pairs[id])
	}
	return out
}

// Len devuelve el número de mercados registrados.
func (r *Registry) Len() int { return len(r.order) }

// Info devuelve la MarketInfo de un mercado. El puntero es del registry y vale
// hasta el próximo SetMarkets.
func (r *Registry) Info(marketID string) (*domain.MarketInfo, bool) {
	info, ok := r.infos[marketID]
	return info, ok
}

// Infos devuelve las MarketInfo válidas en orden de registro.
func (r *Registry) Infos() []*domain.MarketInfo {
	out := make([]*domain.MarketInfo, 0, len(r.infos))
	for _, id := range r.order {
		if info, ok := r.infos[id]; ok {
			out = append(out, info)
		}
	}
	return out
}
