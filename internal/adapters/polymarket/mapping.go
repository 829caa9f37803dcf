package polymarket

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/polyarb/internal/domain"
)

// mapOrderBooks convierte la respuesta batch de /books a un map tokenID→OrderBook.
func mapOrderBooks(raw []orderBookResponse) map[string]domain.OrderBook {
	result := make(map[string]domain.OrderBook, len(raw))
	for _, r := range raw {
		if r.AssetID == "" {
			continue
		}
		result[r.AssetID] = mapOrderBook(r)
	}
	return result
}

func mapOrderBook(r orderBookResponse) domain.OrderBook {
	return domain.OrderBook{
		TokenID: r.AssetID,
		Bids:    mapBookEntries(r.Bids, false),
		Asks:    mapBookEntries(r.Asks, true),
	}
}

// mapBookEntries convierte entries raw a domain.BookEntry y los ordena.
// ascending=true → menor a mayor (asks), ascending=false → mayor a menor (bids).
func mapBookEntries(raw []bookEntryRaw, ascending bool) []domain.BookEntry {
	entries := make([]domain.BookEntry, 0, len(raw))
	for _, r := range raw {
		price, ok := parseDecimal(r.Price)
		if !ok || price <= 0 {
			continue
		}
		size, ok := parseDecimal(r.Size)
		if !ok || size <= 0 {
			continue
		}
		entries = append(entries, domain.BookEntry{Price: price, Size: size})
	}

	sort.Slice(entries, func(i, j int) bool {
		if ascending {
			return entries[i].Price < entries[j].Price
		}
		return entries[i].Price > entries[j].Price
	})

	return entries
}

// parseDecimal parsea precios y sizes que la API manda como string.
func parseDecimal(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	return d.InexactFloat64(), true
}

// parseOptDecimal devuelve un OptFloat vacío para strings vacíos o inválidos.
func parseOptDecimal(s string) domain.OptFloat {
	if v, ok := parseDecimal(s); ok {
		return domain.Float(v)
	}
	return domain.OptFloat{}
}

// parseMillis parsea el timestamp en milisegundos de los eventos del websocket.
func parseMillis(s string, fallback time.Time) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms <= 0 {
		return fallback
	}
	return time.UnixMilli(ms).UTC()
}

// parseTime prueba los formatos de fecha que usa Gamma.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05.000Z",
		"2006-01-02T15:04:05Z",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// parseStringArray decodifica campos como `"[\"Up\", \"Down\"]"`.
func parseStringArray(s string) []string {
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

// mapGammaMarket convierte un mercado de Gamma en un MarketPair. El token del
// outcome "Up"/"Yes" es YES; si los outcomes no lo indican se usa el orden de
// clobTokenIds. ok=false si el mercado no tiene exactamente dos tokens.
func mapGammaMarket(gm gammaMarket, ev *gammaEvent) (domain.MarketPair, bool) {
	tokens := parseStringArray(gm.ClobTokenIDs)
	if len(tokens) != 2 || tokens[0] == "" || tokens[1] == "" {
		return domain.MarketPair{}, false
	}

	yesIdx := 0
	outcomes := parseStringArray(gm.Outcomes)
	if len(outcomes) == 2 {
		switch strings.ToLower(outcomes[1]) {
		case "up", "yes":
			yesIdx = 1
		}
	}

	m := domain.Market{
		ID:         gm.ConditionID,
		Question:   gm.Question,
		Slug:       gm.Slug,
		YesTokenID: tokens[yesIdx],
		NoTokenID:  tokens[1-yesIdx],
		Liquidity:  gammaLiquidity(gm),
		EndTime:    parseTime(gm.EndDate),
	}
	if m.ID == "" {
		m.ID = gm.ID
	}
	if m.EndTime.IsZero() {
		m.EndTime = parseTime(gm.EndDateISO)
	}
	if ev != nil {
		if m.Slug == "" {
			m.Slug = ev.Slug
		}
		if m.EndTime.IsZero() {
			m.EndTime = parseTime(ev.EndDate)
		}
		if m.Question == "" {
			m.Question = ev.Title
		}
	}
	return domain.NewMarketPair(m), true
}

func gammaLiquidity(gm gammaMarket) float64 {
	if gm.LiquidityNum > 0 {
		return gm.LiquidityNum
	}
	return float64(gm.Liquidity)
}
