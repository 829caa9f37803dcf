package polymarket

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DTOs raw de la API de Polymarket. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.

// --- CLOB API ---

// orderBookRequest es el body del POST /books batch.
type orderBookRequest struct {
	TokenID string `json:"token_id"`
}

// orderBookResponse es un item de POST /books y también el evento "book" del websocket.
type orderBookResponse struct {
	EventType string         `json:"event_type,omitempty"`
	Market    string         `json:"market"`
	AssetID   string         `json:"asset_id"`
	Timestamp string         `json:"timestamp"`
	Hash      string         `json:"hash"`
	Bids      []bookEntryRaw `json:"bids"`
	Asks      []bookEntryRaw `json:"asks"`
}

// bookEntryRaw es un nivel de precio raw de la API (strings para mayor precisión).
type bookEntryRaw struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// --- Gamma API ---

// gammaEvent es un item de GET /events. Los mercados up/down vienen como un
// evento con un único mercado.
type gammaEvent struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Slug      string        `json:"slug"`
	Active    bool          `json:"active"`
	Closed    bool          `json:"closed"`
	StartTime string        `json:"startTime"`
	EndDate   string        `json:"endDate"`
	Markets   []gammaMarket `json:"markets"`
}

// gammaMarket es un mercado de Gamma. outcomes y clobTokenIds son arrays JSON
// codificados dentro de un string.
type gammaMarket struct {
	ID              string    `json:"id"`
	ConditionID     string    `json:"conditionId"`
	Question        string    `json:"question"`
	Slug            string    `json:"slug"`
	EndDate         string    `json:"endDate"`
	EndDateISO      string    `json:"endDateIso"`
	Liquidity       flexFloat `json:"liquidity"`
	LiquidityNum    float64   `json:"liquidityNum"`
	Outcomes        string    `json:"outcomes"`
	ClobTokenIDs    string    `json:"clobTokenIds"`
	Active          bool      `json:"active"`
	Closed          bool      `json:"closed"`
	EnableOrderBook bool      `json:"enableOrderBook"`
	EventStartTime  string    `json:"eventStartTime"`
}

// flexFloat acepta números JSON, strings numéricos, "" y null.
// Gamma devuelve liquidity a veces como string y a veces vacío.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("flexFloat: %w", err)
	}
	*f = flexFloat(d.InexactFloat64())
	return nil
}

// --- crypto-price ---

// cryptoPriceResponse es la respuesta de /api/crypto/crypto-price.
// openPrice es null hasta que la vela abre.
type cryptoPriceResponse struct {
	OpenPrice  decimal.NullDecimal `json:"openPrice"`
	ClosePrice decimal.NullDecimal `json:"closePrice"`
}

// --- websocket market channel ---

// wsSubscribe es el mensaje inicial de suscripción al canal market.
type wsSubscribe struct {
	Type      string   `json:"type"`
	AssetsIDs []string `json:"assets_ids"`
}

// wsEnvelope sirve para leer event_type antes de decodificar el resto.
type wsEnvelope struct {
	EventType string `json:"event_type"`
}

// wsPriceChangeMessage es un evento "price_change" con uno o más cambios.
type wsPriceChangeMessage struct {
	EventType    string          `json:"event_type"`
	Market       string          `json:"market"`
	Timestamp    string          `json:"timestamp"`
	PriceChanges []wsPriceChange `json:"price_changes"`
}

type wsPriceChange struct {
	AssetID string `json:"asset_id"`
	Price   string `json:"price"`
	Size    string `json:"size"`
	Side    string `json:"side"`
	BestBid string `json:"best_bid"`
	BestAsk string `json:"best_ask"`
}
