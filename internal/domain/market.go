package domain

import "time"

// Market representa un mercado de predicción binario.
// Lo produce el proveedor de mercados; el core solo lo lee.
type Market struct {
	ID         string
	Question   string
	Slug       string
	YesTokenID string
	NoTokenID  string
	Liquidity  float64   // USD
	EndTime    time.Time // fecha de resolución

	// Metadata explícita opcional. Si discovery la conoce (p.ej. mercados up/down
	// descubiertos por slug), ParseMarketInfo la prefiere sobre el slug.
	Asset    string
	Interval Interval
}

// MarketPair une un mercado con sus tokens YES y NO.
type MarketPair struct {
	Market     Market
	YesTokenID string
	NoTokenID  string
}

// NewMarketPair arma el par con los tokens del propio mercado.
func NewMarketPair(m Market) MarketPair {
	return MarketPair{Market: m, YesTokenID: m.YesTokenID, NoTokenID: m.NoTokenID}
}

// Valid indica si el par tiene dos tokens distintos y no vacíos.
func (p MarketPair) Valid() bool {
	return p.Market.ID != "" && p.YesTokenID != "" && p.NoTokenID != "" && p.YesTokenID != p.NoTokenID
}

// Label devuelve el slug o, si no hay, el ID del mercado.
func (m Market) Label() string {
	if m.Slug != "" {
		return m.Slug
	}
	return m.ID
}

// TruncateQuestion devuelve la pregunta del mercado truncada a maxLen caracteres.
// Si la pregunta está vacía usa los primeros caracteres del ID como fallback.
func TruncateQuestion(question, id string, maxLen int) string {
	q := question
	if q == "" {
		if len(id) > 20 {
			q = id[:20] + "..."
		} else {
			q = id
		}
	}
	if len(q) > maxLen {
		q = q[:maxLen-3] + "..."
	}
	return q
}
