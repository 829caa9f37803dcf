package domain

// NearMiss es la evaluación de mercado único más cercana a ser rentable.
// Gap es el beneficio por share con signo (positivo = ya rentable).
type NearMiss struct {
	Market Market
	Gap    float64
	ArbitrageQuote
}

// PairIssueReason explica por qué un par candidato no produce oportunidad.
type PairIssueReason string

const (
	IssueMissingReference PairIssueReason = "missing_reference_price"
	IssueMissingAsk       PairIssueReason = "missing_orderbook_ask"
)

// PairIssue describe un par long/short bloqueado por falta de datos.
type PairIssue struct {
	Asset     string
	LongSlug  string
	ShortSlug string
	Reason    PairIssueReason
	Detail    string
}

// CrossDiagnostics resume un escaneo cross-market completo.
type CrossDiagnostics struct {
	Markets          int // mercados con MarketInfo válido
	PairsConsidered  int
	MissingReference int
	MissingAsk       int
	Issues           []PairIssue // limitado para reporting
}
