package domain

import "time"

// CrossStrategy indica qué dos patas se compran en un par long/short.
type CrossStrategy int

const (
	StrategyNone CrossStrategy = iota
	StrategyLongDownShortUp
	StrategyLongUpShortDown
)

func (s CrossStrategy) String() string {
	switch s {
	case StrategyLongDownShortUp:
		return "LONG_DOWN+SHORT_UP"
	case StrategyLongUpShortDown:
		return "LONG_UP+SHORT_DOWN"
	default:
		return "NONE"
	}
}

// Zone es el rango de precio en el que pagan las dos patas compradas.
type Zone struct {
	Low      float64
	High     float64
	Strategy CrossStrategy
}

// SelectZone elige zona y estrategia para un par long/short.
//
// longRef > shortRef: un cierre en [shortRef, longRef) resuelve el long DOWN y el
// short UP, así que se compra long-DOWN + short-UP. Si no, el espejo: long-UP +
// short-DOWN sobre [longRef, shortRef]. Referencias iguales caen en la segunda
// rama con zona de ancho cero.
func SelectZone(longRef, shortRef float64) Zone {
	if longRef > shortRef {
		return Zone{Low: shortRef, High: longRef, Strategy: StrategyLongDownShortUp}
	}
	return Zone{Low: longRef, High: shortRef, Strategy: StrategyLongUpShortDown}
}

// Width devuelve High - Low.
func (z Zone) Width() float64 { return z.High - z.Low }

// Percent devuelve el ancho de la zona como % del punto medio.
func (z Zone) Percent() float64 {
	mid := (z.Low + z.High) / 2
	if mid == 0 {
		return 0
	}
	return z.Width() / mid * 100
}

// CrossMarketOpportunity es un snapshot inmutable de un par long/short evaluado.
type CrossMarketOpportunity struct {
	ID    string
	Asset string

	Long          Market
	Short         Market
	LongInterval  Interval
	ShortInterval Interval
	Resolution    time.Time

	LongUpTokenID    string
	LongDownTokenID  string
	ShortUpTokenID   string
	ShortDownTokenID string

	LongRef  float64
	ShortRef float64
	Zone     Zone

	LongUpAsk    OptFloat
	LongDownAsk  OptFloat
	ShortUpAsk   OptFloat
	ShortDownAsk OptFloat

	EntryCost           float64
	MaxProfit           float64 // 2 - EntryCost, o -EntryCost con refs idénticas
	ZoneWidth           float64
	ZonePercent         float64
	MaxShares           float64
	MinutesToResolution float64
	DetectedAt          time.Time
}

// IdenticalRefs indica si ambos mercados comparten referencia. Esos pares no
// tienen escenario ganador; se reportan solo como información.
func (o CrossMarketOpportunity) IdenticalRefs() bool {
	return o.LongRef == o.ShortRef
}

// Legs devuelve los token ids de las dos patas a comprar (long, short).
func (o CrossMarketOpportunity) Legs() (longToken, shortToken string) {
	if o.Zone.Strategy == StrategyLongDownShortUp {
		return o.LongDownTokenID, o.ShortUpTokenID
	}
	return o.LongUpTokenID, o.ShortDownTokenID
}

// Key identifica el par independientemente del orden.
func (o CrossMarketOpportunity) Key() string {
	return PairKey(o.Long.Label(), o.Short.Label())
}

// PairKey devuelve una clave estable para un par no ordenado de claves de mercado.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}
