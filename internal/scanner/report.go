package scanner

import (
	"log/slog"
	"time"

	"github.com/alejandrodnm/polyarb/internal/domain"
)

// Report resume un ciclo de escaneo completo.
type Report struct {
	At       time.Time
	Duration time.Duration

	Markets       int
	TrackedPrices int
	PrunedPrices  int

	Opportunities      []domain.Opportunity
	CrossOpportunities []domain.CrossMarketOpportunity

	NearMiss    domain.NearMiss
	HasNearMiss bool

	// AllCross lista todos los pares evaluados, incluso los perdedores.
	AllCross         []domain.CrossMarketOpportunity
	CrossDiagnostics domain.CrossDiagnostics
}

// Log escribe el resumen del ciclo con slog.
func (r Report) Log(log *slog.Logger) {
	attrs := []any{
		"markets", r.Markets,
		"prices", r.TrackedPrices,
		"opportunities", len(r.Opportunities),
		"cross", len(r.CrossOpportunities),
		"duration", r.Duration.Round(time.Millisecond),
	}
	if r.PrunedPrices > 0 {
		attrs = append(attrs, "pruned", r.PrunedPrices)
	}
	if r.HasNearMiss {
		attrs = append(attrs,
			"near_miss", r.NearMiss.Market.Label(),
			"near_miss_kind", r.NearMiss.Kind.String(),
			"near_miss_gap", r.NearMiss.Gap,
		)
	}
	if d := r.CrossDiagnostics; d.PairsConsidered > 0 {
		attrs = append(attrs,
			"cross_markets", d.Markets,
			"pairs", d.PairsConsidered,
			"missing_ref", d.MissingReference,
			"missing_ask", d.MissingAsk,
		)
	}
	log.Info("scan cycle complete", attrs...)
}

// ReportPrinter muestra el Report de cada ciclo (p.ej. tabla en consola).
type ReportPrinter interface {
	PrintReport(r Report)
}
