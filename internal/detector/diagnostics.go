package detector

import (
	"fmt"
	"math"

	"github.com/alejandrodnm/polyarb/internal/domain"
)

// MaxReportedIssues limita los PairIssue devueltos por el diagnóstico.
const MaxReportedIssues = 10

// FindBestNearMiss devuelve la cotización BUY_BOTH o SELL_BOTH con mayor profit
// con signo, sin umbral de profit. Los filtros de size y liquidez se mantienen.
func (d *Single) FindBestNearMiss() (domain.NearMiss, bool) {
	var (
		best  domain.NearMiss
		found bool
	)
	consider := func(m domain.Market, q domain.ArbitrageQuote, ok bool) {
		if !ok || !d.sizeAndLiquidityOK(m, q) {
			return
		}
		if !found || q.Profit > best.Gap {
			best = domain.NearMiss{Market: m, Gap: q.Profit, ArbitrageQuote: q}
			found = true
		}
	}

	for _, p := range d.reg.Pairs() {
		yes, _ := d.prices.Get(p.YesTokenID)
		no, _ := d.prices.Get(p.NoTokenID)
		q, ok := domain.QuoteBuyBoth(yes, no)
		consider(p.Market, q, ok)
		q, ok = domain.QuoteSellBoth(yes, no)
		consider(p.Market, q, ok)
	}
	return best, found
}

// FindAllOpportunities escanea todos los pares sin piso de profit (también los
// perdedores) y explica los que no se pudieron evaluar.
func (d *Cross) FindAllOpportunities() ([]domain.CrossMarketOpportunity, domain.CrossDiagnostics) {
	var diag domain.CrossDiagnostics
	opps := d.scan(math.Inf(-1), &diag)
	return opps, diag
}

func recordIssue(diag *domain.CrossDiagnostics, a, b *domain.MarketInfo, reason domain.PairIssueReason) {
	if reason == "" {
		return
	}
	long, short := a, b
	if short.Interval > long.Interval {
		long, short = short, long
	}

	var detail string
	switch reason {
	case domain.IssueMissingReference:
		diag.MissingReference++
		detail = fmt.Sprintf("long_ref=%v short_ref=%v", long.ReferencePrice.Valid, short.ReferencePrice.Valid)
	case domain.IssueMissingAsk:
		diag.MissingAsk++
		detail = fmt.Sprintf("%s vs %s", long.Interval, short.Interval)
	}
	if len(diag.Issues) >= MaxReportedIssues {
		return
	}
	diag.Issues = append(diag.Issues, domain.PairIssue{
		Asset:     long.Asset,
		LongSlug:  long.Key(),
		ShortSlug: short.Key(),
		Reason:    reason,
		Detail:    detail,
	})
}
