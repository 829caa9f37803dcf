package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/polyarb/internal/domain"
	"github.com/alejandrodnm/polyarb/internal/scanner"
)

const (
	maxReportRows = 10
	nameWidth     = 40
)

// Console implementa ports.Notifier y scanner.ReportPrinter sobre un writer.
type Console struct {
	mu    sync.Mutex
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
// Con table=true cada ciclo imprime además la tabla del Report.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// NotifyOpportunity imprime una línea por oportunidad de mercado único.
func (c *Console) NotifyOpportunity(_ context.Context, opp domain.Opportunity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "[%s] %s %s | yes %.3f + no %.3f = %.3f | profit %.4f (%.2f%%) | shares %.0f | est $%.2f\n",
		opp.DetectedAt.Format("15:04:05"),
		opp.Kind,
		domain.TruncateQuestion(opp.Market.Question, opp.Market.ID, nameWidth),
		opp.YesPrice, opp.NoPrice, opp.Total,
		opp.Profit, opp.ProfitPercent*100,
		opp.MaxShares, opp.EstimatedProfit(),
	)
	return nil
}

// NotifyCrossOpportunity imprime una línea por par long/short.
func (c *Console) NotifyCrossOpportunity(_ context.Context, opp domain.CrossMarketOpportunity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tag := "CROSS"
	if opp.IdenticalRefs() {
		tag = "CROSS(same-ref)"
	}
	fmt.Fprintf(c.out, "[%s] %s %s %s/%s %s | zone [%.2f, %.2f] %.3f%% | cost %.3f | max profit %.3f | %.0f min\n",
		opp.DetectedAt.Format("15:04:05"),
		tag,
		strings.ToUpper(opp.Asset),
		opp.LongInterval, opp.ShortInterval,
		opp.Zone.Strategy,
		opp.Zone.Low, opp.Zone.High, opp.ZonePercent,
		opp.EntryCost, opp.MaxProfit,
		opp.MinutesToResolution,
	)
	return nil
}

// PrintReport imprime el resumen del ciclo. Sin table solo imprime la línea
// de cabecera.
func (c *Console) PrintReport(r scanner.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "\n[%s] %d mkts | %d prices | arb:%d cross:%d | %s\n",
		r.At.Format("15:04:05"),
		r.Markets, r.TrackedPrices,
		len(r.Opportunities), len(r.CrossOpportunities),
		r.Duration.Round(time.Millisecond),
	)
	if !c.table {
		return
	}

	if len(r.Opportunities) > 0 {
		c.printOpportunities(r.Opportunities)
	} else if r.HasNearMiss {
		c.printNearMiss(r.NearMiss)
	}

	if len(r.AllCross) > 0 {
		c.printCross(r.AllCross)
	}
	if d := r.CrossDiagnostics; d.PairsConsidered > 0 {
		c.printDiagnostics(d)
	}
}

func (c *Console) printOpportunities(opps []domain.Opportunity) {
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Kind", "Market", "Yes", "No", "Total", "Profit", "Shares", "Est $")

	for i, opp := range opps {
		if i >= maxReportRows {
			break
		}
		table.Append(
			fmt.Sprintf("%d", i+1),
			opp.Kind.String(),
			domain.TruncateQuestion(opp.Market.Question, opp.Market.ID, nameWidth),
			fmt.Sprintf("%.3f", opp.YesPrice),
			fmt.Sprintf("%.3f", opp.NoPrice),
			fmt.Sprintf("%.3f", opp.Total),
			fmt.Sprintf("%.2f%%", opp.ProfitPercent*100),
			fmt.Sprintf("%.0f", opp.MaxShares),
			fmt.Sprintf("$%.2f", opp.EstimatedProfit()),
		)
	}
	table.Render()
}

func (c *Console) printNearMiss(nm domain.NearMiss) {
	fmt.Fprintf(c.out, "  near miss: %s %s total %.3f gap %+.4f\n",
		nm.Kind,
		domain.TruncateQuestion(nm.Market.Question, nm.Market.ID, nameWidth),
		nm.Total, nm.Gap,
	)
}

func (c *Console) printCross(opps []domain.CrossMarketOpportunity) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Asset", "Long", "Short", "Strategy", "Zone", "Cost", "Max profit", "Min")

	for i, opp := range opps {
		if i >= maxReportRows {
			break
		}
		table.Append(
			strings.ToUpper(opp.Asset),
			opp.Long.Label(),
			opp.Short.Label(),
			opp.Zone.Strategy.String(),
			fmt.Sprintf("[%.2f, %.2f]", opp.Zone.Low, opp.Zone.High),
			fmt.Sprintf("%.3f", opp.EntryCost),
			fmt.Sprintf("%.3f", opp.MaxProfit),
			fmt.Sprintf("%.0f", opp.MinutesToResolution),
		)
	}
	table.Render()
}

func (c *Console) printDiagnostics(d domain.CrossDiagnostics) {
	fmt.Fprintf(c.out, "  cross: %d markets, %d pairs, missing ref %d, missing ask %d\n",
		d.Markets, d.PairsConsidered, d.MissingReference, d.MissingAsk)
	for _, issue := range d.Issues {
		fmt.Fprintf(c.out, "    %s %s / %s: %s %s\n",
			issue.Asset, issue.LongSlug, issue.ShortSlug, issue.Reason, issue.Detail)
	}
}
