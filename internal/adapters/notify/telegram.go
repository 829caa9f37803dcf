package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/alejandrodnm/polyarb/internal/domain"
)

// Telegram envía las oportunidades a un chat con la Bot API.
type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// TelegramOption configura el cliente de Telegram.
type TelegramOption func(*telegramOptions)

type telegramOptions struct {
	endpoint string
	client   *http.Client
}

// WithTelegramEndpoint cambia el endpoint de la API (formato "…/bot%s/%s").
func WithTelegramEndpoint(endpoint string) TelegramOption {
	return func(o *telegramOptions) { o.endpoint = endpoint }
}

// NewTelegram valida el token con getMe y devuelve el notificador.
func NewTelegram(token string, chatID int64, opts ...TelegramOption) (*Telegram, error) {
	if token == "" {
		return nil, fmt.Errorf("notify.NewTelegram: empty bot token")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("notify.NewTelegram: empty chat id")
	}

	o := telegramOptions{
		endpoint: tgbotapi.APIEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(&o)
	}

	api, err := tgbotapi.NewBotAPIWithClient(token, o.endpoint, o.client)
	if err != nil {
		return nil, fmt.Errorf("notify.NewTelegram: %w", err)
	}
	return &Telegram{api: api, chatID: chatID}, nil
}

// NotifyOpportunity envía una oportunidad de mercado único.
func (t *Telegram) NotifyOpportunity(ctx context.Context, opp domain.Opportunity) error {
	return t.send(ctx, formatOpportunity(opp))
}

// NotifyCrossOpportunity envía un par long/short. Los pares con la misma
// referencia no tienen escenario ganador y no se envían.
func (t *Telegram) NotifyCrossOpportunity(ctx context.Context, opp domain.CrossMarketOpportunity) error {
	if opp.IdenticalRefs() {
		return nil
	}
	return t.send(ctx, formatCross(opp))
}

func (t *Telegram) send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("telegram.send: %w", err)
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("telegram.send: %w", err)
	}
	return nil
}

func formatOpportunity(opp domain.Opportunity) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%s</b> arbitrage\n", opp.Kind)
	fmt.Fprintf(&sb, "%s\n", escapeHTML(domain.TruncateQuestion(opp.Market.Question, opp.Market.ID, 80)))
	fmt.Fprintf(&sb, "YES %.3f + NO %.3f = %.3f\n", opp.YesPrice, opp.NoPrice, opp.Total)
	fmt.Fprintf(&sb, "Profit: %.4f/share (%.2f%%)\n", opp.Profit, opp.ProfitPercent*100)
	fmt.Fprintf(&sb, "Size: %.0f shares, est $%.2f", opp.MaxShares, opp.EstimatedProfit())
	if opp.Market.Slug != "" {
		fmt.Fprintf(&sb, "\nhttps://polymarket.com/event/%s", opp.Market.Slug)
	}
	return sb.String()
}

func formatCross(opp domain.CrossMarketOpportunity) string {
	longToken, shortToken := opp.Legs()
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>CROSS %s</b> %s vs %s\n", strings.ToUpper(opp.Asset), opp.LongInterval, opp.ShortInterval)
	fmt.Fprintf(&sb, "Strategy: %s\n", opp.Zone.Strategy)
	fmt.Fprintf(&sb, "Zone: [%.2f, %.2f] (%.3f%%)\n", opp.Zone.Low, opp.Zone.High, opp.ZonePercent)
	fmt.Fprintf(&sb, "Entry cost: %.3f, max profit: %.3f\n", opp.EntryCost, opp.MaxProfit)
	fmt.Fprintf(&sb, "Legs: %s / %s\n", escapeHTML(opp.Long.Label()), escapeHTML(opp.Short.Label()))
	fmt.Fprintf(&sb, "Tokens: %s / %s\n", longToken, shortToken)
	fmt.Fprintf(&sb, "Resolves in %.0f min", opp.MinutesToResolution)
	return sb.String()
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeHTML(s string) string { return htmlEscaper.Replace(s) }
