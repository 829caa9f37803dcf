package polymarket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alejandrodnm/polyarb/internal/domain"
)

const cryptoPricePath = "/api/crypto/crypto-price"

var cryptoVariants = map[domain.Interval]string{
	domain.Interval15m: "fifteen",
	domain.Interval30m: "thirty",
	domain.Interval1h:  "hourly",
	domain.Interval4h:  "fourhour",
	domain.Interval1d:  "daily",
}

// FetchReferencePrice devuelve el precio de apertura de la vela [start, resolution).
// ok=false sin error cuando la vela todavía no tiene precio (openPrice null o 404).
func (c *Client) FetchReferencePrice(ctx context.Context, asset string, interval domain.Interval, start, resolution time.Time) (float64, bool, error) {
	variant, known := cryptoVariants[interval]
	if !known {
		return 0, false, fmt.Errorf("crypto.FetchReferencePrice: unsupported interval %q", interval)
	}

	q := url.Values{}
	q.Set("symbol", cryptoSymbol(asset))
	q.Set("eventStartTime", start.UTC().Format(time.RFC3339))
	q.Set("variant", variant)
	q.Set("endDate", resolution.UTC().Format(time.RFC3339))
	u := c.cryptoBase + cryptoPricePath + "?" + q.Encode()

	var resp cryptoPriceResponse
	if err := c.get(ctx, c.cryptoLimiter, u, &resp); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("crypto.FetchReferencePrice: %w", err)
	}

	if !resp.OpenPrice.Valid {
		return 0, false, nil
	}
	price := resp.OpenPrice.Decimal.InexactFloat64()
	if price <= 0 {
		return 0, false, nil
	}
	return price, true, nil
}

// cryptoSymbol convierte el asset corto al símbolo que espera crypto-price.
func cryptoSymbol(asset string) string {
	return strings.ToUpper(domain.NormalizeAsset(asset))
}
