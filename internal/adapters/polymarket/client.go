package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultCLOBBase   = "https://clob.polymarket.com"
	defaultGammaBase  = "https://gamma-api.polymarket.com"
	defaultCryptoBase = "https://polymarket.com"

	// Rate limits al 60% de los límites reales documentados.
	// CLOB /books: 500/10s → 300/10s → 30/s
	booksRatePerSec = 30
	// Gamma /markets y /events: 300/10s → 180/10s → 18/s
	gammaRatePerSec = 18
	// crypto-price no documenta límite; vamos conservadores.
	cryptoRatePerSec = 5

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond

	defaultBookConcurrency = 8
)

// StatusError es una respuesta 4xx de la API (no se reintenta).
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("client error %d: %s", e.Code, e.Body)
}

// Client es el HTTP client de Polymarket con rate limiting y retries.
// Implementa MarketProvider, BookProvider y ReferencePriceSource.
type Client struct {
	http            *http.Client
	clobBase        string
	gammaBase       string
	cryptoBase      string
	gammaLimiter    *rate.Limiter
	booksLimiter    *rate.Limiter
	cryptoLimiter   *rate.Limiter
	bookConcurrency int
	discovery       DiscoveryConfig
	now             func() time.Time
	retryWait       time.Duration
}

// ClientOption configura el Client.
type ClientOption func(*Client)

// WithCryptoBase cambia el host del endpoint crypto-price.
func WithCryptoBase(base string) ClientOption {
	return func(c *Client) {
		if base != "" {
			c.cryptoBase = base
		}
	}
}

// WithBookConcurrency limita los POST /books en vuelo.
func WithBookConcurrency(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.bookConcurrency = n
		}
	}
}

// WithDiscovery configura qué mercados devuelve FetchMarkets.
func WithDiscovery(d DiscoveryConfig) ClientOption {
	return func(c *Client) { c.discovery = d }
}

// WithClock reemplaza time.Now para el cálculo de ventanas.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) { c.now = now }
}

// WithRetryWait cambia la espera base entre reintentos.
func WithRetryWait(d time.Duration) ClientOption {
	return func(c *Client) { c.retryWait = d }
}

// NewClient crea un Client con los base URLs dados.
// Si clobBase o gammaBase están vacíos, usa los URLs de producción.
func NewClient(clobBase, gammaBase string, opts ...ClientOption) *Client {
	if clobBase == "" {
		clobBase = defaultCLOBBase
	}
	if gammaBase == "" {
		gammaBase = defaultGammaBase
	}
	c := &Client{
		http:            &http.Client{Timeout: 10 * time.Second},
		clobBase:        clobBase,
		gammaBase:       gammaBase,
		cryptoBase:      defaultCryptoBase,
		gammaLimiter:    rate.NewLimiter(gammaRatePerSec, 10),
		booksLimiter:    rate.NewLimiter(booksRatePerSec, 5),
		cryptoLimiter:   rate.NewLimiter(cryptoRatePerSec, 5),
		bookConcurrency: defaultBookConcurrency,
		discovery:       DefaultDiscoveryConfig(),
		now:             time.Now,
		retryWait:       baseRetryWait,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get hace un GET con rate limiting y retries.
func (c *Client) get(ctx context.Context, limiter *rate.Limiter, url string, out any) error {
	return c.doWithRetry(ctx, limiter, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return c.http.Do(req)
	}, out)
}

// post hace un POST JSON con rate limiting y retries.
func (c *Client) post(ctx context.Context, limiter *rate.Limiter, url string, body, out any) error {
	return c.doWithRetry(ctx, limiter, func() (*http.Response, error) {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return c.http.Do(req)
	}, out)
}

// doWithRetry ejecuta la función con backoff exponencial.
func (c *Client) doWithRetry(ctx context.Context, limiter *rate.Limiter, fn func() (*http.Response, error), out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			slog.Warn("rate limited by API", "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return &StatusError{Code: resp.StatusCode, Body: string(body)}
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * c.retryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
