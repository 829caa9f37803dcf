package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/polyarb/internal/domain"
)

const (
	booksPath = "/books"
	batchSize = 20 // máx token_ids por request a /books
)

// FetchOrderBooks obtiene los orderbooks para los token_ids dados usando el
// endpoint batch. Los batches corren en paralelo, como mucho bookConcurrency a
// la vez, y el rate limiter marca el ritmo. Un batch fallido se loguea y sus
// tokens quedan sin precio; solo si fallan todos se devuelve error.
func (c *Client) FetchOrderBooks(ctx context.Context, tokenIDs []string) (map[string]domain.OrderBook, error) {
	if len(tokenIDs) == 0 {
		return map[string]domain.OrderBook{}, nil
	}

	batches := splitBatches(tokenIDs, batchSize)
	result := make(map[string]domain.OrderBook, len(tokenIDs))
	var (
		mu       sync.Mutex
		failed   int
		firstErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.bookConcurrency)
	for i, batch := range batches {
		g.Go(func() error {
			books, err := c.fetchBooksBatch(gctx, batch)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				if firstErr == nil {
					firstErr = fmt.Errorf("batch %d: %w", i, err)
				}
				slog.Debug("book batch failed, skipping", "batch", i, "tokens", len(batch), "err", err)
				return nil
			}
			for k, v := range books {
				result[k] = v
			}
			return nil
		})
	}
	_ = g.Wait()

	if failed == len(batches) {
		return nil, fmt.Errorf("clob.FetchOrderBooks: %w", firstErr)
	}
	if failed > 0 {
		slog.Warn("some book batches failed", "failed", failed, "batches", len(batches))
	}

	slog.Debug("order books fetched", "tokens", len(tokenIDs), "books", len(result))
	return result, nil
}

// splitBatches divide tokenIDs en slices de tamaño máximo size.
func splitBatches(tokenIDs []string, size int) [][]string {
	if size <= 0 {
		size = batchSize
	}
	batches := make([][]string, 0, (len(tokenIDs)+size-1)/size)
	for i := 0; i < len(tokenIDs); i += size {
		end := min(i+size, len(tokenIDs))
		batches = append(batches, tokenIDs[i:end])
	}
	return batches
}

// fetchBooksBatch hace un POST /books para un batch de token_ids.
func (c *Client) fetchBooksBatch(ctx context.Context, tokenIDs []string) (map[string]domain.OrderBook, error) {
	body := make([]orderBookRequest, len(tokenIDs))
	for i, id := range tokenIDs {
		body[i] = orderBookRequest{TokenID: id}
	}

	var resp []orderBookResponse
	url := c.clobBase + booksPath
	if err := c.post(ctx, c.booksLimiter, url, body, &resp); err != nil {
		return nil, fmt.Errorf("POST /books: %w", err)
	}

	return mapOrderBooks(resp), nil
}
