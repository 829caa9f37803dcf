package polymarket_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polyarb/internal/adapters/polymarket"
)

func newTestClient(clobSrv, gammaSrv *httptest.Server, opts ...polymarket.ClientOption) *polymarket.Client {
	clobURL := ""
	gammaURL := ""
	if clobSrv != nil {
		clobURL = clobSrv.URL
	}
	if gammaSrv != nil {
		gammaURL = gammaSrv.URL
	}
	opts = append([]polymarket.ClientOption{polymarket.WithRetryWait(time.Millisecond)}, opts...)
	return polymarket.NewClient(clobURL, gammaURL, opts...)
}

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("../../../testdata/fixtures/" + name)
	require.NoError(t, err)
	return data
}

func TestFetchOrderBooks_Batch(t *testing.T) {
	data := readFixture(t, "clob_orderbooks_batch.json")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/books", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}))
	defer srv.Close()

	client := newTestClient(srv, nil)
	books, err := client.FetchOrderBooks(context.Background(), []string{"token_yes_001", "token_no_001"})

	require.NoError(t, err)
	require.Len(t, books, 2)

	yes := books["token_yes_001"]
	require.Len(t, yes.Asks, 2)
	assert.InDelta(t, 0.49, yes.Asks[0].Price, 1e-9, "asks ordenados menor a mayor")
	assert.InDelta(t, 150.0, yes.Asks[0].Size, 1e-9)
	assert.InDelta(t, 0.47, yes.Bids[0].Price, 1e-9, "bids ordenados mayor a menor")
	assert.InDelta(t, 80.5, yes.Bids[0].Size, 1e-9)

	no := books["token_no_001"]
	require.Len(t, no.Asks, 1, "niveles con precio 0 o size inválido se descartan")
	assert.InDelta(t, 0.50, no.Asks[0].Price, 1e-9)
}

func TestFetchOrderBooks_Empty(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	books, err := newTestClient(srv, nil).FetchOrderBooks(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, books)
	assert.Zero(t, calls.Load())
}

// echoBooks responde un book con un ask de 0.5 por cada token pedido, salvo
// que el batch contenga failToken.
func echoBooks(t *testing.T, failToken string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req []struct {
			TokenID string `json:"token_id"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.LessOrEqual(t, len(req), 20)

		resp := make([]map[string]any, 0, len(req))
		for _, item := range req {
			if item.TokenID == failToken {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":"bad token"}`))
				return
			}
			resp = append(resp, map[string]any{
				"asset_id": item.TokenID,
				"bids":     []map[string]string{},
				"asks":     []map[string]string{{"price": "0.5", "size": "10"}},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func tokenIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("tok_%d", i)
	}
	return ids
}

func TestFetchOrderBooks_SplitsBatches(t *testing.T) {
	srv := httptest.NewServer(echoBooks(t, ""))
	defer srv.Close()

	ids := tokenIDs(45)
	books, err := newTestClient(srv, nil, polymarket.WithBookConcurrency(2)).
		FetchOrderBooks(context.Background(), ids)

	require.NoError(t, err)
	assert.Len(t, books, 45)
}

func TestFetchOrderBooks_FailedBatchSkipped(t *testing.T) {
	srv := httptest.NewServer(echoBooks(t, "tok_25"))
	defer srv.Close()

	books, err := newTestClient(srv, nil).FetchOrderBooks(context.Background(), tokenIDs(45))

	require.NoError(t, err)
	assert.Len(t, books, 25, "el batch 20-39 falla y sus tokens quedan sin precio")
	_, ok := books["tok_25"]
	assert.False(t, ok)
	_, ok = books["tok_44"]
	assert.True(t, ok)
}

func TestFetchOrderBooks_AllBatchesFail(t *testing.T) {
	srv := httptest.NewServer(echoBooks(t, "tok_0"))
	defer srv.Close()

	_, err := newTestClient(srv, nil).FetchOrderBooks(context.Background(), tokenIDs(5))
	require.Error(t, err)

	var se *polymarket.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)
}

func TestFetchOrderBooks_ServerErrorRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		echoBooks(t, "")(w, r)
	}))
	defer srv.Close()

	books, err := newTestClient(srv, nil).FetchOrderBooks(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, books, 2)
	assert.Equal(t, int32(3), calls.Load())

	keys := make([]string, 0, len(books))
	for k := range books {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	assert.Equal(t, []string{"a", "b"}, keys)
}
