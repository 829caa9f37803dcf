package scanner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polyarb/internal/domain"
	"github.com/alejandrodnm/polyarb/internal/metrics"
)

type countingNotifier struct {
	mu    sync.Mutex
	count int
	block chan struct{}
}

func (n *countingNotifier) NotifyOpportunity(_ context.Context, _ domain.Opportunity) error {
	if n.block != nil {
		<-n.block
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.count++
	return nil
}

func (n *countingNotifier) NotifyCrossOpportunity(_ context.Context, _ domain.CrossMarketOpportunity) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.count++
	return nil
}

func opportunity(marketID string, profit float64) domain.Opportunity {
	return domain.Opportunity{
		Market:         domain.Market{ID: marketID},
		ArbitrageQuote: domain.ArbitrageQuote{Kind: domain.KindBuyBoth, Profit: profit},
	}
}

func TestDispatcher_Cooldown(t *testing.T) {
	n := &countingNotifier{}
	d := NewDispatcher(n, DispatcherConfig{Cooldown: time.Minute}, nil)
	now := time.Unix(1000, 0)
	d.now = func() time.Time { return now }
	d.Start(context.Background())

	assert.True(t, d.Opportunity(opportunity("m1", 0.01)))
	assert.False(t, d.Opportunity(opportunity("m1", 0.01)), "same key within cooldown")
	assert.True(t, d.Opportunity(opportunity("m1", 0.02)), "profit improved")
	assert.True(t, d.Opportunity(opportunity("m2", 0.01)), "different key")

	now = now.Add(61 * time.Second)
	assert.True(t, d.Opportunity(opportunity("m1", 0.005)), "cooldown elapsed")

	d.Stop()
	assert.Equal(t, 4, n.count)
	assert.False(t, d.Opportunity(opportunity("m3", 1)), "stopped dispatcher rejects events")
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	n := &countingNotifier{block: make(chan struct{})}
	m := metrics.New()
	d := NewDispatcher(n, DispatcherConfig{QueueSize: 1, Cooldown: -1}, m)
	d.Start(context.Background())

	// El primero lo toma el worker (bloqueado), el segundo llena la cola.
	require.True(t, d.Opportunity(opportunity("a", 0.01)))
	require.Eventually(t, func() bool { return len(d.queue) == 0 }, time.Second, time.Millisecond)
	require.True(t, d.Opportunity(opportunity("b", 0.01)))
	assert.False(t, d.Opportunity(opportunity("c", 0.01)))

	assert.Equal(t, 1, d.Dropped())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DroppedEvents))

	close(n.block)
	d.Stop()
	assert.Equal(t, 2, n.count)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.NotificationsSent.WithLabelValues("BUY_BOTH")))
}

func TestDispatcher_CrossKeyIsOrderIndependent(t *testing.T) {
	n := &countingNotifier{}
	d := NewDispatcher(n, DispatcherConfig{}, nil)
	d.Start(context.Background())

	a := domain.CrossMarketOpportunity{Long: domain.Market{Slug: "x"}, Short: domain.Market{Slug: "y"}, MaxProfit: 1}
	b := domain.CrossMarketOpportunity{Long: domain.Market{Slug: "y"}, Short: domain.Market{Slug: "x"}, MaxProfit: 1}
	assert.True(t, d.Cross(a))
	assert.False(t, d.Cross(b))
	d.Stop()
	assert.Equal(t, 1, n.count)
}

func TestDispatcher_StopWithoutStart(t *testing.T) {
	n := &countingNotifier{}
	d := NewDispatcher(n, DispatcherConfig{}, nil)
	d.Opportunity(opportunity("m1", 0.01))

	stopped := make(chan struct{})
	go func() {
		d.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop bloqueó sin Start")
	}
	assert.Zero(t, n.count)

	d.Start(context.Background())
	d.Stop()
	assert.False(t, d.Opportunity(opportunity("m2", 0.01)))
}
