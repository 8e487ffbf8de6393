package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pricesync/config"
	"pricesync/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func feedServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /prices/{symbol}", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"symbol":    r.PathValue("symbol"),
			"price":     1000.0,
			"volume":    10.0,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
	mux.HandleFunc("GET /prices/{symbol}/history", func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"history": []map[string]any{
				{"price": 990.0, "volume": 9.0, "timestamp": now.Add(-2 * time.Hour).Format(time.RFC3339Nano)},
				{"price": 995.0, "volume": 9.5, "timestamp": now.Add(-time.Minute).Format(time.RFC3339Nano)},
			},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Env:  "dev",
		Feed: config.FeedConfig{BaseURL: baseURL, Timeout: 2 * time.Second},
		Sync: config.SyncConfig{
			TickPeriod:      50 * time.Millisecond,
			HistoryLimit:    200,
			Symbols:         []string{"BTC-USD", "ETH-USD"},
			Intervals:       []string{"all", "5m", "15m", "60m"},
			InitialSymbol:   "BTC-USD",
			InitialInterval: "60m",
		},
	}
}

// go test -v --run TestTrackerRun
func TestTrackerRun(t *testing.T) {
	srv := feedServer(t)
	tr, err := New(testConfig(srv.URL), zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()

	require.Eventually(t, func() bool {
		v := tr.Engine().View()
		return v.Latest != nil && len(v.Series) == 1
	}, 3*time.Second, 10*time.Millisecond)

	v := tr.Engine().View()
	assert.Equal(t, market.Symbol("BTC-USD"), v.Symbol)
	assert.Equal(t, market.Interval60Min, v.Interval)
	assert.Equal(t, 995.0, v.Series[0].Price)

	require.NoError(t, tr.Engine().SetSymbol(ctx, "ETH-USD"))
	require.Eventually(t, func() bool {
		v := tr.Engine().View()
		return v.Symbol == "ETH-USD" && v.Latest != nil && v.Latest.Symbol == "ETH-USD"
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("tracker did not stop")
	}
}

// go test -v --run TestNewRejectsBadIntervals
func TestNewRejectsBadIntervals(t *testing.T) {
	cfg := testConfig("http://localhost:0")
	cfg.Sync.Intervals = []string{"all", "hourly"}
	_, err := New(cfg, zap.NewNop())
	assert.Error(t, err)

	cfg = testConfig("http://localhost:0")
	cfg.Sync.InitialInterval = "30m"
	_, err = New(cfg, zap.NewNop())
	assert.Error(t, err)
}

type pruneCall struct {
	before time.Time
}

// fakePruner records cutoffs and answers with a fixed result.
type fakePruner struct {
	calls   []pruneCall
	deleted int64
	err     error
}

func (p *fakePruner) DeleteOldSnapshots(ctx context.Context, before time.Time) (int64, error) {
	p.calls = append(p.calls, pruneCall{before: before})
	return p.deleted, p.err
}

// go test -v --run TestPruneSnapshots
func TestPruneSnapshots(t *testing.T) {
	now := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	cfg := testConfig("http://localhost:0")
	cfg.Postgres.Retention = 6 * time.Hour

	core, logs := observer.New(zap.InfoLevel)
	pruner := &fakePruner{deleted: 3}
	tr := &Tracker{cfg: cfg, logger: zap.New(core), pruner: pruner}

	tr.pruneSnapshots(context.Background(), now)
	require.Len(t, pruner.calls, 1)
	assert.Equal(t, now.Add(-6*time.Hour), pruner.calls[0].before)
	assert.Equal(t, 1, logs.FilterMessage("pruned old snapshots").Len())

	pruner.err = errors.New("connection reset")
	tr.pruneSnapshots(context.Background(), now)
	assert.Equal(t, 1, logs.FilterMessage("failed to prune snapshots").Len())

	// no recorder, nothing to prune
	tr.pruner = nil
	tr.pruneSnapshots(context.Background(), now)
	assert.Len(t, pruner.calls, 2)
}

// go test -v --run TestLogStatus
func TestLogStatus(t *testing.T) {
	srv := feedServer(t)
	core, logs := observer.New(zap.InfoLevel)
	tr, err := New(testConfig(srv.URL), zap.New(core))
	require.NoError(t, err)

	tr.logStatus()
	entries := logs.FilterMessage("tracker status").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "BTC-USD", fields["symbol"])
	assert.Equal(t, int64(0), fields["cached_prices"])
	assert.Equal(t, int64(0), fields["history_entries"])
}
