package syncengine

import (
	"testing"
	"time"

	"pricesync/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)

func price(symbol market.Symbol, p float64, at time.Time) market.PriceSnapshot {
	return market.PriceSnapshot{Symbol: symbol, Price: p, Volume: 1, Timestamp: at}
}

// go test -v --run TestStateAntiStaleOverwrite
func TestStateAntiStaleOverwrite(t *testing.T) {
	s := newState("BTC-USD", market.All, t0)

	a := s.issue(kindLatest, "BTC-USD", t0)                  // issued first
	b := s.issue(kindLatest, "BTC-USD", t0.Add(time.Second)) // issued later, resolves first

	require.True(t, s.applyLatest(b, price("BTC-USD", 200, t0.Add(time.Second))))
	assert.False(t, s.applyLatest(a, price("BTC-USD", 100, t0)))

	got, ok := s.latest.Get("BTC-USD")
	require.True(t, ok)
	assert.Equal(t, 200.0, got.Price)
	assert.Equal(t, t0.Add(time.Second), s.now)
}

// go test -v --run TestStateInOrderResolution
func TestStateInOrderResolution(t *testing.T) {
	s := newState("BTC-USD", market.All, t0)

	a := s.issue(kindLatest, "BTC-USD", t0.Add(time.Second))
	b := s.issue(kindLatest, "BTC-USD", t0.Add(2*time.Second))

	assert.True(t, s.applyLatest(a, price("BTC-USD", 100, t0)))
	assert.True(t, s.applyLatest(b, price("BTC-USD", 200, t0)))

	got, _ := s.latest.Get("BTC-USD")
	assert.Equal(t, 200.0, got.Price)
	assert.Equal(t, t0.Add(2*time.Second), s.now)
}

// go test -v --run TestStateSequencesAreIndependent
func TestStateSequencesAreIndependent(t *testing.T) {
	s := newState("BTC-USD", market.All, t0)

	l1 := s.issue(kindLatest, "BTC-USD", t0)
	h1 := s.issue(kindHistory, "BTC-USD", t0)
	e1 := s.issue(kindLatest, "ETH-USD", t0)
	l2 := s.issue(kindLatest, "BTC-USD", t0)

	assert.Equal(t, uint64(1), l1.seq)
	assert.Equal(t, uint64(1), h1.seq)
	assert.Equal(t, uint64(1), e1.seq)
	assert.Equal(t, uint64(2), l2.seq)
}

// go test -v --run TestStateHistoryAntiStale
func TestStateHistoryAntiStale(t *testing.T) {
	s := newState("BTC-USD", market.All, t0)

	a := s.issue(kindHistory, "BTC-USD", t0)
	b := s.issue(kindHistory, "BTC-USD", t0)

	fresh := market.HistorySeries{price("BTC-USD", 2, t0)}
	stale := market.HistorySeries{price("BTC-USD", 1, t0), price("BTC-USD", 1, t0)}

	require.True(t, s.applyHistory(b, fresh))
	assert.False(t, s.applyHistory(a, stale))

	got, ok := s.history.GetBySymbol("BTC-USD")
	require.True(t, ok)
	assert.Equal(t, fresh, got)
}

// go test -v --run TestStateDiscardsDeselectedSymbol
func TestStateDiscardsDeselectedSymbol(t *testing.T) {
	s := newState("BTC-USD", market.All, t0)

	lt := s.issue(kindLatest, "BTC-USD", t0.Add(time.Minute))
	ht := s.issue(kindHistory, "BTC-USD", t0)
	require.True(t, s.setSymbol("ETH-USD"))

	assert.False(t, s.applyLatest(lt, price("BTC-USD", 1, t0)))
	assert.False(t, s.applyHistory(ht, market.HistorySeries{price("BTC-USD", 1, t0)}))

	_, ok := s.latest.Get("BTC-USD")
	assert.False(t, ok)
	_, ok = s.history.GetBySymbol("BTC-USD")
	assert.False(t, ok)
	assert.Equal(t, t0, s.now, "discarded fetch must not move now")
}

// go test -v --run TestStateNowNeverMovesBack
func TestStateNowNeverMovesBack(t *testing.T) {
	s := newState("BTC-USD", market.All, t0.Add(time.Hour))

	tk := s.issue(kindLatest, "BTC-USD", t0)
	require.True(t, s.applyLatest(tk, price("BTC-USD", 1, t0)))
	assert.Equal(t, t0.Add(time.Hour), s.now)
}

// go test -v --run TestStateSelection
func TestStateSelection(t *testing.T) {
	s := newState("BTC-USD", market.All, t0)

	assert.False(t, s.setSymbol("BTC-USD"))
	assert.True(t, s.setSymbol("SOL-USD"))
	assert.False(t, s.setInterval(market.All))
	assert.True(t, s.setInterval(market.Interval15Min))
	assert.Equal(t, market.Interval15Min, s.interval)
}

// go test -v --run TestBuildView
func TestBuildView(t *testing.T) {
	s := newState("BTC-USD", market.Interval5Min, t0.Add(10*time.Minute))
	var memo viewMemo

	v := buildView(s, &memo)
	assert.Equal(t, market.Symbol("BTC-USD"), v.Symbol)
	assert.Nil(t, v.Latest)
	assert.NotNil(t, v.Series)
	assert.Empty(t, v.Series)

	ht := s.issue(kindHistory, "BTC-USD", t0)
	require.True(t, s.applyHistory(ht, market.HistorySeries{
		price("BTC-USD", 1, t0),
		price("BTC-USD", 2, t0.Add(5*time.Minute)),
		price("BTC-USD", 3, t0.Add(9*time.Minute)),
	}))
	lt := s.issue(kindLatest, "BTC-USD", t0.Add(10*time.Minute))
	require.True(t, s.applyLatest(lt, price("BTC-USD", 3, t0.Add(9*time.Minute))))

	v = buildView(s, &memo)
	require.NotNil(t, v.Latest)
	assert.Equal(t, 3.0, v.Latest.Price)
	require.Len(t, v.Series, 2)
	assert.Equal(t, 2.0, v.Series[0].Price)

	// unchanged inputs hit the memo
	again := buildView(s, &memo)
	assert.Same(t, &v.Series[0], &again.Series[0])

	s.setInterval(market.All)
	v = buildView(s, &memo)
	assert.Len(t, v.Series, 3)
}
