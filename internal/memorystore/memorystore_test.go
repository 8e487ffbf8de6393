package memorystore

import (
	"sync"
	"testing"
	"time"

	"pricesync/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)

func snap(symbol market.Symbol, price float64) market.PriceSnapshot {
	return market.PriceSnapshot{Symbol: symbol, Price: price, Volume: 1, Timestamp: t0}
}

// go test -v --run TestPriceStoreRejectsOlderSeq
func TestPriceStoreRejectsOlderSeq(t *testing.T) {
	s := NewPriceStore()

	require.True(t, s.Put(snap("BTC-USD", 100), 2))
	assert.False(t, s.Put(snap("BTC-USD", 90), 1), "older fetch must not overwrite")
	assert.True(t, s.Put(snap("BTC-USD", 110), 2), "equal seq is allowed")

	got, ok := s.Get("BTC-USD")
	require.True(t, ok)
	assert.Equal(t, 110.0, got.Price)

	// other symbols are independent
	assert.True(t, s.Put(snap("ETH-USD", 5), 1))
	assert.Equal(t, 2, s.Len())
}

// go test -v --run TestPriceStoreMissing
func TestPriceStoreMissing(t *testing.T) {
	s := NewPriceStore()
	_, ok := s.Get("SOL-USD")
	assert.False(t, ok)
	assert.Zero(t, s.Len())
}

// go test -v --run TestHistoryStoreReplace
func TestHistoryStoreReplace(t *testing.T) {
	s := NewHistoryStore()

	_, ok := s.GetBySymbol("BTC-USD")
	assert.False(t, ok)

	first := market.HistorySeries{snap("BTC-USD", 1), snap("BTC-USD", 2)}
	require.True(t, s.Replace("BTC-USD", first, 1))

	second := market.HistorySeries{snap("BTC-USD", 3)}
	require.True(t, s.Replace("BTC-USD", second, 3))
	assert.False(t, s.Replace("BTC-USD", first, 2))

	got, ok := s.GetBySymbol("BTC-USD")
	require.True(t, ok)
	assert.Equal(t, second, got)
	assert.Equal(t, uint64(3), s.Version("BTC-USD"))
	assert.Equal(t, 1, s.CountAll())

	// the stored series is a private copy
	got[0].Price = -1
	again, _ := s.GetBySymbol("BTC-USD")
	assert.Equal(t, 3.0, again[0].Price)
}

// go test -v --run TestHistoryStoreEmptySeries
func TestHistoryStoreEmptySeries(t *testing.T) {
	s := NewHistoryStore()
	require.True(t, s.Replace("ETH-USD", nil, 1))

	got, ok := s.GetBySymbol("ETH-USD")
	assert.True(t, ok)
	assert.Empty(t, got)
}

// go test -v --run TestHistoryStoreConcurrent
func TestHistoryStoreConcurrent(t *testing.T) {
	s := NewHistoryStore()
	symbols := []market.Symbol{"BTC-USD", "ETH-USD", "SOL-USD"}

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		for _, sym := range symbols {
			wg.Add(1)
			go func(sym market.Symbol, seq uint64) {
				defer wg.Done()
				s.Replace(sym, market.HistorySeries{snap(sym, float64(seq))}, seq)
				s.GetBySymbol(sym)
			}(sym, uint64(i))
		}
	}
	wg.Wait()

	for _, sym := range symbols {
		assert.Equal(t, uint64(50), s.Version(sym))
	}
}

// go test -v --run TestSymbolStore
func TestSymbolStore(t *testing.T) {
	s := NewSymbolStore("BTC-USD", "ETH-USD", "BTC-USD", "")
	s.Add("SOL-USD")

	assert.Equal(t, []market.Symbol{"BTC-USD", "ETH-USD", "SOL-USD"}, s.GetAll())
	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Contains("ETH-USD"))
	assert.False(t, s.Contains("DOGE-USD"))
}
