package memorystore

import (
	"sync"

	"pricesync/internal/market"
)

// MemoryHistoryStore holds one history series per symbol. A write replaces
// the whole series; nothing is ever appended in place.
type MemoryHistoryStore struct {
	globalMu sync.RWMutex
	data     map[market.Symbol]*symbolHistoryStore
}

type symbolHistoryStore struct {
	mu     sync.Mutex
	series market.HistorySeries
	seq    uint64
}

func NewHistoryStore() *MemoryHistoryStore {
	return &MemoryHistoryStore{
		data: make(map[market.Symbol]*symbolHistoryStore),
	}
}

func (s *MemoryHistoryStore) symbolStore(symbol market.Symbol) *symbolHistoryStore {
	// Fast path: lock per-symbol store only
	s.globalMu.RLock()
	store, ok := s.data[symbol]
	s.globalMu.RUnlock()
	if ok {
		return store
	}

	s.globalMu.Lock()
	defer s.globalMu.Unlock()
	if store, ok = s.data[symbol]; !ok {
		store = &symbolHistoryStore{}
		s.data[symbol] = store
	}
	return store
}

// Replace swaps in series for symbol if seq is not older than the sequence
// of the last write. The stored series is a private copy.
func (s *MemoryHistoryStore) Replace(symbol market.Symbol, series market.HistorySeries, seq uint64) bool {
	store := s.symbolStore(symbol)

	store.mu.Lock()
	defer store.mu.Unlock()

	if store.seq != 0 && seq < store.seq {
		return false
	}
	store.series = series.Clone()
	if store.series == nil {
		store.series = market.HistorySeries{}
	}
	store.seq = seq
	return true
}

// GetBySymbol returns a copy of the series and whether one was ever written.
func (s *MemoryHistoryStore) GetBySymbol(symbol market.Symbol) (market.HistorySeries, bool) {
	s.globalMu.RLock()
	store, ok := s.data[symbol]
	s.globalMu.RUnlock()
	if !ok {
		return nil, false
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	return store.series.Clone(), store.series != nil
}

// Version returns the sequence of the last write for symbol, 0 if none.
// It changes exactly when the stored series is replaced.
func (s *MemoryHistoryStore) Version(symbol market.Symbol) uint64 {
	s.globalMu.RLock()
	store, ok := s.data[symbol]
	s.globalMu.RUnlock()
	if !ok {
		return 0
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	return store.seq
}

// CountAll returns the total number of snapshots stored across all symbols.
func (s *MemoryHistoryStore) CountAll() int {
	s.globalMu.RLock()
	defer s.globalMu.RUnlock()

	total := 0
	for _, store := range s.data {
		store.mu.Lock()
		total += len(store.series)
		store.mu.Unlock()
	}
	return total
}
