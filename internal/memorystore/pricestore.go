package memorystore

import (
	"sync"

	"pricesync/internal/market"
)

// MemoryPriceStore holds the most recent snapshot per symbol.
// Each entry remembers the sequence number of the fetch that wrote it, and
// an older fetch can never replace a newer one.
type MemoryPriceStore struct {
	mu   sync.RWMutex
	data map[market.Symbol]priceEntry
}

type priceEntry struct {
	snapshot market.PriceSnapshot
	seq      uint64
}

func NewPriceStore() *MemoryPriceStore {
	return &MemoryPriceStore{
		data: make(map[market.Symbol]priceEntry),
	}
}

// Put stores snap under its symbol if seq is not older than the sequence of
// the last write to that symbol. It reports whether the write happened.
func (s *MemoryPriceStore) Put(snap market.PriceSnapshot, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.data[snap.Symbol]; ok && seq < cur.seq {
		return false
	}
	s.data[snap.Symbol] = priceEntry{snapshot: snap, seq: seq}
	return true
}

func (s *MemoryPriceStore) Get(symbol market.Symbol) (market.PriceSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[symbol]
	return e.snapshot, ok
}

// Len returns the number of symbols with a stored snapshot.
func (s *MemoryPriceStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
