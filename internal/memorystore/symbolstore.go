package memorystore

import (
	"sync"

	"pricesync/internal/market"
)

// MemorySymbolStore is the set of recognized symbols, kept in insertion order.
type MemorySymbolStore struct {
	mu      sync.RWMutex
	symbols []market.Symbol
	index   map[market.Symbol]struct{}
}

func NewSymbolStore(symbols ...market.Symbol) *MemorySymbolStore {
	s := &MemorySymbolStore{
		symbols: make([]market.Symbol, 0, len(symbols)),
		index:   make(map[market.Symbol]struct{}, len(symbols)),
	}
	for _, sym := range symbols {
		s.Add(sym)
	}
	return s
}

// Add registers symbol. Duplicates and empty symbols are ignored.
func (s *MemorySymbolStore) Add(symbol market.Symbol) {
	if symbol == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[symbol]; ok {
		return
	}
	s.index[symbol] = struct{}{}
	s.symbols = append(s.symbols, symbol)
}

func (s *MemorySymbolStore) Contains(symbol market.Symbol) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[symbol]
	return ok
}

func (s *MemorySymbolStore) GetAll() []market.Symbol {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]market.Symbol, len(s.symbols))
	copy(out, s.symbols)
	return out
}

func (s *MemorySymbolStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.symbols)
}
