package syncengine

import (
	"time"

	"pricesync/internal/market"
	"pricesync/internal/memorystore"
)

type fetchKind int

const (
	kindLatest fetchKind = iota
	kindHistory
)

func (k fetchKind) String() string {
	if k == kindHistory {
		return "history"
	}
	return "latest"
}

type fetchKey struct {
	symbol market.Symbol
	kind   fetchKind
}

// ticket identifies one issued fetch.
type ticket struct {
	fetchKey
	seq      uint64
	issuedAt time.Time
}

// State is the engine's mutable state. It is owned by the engine goroutine
// and must not be touched from anywhere else.
type State struct {
	symbol   market.Symbol
	interval market.Interval
	now      time.Time

	latest  *memorystore.MemoryPriceStore
	history *memorystore.MemoryHistoryStore

	// last issued sequence per (symbol, kind)
	issued map[fetchKey]uint64
}

func newState(symbol market.Symbol, interval market.Interval, now time.Time) *State {
	return &State{
		symbol:   symbol,
		interval: interval,
		now:      now,
		latest:   memorystore.NewPriceStore(),
		history:  memorystore.NewHistoryStore(),
		issued:   make(map[fetchKey]uint64),
	}
}

// issue hands out the next sequence number for (symbol, kind).
func (s *State) issue(kind fetchKind, symbol market.Symbol, at time.Time) ticket {
	key := fetchKey{symbol: symbol, kind: kind}
	s.issued[key]++
	return ticket{fetchKey: key, seq: s.issued[key], issuedAt: at}
}

// applyLatest writes snap if the ticket's symbol is still selected and no
// newer fetch has written the entry. On success now advances to the issue time.
func (s *State) applyLatest(t ticket, snap market.PriceSnapshot) bool {
	if t.symbol != s.symbol {
		return false
	}
	snap.Symbol = t.symbol
	if !s.latest.Put(snap, t.seq) {
		return false
	}
	if t.issuedAt.After(s.now) {
		s.now = t.issuedAt
	}
	return true
}

// applyHistory replaces the series under the same rules as applyLatest.
func (s *State) applyHistory(t ticket, series market.HistorySeries) bool {
	if t.symbol != s.symbol {
		return false
	}
	return s.history.Replace(t.symbol, series, t.seq)
}

// setSymbol reports whether the selection changed.
func (s *State) setSymbol(symbol market.Symbol) bool {
	if symbol == s.symbol {
		return false
	}
	s.symbol = symbol
	return true
}

func (s *State) setInterval(interval market.Interval) bool {
	if interval == s.interval {
		return false
	}
	s.interval = interval
	return true
}
