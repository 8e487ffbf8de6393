package syncengine

import (
	"time"

	"pricesync/internal/market"
)

// View is what the presentation layer reads: the selection, the current
// time, the latest price of the selected symbol and the windowed series.
// Views share backing arrays and must be treated as read-only.
type View struct {
	Symbol   market.Symbol         `json:"symbol"`
	Interval market.Interval       `json:"interval"`
	Now      time.Time             `json:"now"`
	Latest   *market.PriceSnapshot `json:"latest,omitempty"`
	Series   market.HistorySeries  `json:"series"`
}

type viewKey struct {
	symbol   market.Symbol
	version  uint64
	interval market.Interval
	now      time.Time
}

// viewMemo caches the last filtered series. Filter is pure, so the result
// only depends on the key.
type viewMemo struct {
	key    viewKey
	series market.HistorySeries
	valid  bool
}

func (m *viewMemo) get(key viewKey, compute func() market.HistorySeries) market.HistorySeries {
	if m.valid && m.key == key {
		return m.series
	}
	m.key = key
	m.series = compute()
	m.valid = true
	return m.series
}

// buildView derives the current View from s.
func buildView(s *State, memo *viewMemo) View {
	v := View{
		Symbol:   s.symbol,
		Interval: s.interval,
		Now:      s.now,
	}
	if snap, ok := s.latest.Get(s.symbol); ok {
		v.Latest = &snap
	}

	key := viewKey{
		symbol:   s.symbol,
		version:  s.history.Version(s.symbol),
		interval: s.interval,
		now:      s.now,
	}
	v.Series = memo.get(key, func() market.HistorySeries {
		history, ok := s.history.GetBySymbol(s.symbol)
		if !ok {
			history = market.HistorySeries{}
		}
		return market.Filter(history, s.interval, s.now)
	})
	return v
}
