package market

import "time"

// Symbol identifies a tradable pair (e.g., "BTC-USD").
type Symbol string

func (s Symbol) String() string { return string(s) }

// PriceSnapshot is one observed price/volume reading for a symbol.
type PriceSnapshot struct {
	Symbol    Symbol    `json:"symbol"`    // Trading pair (e.g., "BTC-USD")
	Price     float64   `json:"price"`     // Last traded price
	Volume    float64   `json:"volume"`    // Volume reported with the price
	Timestamp time.Time `json:"timestamp"` // Time of the observation on the feed side
	IsAnomaly bool      `json:"is_anomaly"` // Feed flagged the reading as an outsized move
}

// HistorySeries is an ascending-by-timestamp sequence of snapshots for one symbol.
type HistorySeries []PriceSnapshot

// IsOrdered reports whether timestamps are monotonically non-decreasing.
func (h HistorySeries) IsOrdered() bool {
	for i := 1; i < len(h); i++ {
		if h[i].Timestamp.Before(h[i-1].Timestamp) {
			return false
		}
	}
	return true
}

// Clone returns a copy that does not share the backing array.
func (h HistorySeries) Clone() HistorySeries {
	if h == nil {
		return nil
	}
	out := make(HistorySeries, len(h))
	copy(out, h)
	return out
}
