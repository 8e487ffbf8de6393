package pricefeed

import (
	"fmt"
	"sort"
	"time"

	"pricesync/internal/market"
)

// parseTimestamp accepts RFC 3339 with or without fractional seconds.
func parseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// toSnapshot validates a wire point and converts it to a PriceSnapshot.
func toSnapshot(symbol market.Symbol, price, volume *float64, ts *string, anomaly bool) (market.PriceSnapshot, error) {
	if price == nil {
		return market.PriceSnapshot{}, fmt.Errorf("missing price")
	}
	if volume == nil {
		return market.PriceSnapshot{}, fmt.Errorf("missing volume")
	}
	if ts == nil || *ts == "" {
		return market.PriceSnapshot{}, fmt.Errorf("missing timestamp")
	}
	at, err := parseTimestamp(*ts)
	if err != nil {
		return market.PriceSnapshot{}, fmt.Errorf("invalid timestamp %q", *ts)
	}

	return market.PriceSnapshot{
		Symbol:    symbol,
		Price:     *price,
		Volume:    *volume,
		Timestamp: at,
		IsAnomaly: anomaly,
	}, nil
}

// ParseHistory converts wire points into an ascending series holding at
// most limit of the newest entries. Feeds that answer newest-first are
// reordered here.
func ParseHistory(symbol market.Symbol, limit int, raw []HistoryPoint) (market.HistorySeries, error) {
	out := make(market.HistorySeries, 0, len(raw))
	for i, p := range raw {
		s, err := toSnapshot(symbol, p.Price, p.Volume, p.Timestamp, p.IsAnomaly)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, s)
	}

	if !out.IsOrdered() {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Timestamp.Before(out[j].Timestamp)
		})
	}

	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}
