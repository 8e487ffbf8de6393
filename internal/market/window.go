package market

import "time"

// Filter returns the part of history visible under interval at now.
//
// All returns history itself. LastMinutes(m) keeps every entry whose age
// (now - timestamp) is at most m minutes, boundary included, in input order.
// Filter never mutates its input and holds no state.
func Filter(history HistorySeries, interval Interval, now time.Time) HistorySeries {
	if interval.IsAll() {
		return history
	}

	window := interval.Window()
	out := make(HistorySeries, 0, len(history))
	for _, p := range history {
		if now.Sub(p.Timestamp) <= window {
			out = append(out, p)
		}
	}
	return out
}
