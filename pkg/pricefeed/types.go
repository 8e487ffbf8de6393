package pricefeed

import "encoding/json"

// LatestResponse is the body of GET /prices/{symbol}.
// Pointer fields distinguish a missing value from a zero one.
type LatestResponse struct {
	Symbol    string   `json:"symbol,omitempty"` // Echoed symbol (optional)
	Price     *float64 `json:"price"`            // Last traded price
	Volume    *float64 `json:"volume"`           // Volume reported with the price
	Timestamp *string  `json:"timestamp"`        // ISO-8601 observation time
	IsAnomaly bool     `json:"is_anomaly"`       // Absent means false
	Error     string   `json:"error,omitempty"`  // Non-empty means the call failed
}

// HistoryResponse is the body of GET /prices/{symbol}/history.
type HistoryResponse struct {
	Symbol  string          `json:"symbol,omitempty"`
	Limit   int             `json:"limit,omitempty"`
	Count   int             `json:"count,omitempty"`
	History json.RawMessage `json:"history"` // Delay decoding: null and [] are both valid
	Error   string          `json:"error,omitempty"`
}

// HistoryPoint is one entry of HistoryResponse.History.
type HistoryPoint struct {
	Price     *float64 `json:"price"`
	Volume    *float64 `json:"volume"`
	Timestamp *string  `json:"timestamp"`
	IsAnomaly bool     `json:"is_anomaly"`
}
