package viewstream

const (
	ActionSetSymbol   = "set_symbol"
	ActionSetInterval = "set_interval"
)

const (
	TypeView  = "view"
	TypeAck   = "ack"
	TypeError = "error"
)

// Request is a command sent by a client.
type Request struct {
	Action   string `json:"action"`
	Symbol   string `json:"symbol,omitempty"`
	Interval string `json:"interval,omitempty"`
	ID       string `json:"id,omitempty"`
}

// Response is any message sent to a client.
type Response struct {
	Type    string `json:"type"`              // "view", "ack", "error"
	ID      string `json:"id,omitempty"`      // Matches request ID
	Message string `json:"message,omitempty"` // Human-readable status
	Data    any    `json:"data,omitempty"`
}
