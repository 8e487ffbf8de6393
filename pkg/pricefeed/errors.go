package pricefeed

import "fmt"

// TransportError is a network or connection failure talking to the feed.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ResponseError is a non-2xx status or a payload carrying an error field.
type ResponseError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s: feed error (status %d): %s", e.Op, e.StatusCode, e.Message)
}

// MalformedPayloadError is a body that could not be decoded or lacks required fields.
type MalformedPayloadError struct {
	Op     string
	Reason string
	Err    error
}

func (e *MalformedPayloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: malformed payload: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: malformed payload: %s", e.Op, e.Reason)
}

func (e *MalformedPayloadError) Unwrap() error { return e.Err }
