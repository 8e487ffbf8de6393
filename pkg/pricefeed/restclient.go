package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pricesync/internal/market"
)

const (
	opLatest  = "latest"
	opHistory = "history"
)

// RESTClient talks to the price feed over HTTP/JSON.
type RESTClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewRESTClient builds a client for baseURL. A zero timeout means requests
// are bounded only by their context.
func NewRESTClient(baseURL string, timeout time.Duration) *RESTClient {
	return &RESTClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Latest fetches the most recent snapshot for symbol.
func (c *RESTClient) Latest(ctx context.Context, symbol market.Symbol) (market.PriceSnapshot, error) {
	endpoint := c.baseURL + "/prices/" + url.PathEscape(string(symbol))

	var body LatestResponse
	if err := c.getJSON(ctx, opLatest, endpoint, &body); err != nil {
		return market.PriceSnapshot{}, err
	}
	if body.Error != "" {
		return market.PriceSnapshot{}, &ResponseError{Op: opLatest, StatusCode: http.StatusOK, Message: body.Error}
	}

	snap, err := toSnapshot(symbol, body.Price, body.Volume, body.Timestamp, body.IsAnomaly)
	if err != nil {
		return market.PriceSnapshot{}, &MalformedPayloadError{Op: opLatest, Reason: err.Error()}
	}
	return snap, nil
}

// History fetches at most limit past snapshots for symbol, ascending by time.
func (c *RESTClient) History(ctx context.Context, symbol market.Symbol, limit int) (market.HistorySeries, error) {
	endpoint := fmt.Sprintf("%s/prices/%s/history?limit=%s",
		c.baseURL,
		url.PathEscape(string(symbol)),
		strconv.Itoa(limit),
	)

	var body HistoryResponse
	if err := c.getJSON(ctx, opHistory, endpoint, &body); err != nil {
		return nil, err
	}
	if body.Error != "" {
		return nil, &ResponseError{Op: opHistory, StatusCode: http.StatusOK, Message: body.Error}
	}
	if len(body.History) == 0 {
		return nil, &MalformedPayloadError{Op: opHistory, Reason: "missing history"}
	}

	var points []HistoryPoint
	if err := json.Unmarshal(body.History, &points); err != nil {
		return nil, &MalformedPayloadError{Op: opHistory, Reason: "decode history", Err: err}
	}

	series, err := ParseHistory(symbol, limit, points)
	if err != nil {
		return nil, &MalformedPayloadError{Op: opHistory, Reason: err.Error()}
	}
	return series, nil
}

// getJSON performs a GET and decodes the body into out. Error payloads on
// non-2xx responses are surfaced in the ResponseError message.
func (c *RESTClient) getJSON(ctx context.Context, op, endpoint string, out any) error {
	// Construct the GET request with context for timeout/cancel support
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		msg := strings.TrimSpace(string(body))
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
			msg = payload.Error
		}
		return &ResponseError{Op: op, StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &MalformedPayloadError{Op: op, Reason: "decode response", Err: err}
	}
	return nil
}
