// Package api is the request/response client for the stock analysis
// backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to the analysis backend over JSON POST endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new backend client. A zero timeout uses 30s.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the backend root the client was created with.
func (c *Client) BaseURL() string { return c.baseURL }

// NormalizeSymbol upper-cases and trims a user-entered symbol.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Stock fetches metrics and per-indicator charts for symbol over period.
func (c *Client) Stock(ctx context.Context, symbol, period string) (*StockResponse, error) {
	var out StockResponse
	if err := c.post(ctx, "/api/stock", StockRequest{Symbol: NormalizeSymbol(symbol), Period: period}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// News fetches scored headlines for symbol.
func (c *Client) News(ctx context.Context, symbol string) (*NewsResponse, error) {
	var out NewsResponse
	if err := c.post(ctx, "/api/news", SymbolRequest{Symbol: NormalizeSymbol(symbol)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Strategy fetches indicator signals for symbol.
func (c *Client) Strategy(ctx context.Context, symbol string) (*StrategyResponse, error) {
	var out StrategyResponse
	if err := c.post(ctx, "/api/strategy", SymbolRequest{Symbol: NormalizeSymbol(symbol)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Options fetches options analytics for symbol.
func (c *Client) Options(ctx context.Context, symbol string) (*OptionsResponse, error) {
	var out OptionsResponse
	if err := c.post(ctx, "/api/options", SymbolRequest{Symbol: NormalizeSymbol(symbol)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LiveChart fetches the current intraday snapshot for symbol.
func (c *Client) LiveChart(ctx context.Context, symbol string) (*LiveChartResponse, error) {
	var out LiveChartResponse
	if err := c.post(ctx, "/api/livechart", SymbolRequest{Symbol: NormalizeSymbol(symbol)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Chat sends one message to the assistant and returns its reply.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	var out ChatResponse
	if err := c.post(ctx, "/api/chat", ChatRequest{Message: message}, &out); err != nil {
		return "", err
	}
	return out.Reply, nil
}

// post sends body as JSON and decodes the reply into out. A body carrying a
// non-empty "error" becomes an *UpstreamError regardless of status code.
func (c *Client) post(ctx context.Context, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &RequestError{Endpoint: endpoint, Err: fmt.Errorf("encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return &RequestError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RequestError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RequestError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	var upstream ErrorResponse
	if json.Unmarshal(data, &upstream) == nil && upstream.Error != "" {
		return &UpstreamError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: upstream.Error}
	}
	if resp.StatusCode != http.StatusOK {
		return &RequestError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &RequestError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
