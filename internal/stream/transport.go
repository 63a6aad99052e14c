package stream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// FrameReader yields one raw payload per call. Any error ends the stream.
type FrameReader interface {
	ReadFrame() ([]byte, error)
	Close() error
}

// Transport opens the wire connection for a feed.
type Transport interface {
	Open(ctx context.Context, feed FeedID) (FrameReader, error)
}

// NewTransport picks SSE for http(s) bases and WebSocket for ws(s) bases.
// A nil client uses one without a timeout; feeds are long-lived.
func NewTransport(base string, client *http.Client) (Transport, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parsing stream base %q: %w", base, err)
	}
	base = strings.TrimRight(base, "/")
	switch u.Scheme {
	case "http", "https":
		if client == nil {
			client = &http.Client{}
		}
		return &SSETransport{BaseURL: base, Client: client}, nil
	case "ws", "wss":
		return &WSTransport{BaseURL: base}, nil
	}
	return nil, fmt.Errorf("unsupported stream scheme %q", u.Scheme)
}
