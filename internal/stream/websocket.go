package stream

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// WSTransport reads feeds from a WebSocket endpoint serving one JSON sample
// per text message at the same paths as the SSE feeds.
type WSTransport struct {
	BaseURL string
	Dialer  *websocket.Dialer
}

// Open dials the feed.
func (t *WSTransport) Open(ctx context.Context, feed FeedID) (FrameReader, error) {
	dialer := t.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, t.BaseURL+feed.Path(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dialing %s: status %d: %w", feed, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dialing %s: %w", feed, err)
	}
	return &wsReader{conn: conn}, nil
}

type wsReader struct {
	conn      *websocket.Conn
	closeOnce sync.Once
}

func (r *wsReader) ReadFrame() ([]byte, error) {
	for {
		typ, data, err := r.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if typ == websocket.TextMessage || typ == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (r *wsReader) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		err = r.conn.Close()
	})
	return err
}
