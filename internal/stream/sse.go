package stream

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-contrib/sse"
)

// SSETransport reads feeds as text/event-stream.
type SSETransport struct {
	BaseURL string
	Client  *http.Client
}

// Open issues the GET and checks the response. The body stays open until
// ctx is cancelled or the reader is closed.
func (t *SSETransport) Open(ctx context.Context, feed FeedID) (FrameReader, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.BaseURL+feed.Path(), nil)
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", feed, err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connecting %s: %w", feed, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("connecting %s: status %d", feed, resp.StatusCode)
	}
	return NewSSEReader(resp.Body), nil
}

// SSEReader splits an event stream into blocks on blank lines and decodes
// each block's fields with gin-contrib/sse. Only "message" events with data
// are returned; comments and keep-alives are skipped.
type SSEReader struct {
	body    io.ReadCloser
	br      *bufio.Reader
	block   bytes.Buffer
	pending [][]byte
}

// NewSSEReader wraps an event-stream body.
func NewSSEReader(body io.ReadCloser) *SSEReader {
	return &SSEReader{body: body, br: bufio.NewReader(body)}
}

// ReadFrame returns the next event's data.
func (r *SSEReader) ReadFrame() ([]byte, error) {
	for {
		if len(r.pending) > 0 {
			data := r.pending[0]
			r.pending = r.pending[1:]
			return data, nil
		}

		line, err := r.br.ReadBytes('\n')
		if err != nil {
			if err == io.EOF && len(line) == 0 {
				r.flush()
				if len(r.pending) > 0 {
					continue
				}
			}
			if err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}

		line = bytes.TrimRight(line, "\r\n")
		if len(line) == 0 {
			r.flush()
			continue
		}
		r.block.Write(line)
		r.block.WriteByte('\n')
	}
}

func (r *SSEReader) flush() {
	if r.block.Len() == 0 {
		return
	}
	events, err := sse.Decode(bytes.NewReader(r.block.Bytes()))
	r.block.Reset()
	if err != nil {
		return
	}
	for _, ev := range events {
		if ev.Event != "message" {
			continue
		}
		data, ok := ev.Data.(string)
		if !ok || data == "" {
			continue
		}
		r.pending = append(r.pending, []byte(data))
	}
}

// Close releases the response body.
func (r *SSEReader) Close() error {
	return r.body.Close()
}
