package stream

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrClosed is reported by LastErr for a handle closed by its owner.
var ErrClosed = errors.New("stream closed")

// Status is the lifecycle state of a handle.
type Status int

const (
	StatusConnecting Status = iota
	StatusOpen
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusOpen:
		return "open"
	default:
		return "closed"
	}
}

// eventBuffer bounds how far a connection may run ahead of its consumer.
const eventBuffer = 16

// Handle is one open subscription to a feed. The connection goroutine owns
// the events channel and closes it when the stream ends for any reason.
type Handle struct {
	ID      uint64
	Feed    FeedID
	Owner   string
	Attempt int

	events chan Event
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	status  Status
	lastErr error
}

// Events delivers samples and at most one terminal Err event.
func (h *Handle) Events() <-chan Event { return h.events }

// Done is closed once the connection goroutine has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Status reports the handle's lifecycle state.
func (h *Handle) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// LastErr reports why the handle closed, or nil while it is live.
func (h *Handle) LastErr() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastErr
}

func (h *Handle) setStatus(s Status, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.status == StatusClosed {
		return
	}
	h.status = s
	if err != nil {
		h.lastErr = err
	}
}

// run drives one connection until ctx is cancelled or the transport fails.
// Malformed payloads are logged and dropped without closing the stream.
// Transport failures are reported once as Event{Err}; cancellation is not
// reported.
func (h *Handle) run(ctx context.Context, t Transport, log *slog.Logger) {
	defer close(h.done)
	defer close(h.events)

	log = log.With("feed", h.Feed.String(), "handle", h.ID)

	fail := func(err error) {
		if ctx.Err() != nil {
			h.setStatus(StatusClosed, ErrClosed)
			return
		}
		h.setStatus(StatusClosed, err)
		log.Warn("stream failed", "error", err, "attempt", h.Attempt)
		select {
		case h.events <- Event{Err: err}:
		case <-ctx.Done():
		}
	}

	r, err := t.Open(ctx, h.Feed)
	if err != nil {
		fail(err)
		return
	}
	defer r.Close()

	// Unblock a pending read when the owner goes away.
	stop := context.AfterFunc(ctx, func() { r.Close() })
	defer stop()

	h.setStatus(StatusOpen, nil)
	log.Info("stream opened", "attempt", h.Attempt)

	for {
		data, err := r.ReadFrame()
		if err != nil {
			fail(err)
			return
		}

		ev, err := decodeFor(h.Feed.Kind, data)
		if err != nil {
			log.Warn("dropping malformed sample", "error", err, "bytes", len(data))
			continue
		}

		select {
		case h.events <- ev:
		case <-ctx.Done():
			h.setStatus(StatusClosed, ErrClosed)
			return
		}
	}
}
