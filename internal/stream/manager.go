package stream

import (
	"context"
	"log/slog"
	"sync"
)

// Manager keeps at most one live handle per feed kind. Subscribing to a kind
// closes whatever handle of that kind was open before.
type Manager struct {
	transport Transport
	log       *slog.Logger

	mu      sync.Mutex
	nextID  uint64
	current map[Kind]*Handle
}

// NewManager creates a Manager opening feeds over t.
func NewManager(t Transport, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		transport: t,
		log:       log,
		current:   make(map[Kind]*Handle),
	}
}

// Subscribe opens feed on behalf of owner and returns its handle. The
// connection runs until ctx is cancelled, Unsubscribe is called, or the
// transport fails.
func (m *Manager) Subscribe(ctx context.Context, feed FeedID, owner string) *Handle {
	return m.subscribe(ctx, feed, owner, 0)
}

// Resubscribe reopens prev's feed for the same owner as a retry attempt.
func (m *Manager) Resubscribe(ctx context.Context, prev *Handle) *Handle {
	return m.subscribe(ctx, prev.Feed, prev.Owner, prev.Attempt+1)
}

func (m *Manager) subscribe(ctx context.Context, feed FeedID, owner string, attempt int) *Handle {
	m.mu.Lock()
	if old := m.current[feed.Kind]; old != nil {
		m.closeLocked(old)
	}
	m.nextID++
	cctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		ID:      m.nextID,
		Feed:    feed,
		Owner:   owner,
		Attempt: attempt,
		events:  make(chan Event, eventBuffer),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	m.current[feed.Kind] = h
	m.mu.Unlock()

	go h.run(cctx, m.transport, m.log)
	return h
}

// Unsubscribe closes h. It is a no-op for nil or already-closed handles.
func (m *Manager) Unsubscribe(h *Handle) {
	if h == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked(h)
}

func (m *Manager) closeLocked(h *Handle) {
	if m.current[h.Feed.Kind] == h {
		delete(m.current, h.Feed.Kind)
	}
	h.mu.Lock()
	wasLive := h.status != StatusClosed
	h.status = StatusClosed
	if h.lastErr == nil {
		h.lastErr = ErrClosed
	}
	h.mu.Unlock()
	h.cancel()
	if wasLive {
		m.log.Debug("stream unsubscribed", "feed", h.Feed.String(), "handle", h.ID)
	}
}

// Current returns the live handle of kind k, or nil.
func (m *Manager) Current(k Kind) *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current[k]
}

// IsCurrent reports whether h is still the registered handle for its kind.
func (m *Manager) IsCurrent(h *Handle) bool {
	if h == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current[h.Feed.Kind] == h
}

// Close unsubscribes every handle.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.current {
		m.closeLocked(h)
	}
}
