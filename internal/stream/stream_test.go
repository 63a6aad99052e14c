package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeReader struct {
	frames chan []byte
	errc   chan error
	closed chan struct{}
	once   sync.Once
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		frames: make(chan []byte, 8),
		errc:   make(chan error, 1),
		closed: make(chan struct{}),
	}
}

func (r *fakeReader) ReadFrame() ([]byte, error) {
	select {
	case f := <-r.frames:
		return f, nil
	case err := <-r.errc:
		return nil, err
	case <-r.closed:
		return nil, io.ErrClosedPipe
	}
}

func (r *fakeReader) Close() error {
	r.once.Do(func() { close(r.closed) })
	return nil
}

type fakeTransport struct {
	mu      sync.Mutex
	opened  []FeedID
	openErr error
	readers chan *fakeReader
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{readers: make(chan *fakeReader, 8)}
}

func (t *fakeTransport) Open(ctx context.Context, feed FeedID) (FrameReader, error) {
	t.mu.Lock()
	t.opened = append(t.opened, feed)
	err := t.openErr
	t.mu.Unlock()
	if err != nil {
		return nil, err
	}
	r := newFakeReader()
	t.readers <- r
	return r, nil
}

func (t *fakeTransport) nextReader(tb testing.TB) *fakeReader {
	tb.Helper()
	select {
	case r := <-t.readers:
		return r
	case <-time.After(2 * time.Second):
		tb.Fatal("transport was never opened")
		return nil
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func recv(tb testing.TB, h *Handle) (Event, bool) {
	tb.Helper()
	select {
	case ev, ok := <-h.Events():
		return ev, ok
	case <-time.After(2 * time.Second):
		tb.Fatalf("no event from %s within timeout", h.Feed)
		return Event{}, false
	}
}

func waitDone(tb testing.TB, h *Handle) {
	tb.Helper()
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		tb.Fatalf("handle %d for %s did not stop", h.ID, h.Feed)
	}
}

const tickerJSON = `{"stocks":[{"symbol":"AAPL","price":187.4,"change":1.2,"changePct":0.64},{"symbol":"TSLA","price":201.1,"change":-3.5,"changePct":-1.71}],"timestamp":"10:31:02"}`

const intradayJSON = `{"times":["2025-03-05 09:30","2025-03-05 09:31"],"prices":[100,101.5],"price":101.5,"open":100,"change":1.5,"changePct":1.5,"high":101.5,"low":100,"date":"Mar 05, 2025","timestamp":"09:31:05"}`

// ---------------------------------------------------------------------------
// Feed ids and samples
// ---------------------------------------------------------------------------

func TestFeedPaths(t *testing.T) {
	if got := TickerFeed().Path(); got != "/stream/ticker" {
		t.Errorf("ticker path = %q", got)
	}
	f := ChartFeed(" tsla")
	if f.Symbol != "TSLA" || f.Path() != "/stream/chart/TSLA" {
		t.Errorf("chart feed = %+v path %q", f, f.Path())
	}
	if f.String() != "chart:TSLA" {
		t.Errorf("String() = %q", f.String())
	}
}

func TestDecodeIntradayRejectsLengthMismatch(t *testing.T) {
	_, err := DecodeIntraday([]byte(`{"times":["a","b"],"prices":[1]}`))
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
	s, err := DecodeIntraday([]byte(intradayJSON))
	if err != nil {
		t.Fatalf("DecodeIntraday: %v", err)
	}
	if len(s.Prices) != 2 || s.Open != 100 || s.Date != "Mar 05, 2025" {
		t.Errorf("sample = %+v", s)
	}
}

func TestDecodeTickerRequiresStocks(t *testing.T) {
	if _, err := DecodeTicker([]byte(`{"timestamp":"10:00:00"}`)); !errors.Is(err, ErrMalformed) {
		t.Errorf("missing stocks: err = %v, want ErrMalformed", err)
	}
	if _, err := DecodeTicker([]byte(`{"stocks":[{"price":1}]}`)); !errors.Is(err, ErrMalformed) {
		t.Errorf("missing symbol: err = %v, want ErrMalformed", err)
	}
	s, err := DecodeTicker([]byte(`{"stocks":[],"timestamp":"10:00:00"}`))
	if err != nil || len(s.Stocks) != 0 {
		t.Errorf("empty ribbon: %+v, %v", s, err)
	}
}

// ---------------------------------------------------------------------------
// Policy
// ---------------------------------------------------------------------------

func TestPolicy(t *testing.T) {
	p := DefaultPolicy()

	for _, wanted := range []bool{true, false} {
		d, ok := p.OnError(TickerFeed(), wanted)
		if !ok || d != 3000*time.Millisecond {
			t.Errorf("ticker (wanted=%v) = %v, %v; want 3s, true", wanted, d, ok)
		}
	}

	d, ok := p.OnError(ChartFeed("AAPL"), true)
	if !ok || d != 2000*time.Millisecond {
		t.Errorf("chart wanted = %v, %v; want 2s, true", d, ok)
	}
	if _, ok := p.OnError(ChartFeed("AAPL"), false); ok {
		t.Error("chart retried while not wanted")
	}

	// No ceiling: the hundredth failure is treated like the first.
	for i := 0; i < 100; i++ {
		if d, ok := p.OnError(TickerFeed(), true); !ok || d != p.TickerDelay {
			t.Fatalf("attempt %d: %v, %v", i, d, ok)
		}
	}
}

// ---------------------------------------------------------------------------
// Manager and connection lifecycle
// ---------------------------------------------------------------------------

func TestSubscribeSupersedesSameKind(t *testing.T) {
	tr := newFakeTransport()
	m := NewManager(tr, quietLogger())
	ctx := context.Background()

	ticker := m.Subscribe(ctx, TickerFeed(), "ribbon")
	tr.nextReader(t)

	first := m.Subscribe(ctx, ChartFeed("AAPL"), "live")
	tr.nextReader(t)
	second := m.Subscribe(ctx, ChartFeed("TSLA"), "live")
	tr.nextReader(t)

	waitDone(t, first)
	if _, ok := recv(t, first); ok {
		t.Error("superseded handle delivered an event instead of closing")
	}
	if first.Status() != StatusClosed || !errors.Is(first.LastErr(), ErrClosed) {
		t.Errorf("first handle status=%v err=%v", first.Status(), first.LastErr())
	}
	if got := m.Current(KindChart); got != second {
		t.Errorf("Current(chart) = %v, want second handle", got)
	}
	if !m.IsCurrent(ticker) {
		t.Error("chart subscribe disturbed the ticker handle")
	}
	if second.ID == first.ID {
		t.Error("handle ids reused")
	}
	m.Close()
	waitDone(t, second)
	waitDone(t, ticker)
}

func TestMalformedPayloadDroppedStreamStaysOpen(t *testing.T) {
	tr := newFakeTransport()
	m := NewManager(tr, quietLogger())
	h := m.Subscribe(context.Background(), ChartFeed("AAPL"), "live")
	r := tr.nextReader(t)

	r.frames <- []byte(`{not json`)
	r.frames <- []byte(`{"times":["09:30"],"prices":[]}`)
	r.frames <- []byte(intradayJSON)

	ev, ok := recv(t, h)
	if !ok || ev.Intraday == nil {
		t.Fatalf("event = %+v ok=%v, want intraday sample", ev, ok)
	}
	if ev.Err != nil || ev.Ticker != nil {
		t.Errorf("unexpected fields set: %+v", ev)
	}
	if h.Status() != StatusOpen {
		t.Errorf("status = %v, want open", h.Status())
	}
	m.Unsubscribe(h)
	waitDone(t, h)
}

func TestTransportErrorReportedOnce(t *testing.T) {
	tr := newFakeTransport()
	m := NewManager(tr, quietLogger())
	h := m.Subscribe(context.Background(), TickerFeed(), "ribbon")
	r := tr.nextReader(t)

	r.frames <- []byte(tickerJSON)
	if ev, _ := recv(t, h); ev.Ticker == nil || len(ev.Ticker.Stocks) != 2 {
		t.Fatalf("first event = %+v", ev)
	}

	r.errc <- io.ErrUnexpectedEOF
	ev, ok := recv(t, h)
	if !ok || !errors.Is(ev.Err, io.ErrUnexpectedEOF) {
		t.Fatalf("event = %+v ok=%v, want transport error", ev, ok)
	}
	if _, ok := recv(t, h); ok {
		t.Error("events channel still open after failure")
	}
	if h.Status() != StatusClosed || !errors.Is(h.LastErr(), io.ErrUnexpectedEOF) {
		t.Errorf("status=%v lastErr=%v", h.Status(), h.LastErr())
	}
	// A failed handle stays registered until the owner replaces it.
	if !m.IsCurrent(h) {
		t.Error("failed handle dropped from registry")
	}

	retry := m.Resubscribe(context.Background(), h)
	tr.nextReader(t)
	if retry.Attempt != 1 || retry.Feed != h.Feed || retry.Owner != "ribbon" {
		t.Errorf("retry handle = %+v", retry)
	}
	if m.IsCurrent(h) {
		t.Error("old handle still current after resubscribe")
	}
	m.Close()
}

func TestOpenFailureReported(t *testing.T) {
	tr := newFakeTransport()
	tr.openErr = errors.New("connection refused")
	m := NewManager(tr, quietLogger())
	h := m.Subscribe(context.Background(), ChartFeed("AAPL"), "live")

	ev, ok := recv(t, h)
	if !ok || ev.Err == nil {
		t.Fatalf("event = %+v, want open error", ev)
	}
	waitDone(t, h)
}

func TestUnsubscribeProducesNoError(t *testing.T) {
	tr := newFakeTransport()
	m := NewManager(tr, quietLogger())
	h := m.Subscribe(context.Background(), ChartFeed("AAPL"), "live")
	tr.nextReader(t)

	m.Unsubscribe(h)
	m.Unsubscribe(h)
	m.Unsubscribe(nil)
	waitDone(t, h)
	for ev := range h.Events() {
		if ev.Err != nil {
			t.Errorf("unsubscribe surfaced error %v", ev.Err)
		}
	}
	if m.Current(KindChart) != nil {
		t.Error("unsubscribed handle still current")
	}
}

// ---------------------------------------------------------------------------
// Wire transports
// ---------------------------------------------------------------------------

func TestNewTransportScheme(t *testing.T) {
	tr, err := NewTransport("http://127.0.0.1:5000/", nil)
	if err != nil {
		t.Fatalf("http: %v", err)
	}
	if s, ok := tr.(*SSETransport); !ok || s.BaseURL != "http://127.0.0.1:5000" {
		t.Errorf("http transport = %#v", tr)
	}
	tr, err = NewTransport("wss://example.com/feeds", nil)
	if err != nil {
		t.Fatalf("wss: %v", err)
	}
	if _, ok := tr.(*WSTransport); !ok {
		t.Errorf("wss transport = %#v", tr)
	}
	if _, err := NewTransport("ftp://example.com", nil); err == nil {
		t.Error("ftp scheme accepted")
	}
}

func TestSSEReaderFraming(t *testing.T) {
	pr, pw := io.Pipe()
	r := NewSSEReader(pr)
	defer r.Close()

	go func() {
		io.WriteString(pw, ": keep-alive\n\n")
		io.WriteString(pw, "event: heartbeat\ndata: ignored\n\n")
		// Split one event across writes and use CRLF line ends.
		io.WriteString(pw, "data: {\"a\":")
		io.WriteString(pw, "1}\r\n\r\n")
		io.WriteString(pw, "data: second\n\n")
		pw.Close()
	}()

	first, err := r.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if string(first) != `{"a":1}` {
		t.Errorf("first frame = %q", first)
	}
	second, err := r.ReadFrame()
	if err != nil || string(second) != "second" {
		t.Errorf("second frame = %q, %v", second, err)
	}
	if _, err := r.ReadFrame(); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("end of stream err = %v, want ErrUnexpectedEOF", err)
	}
}

func TestSSETransportEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stream/chart/AAPL" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprintf(w, "data: %s\n\n", `{"times":["x"],"prices":[]}`)
		fmt.Fprintf(w, "data: %s\n\n", intradayJSON)
		flusher.Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	tr, err := NewTransport(srv.URL, nil)
	if err != nil {
		t.Fatalf("NewTransport: %v", err)
	}
	m := NewManager(tr, quietLogger())
	h := m.Subscribe(context.Background(), ChartFeed("aapl"), "live")

	ev, ok := recv(t, h)
	if !ok || ev.Intraday == nil || ev.Intraday.Price != 101.5 {
		t.Fatalf("event = %+v ok=%v", ev, ok)
	}
	m.Unsubscribe(h)
	waitDone(t, h)
}

func TestSSETransportBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	tr, _ := NewTransport(srv.URL, nil)
	m := NewManager(tr, quietLogger())
	h := m.Subscribe(context.Background(), TickerFeed(), "ribbon")
	ev, ok := recv(t, h)
	if !ok || ev.Err == nil || !strings.Contains(ev.Err.Error(), "404") {
		t.Fatalf("event = %+v, want status error", ev)
	}
}

func TestWebSocketTransport(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stream/ticker" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`garbage`))
		conn.WriteMessage(websocket.TextMessage, []byte(tickerJSON))
		conn.ReadMessage()
	}))
	defer srv.Close()

	tr, err := NewTransport("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("NewTransport: %v", err)
	}
	m := NewManager(tr, quietLogger())
	h := m.Subscribe(context.Background(), TickerFeed(), "ribbon")

	ev, ok := recv(t, h)
	if !ok || ev.Ticker == nil || ev.Ticker.Stocks[0].Symbol != "AAPL" {
		t.Fatalf("event = %+v ok=%v", ev, ok)
	}
	m.Unsubscribe(h)
	waitDone(t, h)
}
