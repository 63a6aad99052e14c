package dashboard

import (
	"context"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"stockdash/internal/api"
	"stockdash/internal/stream"
)

// Backend is the subset of the API client the controller and poller use.
type Backend interface {
	Stock(ctx context.Context, symbol, period string) (*api.StockResponse, error)
	LiveChart(ctx context.Context, symbol string) (*api.LiveChartResponse, error)
}

// Streams opens and closes feed handles. *stream.Manager implements it.
type Streams interface {
	Subscribe(ctx context.Context, feed stream.FeedID, owner string) *stream.Handle
	Resubscribe(ctx context.Context, prev *stream.Handle) *stream.Handle
	Unsubscribe(h *stream.Handle)
	IsCurrent(h *stream.Handle) bool
}

// Messages delivered to the update loop.
type (
	// StreamEventMsg carries one event from a feed handle.
	StreamEventMsg struct {
		Handle *stream.Handle
		Event  stream.Event
	}
	// StreamClosedMsg reports that a handle's event channel was closed.
	StreamClosedMsg struct{ Handle *stream.Handle }
	// RetryMsg fires when a failed handle's reconnect delay has elapsed.
	RetryMsg struct{ Handle *stream.Handle }
	// AnalysisMsg is the result of an analysis request.
	AnalysisMsg struct {
		Seq    int
		Symbol string
		Period string
		Resp   *api.StockResponse
		Err    error
	}
	// SnapshotMsg is the result of the on-demand live snapshot fetch.
	SnapshotMsg struct {
		Symbol string
		Epoch  int
		Resp   *api.LiveChartResponse
		Err    error
	}
)

// Owners recorded on feed handles.
const (
	ownerRibbon = "ribbon"
	ownerLive   = "live"
)

// Controller is the single entry point for chart mode changes. It owns the
// feed handles and routes every inbound event to the pipeline.
type Controller struct {
	ctx     context.Context
	s       *Session
	pipe    *Pipeline
	backend Backend
	streams Streams
	policy  stream.Policy
	log     *slog.Logger

	ticker *stream.Handle
	chart  *stream.Handle
}

// NewController wires a controller. ctx bounds every feed and request it
// starts.
func NewController(ctx context.Context, s *Session, pipe *Pipeline, backend Backend, streams Streams, policy stream.Policy, log *slog.Logger) *Controller {
	return &Controller{
		ctx:     ctx,
		s:       s,
		pipe:    pipe,
		backend: backend,
		streams: streams,
		policy:  policy,
		log:     log,
	}
}

// Session returns the aggregate the controller drives.
func (c *Controller) Session() *Session { return c.s }

// ChartHandle returns the open chart feed handle, or nil.
func (c *Controller) ChartHandle() *stream.Handle { return c.chart }

// TickerHandle returns the ticker feed handle.
func (c *Controller) TickerHandle() *stream.Handle { return c.ticker }

// StartTicker opens the process-wide ticker feed.
func (c *Controller) StartTicker() tea.Cmd {
	c.ticker = c.streams.Subscribe(c.ctx, stream.TickerFeed(), ownerRibbon)
	return waitForEvent(c.ticker)
}

// waitForEvent blocks on the handle's next event.
func waitForEvent(h *stream.Handle) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-h.Events()
		if !ok {
			return StreamClosedMsg{Handle: h}
		}
		return StreamEventMsg{Handle: h, Event: ev}
	}
}

// ---------------------------------------------------------------------------
// Analysis
// ---------------------------------------------------------------------------

// Analyze requests a full analysis of symbol over period. An empty symbol
// is rejected before any request is made.
func (c *Controller) Analyze(symbol, period string) (tea.Cmd, error) {
	symbol = api.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, ErrEmptySymbol
	}
	if period == "" {
		period = c.s.Period
	}
	c.s.analysisSeq++
	c.s.Loading = true
	seq, ctx, backend := c.s.analysisSeq, c.ctx, c.backend
	return func() tea.Msg {
		resp, err := backend.Stock(ctx, symbol, period)
		return AnalysisMsg{Seq: seq, Symbol: symbol, Period: period, Resp: resp, Err: err}
	}, nil
}

// AnalysisLoaded applies a finished analysis: leave live, replace metrics
// and chart cache, and enter Static(price). Results superseded by a newer
// request are dropped. A failed analysis leaves the session as it was.
func (c *Controller) AnalysisLoaded(msg AnalysisMsg) error {
	if msg.Seq != c.s.analysisSeq {
		c.log.Debug("dropping superseded analysis", "symbol", msg.Symbol, "seq", msg.Seq)
		return nil
	}
	c.s.Loading = false
	if msg.Err != nil {
		c.log.Warn("analysis failed", "symbol", msg.Symbol, "period", msg.Period, "error", msg.Err)
		return msg.Err
	}

	if c.s.Mode.Live {
		c.stopLive()
	}
	sym := msg.Resp.Metrics.Symbol
	if sym == "" {
		sym = msg.Symbol
	}
	c.s.Symbol = sym
	c.s.Period = msg.Period
	c.s.Charts = decodeCharts(msg.Resp.Charts, c.log)
	c.pipe.ApplyMetrics(msg.Resp.Metrics)

	c.s.Mode = StaticMode(Price)
	c.pipe.ApplyStaticChart(Price, c.s.Charts[Price])
	c.log.Info("analysis loaded", "symbol", sym, "period", msg.Period, "charts", len(c.s.Charts))
	return nil
}

// ---------------------------------------------------------------------------
// Tab switches
// ---------------------------------------------------------------------------

// SelectTab enters Static(ind). Leaving Live first deactivates the live
// session and closes the chart feed, synchronously.
func (c *Controller) SelectTab(ind Indicator) {
	if c.s.Mode.Live {
		c.stopLive()
	}
	c.s.Mode = StaticMode(ind)
	c.pipe.ApplyStaticChart(ind, c.s.Charts[ind])
}

// SelectLiveTab enters Live for the analyzed symbol: it shows a loading
// placeholder, fetches a snapshot right away and opens the chart feed.
// Without an analyzed symbol it returns ErrNoSymbol and changes nothing.
func (c *Controller) SelectLiveTab() (tea.Cmd, error) {
	if !c.s.HasSymbol() {
		return nil, ErrNoSymbol
	}
	if c.s.Mode.Live {
		return nil, nil
	}

	c.s.Mode = LiveMode()
	c.s.Live = LiveState{Active: true, Epoch: c.s.Live.Epoch + 1}
	c.pipe.ResetLiveStatus()
	c.pipe.ShowPlaceholder("Loading live data for " + c.s.Symbol + "...")

	symbol, epoch, ctx, backend := c.s.Symbol, c.s.Live.Epoch, c.ctx, c.backend
	fetch := func() tea.Msg {
		resp, err := backend.LiveChart(ctx, symbol)
		return SnapshotMsg{Symbol: symbol, Epoch: epoch, Resp: resp, Err: err}
	}

	c.chart = c.streams.Subscribe(c.ctx, stream.ChartFeed(symbol), ownerLive)
	c.log.Info("live mode entered", "symbol", symbol, "epoch", epoch)
	return tea.Batch(fetch, waitForEvent(c.chart)), nil
}

// stopLive deactivates the live session before closing its feed so that
// anything already queued becomes a no-op.
func (c *Controller) stopLive() {
	c.s.Live.Active = false
	c.s.Live.Drawn = false
	c.streams.Unsubscribe(c.chart)
	c.chart = nil
	c.log.Info("live mode left", "symbol", c.s.Symbol)
}

// SnapshotLoaded applies the on-demand snapshot. A failure is returned only
// when the live session it was fetched for is still showing.
func (c *Controller) SnapshotLoaded(msg SnapshotMsg) error {
	if msg.Err != nil {
		if c.s.Live.Active && msg.Epoch == c.s.Live.Epoch {
			c.log.Warn("live snapshot failed", "symbol", msg.Symbol, "error", msg.Err)
			return msg.Err
		}
		return nil
	}
	c.pipe.ApplySnapshot(msg.Symbol, msg.Epoch, msg.Resp)
	return nil
}

// ---------------------------------------------------------------------------
// Feed events
// ---------------------------------------------------------------------------

// HandleStreamEvent dispatches one feed event. Events from handles that
// are no longer current are dropped and their wait is not re-armed.
func (c *Controller) HandleStreamEvent(msg StreamEventMsg) tea.Cmd {
	h := msg.Handle
	if !c.streams.IsCurrent(h) {
		return nil
	}
	ev := msg.Event
	switch {
	case ev.Err != nil:
		return c.onStreamError(h)
	case ev.Ticker != nil:
		return tea.Batch(c.pipe.ApplyTicker(ev.Ticker), waitForEvent(h))
	case ev.Intraday != nil:
		c.pipe.ApplyIntraday(h.Feed, ev.Intraday)
		return waitForEvent(h)
	}
	return waitForEvent(h)
}

// HandleStreamClosed notes a handle whose channel closed. Failures arrive
// as Err events first, so there is nothing to schedule here.
func (c *Controller) HandleStreamClosed(msg StreamClosedMsg) {
	c.log.Debug("stream channel closed", "feed", msg.Handle.Feed.String(), "handle", msg.Handle.ID)
}

// stillWanted reports whether h should be reopened. The ticker is always
// wanted while it is the registered handle. The chart is wanted only while
// live is active for its symbol and no newer handle replaced it.
func (c *Controller) stillWanted(h *stream.Handle) bool {
	if !c.streams.IsCurrent(h) {
		return false
	}
	if h.Feed.Kind == stream.KindTicker {
		return true
	}
	return c.s.Live.Active && c.s.Mode.Live && h.Feed.Symbol == c.s.Symbol && h == c.chart
}

func (c *Controller) onStreamError(h *stream.Handle) tea.Cmd {
	delay, ok := c.policy.OnError(h.Feed, c.stillWanted(h))
	if !ok {
		c.log.Debug("not retrying stream", "feed", h.Feed.String())
		return nil
	}
	c.log.Info("stream retry scheduled", "feed", h.Feed.String(), "delay", delay, "attempt", h.Attempt+1)
	return tea.Tick(delay, func(time.Time) tea.Msg { return RetryMsg{Handle: h} })
}

// HandleRetry reopens a failed feed if it is still wanted now.
func (c *Controller) HandleRetry(msg RetryMsg) tea.Cmd {
	h := msg.Handle
	if !c.stillWanted(h) {
		c.log.Debug("skipping stale retry", "feed", h.Feed.String(), "handle", h.ID)
		return nil
	}
	nh := c.streams.Resubscribe(c.ctx, h)
	switch h.Feed.Kind {
	case stream.KindTicker:
		c.ticker = nh
	case stream.KindChart:
		c.chart = nh
	}
	return waitForEvent(nh)
}

// ClearFlash forwards the end of a ribbon flash.
func (c *Controller) ClearFlash(msg FlashDoneMsg) {
	c.pipe.ClearFlash(msg.Seq)
}
