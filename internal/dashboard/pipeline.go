package dashboard

import (
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"stockdash/internal/api"
	"stockdash/internal/chart"
	"stockdash/internal/stream"
	"stockdash/internal/util"
)

// FlashDuration is how long the ribbon timestamp stays highlighted after a
// ticker sample.
const FlashDuration = 600 * time.Millisecond

// Surface is the chart pane. Draw replaces its content, Update applies a
// spec to the chart already shown, Placeholder shows a message instead.
type Surface interface {
	Draw(spec *chart.Spec)
	Update(spec *chart.Spec)
	Placeholder(msg string)
}

// FlashDoneMsg ends the ribbon flash started by sample Seq.
type FlashDoneMsg struct{ Seq int }

// Pipeline is the only writer of the chart surface, metrics, live status and
// ribbon. Every method runs on the update loop.
type Pipeline struct {
	s       *Session
	surface Surface
	cal     *util.TradingCalendar
	now     func() time.Time
	log     *slog.Logger
}

// NewPipeline creates a render pipeline over s drawing to surface. cal may
// be nil, in which case the market label is omitted.
func NewPipeline(s *Session, surface Surface, cal *util.TradingCalendar, log *slog.Logger) *Pipeline {
	return &Pipeline{s: s, surface: surface, cal: cal, now: time.Now, log: log}
}

// ApplyTicker replaces the ribbon with sample, duplicated for looping, and
// starts the flash. The returned command ends the flash.
func (p *Pipeline) ApplyTicker(sample *stream.TickerSample) tea.Cmd {
	entries := make([]stream.TickerQuote, 0, 2*len(sample.Stocks))
	entries = append(entries, sample.Stocks...)
	entries = append(entries, sample.Stocks...)

	r := &p.s.Ribbon
	r.Entries = entries
	r.Timestamp = sample.Timestamp
	r.Flash = true
	r.flashSeq++
	seq := r.flashSeq
	return tea.Tick(FlashDuration, func(time.Time) tea.Msg { return FlashDoneMsg{Seq: seq} })
}

// ClearFlash ends the flash if no newer sample has restarted it.
func (p *Pipeline) ClearFlash(seq int) {
	if seq == p.s.Ribbon.flashSeq {
		p.s.Ribbon.Flash = false
	}
}

// liveAccepts reports whether a write for symbol may touch the live view.
func (p *Pipeline) liveAccepts(symbol string) bool {
	return p.s.Live.Active && p.s.Mode.Live && symbol == p.s.Symbol
}

// ApplyIntraday renders one chart feed sample. It is dropped unless live is
// active for the sample's symbol. The first write of a live session is a
// full draw; later ones update in place. Each sample replaces the previous
// series entirely.
func (p *Pipeline) ApplyIntraday(feed stream.FeedID, sample *stream.IntradaySample) bool {
	if !p.liveAccepts(feed.Symbol) {
		p.log.Debug("dropping intraday sample", "feed", feed.String(), "active", p.s.Live.Active)
		return false
	}
	spec := chart.BuildIntraday(chart.Intraday{
		Symbol:    feed.Symbol,
		Date:      sample.Date,
		Times:     sample.Times,
		Prices:    sample.Prices,
		Price:     sample.Price,
		Open:      sample.Open,
		Change:    sample.Change,
		ChangePct: sample.ChangePct,
	})
	p.drawLive(spec)
	p.setStatus(feed.Symbol, sample.Price, sample.Change, sample.ChangePct, sample.High, sample.Low, sample.Timestamp)
	return true
}

// ApplySnapshot renders the on-demand snapshot fetched when Live was
// entered. It is dropped if live was left or re-entered since the request.
func (p *Pipeline) ApplySnapshot(symbol string, epoch int, resp *api.LiveChartResponse) bool {
	if !p.liveAccepts(symbol) || epoch != p.s.Live.Epoch {
		p.log.Debug("dropping stale snapshot", "symbol", symbol, "epoch", epoch)
		return false
	}
	spec, err := chart.FromPlotly(resp.Chart)
	switch {
	case err != nil:
		p.log.Warn("snapshot chart undecodable", "symbol", symbol, "error", err)
	case spec.Empty():
	default:
		p.drawLive(spec)
	}
	p.s.Live.InitializedByFetch = true
	p.setStatus(symbol, resp.Price, resp.Change, resp.ChangePct, resp.High, resp.Low, resp.Timestamp)
	return true
}

func (p *Pipeline) drawLive(spec *chart.Spec) {
	if p.s.Live.Drawn {
		p.surface.Update(spec)
		return
	}
	p.surface.Draw(spec)
	p.s.Live.Drawn = true
}

func (p *Pipeline) setStatus(symbol string, price, change, pct, high, low float64, ts string) {
	st := LiveStatus{
		Symbol:    symbol,
		Price:     price,
		Change:    change,
		ChangePct: pct,
		High:      high,
		Low:       low,
		Updated:   ts,
		Valid:     true,
	}
	if p.cal != nil {
		st.Market = p.cal.Session(p.now()).String()
	}
	p.s.Status = st
	if p.s.Metrics != nil {
		p.s.Metrics.CurrentPrice = price
	}
}

// ApplyStaticChart fully redraws the pane with the indicator's spec, or its
// placeholder when the spec is absent.
func (p *Pipeline) ApplyStaticChart(ind Indicator, spec *chart.Spec) {
	if spec.Empty() {
		p.surface.Placeholder(ind.PlaceholderText())
		return
	}
	p.surface.Draw(spec)
}

// ApplyMetrics replaces the metrics readout.
func (p *Pipeline) ApplyMetrics(m api.Metrics) {
	p.s.Metrics = &m
}

// ShowPlaceholder puts a message in the chart pane.
func (p *Pipeline) ShowPlaceholder(msg string) {
	p.surface.Placeholder(msg)
}

// ResetLiveStatus clears the live readout.
func (p *Pipeline) ResetLiveStatus() {
	p.s.Status = LiveStatus{}
}
