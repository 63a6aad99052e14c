package dashboard

import (
	"context"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"stockdash/internal/api"
)

// DefaultPollInterval is the static refresh period.
const DefaultPollInterval = 60 * time.Second

type (
	// PollTickMsg fires every poll interval.
	PollTickMsg time.Time
	// PollResultMsg is the result of one background refresh.
	PollResultMsg struct {
		Symbol string
		Period string
		Resp   *api.StockResponse
		Err    error
	}
)

// Poller refreshes metrics and the static chart cache for the analyzed
// symbol. It never draws over the live view and never reports failures.
type Poller struct {
	ctx      context.Context
	interval time.Duration
	s        *Session
	pipe     *Pipeline
	backend  Backend
	log      *slog.Logger
}

// NewPoller creates a poller. A non-positive interval uses the default.
func NewPoller(ctx context.Context, interval time.Duration, s *Session, pipe *Pipeline, backend Backend, log *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{ctx: ctx, interval: interval, s: s, pipe: pipe, backend: backend, log: log}
}

// Interval returns the refresh period.
func (p *Poller) Interval() time.Duration { return p.interval }

// Start schedules the first tick.
func (p *Poller) Start() tea.Cmd {
	return tea.Tick(p.interval, func(t time.Time) tea.Msg { return PollTickMsg(t) })
}

// HandleTick re-arms the poller and, with a symbol analyzed, fetches fresh
// data for the current symbol and period.
func (p *Poller) HandleTick() tea.Cmd {
	next := p.Start()
	if !p.s.HasSymbol() {
		return next
	}
	symbol, period, ctx, backend := p.s.Symbol, p.s.Period, p.ctx, p.backend
	fetch := func() tea.Msg {
		resp, err := backend.Stock(ctx, symbol, period)
		return PollResultMsg{Symbol: symbol, Period: period, Resp: resp, Err: err}
	}
	return tea.Batch(next, fetch)
}

// HandleResult updates metrics and the chart cache, and redraws the pane
// only in a static tab. Results for a symbol or period that is no longer
// current are dropped.
func (p *Poller) HandleResult(msg PollResultMsg) {
	if msg.Err != nil {
		p.log.Debug("static refresh failed", "symbol", msg.Symbol, "error", msg.Err)
		return
	}
	if msg.Symbol != p.s.Symbol || msg.Period != p.s.Period {
		return
	}
	p.s.Charts = decodeCharts(msg.Resp.Charts, p.log)
	p.pipe.ApplyMetrics(msg.Resp.Metrics)
	if p.s.Live.Active && p.s.Status.Valid && p.s.Metrics != nil {
		// Keep the price field in step with the live readout.
		p.s.Metrics.CurrentPrice = p.s.Status.Price
	}
	if !p.s.Mode.Live {
		ind := p.s.Mode.Indicator
		p.pipe.ApplyStaticChart(ind, p.s.Charts[ind])
	}
}
