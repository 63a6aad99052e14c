package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"stockdash/internal/api"
	"stockdash/internal/chart"
	"stockdash/internal/dashboard"
	"stockdash/internal/util"
	"stockdash/internal/watchlist"
)

const bannerDuration = 5 * time.Second

// Detail panes shown instead of the chart.
type pane int

const (
	paneChart pane = iota
	paneNews
	paneStrategy
	paneOptions
	paneChat
)

// Input focus.
type focus int

const (
	focusNone focus = iota
	focusSymbol
	focusChat
)

// Messages.
type ribbonTickMsg time.Time

type bannerDoneMsg struct{ seq int }

type newsMsg struct {
	resp *api.NewsResponse
	err  error
}

type strategyMsg struct {
	resp *api.StrategyResponse
	err  error
}

type optionsMsg struct {
	resp *api.OptionsResponse
	err  error
}

type chatMsg struct {
	reply string
	err   error
}

type chatEntry struct {
	user  bool
	text  string
	error bool
}

type modelDeps struct {
	ctx         context.Context
	cancel      context.CancelFunc
	client      *api.Client
	ctrl        *dashboard.Controller
	poller      *dashboard.Poller
	canvas      *chart.Canvas
	cal         *util.TradingCalendar
	watchlist   *watchlist.Watchlist
	ribbonSpeed time.Duration
	logger      *slog.Logger
	initial     string
}

// Model.
type model struct {
	modelDeps
	s *dashboard.Session

	input    textinput.Model
	viewport viewport.Model
	focus    focus
	pane     pane

	ready         bool
	width, height int
	ribbonOffset  int

	banner    string
	bannerErr bool
	bannerSeq int
	modal     string

	news     *api.NewsResponse
	strategy *api.StrategyResponse
	options  *api.OptionsResponse
	chat     []chatEntry
	fetching pane
}

func newModel(d modelDeps) model {
	ti := textinput.New()
	ti.Placeholder = "Symbol (e.g. AAPL)"
	ti.CharLimit = 64
	ti.Width = 30
	ti.Prompt = "> "
	if d.ribbonSpeed <= 0 {
		d.ribbonSpeed = 150 * time.Millisecond
	}
	return model{
		modelDeps: d,
		s:         d.ctrl.Session(),
		input:     ti,
		fetching:  paneChart,
	}
}

func (m model) ribbonTick() tea.Cmd {
	return tea.Tick(m.ribbonSpeed, func(t time.Time) tea.Msg { return ribbonTickMsg(t) })
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.ctrl.StartTicker(),
		m.poller.Start(),
		m.ribbonTick(),
		textinput.Blink,
	}
	if m.watchlist.Configured() {
		wl := m.watchlist
		cmds = append(cmds, func() tea.Msg { return wl.Load() })
	}
	if m.initial != "" {
		if cmd, err := m.ctrl.Analyze(m.initial, ""); err == nil {
			cmds = append(cmds, cmd)
		}
	}
	return tea.Batch(cmds...)
}

// setBanner shows a transient message and schedules its removal.
func (m *model) setBanner(text string, isErr bool) tea.Cmd {
	m.bannerSeq++
	m.banner = text
	m.bannerErr = isErr
	seq := m.bannerSeq
	return tea.Tick(bannerDuration, func(time.Time) tea.Msg { return bannerDoneMsg{seq: seq} })
}

// failure turns a request error into a banner. Upstream messages are shown
// as sent; transport failures name what could not be fetched.
func (m *model) failure(what string, err error) tea.Cmd {
	var up *api.UpstreamError
	if errors.As(err, &up) {
		m.logger.Warn("upstream error", "what", what, "status", up.StatusCode, "message", up.Message)
		return m.setBanner(up.Message, true)
	}
	m.logger.Error("request failed", "what", what, "error", err)
	return m.setBanner("Failed to fetch "+what, true)
}

// userError reports input mistakes in a blocking prompt.
func (m *model) userError(err error) {
	m.modal = capitalize(err.Error())
}

func (m *model) refreshPane() {
	if m.ready && m.pane != paneChart {
		m.viewport.SetContent(m.renderPane())
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.ready = true
		m.refreshPane()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	// Dashboard traffic.
	case dashboard.AnalysisMsg:
		prev := m.s.Symbol
		if err := m.ctrl.AnalysisLoaded(msg); err != nil {
			return m, m.failure("stock data for "+msg.Symbol, err)
		}
		if m.s.Symbol != prev {
			m.pane = paneChart
			m.news, m.strategy, m.options = nil, nil, nil
		}
		return m, nil

	case dashboard.SnapshotMsg:
		if err := m.ctrl.SnapshotLoaded(msg); err != nil {
			return m, m.failure("live data for "+msg.Symbol, err)
		}
		return m, nil

	case dashboard.StreamEventMsg:
		return m, m.ctrl.HandleStreamEvent(msg)

	case dashboard.StreamClosedMsg:
		m.ctrl.HandleStreamClosed(msg)
		return m, nil

	case dashboard.RetryMsg:
		return m, m.ctrl.HandleRetry(msg)

	case dashboard.FlashDoneMsg:
		m.ctrl.ClearFlash(msg)
		return m, nil

	case dashboard.PollTickMsg:
		return m, m.poller.HandleTick()

	case dashboard.PollResultMsg:
		m.poller.HandleResult(msg)
		return m, nil

	// Detail panes.
	case newsMsg:
		m.fetching = paneChart
		if msg.err != nil {
			return m, m.failure("news", msg.err)
		}
		m.news = msg.resp
		m.refreshPane()
		return m, nil

	case strategyMsg:
		m.fetching = paneChart
		if msg.err != nil {
			return m, m.failure("strategy", msg.err)
		}
		m.strategy = msg.resp
		m.refreshPane()
		return m, nil

	case optionsMsg:
		m.fetching = paneChart
		if msg.err != nil {
			return m, m.failure("options data", msg.err)
		}
		m.options = msg.resp
		m.refreshPane()
		return m, nil

	case chatMsg:
		if msg.err != nil {
			var up *api.UpstreamError
			text := "Sorry, something went wrong. Please try again."
			if errors.As(msg.err, &up) {
				text = up.Message
			}
			m.logger.Warn("chat failed", "error", msg.err)
			m.chat = append(m.chat, chatEntry{text: text, error: true})
		} else {
			m.chat = append(m.chat, chatEntry{text: msg.reply})
		}
		m.refreshPane()
		m.viewport.GotoBottom()
		return m, nil

	// Watchlist.
	case watchlist.Loaded:
		if err := m.watchlist.ApplyLoaded(msg); err != nil {
			return m, m.setBanner("Watchlist unavailable", true)
		}
		return m, nil

	case watchlist.Toggled:
		if err := m.watchlist.ApplyToggled(msg); err != nil {
			return m, m.setBanner("Watchlist update failed for "+msg.Symbol, true)
		}
		verb := "Removed " + msg.Symbol + " from"
		if msg.Added {
			verb = "Added " + msg.Symbol + " to"
		}
		return m, m.setBanner(verb+" watchlist", false)

	// Chrome.
	case ribbonTickMsg:
		m.ribbonOffset++
		return m, m.ribbonTick()

	case bannerDoneMsg:
		if msg.seq == m.bannerSeq {
			m.banner = ""
		}
		return m, nil
	}

	if m.focus != focusNone {
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	if m.ready && m.pane != paneChart {
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	if msg.String() == "ctrl+c" {
		m.cancel()
		return m, tea.Quit
	}

	// A prompt blocks everything until dismissed.
	if m.modal != "" {
		switch msg.String() {
		case "enter", "esc":
			m.modal = ""
		}
		return m, nil
	}

	if m.focus != focusNone {
		switch msg.String() {
		case "esc":
			m.blur()
			return m, nil
		case "enter":
			text := m.input.Value()
			f := m.focus
			m.blur()
			if f == focusChat {
				return m, m.sendChat(text)
			}
			return m, m.analyze(text)
		}
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		m.cancel()
		return m, tea.Quit
	case "/", "a", "enter":
		m.focusInput(focusSymbol)
		return m, textinput.Blink
	case "esc":
		m.pane = paneChart
		return m, nil
	case "p":
		return m, m.nextPeriod()
	case "1", "2", "3", "4", "5", "6", "7":
		idx := int(msg.String()[0] - '1')
		m.pane = paneChart
		m.ctrl.SelectTab(dashboard.Indicators[idx])
		return m, nil
	case "l":
		m.pane = paneChart
		cmd, err := m.ctrl.SelectLiveTab()
		if err != nil {
			m.userError(err)
			return m, nil
		}
		return m, cmd
	case "n":
		return m, m.openPane(paneNews)
	case "s":
		return m, m.openPane(paneStrategy)
	case "o":
		return m, m.openPane(paneOptions)
	case "c":
		m.pane = paneChat
		m.refreshPane()
		m.focusInput(focusChat)
		return m, textinput.Blink
	case "w":
		if !m.watchlist.Configured() {
			return m, m.setBanner("Watchlist needs Alpaca credentials", true)
		}
		if !m.watchlist.Enabled() {
			return m, m.setBanner("Watchlist is still loading", false)
		}
		if !m.s.HasSymbol() {
			m.userError(dashboard.ErrNoSymbol)
			return m, nil
		}
		call := m.watchlist.Toggle(m.s.Symbol)
		if call == nil {
			return m, nil
		}
		return m, func() tea.Msg { return call() }
	}

	if m.ready && m.pane != paneChart {
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

func (m *model) focusInput(f focus) {
	m.focus = f
	m.input.Reset()
	if f == focusChat {
		m.input.Placeholder = "Ask about a stock or a term"
		m.input.CharLimit = 500
	} else {
		m.input.Placeholder = "Symbol (e.g. AAPL)"
		m.input.CharLimit = 64
	}
	m.input.Focus()
}

func (m *model) blur() {
	m.focus = focusNone
	m.input.Blur()
}

// analyze starts an analysis, or prompts when the symbol is empty.
func (m *model) analyze(symbol string) tea.Cmd {
	cmd, err := m.ctrl.Analyze(symbol, "")
	if err != nil {
		m.userError(err)
		return nil
	}
	return cmd
}

// nextPeriod cycles the analysis period and re-runs the analysis.
func (m *model) nextPeriod() tea.Cmd {
	next := api.Periods[0]
	for i, p := range api.Periods {
		if p == m.s.Period && i+1 < len(api.Periods) {
			next = api.Periods[i+1]
		}
	}
	if !m.s.HasSymbol() {
		m.s.Period = next
		return nil
	}
	cmd, err := m.ctrl.Analyze(m.s.Symbol, next)
	if err != nil {
		m.userError(err)
		return nil
	}
	return cmd
}

// openPane switches to a detail pane and fetches its data for the analyzed
// symbol.
func (m *model) openPane(p pane) tea.Cmd {
	if !m.s.HasSymbol() {
		m.userError(dashboard.ErrNoSymbol)
		return nil
	}
	m.pane = p
	m.fetching = p
	m.viewport.GotoTop()
	m.refreshPane()

	ctx, client, sym := m.ctx, m.client, m.s.Symbol
	switch p {
	case paneNews:
		m.news = nil
		return func() tea.Msg {
			resp, err := client.News(ctx, sym)
			return newsMsg{resp: resp, err: err}
		}
	case paneStrategy:
		m.strategy = nil
		return func() tea.Msg {
			resp, err := client.Strategy(ctx, sym)
			return strategyMsg{resp: resp, err: err}
		}
	case paneOptions:
		m.options = nil
		return func() tea.Msg {
			resp, err := client.Options(ctx, sym)
			return optionsMsg{resp: resp, err: err}
		}
	}
	return nil
}

func (m *model) sendChat(text string) tea.Cmd {
	if text == "" {
		return nil
	}
	m.chat = append(m.chat, chatEntry{user: true, text: text})
	m.refreshPane()
	m.viewport.GotoBottom()
	ctx, client := m.ctx, m.client
	return func() tea.Msg {
		reply, err := client.Chat(ctx, text)
		return chatMsg{reply: reply, err: err}
	}
}
