package main

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"stockdash/internal/api"
	"stockdash/internal/chart"
	"stockdash/internal/dashboard"
	"stockdash/internal/stream"
	"stockdash/internal/util"
	"stockdash/internal/watchlist"
)

func newTestModel(t *testing.T) model {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := util.NewLoggerTo(io.Discard, "error")
	transport, err := stream.NewTransport("http://127.0.0.1:1", nil)
	if err != nil {
		t.Fatalf("NewTransport: %v", err)
	}
	streams := stream.NewManager(transport, logger)
	t.Cleanup(streams.Close)

	client := api.NewClient("http://127.0.0.1:1", time.Second)
	cal := util.NewTradingCalendar()
	canvas := chart.NewCanvas(40, 10)
	s := dashboard.NewSession("1y")
	pipe := dashboard.NewPipeline(s, canvas, cal, logger)
	policy := stream.Policy{TickerDelay: time.Second, ChartDelay: time.Second}
	ctrl := dashboard.NewController(ctx, s, pipe, client, streams, policy, logger)
	poller := dashboard.NewPoller(ctx, time.Minute, s, pipe, client, logger)

	m := newModel(modelDeps{
		ctx:       ctx,
		cancel:    cancel,
		client:    client,
		ctrl:      ctrl,
		poller:    poller,
		canvas:    canvas,
		cal:       cal,
		watchlist: watchlist.New(nil, "stockdash", logger),
		logger:    logger,
	})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(model)
}

func press(m model, key string) model {
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	next, _ := m.Update(msg)
	return next.(model)
}

func TestLiveWithoutSymbolPrompts(t *testing.T) {
	m := newTestModel(t)
	m = press(m, "l")
	if m.modal != "Analyze a stock first" {
		t.Fatalf("modal = %q, want analyze prompt", m.modal)
	}
	if m.s.Mode.Live {
		t.Error("entered live without an analyzed symbol")
	}
	// Other keys are swallowed until the prompt is dismissed.
	m = press(m, "n")
	if m.pane != paneChart {
		t.Errorf("pane = %v while prompt open, want chart", m.pane)
	}
	m = press(m, "enter")
	if m.modal != "" {
		t.Errorf("modal = %q after enter, want dismissed", m.modal)
	}
}

func TestEmptySymbolPrompts(t *testing.T) {
	m := newTestModel(t)
	m = press(m, "/")
	if m.focus != focusSymbol {
		t.Fatalf("focus = %v, want symbol input", m.focus)
	}
	m = press(m, "enter")
	if m.focus != focusNone {
		t.Errorf("focus = %v after submit, want none", m.focus)
	}
	if m.modal != "Please enter a stock symbol" {
		t.Errorf("modal = %q, want empty symbol prompt", m.modal)
	}
	if m.s.Loading {
		t.Error("analysis started for an empty symbol")
	}
}

func TestDetailPanesNeedSymbol(t *testing.T) {
	m := newTestModel(t)
	for _, k := range []string{"n", "s", "o", "w"} {
		m = press(m, k)
		if k == "w" {
			// No credentials: a banner rather than a prompt.
			if m.banner == "" || m.modal != "" {
				t.Errorf("w: banner = %q modal = %q", m.banner, m.modal)
			}
			continue
		}
		if m.modal == "" {
			t.Errorf("%s: no prompt without a symbol", k)
		}
		m = press(m, "esc")
	}
}

func TestPeriodCyclesWithoutSymbol(t *testing.T) {
	m := newTestModel(t)
	m = press(m, "p")
	if m.s.Period != "5y" {
		t.Errorf("Period = %q after 1y, want 5y", m.s.Period)
	}
	m = press(m, "p")
	m = press(m, "p")
	if m.s.Period != "1mo" {
		t.Errorf("Period = %q, want wrap to 1mo", m.s.Period)
	}
}

func TestBannerClearsOnlyForLatest(t *testing.T) {
	m := newTestModel(t)
	m.setBanner("first", true)
	first := m.bannerSeq
	m.setBanner("second", false)

	next, _ := m.Update(bannerDoneMsg{seq: first})
	m = next.(model)
	if m.banner != "second" {
		t.Errorf("banner = %q, stale clear removed the newer banner", m.banner)
	}
	next, _ = m.Update(bannerDoneMsg{seq: m.bannerSeq})
	m = next.(model)
	if m.banner != "" {
		t.Errorf("banner = %q, want cleared", m.banner)
	}
}

func TestFailureBanner(t *testing.T) {
	m := newTestModel(t)
	m.failure("news", &api.UpstreamError{Endpoint: "/api/news", StatusCode: 404, Message: "No data found for symbol ZZZZ"})
	if m.banner != "No data found for symbol ZZZZ" || !m.bannerErr {
		t.Errorf("banner = %q err=%v, want upstream message", m.banner, m.bannerErr)
	}
	m.failure("news", errors.New("connection refused"))
	if m.banner != "Failed to fetch news" {
		t.Errorf("banner = %q, want generic failure", m.banner)
	}
}

func TestChatReplyRendered(t *testing.T) {
	m := newTestModel(t)
	m = press(m, "c")
	if m.pane != paneChat || m.focus != focusChat {
		t.Fatalf("pane = %v focus = %v, want chat", m.pane, m.focus)
	}
	m.chat = append(m.chat, chatEntry{user: true, text: "what is rsi"})
	next, _ := m.Update(chatMsg{reply: "**RSI** measures momentum"})
	m = next.(model)
	if len(m.chat) != 2 || m.chat[1].user {
		t.Fatalf("chat = %+v", m.chat)
	}
	out := renderChat(m.chat, 80)
	if !strings.Contains(out, "RSI") || strings.Contains(out, "**") {
		t.Errorf("chat render = %q, want markup applied", out)
	}

	next, _ = m.Update(chatMsg{err: errors.New("boom")})
	m = next.(model)
	if last := m.chat[len(m.chat)-1]; !last.error {
		t.Errorf("last entry = %+v, want error entry", last)
	}
}

func TestRenderNews(t *testing.T) {
	r := &api.NewsResponse{
		News: []api.NewsItem{{Title: "Shares climb", Publisher: "Wire", Sentiment: "Positive", Score: 0.61}},
		Summary: api.SentimentSummary{
			Positive: 1, Overall: "Bullish 🟢", OverallScore: 1,
		},
	}
	out := renderNews("AAPL", r, 80)
	for _, want := range []string{"AAPL", "Shares climb", "Bullish", "Wire"} {
		if !strings.Contains(out, want) {
			t.Errorf("news render missing %q", want)
		}
	}
}

func TestViewLayout(t *testing.T) {
	m := newTestModel(t)
	out := m.View()
	if !strings.Contains(out, "stockdash") {
		t.Error("header missing")
	}
	if !strings.Contains(out, "Enter a symbol to analyze.") {
		t.Error("metrics placeholder missing")
	}
	if !strings.Contains(out, "Waiting for market data...") {
		t.Error("ribbon placeholder missing")
	}
}

func TestPadOrTrunc(t *testing.T) {
	if got := padOrTrunc("abc", 5); got != "abc  " {
		t.Errorf("padOrTrunc pad = %q", got)
	}
	if got := padOrTrunc("abcdef", 4); got != "abcd" {
		t.Errorf("padOrTrunc trunc = %q", got)
	}
	if got := capitalize("analyze a stock first"); got != "Analyze a stock first" {
		t.Errorf("capitalize = %q", got)
	}
}
