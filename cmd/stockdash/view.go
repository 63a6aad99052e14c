package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"stockdash/internal/api"
	"stockdash/internal/chart"
	"stockdash/internal/dashboard"
	"stockdash/internal/markup"
)

// Styles.
var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("8"))
	errBanner    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("1"))
	infoBanner   = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("3"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("6"))
	symbolStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	gainStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	neutStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	userStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	modalStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("11")).
			Padding(1, 3)
)

const (
	metricsWidth = 34
	// header, ribbon, tabs or input, banner, footer
	chromeLines = 5
)

func (m *model) bodyHeight() int {
	h := m.height - chromeLines
	if h < 3 {
		h = 3
	}
	return h
}

// resize fits the chart canvas and the pane viewport to the window.
func (m *model) resize() {
	body := m.bodyHeight()
	cw := m.width - metricsWidth - 1
	if cw < 20 {
		cw = 20
	}
	// One line is taken by the live readout.
	m.canvas.Resize(cw, body-1)
	if !m.ready {
		m.viewport = viewport.New(m.width, body)
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = body
	}
}

func (m model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderRibbon())
	b.WriteString("\n")
	if m.focus != focusNone {
		b.WriteString(" " + m.input.View())
	} else {
		b.WriteString(dashboard.RenderTabs(m.s.Mode))
	}
	b.WriteString("\n")

	body := m.renderBody()
	if m.modal != "" {
		box := modalStyle.Render(m.modal + "\n\n" + dimStyle.Render("enter to dismiss"))
		body = lipgloss.Place(m.width, m.bodyHeight(), lipgloss.Center, lipgloss.Center, box)
	}
	b.WriteString(body)
	b.WriteString("\n")
	b.WriteString(m.renderBanner())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m model) renderHeader() string {
	now := time.Now()
	parts := []string{" stockdash"}
	if m.s.HasSymbol() {
		sym := m.s.Symbol
		if m.watchlist.Contains(sym) {
			sym += " *"
		}
		parts = append(parts, sym, m.s.Period)
	}
	if m.s.Loading {
		parts = append(parts, "loading...")
	}
	parts = append(parts,
		"market: "+m.cal.Session(now).String(),
		now.Format("15:04:05"),
	)
	return headerStyle.Render(padOrTrunc(strings.Join(parts, "    ")+" ", m.width))
}

func (m model) renderRibbon() string {
	stamp := dashboard.RenderRibbonStamp(m.s.Ribbon)
	w := m.width - lipgloss.Width(stamp) - 1
	if w < 10 {
		w = 10
	}
	return dashboard.RenderRibbon(m.s.Ribbon, m.ribbonOffset, w) + " " + stamp
}

func (m model) renderBody() string {
	if m.pane != paneChart {
		return m.viewport.View()
	}
	top := ""
	if m.s.Mode.Live {
		top = dashboard.RenderLiveStatus(m.s)
	}
	left := top + "\n" + m.canvas.View()
	right := lipgloss.NewStyle().Width(metricsWidth).Render(dashboard.RenderMetrics(m.s))
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right)
	return lipgloss.NewStyle().Height(m.bodyHeight()).MaxHeight(m.bodyHeight()).Render(body)
}

func (m model) renderBanner() string {
	if m.banner == "" {
		return ""
	}
	style := infoBanner
	if m.bannerErr {
		style = errBanner
	}
	return style.Render(padOrTrunc(" "+m.banner, m.width))
}

func (m model) renderFooter() string {
	left := " q quit  / symbol  p period  1-7 charts  l live  n news  s strategy  o options  c chat  w watch"
	if m.focus != focusNone {
		left = " enter submit  esc cancel"
	} else if m.pane != paneChart {
		left = " esc chart  up/dn pgup/dn scroll  c chat  q quit"
	}
	right := ""
	if m.pane != paneChart {
		right = fmt.Sprintf("%.0f%% ", m.viewport.ScrollPercent()*100)
	}
	gap := m.width - len(left) - len(right)
	if gap < 0 {
		gap = 0
	}
	return footerStyle.Render(padOrTrunc(left+strings.Repeat(" ", gap)+right, m.width))
}

// renderPane renders the scrollable detail pane.
func (m model) renderPane() string {
	switch m.pane {
	case paneNews:
		if m.news == nil {
			return loadingText("news", m.s.Symbol, m.fetching == paneNews)
		}
		return renderNews(m.s.Symbol, m.news, m.width)
	case paneStrategy:
		if m.strategy == nil {
			return loadingText("strategy", m.s.Symbol, m.fetching == paneStrategy)
		}
		return renderStrategy(m.strategy, m.width)
	case paneOptions:
		if m.options == nil {
			return loadingText("options", m.s.Symbol, m.fetching == paneOptions)
		}
		return renderOptions(m.options, m.width)
	case paneChat:
		return renderChat(m.chat, m.width)
	}
	return ""
}

func loadingText(what, symbol string, fetching bool) string {
	if fetching {
		return dimStyle.Render(fmt.Sprintf("  Loading %s for %s...", what, symbol))
	}
	return dimStyle.Render("  No " + what + " data.")
}

func section(b *strings.Builder, title string, width int) {
	b.WriteString(sectionStyle.Width(width).Render("  " + title))
	b.WriteString("\n")
}

func field(b *strings.Builder, label, value string, style lipgloss.Style) {
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %-18s", label)))
	b.WriteString(style.Render(value))
	b.WriteString("\n")
}

// signalStyle colours a signal by its wording.
func signalStyle(s string) lipgloss.Style {
	l := strings.ToLower(s)
	switch {
	case strings.Contains(l, "bull"), strings.Contains(l, "buy"), strings.Contains(l, "oversold"),
		strings.Contains(l, "positive"), strings.Contains(l, "golden"):
		return gainStyle
	case strings.Contains(l, "bear"), strings.Contains(l, "sell"), strings.Contains(l, "overbought"),
		strings.Contains(l, "negative"), strings.Contains(l, "death"):
		return lossStyle
	}
	return neutStyle
}

// chartLines lists the charts of a response as one line per series.
func chartLines(b *strings.Builder, charts map[string]json.RawMessage) {
	keys := make([]string, 0, len(charts))
	for k := range charts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		spec, err := chart.FromPlotly(charts[k])
		if err != nil || spec.Empty() {
			continue
		}
		title := spec.Title
		if title == "" {
			title = k
		}
		b.WriteString("  " + symbolStyle.Render(title) + "\n")
		for _, line := range chart.Summary(spec) {
			b.WriteString(dimStyle.Render("    "+line) + "\n")
		}
	}
}

func renderNews(symbol string, r *api.NewsResponse, width int) string {
	var b strings.Builder
	section(&b, "News sentiment  "+symbol, width)
	sum := r.Summary
	field(&b, "Overall", fmt.Sprintf("%s (%.2f)", sum.Overall, sum.OverallScore), signalStyle(sum.Overall))
	field(&b, "Positive", fmt.Sprint(sum.Positive), gainStyle)
	field(&b, "Negative", fmt.Sprint(sum.Negative), lossStyle)
	field(&b, "Neutral", fmt.Sprint(sum.Neutral), neutStyle)
	b.WriteString("\n")

	section(&b, "Headlines", width)
	if len(r.News) == 0 {
		b.WriteString(dimStyle.Render("  No recent news.") + "\n")
	}
	for _, n := range r.News {
		style := signalStyle(n.Sentiment)
		b.WriteString("  " + style.Render(fmt.Sprintf("%-8s %+.2f", n.Sentiment, n.Score)) + "  " + n.Title + "\n")
		meta := strings.TrimSpace(n.Publisher + "  " + n.Date)
		if meta != "" {
			b.WriteString(dimStyle.Render("                   "+meta) + "\n")
		}
	}
	if len(r.SentimentChart) > 0 {
		b.WriteString("\n")
		chartLines(&b, map[string]json.RawMessage{"sentiment": r.SentimentChart})
	}
	return b.String()
}

func renderStrategy(r *api.StrategyResponse, width int) string {
	var b strings.Builder
	st := r.Strategies
	section(&b, fmt.Sprintf("Strategy  %s  %s", r.Symbol, dashboard.FormatPrice(r.Price)), width)
	field(&b, "Overall", st.Overall, signalStyle(st.Overall))
	field(&b, "MA crossover", st.MACrossover, signalStyle(st.MACrossover))
	field(&b, "Support", st.Support.String(), gainStyle)
	field(&b, "Resistance", st.Resistance.String(), lossStyle)
	b.WriteString("\n")

	section(&b, "Indicators", width)
	field(&b, "RSI", st.RSI.Value.String(), symbolStyle)
	field(&b, "", st.RSI.Signal, signalStyle(st.RSI.Signal))
	field(&b, "MACD", fmt.Sprintf("%s  signal %s  hist %s", st.MACD.MACD, st.MACD.Signal, st.MACD.Histogram), symbolStyle)
	field(&b, "", st.MACD.Interpretation, signalStyle(st.MACD.Interpretation))
	field(&b, "Bollinger", fmt.Sprintf("%s / %s / %s", st.Bollinger.Lower, st.Bollinger.SMA, st.Bollinger.Upper), symbolStyle)
	field(&b, "", st.Bollinger.Signal, signalStyle(st.Bollinger.Signal))

	if len(r.Charts) > 0 {
		b.WriteString("\n")
		section(&b, "Charts", width)
		chartLines(&b, r.Charts)
	}
	return b.String()
}

func renderOptions(r *api.OptionsResponse, width int) string {
	var b strings.Builder
	section(&b, fmt.Sprintf("Options  %s  %s  exp %s", r.Symbol, dashboard.FormatPrice(r.Price), r.Expiration), width)

	pc := r.PutCall
	field(&b, "Call volume", pc.CallVolume.String(), gainStyle)
	field(&b, "Put volume", pc.PutVolume.String(), lossStyle)
	field(&b, "Call OI", pc.CallOI.String(), gainStyle)
	field(&b, "Put OI", pc.PutOI.String(), lossStyle)
	field(&b, "P/C volume", pc.RatioVolume.String(), symbolStyle)
	field(&b, "P/C OI", pc.RatioOI.String(), symbolStyle)
	field(&b, "", pc.Signal, signalStyle(pc.Signal))
	b.WriteString("\n")

	section(&b, "Implied volatility", width)
	field(&b, "Call IV", r.IV.CallIV.String(), symbolStyle)
	field(&b, "Put IV", r.IV.PutIV.String(), symbolStyle)
	field(&b, "Average", r.IV.AvgIV.String(), symbolStyle)
	field(&b, "", r.IV.Signal, signalStyle(r.IV.Signal))
	b.WriteString("\n")

	ic := r.IronCondor
	section(&b, "Iron condor", width)
	field(&b, "Buy put", ic.BuyPut.String(), lossStyle)
	field(&b, "Sell put", ic.SellPut.String(), gainStyle)
	field(&b, "Sell call", ic.SellCall.String(), gainStyle)
	field(&b, "Buy call", ic.BuyCall.String(), lossStyle)
	field(&b, "Net credit", ic.NetCredit.String(), gainStyle)
	field(&b, "Max loss", ic.MaxLoss.String(), lossStyle)
	field(&b, "", ic.Signal, dimStyle)

	if len(r.Charts) > 0 {
		b.WriteString("\n")
		section(&b, "Charts", width)
		chartLines(&b, r.Charts)
	}
	return b.String()
}

func renderChat(entries []chatEntry, width int) string {
	var b strings.Builder
	section(&b, "Assistant", width)
	if len(entries) == 0 {
		b.WriteString(dimStyle.Render("  Ask about a symbol, an indicator, or a term like RSI or P/E.") + "\n")
		return b.String()
	}
	st := markup.DefaultStyles()
	w := width - 4
	if w < 20 {
		w = 20
	}
	for _, e := range entries {
		switch {
		case e.user:
			b.WriteString(userStyle.Render("  you: ") + e.text + "\n")
		case e.error:
			b.WriteString(lossStyle.Render("  "+e.text) + "\n")
		default:
			for _, line := range strings.Split(markup.Wrap(e.text, w, st), "\n") {
				b.WriteString("  " + line + "\n")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// padOrTrunc pads s with spaces to width, or truncates if longer.
func padOrTrunc(s string, width int) string {
	n := lipgloss.Width(s)
	if n >= width {
		r := []rune(s)
		if len(r) > width {
			r = r[:width]
		}
		return string(r)
	}
	return s + strings.Repeat(" ", width-n)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
