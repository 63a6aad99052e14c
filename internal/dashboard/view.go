package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"stockdash/internal/stream"
)

var (
	gainStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	symbolStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	priceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	flashStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("11"))
	liveStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("9"))
)

// ChangeStyle picks the gain or loss colour for a signed value. Zero is a
// gain.
func ChangeStyle(v float64) lipgloss.Style {
	if v >= 0 {
		return gainStyle
	}
	return lossStyle
}

func arrow(v float64) string {
	if v >= 0 {
		return "▲"
	}
	return "▼"
}

// ribbonCell is one rune of the ribbon strip with the style it renders in.
type ribbonCell struct {
	r     rune
	style int
}

const (
	cellPlain = iota
	cellSymbol
	cellPrice
	cellGain
	cellLoss
)

var cellStyles = [...]lipgloss.Style{
	cellPlain:  lipgloss.NewStyle(),
	cellSymbol: symbolStyle,
	cellPrice:  priceStyle,
	cellGain:   gainStyle,
	cellLoss:   lossStyle,
}

func appendCells(cells []ribbonCell, s string, style int) []ribbonCell {
	for _, r := range s {
		cells = append(cells, ribbonCell{r: r, style: style})
	}
	return cells
}

// ribbonCells lays out entries as one line of styled runes.
func ribbonCells(entries []stream.TickerQuote) []ribbonCell {
	var cells []ribbonCell
	for _, q := range entries {
		cells = appendCells(cells, q.Symbol, cellSymbol)
		cells = appendCells(cells, " ", cellPlain)
		cells = appendCells(cells, FormatPrice(q.Price), cellPrice)
		cells = appendCells(cells, " ", cellPlain)
		chg := cellGain
		if q.ChangePct < 0 {
			chg = cellLoss
		}
		cells = appendCells(cells, arrow(q.ChangePct)+FormatPct(q.ChangePct), chg)
		cells = appendCells(cells, "   ", cellPlain)
	}
	return cells
}

// RenderRibbon renders width columns of the ticker strip starting offset
// columns into it. The strip holds each quote twice, so offsets wrap at the
// length of the first copy and the window never runs dry.
func RenderRibbon(r Ribbon, offset, width int) string {
	if width <= 0 {
		return ""
	}
	if len(r.Entries) == 0 {
		return dimStyle.Render(padRight("Waiting for market data...", width))
	}
	cells := ribbonCells(r.Entries)
	loop := len(ribbonCells(r.Entries[:r.Len()]))
	if loop == 0 {
		return ""
	}
	start := offset % loop
	if start < 0 {
		start += loop
	}

	var b strings.Builder
	var run strings.Builder
	cur := -1
	flush := func() {
		if run.Len() > 0 {
			b.WriteString(cellStyles[cur].Render(run.String()))
			run.Reset()
		}
	}
	for i := 0; i < width; i++ {
		c := cells[(start+i)%len(cells)]
		if c.style != cur {
			flush()
			cur = c.style
		}
		run.WriteRune(c.r)
	}
	flush()
	return b.String()
}

// RenderRibbonStamp renders the "updated" timestamp, highlighted while the
// flash is on.
func RenderRibbonStamp(r Ribbon) string {
	if r.Timestamp == "" {
		return ""
	}
	text := " " + r.Timestamp + " "
	if r.Flash {
		return flashStyle.Render(text)
	}
	return dimStyle.Render(text)
}

// RenderMetrics renders the metrics readout for the analyzed symbol.
func RenderMetrics(s *Session) string {
	m := s.Metrics
	if m == nil {
		return dimStyle.Render("  Enter a symbol to analyze.")
	}
	var b strings.Builder
	title := m.Symbol
	if m.Name != "" {
		title += "  " + m.Name
	}
	b.WriteString(symbolStyle.Render(title))
	b.WriteString("\n")

	row := func(label, value string, style lipgloss.Style) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(style.Render(value))
		b.WriteString("\n")
	}
	row("Price", FormatPrice(m.CurrentPrice), priceStyle)
	row("Start", FormatPrice(m.StartPrice), priceStyle)
	row(fmt.Sprintf("ROI (%s)", periodOr(m.Period, s.Period)), FormatROI(m.ROI), ChangeStyle(m.ROI))
	row("52w High", FormatPrice(m.High52w), priceStyle)
	row("52w Low", FormatPrice(m.Low52w), priceStyle)
	row("Avg Volume", m.AvgVolume.String(), priceStyle)
	row("Market Cap", m.MarketCap.String(), priceStyle)
	row("P/E", m.PE.String(), priceStyle)
	row("EPS", m.EPS.String(), priceStyle)
	row("Dividend", m.Dividend.String(), priceStyle)
	row("Beta", m.Beta.String(), priceStyle)
	if m.Sector != "" {
		row("Sector", m.Sector, dimStyle)
	}
	if m.Industry != "" {
		row("Industry", m.Industry, dimStyle)
	}
	return strings.TrimRight(b.String(), "\n")
}

func periodOr(p, fallback string) string {
	if p != "" {
		return p
	}
	return fallback
}

// RenderLiveStatus renders the one-line live readout, or a connecting note
// before the first sample.
func RenderLiveStatus(s *Session) string {
	st := s.Status
	badge := liveStyle.Render(" LIVE ")
	if !st.Valid {
		return badge + dimStyle.Render(" connecting to "+s.Symbol+"...")
	}
	style := ChangeStyle(st.Change)
	parts := []string{
		badge,
		symbolStyle.Render(st.Symbol),
		priceStyle.Render(FormatPrice(st.Price)),
		style.Render(arrow(st.Change) + FormatChange(st.Change) + " (" + FormatPct(st.ChangePct) + ")"),
		dimStyle.Render("H " + FormatPrice(st.High) + "  L " + FormatPrice(st.Low)),
	}
	if st.Market != "" {
		parts = append(parts, dimStyle.Render(st.Market))
	}
	if st.Updated != "" {
		parts = append(parts, dimStyle.Render("updated "+st.Updated))
	}
	return strings.Join(parts, " ")
}

// RenderTabs renders the tab bar with the active tab highlighted.
func RenderTabs(mode Mode) string {
	active := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("6"))
	var parts []string
	for i, ind := range Indicators {
		label := fmt.Sprintf(" %d %s ", i+1, ind.Label())
		if !mode.Live && mode.Indicator == ind {
			parts = append(parts, active.Render(label))
		} else {
			parts = append(parts, dimStyle.Render(label))
		}
	}
	if mode.Live {
		parts = append(parts, liveStyle.Render(" L Live "))
	} else {
		parts = append(parts, dimStyle.Render(" L Live "))
	}
	return strings.Join(parts, "")
}

func padRight(s string, w int) string {
	n := lipgloss.Width(s)
	if n >= w {
		return s
	}
	return s + strings.Repeat(" ", w-n)
}
