package chart

import (
	"fmt"
	"math"
	"strings"

	"github.com/NimbleMarkets/ntcharts/canvas"
	"github.com/NimbleMarkets/ntcharts/linechart"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	axisStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	labelStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	placeholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	defaultLineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)

// Minimum drawable plot area.
const (
	minPlotWidth  = 20
	minPlotHeight = 5
)

// Canvas is the terminal chart surface. Draw replaces whatever is shown and
// recomputes the axes; Update swaps the data of the current chart while
// keeping its axes unless the new data falls outside them.
type Canvas struct {
	width, height int

	spec        *Spec
	placeholder string

	// y range held across Update calls
	yMin, yMax float64
	hasRange   bool

	view    string
	draws   int
	updates int
}

// NewCanvas creates a surface of the given size showing nothing.
func NewCanvas(width, height int) *Canvas {
	c := &Canvas{width: width, height: height}
	c.render()
	return c
}

// Resize changes the surface size and redraws the current content.
func (c *Canvas) Resize(width, height int) {
	if width == c.width && height == c.height {
		return
	}
	c.width, c.height = width, height
	c.render()
}

// Draw performs a full redraw with spec.
func (c *Canvas) Draw(spec *Spec) {
	c.spec = spec
	c.placeholder = ""
	c.hasRange = false
	c.draws++
	c.render()
}

// Update applies spec to the chart already on the surface. With nothing
// drawn it behaves like Draw.
func (c *Canvas) Update(spec *Spec) {
	if c.spec == nil || c.placeholder != "" {
		c.Draw(spec)
		return
	}
	c.spec = spec
	c.updates++
	c.render()
}

// Placeholder replaces the chart with a message.
func (c *Canvas) Placeholder(msg string) {
	c.spec = nil
	c.placeholder = msg
	c.hasRange = false
	c.render()
}

// Spec returns the spec currently drawn, or nil.
func (c *Canvas) Spec() *Spec { return c.spec }

// PlaceholderText returns the message shown in place of a chart, if any.
func (c *Canvas) PlaceholderText() string { return c.placeholder }

// Counts reports how many full draws and in-place updates have happened.
func (c *Canvas) Counts() (draws, updates int) { return c.draws, c.updates }

// View returns the rendered surface.
func (c *Canvas) View() string { return c.view }

func (c *Canvas) render() {
	switch {
	case c.placeholder != "":
		c.view = c.centered(placeholderStyle.Render(c.placeholder))
	case c.spec.Empty():
		c.view = c.centered("")
	case c.spec.Series[0].Kind == Pie:
		c.view = c.renderPie()
	default:
		c.view = c.renderCartesian()
	}
}

func (c *Canvas) centered(s string) string {
	w, h := max(c.width, 1), max(c.height, 1)
	return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, s)
}

func (c *Canvas) renderCartesian() string {
	spec := c.spec
	minX, maxX, minY, maxY, ok := spec.Bounds()
	if !ok {
		return c.centered(placeholderStyle.Render("No data"))
	}

	if c.hasRange && minY >= c.yMin && maxY <= c.yMax {
		minY, maxY = c.yMin, c.yMax
	} else {
		pad := (maxY - minY) * 0.05
		if pad == 0 {
			pad = math.Max(math.Abs(maxY)*0.01, 1)
		}
		minY, maxY = minY-pad, maxY+pad
		if c.hasRange {
			minY, maxY = math.Min(minY, c.yMin), math.Max(maxY, c.yMax)
		}
		c.yMin, c.yMax, c.hasRange = minY, maxY, true
	}
	if maxX == minX {
		minX, maxX = minX-1, maxX+1
	}

	header := []string{titleStyle.Render(truncate(spec.Title, c.width))}
	if legend := c.legend(); legend != "" {
		header = append(header, legend)
	}
	footer := c.refLabels()

	plotH := c.height - len(header) - 1
	if footer != "" {
		plotH--
	}
	plotW := c.width
	if plotW < minPlotWidth || plotH < minPlotHeight {
		return c.centered(placeholderStyle.Render("Window too small for chart"))
	}

	labels := spec.Labels()
	lc := linechart.New(plotW, plotH, minX, maxX, minY, maxY,
		linechart.WithXYSteps(4, 4),
		linechart.WithXLabelFormatter(func(_ int, v float64) string {
			return xLabel(labels, v)
		}),
		linechart.WithYLabelFormatter(func(_ int, v float64) string {
			return yLabel(v)
		}),
		linechart.WithStyles(axisStyle, labelStyle, defaultLineStyle),
	)

	for _, r := range spec.RefLines {
		style := lipgloss.NewStyle().Foreground(TermColor(r.Color)).Faint(true)
		drawHLine(&lc, minX, maxX, r.Y, r.Dash, style)
	}
	for _, s := range spec.Series {
		switch s.Kind {
		case Bar:
			drawBars(&lc, s, minY, maxY)
		case Candle:
			drawCandles(&lc, s)
		default:
			drawLine(&lc, s, minY)
		}
	}
	lc.DrawXYAxisAndLabel()

	parts := append(header, lc.View())
	xTitle := spec.XTitle
	if spec.YTitle != "" {
		xTitle = strings.TrimSpace(xTitle + "  |  y: " + spec.YTitle)
	}
	parts = append(parts, labelStyle.Render(truncate(xTitle, c.width)))
	if footer != "" {
		parts = append(parts, footer)
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (c *Canvas) legend() string {
	if len(c.spec.Series) < 2 {
		return ""
	}
	var items []string
	width := 0
	for _, s := range c.spec.Series {
		if s.Name == "" {
			continue
		}
		item := "━ " + s.Name
		if width+lipgloss.Width(item)+2 > c.width {
			break
		}
		width += lipgloss.Width(item) + 2
		items = append(items, seriesStyle(s).Render(item))
	}
	return strings.Join(items, "  ")
}

func (c *Canvas) refLabels() string {
	var items []string
	for _, r := range c.spec.RefLines {
		if r.Label == "" {
			continue
		}
		items = append(items, lipgloss.NewStyle().Foreground(TermColor(r.Color)).Render("┄ "+r.Label))
	}
	return strings.Join(items, "  ")
}

func (c *Canvas) renderPie() string {
	s := c.spec.Series[0]
	total := 0.0
	for _, v := range s.Y {
		if !math.IsNaN(v) && v > 0 {
			total += v
		}
	}
	lines := []string{titleStyle.Render(truncate(c.spec.Title, c.width)), ""}
	barW := max(c.width-30, 10)
	for i, v := range s.Y {
		if math.IsNaN(v) || v < 0 {
			continue
		}
		share := 0.0
		if total > 0 {
			share = v / total
		}
		label := ""
		if i < len(s.Labels) {
			label = s.Labels[i]
		}
		bar := strings.Repeat("█", int(math.Round(share*float64(barW))))
		style := lipgloss.NewStyle().Foreground(pieColor(label, i))
		lines = append(lines, fmt.Sprintf("%-12s %s %5.1f%%", truncate(label, 12), style.Render(bar), share*100))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func seriesStyle(s Series) lipgloss.Style {
	if s.Color == "" {
		return defaultLineStyle
	}
	return lipgloss.NewStyle().Foreground(TermColor(s.Color))
}

func pieColor(label string, i int) lipgloss.TerminalColor {
	switch strings.ToLower(label) {
	case "positive":
		return lipgloss.Color(UpColor)
	case "negative":
		return lipgloss.Color(DownColor)
	case "neutral":
		return lipgloss.Color("#ffc107")
	}
	palette := []string{"12", "13", "14", "11", "10", "9"}
	return lipgloss.Color(palette[i%len(palette)])
}

func drawHLine(lc *linechart.Model, minX, maxX, y float64, dashed bool, style lipgloss.Style) {
	if !dashed {
		lc.DrawBrailleLineWithStyle(canvas.Float64Point{X: minX, Y: y}, canvas.Float64Point{X: maxX, Y: y}, style)
		return
	}
	const segments = 24
	step := (maxX - minX) / segments
	for i := 0; i < segments; i += 2 {
		x0 := minX + float64(i)*step
		lc.DrawBrailleLineWithStyle(canvas.Float64Point{X: x0, Y: y}, canvas.Float64Point{X: x0 + step, Y: y}, style)
	}
}

func drawLine(lc *linechart.Model, s Series, floor float64) {
	style := seriesStyle(s)
	if s.Fill != "" && s.Fill != "none" {
		fill := lipgloss.NewStyle().Foreground(TermColor(s.FillColor)).Faint(true)
		if s.FillColor == "" {
			fill = style.Faint(true)
		}
		for i, y := range s.Y {
			if math.IsNaN(y) {
				continue
			}
			x := s.XAt(i)
			lc.DrawBrailleLineWithStyle(canvas.Float64Point{X: x, Y: floor}, canvas.Float64Point{X: x, Y: y}, fill)
		}
	}
	for i := 0; i+1 < len(s.Y); i++ {
		y0, y1 := s.Y[i], s.Y[i+1]
		if math.IsNaN(y0) || math.IsNaN(y1) {
			continue
		}
		lc.DrawBrailleLineWithStyle(
			canvas.Float64Point{X: s.XAt(i), Y: y0},
			canvas.Float64Point{X: s.XAt(i + 1), Y: y1},
			style,
		)
	}
	if len(s.Y) == 1 && !math.IsNaN(s.Y[0]) {
		p := canvas.Float64Point{X: s.XAt(0), Y: s.Y[0]}
		lc.DrawBrailleLineWithStyle(p, p, style)
	}
}

func drawBars(lc *linechart.Model, s Series, minY, maxY float64) {
	style := seriesStyle(s)
	base := math.Min(math.Max(0, minY), maxY)
	for i, y := range s.Y {
		if math.IsNaN(y) {
			continue
		}
		x := s.XAt(i)
		lc.DrawBrailleLineWithStyle(canvas.Float64Point{X: x, Y: base}, canvas.Float64Point{X: x, Y: y}, style)
	}
}

func drawCandles(lc *linechart.Model, s Series) {
	up := lipgloss.NewStyle().Foreground(TermColor(firstNonEmpty(s.UpColor, UpColor)))
	down := lipgloss.NewStyle().Foreground(TermColor(firstNonEmpty(s.DownColor, DownColor)))
	for i, cl := range s.Y {
		if math.IsNaN(cl) || i >= len(s.High) || i >= len(s.Low) {
			continue
		}
		style := up
		if i < len(s.Open) && cl < s.Open[i] {
			style = down
		}
		x := s.XAt(i)
		lc.DrawBrailleLineWithStyle(canvas.Float64Point{X: x, Y: s.Low[i]}, canvas.Float64Point{X: x, Y: s.High[i]}, style)
	}
}

func xLabel(labels []string, v float64) string {
	if labels == nil {
		return yLabel(v)
	}
	idx := int(math.Round(v))
	if idx < 0 || idx >= len(labels) {
		return ""
	}
	l := labels[idx]
	// "2025-03-05 09:31" shows as the clock time.
	if sp := strings.LastIndexByte(l, ' '); sp >= 0 {
		return l[sp+1:]
	}
	return l
}

func yLabel(v float64) string {
	a := math.Abs(v)
	switch {
	case a >= 1e9:
		return fmt.Sprintf("%.1fB", v/1e9)
	case a >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case a >= 1e4:
		return fmt.Sprintf("%.0fK", v/1e3)
	case a >= 100:
		return fmt.Sprintf("%.1f", v)
	case a >= 1:
		return fmt.Sprintf("%.2f", v)
	default:
		return fmt.Sprintf("%.3f", v)
	}
}

func truncate(s string, n int) string {
	if n <= 0 || lipgloss.Width(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	for len(r) > 0 && lipgloss.Width(string(r)) > n {
		r = r[:len(r)-1]
	}
	return string(r)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
