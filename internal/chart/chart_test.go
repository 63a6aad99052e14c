package chart

import (
	"encoding/base64"
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestBuildIntradayUp(t *testing.T) {
	spec := BuildIntraday(Intraday{
		Symbol:    "AAPL",
		Date:      "Mar 05, 2025",
		Times:     []string{"2025-03-05 09:30", "2025-03-05 09:31"},
		Prices:    []float64{100, 101.5},
		Price:     101.5,
		Open:      100,
		Change:    1.5,
		ChangePct: 1.5,
	})

	if spec.Title != "AAPL Live Intraday (Mar 05, 2025) - $101.5 (+1.5%)" {
		t.Errorf("Title = %q", spec.Title)
	}
	if len(spec.Series) != 1 {
		t.Fatalf("got %d series, want 1", len(spec.Series))
	}
	s := spec.Series[0]
	if s.Color != "#00c853" || s.FillColor != "rgba(0,200,83,0.1)" || s.Fill == "" {
		t.Errorf("up palette = %q / %q fill %q", s.Color, s.FillColor, s.Fill)
	}
	if len(spec.RefLines) != 1 || spec.RefLines[0].Y != 100 || spec.RefLines[0].Label != "Open $100" {
		t.Errorf("RefLines = %+v", spec.RefLines)
	}
	if !spec.RefLines[0].Dash {
		t.Error("open line not dashed")
	}
	if spec.XTitle != "Time" || spec.YTitle != "Price (USD)" {
		t.Errorf("axis titles = %q / %q", spec.XTitle, spec.YTitle)
	}
}

func TestBuildIntradayDownAndZero(t *testing.T) {
	down := BuildIntraday(Intraday{Symbol: "TSLA", Price: 95, Open: 100, Change: -5, ChangePct: -5})
	if down.Series[0].Color != "#ff1744" || down.Series[0].FillColor != "rgba(255,23,68,0.1)" {
		t.Errorf("down palette = %+v", down.Series[0])
	}
	if !strings.HasSuffix(down.Title, "$95 (-5%)") {
		t.Errorf("down title = %q", down.Title)
	}
	if !strings.Contains(down.Title, "(Today)") {
		t.Errorf("empty date not defaulted: %q", down.Title)
	}

	flat := BuildIntraday(Intraday{Symbol: "SPY", Price: 100, Open: 100})
	if flat.Series[0].Color != UpColor {
		t.Errorf("zero change coloured %q, want up", flat.Series[0].Color)
	}
	if !strings.HasSuffix(flat.Title, "(+0%)") {
		t.Errorf("zero change title = %q", flat.Title)
	}
}

func TestBuildIntradayCopiesInput(t *testing.T) {
	prices := []float64{1, 2}
	spec := BuildIntraday(Intraday{Symbol: "X", Times: []string{"a", "b"}, Prices: prices})
	prices[0] = 99
	if spec.Series[0].Y[0] != 1 {
		t.Error("spec aliases the caller's price slice")
	}
}

const liveFigure = `{
  "data": [{"type":"scatter","x":["2025-03-05 09:30","2025-03-05 09:31"],"y":[100,101.5],
            "mode":"lines","line":{"color":"#00c853","width":2.5},"fill":"tozeroy",
            "fillcolor":"rgba(0,200,83,0.1)","name":"Price"}],
  "layout": {"title":{"text":"AAPL Live Intraday (Today) - $101.5 (+1.5%)"},
             "xaxis":{"title":{"text":"Time"}},"yaxis":{"title":{"text":"Price (USD)"}},
             "shapes":[{"type":"line","xref":"x domain","x0":0,"x1":1,"y0":100,"y1":100,"line":{"color":"#64748b","dash":"dash"}}],
             "annotations":[{"text":"Open $100.0","y":100,"showarrow":false}]}
}`

func TestFromPlotlyLineWithHLine(t *testing.T) {
	spec, err := FromPlotly([]byte(liveFigure))
	if err != nil {
		t.Fatalf("FromPlotly: %v", err)
	}
	if spec.Title != "AAPL Live Intraday (Today) - $101.5 (+1.5%)" {
		t.Errorf("Title = %q", spec.Title)
	}
	if spec.XTitle != "Time" || spec.YTitle != "Price (USD)" {
		t.Errorf("axis titles = %q / %q", spec.XTitle, spec.YTitle)
	}
	s := spec.Series[0]
	if s.Kind != Line || len(s.Labels) != 2 || len(s.X) != 0 {
		t.Errorf("series = %+v", s)
	}
	if s.FillColor != "rgba(0,200,83,0.1)" || s.Color != "#00c853" {
		t.Errorf("colours = %q / %q", s.Color, s.FillColor)
	}
	if len(spec.RefLines) != 1 {
		t.Fatalf("RefLines = %+v", spec.RefLines)
	}
	r := spec.RefLines[0]
	if r.Y != 100 || r.Label != "Open $100.0" || !r.Dash {
		t.Errorf("ref line = %+v", r)
	}
}

func TestFromPlotlyCandleBarPie(t *testing.T) {
	candle := `{"data":[{"type":"candlestick","x":["2025-01-02","2025-01-03"],"open":[10,11],"high":[12,12.5],
		"low":[9.5,10.5],"close":[11,10.8],"increasing":{"line":{"color":"#00c853"}},"decreasing":{"line":{"color":"#ff1744"}}}],
		"layout":{"title":"AAPL Price"}}`
	spec, err := FromPlotly([]byte(candle))
	if err != nil {
		t.Fatalf("candle: %v", err)
	}
	c := spec.Series[0]
	if c.Kind != Candle || c.Y[1] != 10.8 || c.High[1] != 12.5 || c.UpColor != "#00c853" {
		t.Errorf("candle series = %+v", c)
	}
	if spec.Title != "AAPL Price" {
		t.Errorf("plain string title = %q", spec.Title)
	}
	_, _, minY, maxY, ok := spec.Bounds()
	if !ok || minY != 9.5 || maxY != 12.5 {
		t.Errorf("bounds y = %v..%v ok=%v", minY, maxY, ok)
	}

	bar := `{"data":[{"type":"bar","x":[150,155,160],"y":[1200,"800",null],"marker":{"color":"#00c853"},"name":"Call OI"}]}`
	spec, err = FromPlotly([]byte(bar))
	if err != nil {
		t.Fatalf("bar: %v", err)
	}
	b := spec.Series[0]
	if b.Kind != Bar || len(b.X) != 3 || b.X[2] != 160 || b.Color != "#00c853" {
		t.Errorf("bar series = %+v", b)
	}
	if b.Y[1] != 800 || !math.IsNaN(b.Y[2]) {
		t.Errorf("bar values = %v", b.Y)
	}

	pie := `{"data":[{"type":"pie","labels":["Positive","Negative","Neutral"],"values":[6,2,7]}],"layout":{"title":{"text":"Sentiment"}}}`
	spec, err = FromPlotly([]byte(pie))
	if err != nil {
		t.Fatalf("pie: %v", err)
	}
	if spec.Series[0].Kind != Pie || spec.Series[0].Labels[2] != "Neutral" {
		t.Errorf("pie series = %+v", spec.Series[0])
	}
	if lines := Summary(spec); len(lines) != 1 || !strings.Contains(lines[0], "Positive 6") {
		t.Errorf("Summary = %v", lines)
	}
}

func TestFromPlotlyTypedArray(t *testing.T) {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:], math.Float64bits(1.25))
	binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(-2.5))
	fig := `{"data":[{"type":"scatter","y":{"dtype":"f8","bdata":"` + base64.StdEncoding.EncodeToString(buf) + `"}}]}`

	spec, err := FromPlotly([]byte(fig))
	if err != nil {
		t.Fatalf("FromPlotly: %v", err)
	}
	y := spec.Series[0].Y
	if len(y) != 2 || y[0] != 1.25 || y[1] != -2.5 {
		t.Errorf("typed array decoded to %v", y)
	}
}

func TestFromPlotlyNullAndGarbage(t *testing.T) {
	spec, err := FromPlotly([]byte("null"))
	if spec != nil || err != nil {
		t.Errorf("null figure = %v, %v; want nil, nil", spec, err)
	}
	if _, err := FromPlotly([]byte("{oops")); err == nil {
		t.Error("garbage figure accepted")
	}
}

func TestCanvasDrawUpdatePlaceholder(t *testing.T) {
	c := NewCanvas(80, 20)

	c.Placeholder("Not enough data for RSI chart")
	if !strings.Contains(c.View(), "Not enough data for RSI chart") {
		t.Errorf("placeholder not rendered:\n%s", c.View())
	}

	// Update with nothing drawn falls back to a full draw.
	first := BuildIntraday(Intraday{Symbol: "AAPL", Times: []string{"a", "b"}, Prices: []float64{100, 101}, Price: 101, Open: 100, Change: 1, ChangePct: 1})
	c.Update(first)
	if d, u := c.Counts(); d != 1 || u != 0 {
		t.Errorf("counts after first update = %d/%d, want 1/0", d, u)
	}

	second := BuildIntraday(Intraday{Symbol: "AAPL", Times: []string{"a", "b", "c"}, Prices: []float64{100, 101, 100.5}, Price: 100.5, Open: 100, Change: 0.5, ChangePct: 0.5})
	c.Update(second)
	if d, u := c.Counts(); d != 1 || u != 1 {
		t.Errorf("counts after second update = %d/%d, want 1/1", d, u)
	}
	if c.Spec() != second {
		t.Error("surface does not hold the latest spec")
	}
	if !strings.Contains(c.View(), "AAPL Live Intraday") {
		t.Errorf("title missing from view:\n%s", c.View())
	}
	if !strings.Contains(c.View(), "Open $100") {
		t.Errorf("open label missing from view")
	}
	if c.PlaceholderText() != "" {
		t.Error("placeholder survived a draw")
	}
}

func TestCanvasTooSmall(t *testing.T) {
	c := NewCanvas(10, 4)
	c.Draw(BuildIntraday(Intraday{Symbol: "AAPL", Times: []string{"a", "b"}, Prices: []float64{1, 2}}))
	if !strings.Contains(c.View(), "too small") && lipgloss.Width(c.View()) > 10 {
		t.Errorf("small canvas overflowed:\n%s", c.View())
	}
}

func TestTermColor(t *testing.T) {
	cases := map[string]string{
		"#00c853":            "#00c853",
		"#fff":               "#ffffff",
		"rgba(255,23,68,0.1)": "#ff1744",
		"rgb(0, 200, 83)":    "#00c853",
		"white":              "#ffffff",
		"":                   "",
		"chartreuse-ish":     "",
	}
	for in, want := range cases {
		if got := cssHex(in); got != want {
			t.Errorf("cssHex(%q) = %q, want %q", in, got, want)
		}
	}
	if _, ok := TermColor("nonsense").(lipgloss.NoColor); !ok {
		t.Error("unknown colour did not map to NoColor")
	}
}
