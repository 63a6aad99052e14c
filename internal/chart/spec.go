// Package chart holds the renderer-neutral chart specification, decoders
// that build it from backend figures and intraday samples, and a terminal
// surface that draws it.
package chart

import (
	"fmt"
	"math"
	"strings"
)

// SeriesKind selects how a series is drawn.
type SeriesKind int

const (
	Line SeriesKind = iota
	Bar
	Candle
	Pie
)

func (k SeriesKind) String() string {
	switch k {
	case Bar:
		return "bar"
	case Candle:
		return "candlestick"
	case Pie:
		return "pie"
	default:
		return "line"
	}
}

// Series is one trace. Y holds values (or closes for candles). X is set for
// numeric axes; otherwise points are evenly spaced and Labels names them.
// NaN in Y marks a gap.
type Series struct {
	Name   string
	Kind   SeriesKind
	X      []float64
	Labels []string
	Y      []float64

	Open, High, Low []float64

	Color     string
	UpColor   string
	DownColor string
	Dash      string
	Fill      string
	FillColor string
}

// Len is the number of points in the series.
func (s Series) Len() int { return len(s.Y) }

// XAt returns the x coordinate of point i.
func (s Series) XAt(i int) float64 {
	if i < len(s.X) {
		return s.X[i]
	}
	return float64(i)
}

// RefLine is a horizontal reference line with an optional label.
type RefLine struct {
	Y     float64
	Label string
	Color string
	Dash  bool
}

// Spec is a complete description of what the chart pane shows.
type Spec struct {
	Title    string
	XTitle   string
	YTitle   string
	Series   []Series
	RefLines []RefLine
}

// Empty reports whether the spec has nothing to plot.
func (s *Spec) Empty() bool {
	if s == nil {
		return true
	}
	for _, ser := range s.Series {
		if ser.Len() > 0 {
			return false
		}
	}
	return true
}

// Bounds returns the data extent over every cartesian series and reference
// line. ok is false when there is nothing finite to plot.
func (s *Spec) Bounds() (minX, maxX, minY, maxY float64, ok bool) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	see := func(x, y float64) {
		if math.IsNaN(y) || math.IsInf(y, 0) {
			return
		}
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
		ok = true
	}
	for _, ser := range s.Series {
		if ser.Kind == Pie {
			continue
		}
		for i, y := range ser.Y {
			x := ser.XAt(i)
			see(x, y)
			if ser.Kind == Candle {
				if i < len(ser.High) {
					see(x, ser.High[i])
				}
				if i < len(ser.Low) {
					see(x, ser.Low[i])
				}
			}
			if ser.Kind == Bar {
				see(x, 0)
			}
		}
	}
	if !ok {
		return 0, 0, 0, 0, false
	}
	for _, r := range s.RefLines {
		minY, maxY = math.Min(minY, r.Y), math.Max(maxY, r.Y)
	}
	return minX, maxX, minY, maxY, true
}

// Labels returns the category labels of the first series that has them.
func (s *Spec) Labels() []string {
	for _, ser := range s.Series {
		if len(ser.Labels) > 0 && len(ser.X) == 0 {
			return ser.Labels
		}
	}
	return nil
}

// Summary describes a spec in one line per series, for panes that list
// charts rather than draw them.
func Summary(s *Spec) []string {
	if s.Empty() {
		return nil
	}
	var out []string
	for _, ser := range s.Series {
		name := ser.Name
		if name == "" {
			name = ser.Kind.String()
		}
		switch ser.Kind {
		case Pie:
			var parts []string
			for i, v := range ser.Y {
				if i < len(ser.Labels) {
					parts = append(parts, fmt.Sprintf("%s %s", ser.Labels[i], Num(v)))
				}
			}
			out = append(out, fmt.Sprintf("%s: %s", name, strings.Join(parts, ", ")))
		default:
			last := math.NaN()
			for i := len(ser.Y) - 1; i >= 0; i-- {
				if !math.IsNaN(ser.Y[i]) {
					last = ser.Y[i]
					break
				}
			}
			if math.IsNaN(last) {
				out = append(out, fmt.Sprintf("%s: no data", name))
				continue
			}
			out = append(out, fmt.Sprintf("%s: %d points, last %.2f", name, ser.Len(), last))
		}
	}
	return out
}
