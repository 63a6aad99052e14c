package feedsim

import (
	"math"

	"github.com/gin-gonic/gin"
)

// Plotly figures in the shape plotly.io.to_json produces. Missing points
// are null.

func nums(v []float64) []interface{} {
	out := make([]interface{}, len(v))
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		out[i] = round2(x)
	}
	return out
}

func titled(text string) gin.H { return gin.H{"text": text} }

func figure(title, xTitle, yTitle string, traces ...gin.H) gin.H {
	return gin.H{
		"data": traces,
		"layout": gin.H{
			"title":       titled(title),
			"xaxis":       gin.H{"title": titled(xTitle)},
			"yaxis":       gin.H{"title": titled(yTitle)},
			"template":    "plotly_dark",
			"shapes":      []gin.H{},
			"annotations": []gin.H{},
		},
	}
}

// withHLine adds a horizontal reference line with a label, the way
// fig.add_hline(annotation_text=...) serialises.
func withHLine(fig gin.H, y float64, color, dash, label string) gin.H {
	layout := fig["layout"].(gin.H)
	layout["shapes"] = append(layout["shapes"].([]gin.H), gin.H{
		"type": "line", "xref": "x domain", "x0": 0, "x1": 1,
		"yref": "y", "y0": y, "y1": y,
		"line": gin.H{"color": color, "dash": dash},
	})
	if label != "" {
		layout["annotations"] = append(layout["annotations"].([]gin.H), gin.H{
			"text": label, "xref": "x domain", "x": 1, "yref": "y", "y": y, "showarrow": false,
		})
	}
	return fig
}

func line(name string, x []string, y []float64, color string) gin.H {
	return gin.H{"type": "scatter", "mode": "lines", "name": name, "x": x, "y": nums(y), "line": gin.H{"color": color}}
}

func bars(name string, x []string, y []float64, colors []string) gin.H {
	t := gin.H{"type": "bar", "name": name, "x": x, "y": nums(y)}
	if colors != nil {
		t["marker"] = gin.H{"color": colors}
	}
	return t
}

func dates(b []Bar) []string {
	out := make([]string, len(b))
	for i, x := range b {
		out[i] = x.Date.Format("2006-01-02")
	}
	return out
}

func closes(b []Bar) []float64 {
	out := make([]float64, len(b))
	for i, x := range b {
		out[i] = x.Close
	}
	return out
}

// stockCharts builds the per-indicator figures. Indicators that need more
// history than the period has are left out.
func stockCharts(symbol string, b []Bar) map[string]gin.H {
	x, c := dates(b), closes(b)
	charts := map[string]gin.H{}

	opens, highs, lows := make([]float64, len(b)), make([]float64, len(b)), make([]float64, len(b))
	vols := make([]float64, len(b))
	volColors := make([]string, len(b))
	for i, bar := range b {
		opens[i], highs[i], lows[i], vols[i] = bar.Open, bar.High, bar.Low, bar.Volume
		volColors[i] = "#00c853"
		if bar.Close < bar.Open {
			volColors[i] = "#ff1744"
		}
	}
	charts["price"] = figure(symbol+" Price", "Date", "Price (USD)", gin.H{
		"type": "candlestick", "name": symbol, "x": x,
		"open": nums(opens), "high": nums(highs), "low": nums(lows), "close": nums(c),
		"increasing": gin.H{"line": gin.H{"color": "#00c853"}},
		"decreasing": gin.H{"line": gin.H{"color": "#ff1744"}},
	})

	roi := make([]float64, len(c))
	for i := range c {
		roi[i] = (c[i]/c[0] - 1) * 100
	}
	roiColor := "#00c853"
	if last(roi) < 0 {
		roiColor = "#ff1744"
	}
	roiFig := figure(symbol+" Return on Investment", "Date", "ROI (%)", line("ROI", x, roi, roiColor))
	roiFig["data"].([]gin.H)[0]["fill"] = "tozeroy"
	charts["roi"] = withHLine(roiFig, 0, "#64748b", "dash", "")

	charts["volume"] = figure(symbol+" Volume", "Date", "Volume", bars("Volume", x, vols, volColors))

	if len(c) >= 20 {
		traces := []gin.H{line("Close", x, c, "#38bdf8"), line("MA20", x, sma(c, 20), "#f59e0b")}
		if len(c) >= 50 {
			traces = append(traces, line("MA50", x, sma(c, 50), "#a855f7"))
		}
		charts["ma"] = figure(symbol+" Moving Averages", "Date", "Price (USD)", traces...)

		up, mid, lo := bollinger(c, 20, 2)
		charts["bollinger"] = figure(symbol+" Bollinger Bands", "Date", "Price (USD)",
			line("Upper", x, up, "#ff1744"),
			line("SMA20", x, mid, "#f59e0b"),
			line("Lower", x, lo, "#00c853"),
			line("Close", x, c, "#38bdf8"),
		)
	}

	if len(c) >= 15 {
		fig := figure(symbol+" RSI (14)", "Date", "RSI", line("RSI", x, rsi(c, 14), "#a855f7"))
		withHLine(fig, 70, "#ff1744", "dash", "Overbought (70)")
		charts["rsi"] = withHLine(fig, 30, "#00c853", "dash", "Oversold (30)")
	}

	if len(c) >= 35 {
		m, s, h := macd(c)
		histColors := make([]string, len(h))
		for i, v := range h {
			histColors[i] = "#00c853"
			if v < 0 {
				histColors[i] = "#ff1744"
			}
		}
		charts["macd"] = figure(symbol+" MACD", "Date", "MACD",
			line("MACD", x, m, "#38bdf8"),
			line("Signal", x, s, "#f59e0b"),
			bars("Histogram", x, h, histColors),
		)
	}
	return charts
}

// intradayFigure is the live chart: a filled line coloured by direction
// with a dashed line at the open.
func intradayFigure(q *Quote, date string) gin.H {
	color, fill := "#00c853", "rgba(0,200,83,0.1)"
	if q.Change() < 0 {
		color, fill = "#ff1744", "rgba(255,23,68,0.1)"
	}
	sign := "+"
	if q.ChangePct() < 0 {
		sign = ""
	}
	title := q.Symbol + " Live Intraday (" + date + ") - $" + fmtNum(q.Price) + " (" + sign + fmtNum(round2(q.ChangePct())) + "%)"
	trace := line(q.Symbol, q.Times, q.Prices, color)
	trace["fill"] = "tozeroy"
	trace["fillcolor"] = fill
	fig := figure(title, "Time", "Price (USD)", trace)
	return withHLine(fig, q.Open, "#64748b", "dash", "Open $"+fmtNum(q.Open))
}

func pie(title string, labels []string, values []float64, colors []string) gin.H {
	return figure(title, "", "", gin.H{
		"type": "pie", "labels": labels, "values": nums(values),
		"marker": gin.H{"colors": colors},
	})
}
