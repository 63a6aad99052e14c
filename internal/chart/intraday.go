package chart

import (
	"fmt"
	"strconv"
)

// Live palette: up when change >= 0, down otherwise.
const (
	UpColor       = "#00c853"
	DownColor     = "#ff1744"
	UpFill        = "rgba(0,200,83,0.1)"
	DownFill      = "rgba(255,23,68,0.1)"
	OpenLineColor = "#64748b"
)

// Intraday is the input to the live chart builder. It mirrors one intraday
// sample or snapshot.
type Intraday struct {
	Symbol    string
	Date      string
	Times     []string
	Prices    []float64
	Price     float64
	Open      float64
	Change    float64
	ChangePct float64
}

// Palette returns the line and fill colours for a session change.
func Palette(change float64) (line, fill string) {
	if change >= 0 {
		return UpColor, UpFill
	}
	return DownColor, DownFill
}

// Num formats a backend number the way it was sent: no trailing zeros.
func Num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// IntradayTitle renders "SYM Live Intraday (date) - $price (+pct%)". The
// plus sign follows the change, not the percentage.
func IntradayTitle(symbol, date string, price, change, changePct float64) string {
	if date == "" {
		date = "Today"
	}
	sign := ""
	if change >= 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s Live Intraday (%s) - $%s (%s%s%%)", symbol, date, Num(price), sign, Num(changePct))
}

// OpenLabel is the reference line caption for the session open.
func OpenLabel(open float64) string {
	return "Open $" + Num(open)
}

// BuildIntraday returns the live chart spec: one filled price line coloured
// by direction and a dashed reference line at the open.
func BuildIntraday(in Intraday) *Spec {
	line, fill := Palette(in.Change)
	times := append([]string(nil), in.Times...)
	prices := append([]float64(nil), in.Prices...)
	return &Spec{
		Title:  IntradayTitle(in.Symbol, in.Date, in.Price, in.Change, in.ChangePct),
		XTitle: "Time",
		YTitle: "Price (USD)",
		Series: []Series{{
			Name:      "Price",
			Kind:      Line,
			Labels:    times,
			Y:         prices,
			Color:     line,
			Fill:      "tozeroy",
			FillColor: fill,
		}},
		RefLines: []RefLine{{
			Y:     in.Open,
			Label: OpenLabel(in.Open),
			Color: OpenLineColor,
			Dash:  true,
		}},
	}
}
