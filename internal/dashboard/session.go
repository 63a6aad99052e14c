// Package dashboard holds the dashboard session, the chart mode controller
// that owns tab switches, the render pipeline that is the only writer of
// the chart pane and readouts, and the static refresh poller.
package dashboard

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"stockdash/internal/api"
	"stockdash/internal/chart"
	"stockdash/internal/stream"
)

// ErrNoSymbol is returned when Live is selected before any analysis.
var ErrNoSymbol = errors.New("analyze a stock first")

// ErrEmptySymbol is returned when an analysis is requested without a symbol.
var ErrEmptySymbol = errors.New("please enter a stock symbol")

// Indicator is one static chart tab.
type Indicator string

const (
	Price     Indicator = "price"
	ROI       Indicator = "roi"
	Volume    Indicator = "volume"
	MA        Indicator = "ma"
	RSI       Indicator = "rsi"
	MACD      Indicator = "macd"
	Bollinger Indicator = "bollinger"
)

// Indicators lists the static tabs in display order.
var Indicators = []Indicator{Price, ROI, Volume, MA, RSI, MACD, Bollinger}

// Label is the tab caption.
func (i Indicator) Label() string {
	switch i {
	case Price:
		return "Price"
	case ROI:
		return "ROI"
	case Volume:
		return "Volume"
	case MA:
		return "Moving Avg"
	case RSI:
		return "RSI"
	case MACD:
		return "MACD"
	case Bollinger:
		return "Bollinger"
	}
	return string(i)
}

// PlaceholderText is shown when the indicator has no chart.
func (i Indicator) PlaceholderText() string {
	return "Not enough data for " + strings.ToUpper(string(i)) + " chart"
}

// Mode is the chart pane's state: a static indicator or live.
type Mode struct {
	Live      bool
	Indicator Indicator
}

// StaticMode returns Static(ind).
func StaticMode(ind Indicator) Mode { return Mode{Indicator: ind} }

// LiveMode returns Live.
func LiveMode() Mode { return Mode{Live: true} }

func (m Mode) String() string {
	if m.Live {
		return "live"
	}
	return "static(" + string(m.Indicator) + ")"
}

// LiveState gates every write from the chart feed and snapshot fetch.
// Active=false turns in-flight and future samples into no-ops. Epoch counts
// live entries so a snapshot requested for an earlier entry is ignored.
type LiveState struct {
	Active             bool
	InitializedByFetch bool
	Drawn              bool
	Epoch              int
}

// Ribbon is the ticker strip. Entries holds the latest sample twice over so
// the view can scroll it as a seamless loop.
type Ribbon struct {
	Entries   []stream.TickerQuote
	Timestamp string
	Flash     bool
	flashSeq  int
}

// Len is the number of distinct quotes in the ribbon.
func (r Ribbon) Len() int { return len(r.Entries) / 2 }

// LiveStatus is the compact readout shown while Live.
type LiveStatus struct {
	Symbol    string
	Price     float64
	Change    float64
	ChangePct float64
	High      float64
	Low       float64
	Updated   string
	Market    string
	Valid     bool
}

// Session is the single owned aggregate of dashboard state. It is only
// mutated from the program's update loop.
type Session struct {
	Symbol  string
	Period  string
	Mode    Mode
	Live    LiveState
	Metrics *api.Metrics
	Charts  map[Indicator]*chart.Spec
	Ribbon  Ribbon
	Status  LiveStatus
	Loading bool

	analysisSeq int
}

// NewSession returns an empty session for the given default period.
func NewSession(period string) *Session {
	return &Session{
		Period: period,
		Mode:   StaticMode(Price),
		Charts: make(map[Indicator]*chart.Spec),
	}
}

// HasSymbol reports whether an analysis has completed.
func (s *Session) HasSymbol() bool { return s.Symbol != "" }

// decodeCharts turns the backend's per-indicator figures into specs. Keys
// outside the indicator set are ignored; undecodable figures are absent.
func decodeCharts(raw map[string]json.RawMessage, log *slog.Logger) map[Indicator]*chart.Spec {
	out := make(map[Indicator]*chart.Spec, len(raw))
	for _, ind := range Indicators {
		fig, ok := raw[string(ind)]
		if !ok {
			continue
		}
		spec, err := chart.FromPlotly(fig)
		if err != nil {
			log.Warn("dropping undecodable chart", "indicator", ind, "error", err)
			continue
		}
		if spec != nil {
			out[ind] = spec
		}
	}
	return out
}
