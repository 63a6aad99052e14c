package api

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Periods lists the history windows /api/stock accepts, shortest first.
var Periods = []string{"1mo", "3mo", "6mo", "1y", "5y", "max"}

// Figure holds a metric the backend may send as a number or as text
// ("N/A", "1.23%", "2.8T"). Raw keeps the value as sent.
type Figure struct {
	Raw   string
	Value float64
	IsNum bool
}

// UnmarshalJSON accepts numbers, strings and null.
func (f *Figure) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = Figure{Raw: "N/A"}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = Figure{Raw: s}
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*f = Figure{Raw: string(b), Value: v, IsNum: true}
	return nil
}

// MarshalJSON writes the value back in the form it arrived in.
func (f Figure) MarshalJSON() ([]byte, error) {
	if f.IsNum {
		return []byte(strconv.FormatFloat(f.Value, 'f', -1, 64)), nil
	}
	if f.Raw == "" {
		return []byte(`"N/A"`), nil
	}
	return json.Marshal(f.Raw)
}

// String renders numbers with two decimals and text as-is.
func (f Figure) String() string {
	if f.IsNum {
		return strconv.FormatFloat(f.Value, 'f', 2, 64)
	}
	if f.Raw == "" {
		return "N/A"
	}
	return f.Raw
}

// Num returns a numeric Figure.
func Num(v float64) Figure { return Figure{Raw: strconv.FormatFloat(v, 'f', -1, 64), Value: v, IsNum: true} }

// Text returns a textual Figure.
func Text(s string) Figure { return Figure{Raw: s} }

// ---------------------------------------------------------------------------
// /api/stock
// ---------------------------------------------------------------------------

// StockRequest is the body of an analysis request.
type StockRequest struct {
	Symbol string `json:"symbol"`
	Period string `json:"period"`
}

// Metrics are the key figures shown in the metrics pane.
type Metrics struct {
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	CurrentPrice float64 `json:"currentPrice"`
	StartPrice   float64 `json:"startPrice"`
	ROI          float64 `json:"roi"`
	High52w      float64 `json:"high52w"`
	Low52w       float64 `json:"low52w"`
	AvgVolume    Figure  `json:"avgVolume"`
	MarketCap    Figure  `json:"marketCap"`
	PE           Figure  `json:"pe"`
	EPS          Figure  `json:"eps"`
	Dividend     Figure  `json:"dividend"`
	Sector       string  `json:"sector"`
	Industry     string  `json:"industry"`
	Beta         Figure  `json:"beta"`
	Period       string  `json:"period"`
}

// StockResponse carries metrics plus one Plotly figure per indicator key
// (price, roi, volume, ma, rsi, macd, bollinger). Indicators without enough
// history are absent.
type StockResponse struct {
	Metrics Metrics                    `json:"metrics"`
	Charts  map[string]json.RawMessage `json:"charts"`
}

// ---------------------------------------------------------------------------
// /api/news
// ---------------------------------------------------------------------------

// SymbolRequest is the body of the single-symbol endpoints.
type SymbolRequest struct {
	Symbol string `json:"symbol"`
}

// NewsItem is one scored headline.
type NewsItem struct {
	Title     string  `json:"title"`
	Publisher string  `json:"publisher"`
	Link      string  `json:"link"`
	Date      string  `json:"date"`
	Sentiment string  `json:"sentiment"`
	Score     float64 `json:"score"`
}

// SentimentSummary aggregates headline sentiment.
type SentimentSummary struct {
	Positive     int     `json:"positive"`
	Negative     int     `json:"negative"`
	Neutral      int     `json:"neutral"`
	Overall      string  `json:"overall"`
	OverallScore float64 `json:"overallScore"`
}

// NewsResponse is the result of a news sentiment request.
type NewsResponse struct {
	News           []NewsItem       `json:"news"`
	Summary        SentimentSummary `json:"summary"`
	SentimentChart json.RawMessage  `json:"sentimentChart"`
}

// ---------------------------------------------------------------------------
// /api/strategy
// ---------------------------------------------------------------------------

// RSISignal is the current RSI reading.
type RSISignal struct {
	Value  Figure `json:"value"`
	Signal string `json:"signal"`
}

// MACDSignal is the current MACD reading.
type MACDSignal struct {
	MACD           Figure `json:"macd"`
	Signal         Figure `json:"signal"`
	Histogram      Figure `json:"histogram"`
	Interpretation string `json:"interpretation"`
}

// BollingerSignal is the current band reading.
type BollingerSignal struct {
	Upper  Figure `json:"upper"`
	Lower  Figure `json:"lower"`
	SMA    Figure `json:"sma"`
	Signal string `json:"signal"`
}

// Strategies groups the per-indicator signals.
type Strategies struct {
	RSI         RSISignal       `json:"rsi"`
	MACD        MACDSignal      `json:"macd"`
	Bollinger   BollingerSignal `json:"bollinger"`
	Support     Figure          `json:"support"`
	Resistance  Figure          `json:"resistance"`
	MACrossover string          `json:"maCrossover"`
	Overall     string          `json:"overall"`
}

// StrategyResponse is the result of a strategy request.
type StrategyResponse struct {
	Symbol     string                     `json:"symbol"`
	Price      float64                    `json:"price"`
	Strategies Strategies                 `json:"strategies"`
	Charts     map[string]json.RawMessage `json:"charts"`
}

// ---------------------------------------------------------------------------
// /api/options
// ---------------------------------------------------------------------------

// PutCall summarises volume and open interest by side.
type PutCall struct {
	CallVolume  Figure `json:"callVolume"`
	PutVolume   Figure `json:"putVolume"`
	CallOI      Figure `json:"callOI"`
	PutOI       Figure `json:"putOI"`
	RatioVolume Figure `json:"ratioVolume"`
	RatioOI     Figure `json:"ratioOI"`
	Signal      string `json:"signal"`
}

// ImpliedVol summarises implied volatility.
type ImpliedVol struct {
	CallIV Figure `json:"callIV"`
	PutIV  Figure `json:"putIV"`
	AvgIV  Figure `json:"avgIV"`
	Signal string `json:"signal"`
}

// IronCondor is the suggested four-leg position.
type IronCondor struct {
	SellPut   Figure `json:"sellPut"`
	BuyPut    Figure `json:"buyPut"`
	SellCall  Figure `json:"sellCall"`
	BuyCall   Figure `json:"buyCall"`
	NetCredit Figure `json:"netCredit"`
	MaxLoss   Figure `json:"maxLoss"`
	Signal    string `json:"signal"`
}

// OptionsResponse is the result of an options analytics request.
type OptionsResponse struct {
	Symbol     string                     `json:"symbol"`
	Price      float64                    `json:"price"`
	Expiration string                     `json:"expiration"`
	PutCall    PutCall                    `json:"putCall"`
	IV         ImpliedVol                 `json:"iv"`
	IronCondor IronCondor                 `json:"ironCondor"`
	Charts     map[string]json.RawMessage `json:"charts"`
}

// ---------------------------------------------------------------------------
// /api/livechart
// ---------------------------------------------------------------------------

// LiveChartResponse is the on-demand intraday snapshot fetched when Live is
// entered.
type LiveChartResponse struct {
	Chart     json.RawMessage `json:"chart"`
	Price     float64         `json:"price"`
	Open      float64         `json:"open"`
	Change    float64         `json:"change"`
	ChangePct float64         `json:"changePct"`
	High      float64         `json:"high"`
	Low       float64         `json:"low"`
	Date      string          `json:"date,omitempty"`
	Timestamp string          `json:"timestamp"`
}

// ---------------------------------------------------------------------------
// /api/chat
// ---------------------------------------------------------------------------

// ChatRequest is the body of an assistant request.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse carries the assistant's reply with light inline markup.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// ErrorResponse is the body the backend sends with a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}
