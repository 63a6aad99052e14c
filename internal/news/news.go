// Package news supplies scored headlines for the news sentiment endpoint:
// fetching from Alpaca when credentials are present, lexicon scoring, and
// the summary the dashboard displays.
package news

import (
	"context"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

// Headline is a single news headline.
type Headline struct {
	Time      time.Time
	Publisher string
	Title     string
	Link      string
}

// Source returns recent headlines for a symbol, newest first.
type Source interface {
	Headlines(ctx context.Context, symbol string, limit int) ([]Headline, error)
}

// --- Alpaca ---

// NewsGetter is the part of the Alpaca marketdata client used here.
type NewsGetter interface {
	GetNews(req marketdata.GetNewsRequest) ([]marketdata.News, error)
}

// AlpacaSource reads headlines from the Alpaca news API.
type AlpacaSource struct {
	mdc      NewsGetter
	lookback time.Duration
}

// NewAlpacaClient returns a marketdata client for the given credentials.
func NewAlpacaClient(apiKey, apiSecret string) *marketdata.Client {
	return marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	})
}

// NewAlpacaSource wraps mdc. Headlines older than a week are not requested.
func NewAlpacaSource(mdc NewsGetter) *AlpacaSource {
	return &AlpacaSource{mdc: mdc, lookback: 7 * 24 * time.Hour}
}

func (s *AlpacaSource) Headlines(ctx context.Context, symbol string, limit int) ([]Headline, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	end := time.Now()
	items, err := s.mdc.GetNews(marketdata.GetNewsRequest{
		Symbols:    []string{symbol},
		Start:      end.Add(-s.lookback),
		End:        end,
		TotalLimit: limit,
		Sort:       marketdata.SortDesc,
	})
	if err != nil {
		return nil, err
	}
	out := make([]Headline, 0, len(items))
	for _, a := range items {
		if strings.TrimSpace(a.Headline) == "" {
			continue
		}
		pub := a.Author
		if pub == "" {
			pub = "Alpaca"
		}
		out = append(out, Headline{
			Time:      a.CreatedAt,
			Publisher: pub,
			Title:     a.Headline,
			Link:      a.URL,
		})
	}
	return out, nil
}

// --- Scoring ---

// Sentiment labels.
const (
	Positive = "Positive"
	Negative = "Negative"
	Neutral  = "Neutral"
)

// Compound scores at or beyond these bounds are not neutral.
const (
	positiveBound = 0.05
	negativeBound = -0.05
)

var lexicon = map[string]float64{
	"beat": 1.8, "beats": 1.8, "surge": 2.2, "surges": 2.2, "soar": 2.5, "soars": 2.5,
	"jump": 1.6, "jumps": 1.6, "rally": 2.0, "rallies": 2.0, "gain": 1.6, "gains": 1.6,
	"record": 1.4, "strong": 1.9, "growth": 1.7, "upgrade": 2.0, "upgraded": 2.0,
	"bullish": 2.3, "outperform": 1.9, "profit": 1.8, "win": 2.2, "wins": 2.2,
	"boost": 1.7, "boosts": 1.7, "raises": 1.2, "expands": 1.1, "breakthrough": 2.3,
	"miss": -1.8, "misses": -1.8, "plunge": -2.5, "plunges": -2.5, "fall": -1.5, "falls": -1.5,
	"drop": -1.6, "drops": -1.6, "slump": -2.1, "slumps": -2.1, "weak": -1.9, "loss": -1.9,
	"losses": -1.9, "downgrade": -2.0, "downgraded": -2.0, "bearish": -2.3, "lawsuit": -1.9,
	"probe": -1.4, "recall": -1.7, "cuts": -1.2, "layoffs": -2.0, "warns": -1.8, "fears": -1.9,
	"crash": -2.7, "decline": -1.6, "declines": -1.6, "concerns": -1.4, "risk": -1.1,
}

var negations = map[string]bool{"not": true, "no": true, "never": true, "without": true}

// Score returns a compound sentiment score in [-1, 1] for text.
func Score(text string) float64 {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	var sum float64
	for i, w := range words {
		v, ok := lexicon[w]
		if !ok {
			continue
		}
		if i > 0 && negations[words[i-1]] {
			v = -v * 0.74
		}
		sum += v
	}
	if sum == 0 {
		return 0
	}
	// Normalized the way VADER maps its raw sum into [-1, 1].
	return math.Round(sum/math.Sqrt(sum*sum+15)*10000) / 10000
}

// Classify labels a compound score.
func Classify(score float64) string {
	switch {
	case score >= positiveBound:
		return Positive
	case score <= negativeBound:
		return Negative
	}
	return Neutral
}

// Summary aggregates classified headlines.
type Summary struct {
	Positive     int
	Negative     int
	Neutral      int
	OverallScore float64
	Overall      string
}

// Summarize counts the labels and derives the overall reading. The overall
// score is (positive-negative)/total; above 0.2 is bullish and below -0.2
// bearish.
func Summarize(labels []string) Summary {
	var s Summary
	for _, l := range labels {
		switch l {
		case Positive:
			s.Positive++
		case Negative:
			s.Negative++
		default:
			s.Neutral++
		}
	}
	if total := len(labels); total > 0 {
		s.OverallScore = math.Round(float64(s.Positive-s.Negative)/float64(total)*100) / 100
	}
	switch {
	case s.OverallScore > 0.2:
		s.Overall = "Bullish 🟢"
	case s.OverallScore < -0.2:
		s.Overall = "Bearish 🔴"
	default:
		s.Overall = "Neutral 🟡"
	}
	return s
}
