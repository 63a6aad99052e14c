// Package stream opens and supervises the server-pushed market feeds: the
// multi-symbol ticker and the per-symbol intraday chart.
package stream

import (
	"fmt"
	"strings"
)

// Kind distinguishes the two push feeds. At most one handle per Kind is live
// at any time.
type Kind int

const (
	KindTicker Kind = iota
	KindChart
)

func (k Kind) String() string {
	switch k {
	case KindTicker:
		return "ticker"
	case KindChart:
		return "chart"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// FeedID names one feed. Symbol is empty for the ticker.
type FeedID struct {
	Kind   Kind
	Symbol string
}

// TickerFeed returns the ticker feed id.
func TickerFeed() FeedID { return FeedID{Kind: KindTicker} }

// ChartFeed returns the intraday chart feed id for symbol.
func ChartFeed(symbol string) FeedID {
	return FeedID{Kind: KindChart, Symbol: strings.ToUpper(strings.TrimSpace(symbol))}
}

// Path returns the URL path the feed is served on.
func (f FeedID) Path() string {
	if f.Kind == KindChart {
		return "/stream/chart/" + f.Symbol
	}
	return "/stream/ticker"
}

func (f FeedID) String() string {
	if f.Symbol == "" {
		return f.Kind.String()
	}
	return f.Kind.String() + ":" + f.Symbol
}
