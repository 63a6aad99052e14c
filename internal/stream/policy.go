package stream

import "time"

// Default reconnect delays.
const (
	DefaultTickerRetry = 3000 * time.Millisecond
	DefaultChartRetry  = 2000 * time.Millisecond
)

// Policy decides whether and when a failed feed is reopened. Delays are
// fixed: no backoff and no attempt ceiling.
type Policy struct {
	TickerDelay time.Duration
	ChartDelay  time.Duration
}

// DefaultPolicy returns the 3s ticker / 2s chart policy.
func DefaultPolicy() Policy {
	return Policy{TickerDelay: DefaultTickerRetry, ChartDelay: DefaultChartRetry}
}

// OnError reports the delay before reopening feed and whether to reopen at
// all. The ticker always retries. The chart retries only while stillWanted;
// callers must ask again with a fresh stillWanted when the delay elapses.
func (p Policy) OnError(feed FeedID, stillWanted bool) (time.Duration, bool) {
	switch feed.Kind {
	case KindTicker:
		return p.TickerDelay, true
	case KindChart:
		if !stillWanted {
			return 0, false
		}
		return p.ChartDelay, true
	}
	return 0, false
}
