package stream

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed marks a payload that decoded but cannot be rendered.
var ErrMalformed = errors.New("malformed sample")

// TickerQuote is one ribbon entry.
type TickerQuote struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Change    float64 `json:"change"`
	ChangePct float64 `json:"changePct"`
}

// TickerSample is one ticker push. Each sample replaces the previous ribbon
// entirely.
type TickerSample struct {
	Stocks    []TickerQuote `json:"stocks"`
	Timestamp string        `json:"timestamp"`
}

// IntradaySample is one chart push. It carries the complete series up to
// now, not a delta.
type IntradaySample struct {
	Times     []string  `json:"times"`
	Prices    []float64 `json:"prices"`
	Price     float64   `json:"price"`
	Open      float64   `json:"open"`
	Change    float64   `json:"change"`
	ChangePct float64   `json:"changePct"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Date      string    `json:"date"`
	Timestamp string    `json:"timestamp"`
}

// DecodeTicker parses a ticker payload. A payload without a stocks array is
// malformed.
func DecodeTicker(data []byte) (*TickerSample, error) {
	var raw struct {
		Stocks    *[]TickerQuote `json:"stocks"`
		Timestamp string         `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding ticker sample: %w", err)
	}
	if raw.Stocks == nil {
		return nil, fmt.Errorf("ticker sample without stocks: %w", ErrMalformed)
	}
	for i, q := range *raw.Stocks {
		if q.Symbol == "" {
			return nil, fmt.Errorf("ticker entry %d without symbol: %w", i, ErrMalformed)
		}
	}
	return &TickerSample{Stocks: *raw.Stocks, Timestamp: raw.Timestamp}, nil
}

// DecodeIntraday parses a chart payload. Mismatched times/prices lengths are
// malformed.
func DecodeIntraday(data []byte) (*IntradaySample, error) {
	var s IntradaySample
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding intraday sample: %w", err)
	}
	if len(s.Times) != len(s.Prices) {
		return nil, fmt.Errorf("intraday sample has %d times and %d prices: %w", len(s.Times), len(s.Prices), ErrMalformed)
	}
	return &s, nil
}

// Event is everything a connection reports: a decoded sample of its kind, or
// the transport failure that ended it. Exactly one field is set.
type Event struct {
	Ticker   *TickerSample
	Intraday *IntradaySample
	Err      error
}

func decodeFor(kind Kind, data []byte) (Event, error) {
	switch kind {
	case KindTicker:
		s, err := DecodeTicker(data)
		if err != nil {
			return Event{}, err
		}
		return Event{Ticker: s}, nil
	case KindChart:
		s, err := DecodeIntraday(data)
		if err != nil {
			return Event{}, err
		}
		return Event{Intraday: s}, nil
	}
	return Event{}, fmt.Errorf("unknown feed kind %v", kind)
}
