package news

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

type fakeGetter struct {
	req   marketdata.GetNewsRequest
	items []marketdata.News
	err   error
}

func (f *fakeGetter) GetNews(req marketdata.GetNewsRequest) ([]marketdata.News, error) {
	f.req = req
	return f.items, f.err
}

func TestAlpacaHeadlines(t *testing.T) {
	created := time.Date(2025, 3, 5, 14, 0, 0, 0, time.UTC)
	f := &fakeGetter{items: []marketdata.News{
		{Headline: "Apple beats estimates", Author: "Benzinga", URL: "https://example.com/a", CreatedAt: created},
		{Headline: "  "},
		{Headline: "Apple faces probe"},
	}}
	got, err := NewAlpacaSource(f).Headlines(context.Background(), "AAPL", 8)
	if err != nil {
		t.Fatalf("Headlines: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want blank headline skipped", len(got))
	}
	if got[0].Publisher != "Benzinga" || got[0].Link != "https://example.com/a" || !got[0].Time.Equal(created) {
		t.Errorf("got[0] = %+v", got[0])
	}
	if got[1].Publisher != "Alpaca" {
		t.Errorf("got[1].Publisher = %q, want fallback", got[1].Publisher)
	}
	if len(f.req.Symbols) != 1 || f.req.Symbols[0] != "AAPL" || f.req.TotalLimit != 8 {
		t.Errorf("request = %+v", f.req)
	}
	if f.req.Sort != marketdata.SortDesc {
		t.Errorf("Sort = %v, want newest first", f.req.Sort)
	}
}

func TestAlpacaHeadlinesError(t *testing.T) {
	f := &fakeGetter{err: errors.New("forbidden")}
	if _, err := NewAlpacaSource(f).Headlines(context.Background(), "AAPL", 8); err == nil {
		t.Fatal("expected error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewAlpacaSource(&fakeGetter{}).Headlines(ctx, "AAPL", 8); err == nil {
		t.Fatal("expected context error")
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Shares surge after record quarter", Positive},
		{"Stock plunges on weak guidance", Negative},
		{"Company schedules annual meeting", Neutral},
		{"Results not strong enough", Negative},
	}
	for _, tt := range tests {
		s := Score(tt.text)
		if s < -1 || s > 1 {
			t.Errorf("Score(%q) = %v, out of range", tt.text, s)
		}
		if got := Classify(s); got != tt.want {
			t.Errorf("Classify(Score(%q)) = %s (%v), want %s", tt.text, got, s, tt.want)
		}
	}
}

func TestClassifyBounds(t *testing.T) {
	if Classify(0.05) != Positive || Classify(-0.05) != Negative || Classify(0.0499) != Neutral {
		t.Error("bounds are inclusive at +-0.05")
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]string{Positive, Positive, Positive, Negative, Neutral})
	if s.Positive != 3 || s.Negative != 1 || s.Neutral != 1 {
		t.Errorf("counts = %+v", s)
	}
	if s.OverallScore != 0.4 || s.Overall != "Bullish 🟢" {
		t.Errorf("overall = %v %q, want 0.4 bullish", s.OverallScore, s.Overall)
	}
	if s := Summarize([]string{Negative, Negative, Neutral}); s.Overall != "Bearish 🔴" {
		t.Errorf("overall = %q, want bearish", s.Overall)
	}
	if s := Summarize(nil); s.Overall != "Neutral 🟡" || s.OverallScore != 0 {
		t.Errorf("empty summary = %+v", s)
	}
}
