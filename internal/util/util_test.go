package util

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLoggerToFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerTo(&buf, "warn")
	log.Info("hidden")
	log.Warn("shown", "symbol", "AAPL")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record written at warn level: %s", out)
	}
	if !strings.Contains(out, `"symbol":"AAPL"`) {
		t.Errorf("warn record missing attrs: %s", out)
	}
}

func TestNewFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.log")
	log, f, err := NewFileLogger(path, "stockdash", "debug")
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	log.Debug("stream opened", "feed", "ticker")
	f.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "stream opened") {
		t.Errorf("log file missing record: %q", data)
	}
}

func TestTradingCalendarWeekend(t *testing.T) {
	tc := NewTradingCalendar()
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	sat := time.Date(2025, time.March, 8, 12, 0, 0, 0, ny)
	if tc.IsTradingDay(sat) {
		t.Error("Saturday reported as trading day")
	}
	if tc.IsMarketOpen(sat) {
		t.Error("market reported open on Saturday")
	}
	if got := tc.Session(sat); got != SessionClosed {
		t.Errorf("Session(Saturday) = %v, want %v", got, SessionClosed)
	}
}

func TestTradingCalendarRegularSession(t *testing.T) {
	tc := NewTradingCalendar()
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// Wednesday, no holiday.
	open := time.Date(2025, time.March, 5, 11, 0, 0, 0, ny)
	if !tc.IsMarketOpen(open) {
		t.Error("market reported closed at 11:00 on a Wednesday")
	}
	early := time.Date(2025, time.March, 5, 7, 0, 0, 0, ny)
	if tc.IsMarketOpen(early) {
		t.Error("market reported open at 07:00")
	}
	if SessionOpen.String() != "market open" {
		t.Errorf("SessionOpen.String() = %q", SessionOpen.String())
	}
}
