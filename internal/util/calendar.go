package util

import (
	"time"

	"github.com/scmhub/calendar"
)

// SessionState describes where the exchange is in its trading day.
type SessionState int

const (
	SessionClosed SessionState = iota
	SessionOpen
	SessionHoliday
)

func (s SessionState) String() string {
	switch s {
	case SessionOpen:
		return "market open"
	case SessionHoliday:
		return "market holiday"
	default:
		return "market closed"
	}
}

// TradingCalendar answers market-hours questions for the NYSE.
type TradingCalendar struct {
	cal *calendar.Calendar
	loc *time.Location
}

// NewTradingCalendar loads the NYSE calendar. When the calendar cannot be
// loaded it falls back to Mon-Fri 09:30-16:00 New York time.
func NewTradingCalendar() *TradingCalendar {
	tc := &TradingCalendar{}
	if cal := calendar.GetCalendar("xnys"); cal != nil {
		tc.cal = cal
		tc.loc = cal.Loc
	}
	if tc.loc == nil {
		loc, err := time.LoadLocation("America/New_York")
		if err != nil {
			loc = time.UTC
		}
		tc.loc = loc
	}
	return tc
}

// IsTradingDay reports whether t falls on an exchange business day.
func (tc *TradingCalendar) IsTradingDay(t time.Time) bool {
	t = t.In(tc.loc)
	if tc.cal != nil {
		return tc.cal.IsBusinessDay(t)
	}
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// IsMarketOpen reports whether the regular session is open at t.
func (tc *TradingCalendar) IsMarketOpen(t time.Time) bool {
	t = t.In(tc.loc)
	if tc.cal != nil {
		return tc.cal.IsOpen(t)
	}
	if !tc.IsTradingDay(t) {
		return false
	}
	mins := t.Hour()*60 + t.Minute()
	return mins >= 9*60+30 && mins < 16*60
}

// Session classifies t for display.
func (tc *TradingCalendar) Session(t time.Time) SessionState {
	if tc.IsMarketOpen(t) {
		return SessionOpen
	}
	wd := t.In(tc.loc).Weekday()
	if wd != time.Saturday && wd != time.Sunday && !tc.IsTradingDay(t) {
		return SessionHoliday
	}
	return SessionClosed
}
