package monitor

import (
	"fmt"
	"time"

	"github.com/newthinker/ashare/internal/core"
)

// Session is one continuous trading session in local minutes after midnight.
// Both ends are inclusive at minute resolution.
type Session struct {
	Open  int
	Close int
}

// ParseSession parses "HH:MM" bounds.
func ParseSession(openAt, closeAt string) (Session, error) {
	o, err := parseClock(openAt)
	if err != nil {
		return Session{}, err
	}
	c, err := parseClock(closeAt)
	if err != nil {
		return Session{}, err
	}
	if c <= o {
		return Session{}, fmt.Errorf("session %s-%s closes before it opens", openAt, closeAt)
	}
	return Session{Open: o, Close: c}, nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// DefaultSessions are the continuous auction sessions of SSE and SZSE.
func DefaultSessions() []Session {
	return []Session{
		{Open: 9*60 + 30, Close: 11*60 + 30},
		{Open: 13 * 60, Close: 15 * 60},
	}
}

// Calendar answers trading-hours questions in the exchange time zone.
// Exchange holidays are not modelled; every weekday is a trading day.
type Calendar struct {
	loc      *time.Location
	sessions []Session
}

// NewCalendar creates a calendar. A nil location means Asia/Shanghai and no
// sessions means DefaultSessions.
func NewCalendar(loc *time.Location, sessions []Session) Calendar {
	if loc == nil {
		loc = core.Shanghai
	}
	if len(sessions) == 0 {
		sessions = DefaultSessions()
	}
	return Calendar{loc: loc, sessions: sessions}
}

// Location returns the calendar's time zone.
func (c Calendar) Location() *time.Location {
	return c.loc
}

func (c Calendar) minuteOfDay(t time.Time) (int, bool) {
	local := t.In(c.loc)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return 0, false
	}
	return local.Hour()*60 + local.Minute(), true
}

// IsTradingTime reports whether t falls inside a session.
func (c Calendar) IsTradingTime(t time.Time) bool {
	m, ok := c.minuteOfDay(t)
	if !ok {
		return false
	}
	for _, s := range c.sessions {
		if m >= s.Open && m <= s.Close {
			return true
		}
	}
	return false
}

// AfterClose reports whether t is on a trading day past the last session.
func (c Calendar) AfterClose(t time.Time) bool {
	m, ok := c.minuteOfDay(t)
	if !ok {
		return false
	}
	last := 0
	for _, s := range c.sessions {
		if s.Close > last {
			last = s.Close
		}
	}
	return m > last
}

// StartOfDay returns local midnight of t's day.
func (c Calendar) StartOfDay(t time.Time) time.Time {
	local := t.In(c.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc)
}

// Day returns t's local date as YYYY-MM-DD.
func (c Calendar) Day(t time.Time) string {
	return t.In(c.loc).Format("2006-01-02")
}
