package monitor

import (
	"testing"
	"time"

	"github.com/newthinker/ashare/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(day, clock string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", day+" "+clock, core.Shanghai)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParseSession(t *testing.T) {
	s, err := ParseSession("09:30", "11:30")
	require.NoError(t, err)
	assert.Equal(t, Session{Open: 570, Close: 690}, s)

	_, err = ParseSession("9h30", "11:30")
	assert.Error(t, err)

	_, err = ParseSession("13:00", "11:30")
	assert.Error(t, err)
}

func TestCalendar_IsTradingTime(t *testing.T) {
	cal := NewCalendar(nil, nil)

	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"before open", at("2024-01-15", "09:29"), false},
		{"at open", at("2024-01-15", "09:30"), true},
		{"morning", at("2024-01-15", "10:15"), true},
		{"morning close inclusive", at("2024-01-15", "11:30"), true},
		{"lunch", at("2024-01-15", "12:00"), false},
		{"afternoon open", at("2024-01-15", "13:00"), true},
		{"close inclusive", at("2024-01-15", "15:00"), true},
		{"after close", at("2024-01-15", "15:01"), false},
		{"saturday", at("2024-01-13", "10:00"), false},
		{"sunday", at("2024-01-14", "10:00"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cal.IsTradingTime(tt.t))
		})
	}
}

func TestCalendar_ConvertsToLocation(t *testing.T) {
	cal := NewCalendar(nil, nil)

	// 02:00 UTC is 10:00 in Shanghai.
	utc := time.Date(2024, 1, 15, 2, 0, 0, 0, time.UTC)
	assert.True(t, cal.IsTradingTime(utc))
	assert.Equal(t, core.Shanghai, cal.Location())
}

func TestCalendar_AfterClose(t *testing.T) {
	cal := NewCalendar(nil, nil)

	assert.False(t, cal.AfterClose(at("2024-01-15", "12:00")))
	assert.False(t, cal.AfterClose(at("2024-01-15", "15:00")))
	assert.True(t, cal.AfterClose(at("2024-01-15", "15:01")))
	assert.True(t, cal.AfterClose(at("2024-01-15", "23:59")))
	assert.False(t, cal.AfterClose(at("2024-01-13", "16:00")))
}

func TestCalendar_CustomSessions(t *testing.T) {
	night, err := ParseSession("21:00", "23:00")
	require.NoError(t, err)
	cal := NewCalendar(time.UTC, []Session{night})

	assert.True(t, cal.IsTradingTime(time.Date(2024, 1, 15, 22, 0, 0, 0, time.UTC)))
	assert.False(t, cal.IsTradingTime(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)))
}

func TestCalendar_StartOfDayAndDay(t *testing.T) {
	cal := NewCalendar(nil, nil)
	now := at("2024-01-15", "10:42")

	assert.Equal(t, at("2024-01-15", "00:00"), cal.StartOfDay(now))
	assert.Equal(t, "2024-01-15", cal.Day(now))

	// 20:00 UTC on the 14th is already the 15th in Shanghai.
	assert.Equal(t, "2024-01-15", cal.Day(time.Date(2024, 1, 14, 20, 0, 0, 0, time.UTC)))
}
