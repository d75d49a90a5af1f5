package eastmoney

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/newthinker/ashare/internal/collector"
	"github.com/newthinker/ashare/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEastmoney_ImplementsCollector(t *testing.T) {
	var _ collector.Collector = (*Eastmoney)(nil)
}

func TestEastmoney_Name(t *testing.T) {
	e := New()
	if e.Name() != "eastmoney" {
		t.Errorf("expected 'eastmoney', got '%s'", e.Name())
	}
}

func TestSecid(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"600519.SH", "1.600519"}, // Shanghai = 1
		{"000001.SZ", "0.000001"}, // Shenzhen = 0
		{"600519", "1.600519"},
		{"000001", "0.000001"},
	}

	for _, tc := range tests {
		got, err := secid(tc.input)
		if err != nil {
			t.Fatalf("secid(%s) error: %v", tc.input, err)
		}
		if got != tc.want {
			t.Errorf("secid(%s) = %s, want %s", tc.input, got, tc.want)
		}
	}
}

func TestToKlineType(t *testing.T) {
	tests := []struct {
		interval string
		expected string
	}{
		{"1m", "1"},
		{"5m", "5"},
		{"1h", "60"},
		{"1d", "101"},
		{"", "101"},
	}

	for _, tc := range tests {
		got := toKlineType(tc.interval)
		if got != tc.expected {
			t.Errorf("toKlineType(%s) = %s, want %s", tc.interval, got, tc.expected)
		}
	}
}

func TestParseKline(t *testing.T) {
	bar, ok := parseKline("2024-03-01,1680.00,1700.50,1710.00,1675.00,32100,5.4e9,2.1")
	require.True(t, ok)
	assert.Equal(t, 1680.0, bar.Open)
	assert.Equal(t, 1700.5, bar.Close)
	assert.Equal(t, 1710.0, bar.High)
	assert.Equal(t, 1675.0, bar.Low)
	assert.Equal(t, int64(32100), bar.Volume)
	assert.True(t, time.Date(2024, 3, 1, 0, 0, 0, 0, core.Shanghai).Equal(bar.Time))

	minute, ok := parseKline("2024-03-01 09:31,10.0,10.1,10.2,9.9,500")
	require.True(t, ok)
	assert.Equal(t, 9, minute.Time.Hour())
	assert.Equal(t, 31, minute.Time.Minute())

	_, ok = parseKline("garbage")
	assert.False(t, ok)
}

func newTestServer(t *testing.T, handler http.HandlerFunc) *Eastmoney {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	e := New(
		WithEndpoints(srv.URL+"/quote", srv.URL+"/kline"),
		WithClock(func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, core.Shanghai) }),
	)
	require.NoError(t, e.Init(collector.Config{RetryDelay: time.Millisecond}))
	return e
}

func TestFetchHistory(t *testing.T) {
	e := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/kline", r.URL.Path)
		assert.Equal(t, "1.600519", r.URL.Query().Get("secid"))
		assert.Equal(t, "101", r.URL.Query().Get("klt"))
		assert.Equal(t, "20240101", r.URL.Query().Get("beg"))
		assert.Equal(t, "20240131", r.URL.Query().Get("end"))
		fmt.Fprint(w, `{"data":{"code":"600519","name":"x","klines":[
			"2024-01-02,1700,1710,1720,1690,1000",
			"bad line",
			"2024-01-03,1710,1690,1715,1680,1200"]}}`)
	})

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, core.Shanghai)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, core.Shanghai)
	bars, err := e.FetchHistory(context.Background(), "600519", start, end, "1d")
	require.NoError(t, err)

	require.Len(t, bars, 2)
	assert.Equal(t, "600519", bars[0].Symbol)
	assert.Equal(t, "1d", bars[0].Interval)
	assert.Equal(t, 1710.0, bars[0].Close)
	assert.True(t, bars[1].Time.After(bars[0].Time))
}

func TestFetchHistory_Empty(t *testing.T) {
	e := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":null}`)
	})

	_, err := e.FetchHistory(context.Background(), "000001", time.Now(), time.Now(), "1d")
	assert.True(t, errors.Is(err, core.ErrNoData))
}

func TestFetchHistory_RetriesServerErrors(t *testing.T) {
	var calls int32
	e := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"data":{"klines":["2024-01-02,10,11,12,9,100"]}}`)
	})

	bars, err := e.FetchHistory(context.Background(), "000001", time.Now(), time.Now(), "1d")
	require.NoError(t, err)
	assert.Len(t, bars, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchHistory_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	e := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := e.FetchHistory(context.Background(), "000001", time.Now(), time.Now(), "1d")
	assert.True(t, errors.Is(err, core.ErrCollectorFailed))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchHistory_InvalidSymbol(t *testing.T) {
	e := New()
	_, err := e.FetchHistory(context.Background(), "AAPL", time.Now(), time.Now(), "1d")
	assert.True(t, errors.Is(err, core.ErrInvalidSymbol))
}

func TestFetchQuote(t *testing.T) {
	e := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0.000001", r.URL.Query().Get("secid"))
		fmt.Fprint(w, `{"data":{"f43":1052,"f44":1051,"f45":1053,"f46":1040,"f47":123456,"f57":"000001","f58":"x"}}`)
	})

	q, err := e.FetchQuote(context.Background(), "000001")
	require.NoError(t, err)

	assert.Equal(t, 10.52, q.Price)
	assert.Equal(t, 10.51, q.Bid)
	assert.Equal(t, 10.53, q.Ask)
	assert.Equal(t, int64(123456), q.Volume)
	assert.Equal(t, "eastmoney", q.Source)
	assert.Equal(t, 10, q.Time.Hour())
}

func TestFetchQuote_Suspended(t *testing.T) {
	e := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"f43":"-","f44":"-","f45":"-","f46":"-","f47":"-","f57":"600519"}}`)
	})

	_, err := e.FetchQuote(context.Background(), "600519")
	assert.True(t, errors.Is(err, core.ErrNoData))
}
