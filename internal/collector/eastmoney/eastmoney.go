package eastmoney

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/ashare/internal/collector"
	"github.com/newthinker/ashare/internal/core"
	"github.com/newthinker/ashare/internal/retry"
	"go.uber.org/zap"
)

const (
	quoteURL   = "https://push2.eastmoney.com/api/qt/stock/get"
	historyURL = "https://push2his.eastmoney.com/api/qt/stock/kline/get"
)

var klineRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}(?: \d{2}:\d{2})?),([^,]+),([^,]+),([^,]+),([^,]+),([^,]+)`)

// Eastmoney implements the Eastmoney collector for A-shares
type Eastmoney struct {
	client     *http.Client
	quoteURL   string
	historyURL string
	policy     retry.Policy
	logger     *zap.Logger
	now        func() time.Time
}

// Option configures an Eastmoney collector.
type Option func(*Eastmoney)

// WithEndpoints overrides the quote and history API endpoints.
func WithEndpoints(quote, history string) Option {
	return func(e *Eastmoney) {
		e.quoteURL = quote
		e.historyURL = history
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Eastmoney) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock overrides the clock used to stamp quotes.
func WithClock(now func() time.Time) Option {
	return func(e *Eastmoney) { e.now = now }
}

// New creates a new Eastmoney collector
func New(opts ...Option) *Eastmoney {
	e := &Eastmoney{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		quoteURL:   quoteURL,
		historyURL: historyURL,
		policy:     retry.Fixed(3, 2*time.Second),
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Eastmoney) Name() string {
	return "eastmoney"
}

func (e *Eastmoney) Init(cfg collector.Config) error {
	if cfg.Timeout > 0 {
		e.client.Timeout = cfg.Timeout
	}
	if cfg.MaxRetries > 0 {
		e.policy.Attempts = cfg.MaxRetries
	}
	if cfg.RetryDelay > 0 {
		e.policy.Delay = cfg.RetryDelay
	}
	return nil
}

// secid converts 600519 to 1.600519 for the Eastmoney API.
// Shanghai = 1, Shenzhen = 0
func secid(symbol string) (string, error) {
	code, exchange, err := collector.ParseSymbol(symbol)
	if err != nil {
		return "", err
	}
	market := "0"
	if exchange == core.ExchangeShanghai {
		market = "1"
	}
	return market + "." + code, nil
}

// FetchQuote fetches real-time quote from Eastmoney
func (e *Eastmoney) FetchQuote(ctx context.Context, symbol string) (*core.Quote, error) {
	id, err := secid(symbol)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("secid", id)
	q.Set("fields", "f43,f44,f45,f46,f47,f48,f57,f58")

	var result quoteResponse
	if err := e.getJSON(ctx, e.quoteURL+"?"+q.Encode(), &result); err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("quote %s: %w", symbol, err))
	}

	if result.Data == nil || result.Data.F43 <= 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no quote for symbol: %s", symbol))
	}

	d := result.Data
	return &core.Quote{
		Symbol: symbol,
		Price:  float64(d.F43) / 100, // Price in cents
		Volume: int64(d.F47),
		Bid:    float64(d.F44) / 100,
		Ask:    float64(d.F45) / 100,
		Time:   e.now(),
		Source: "eastmoney",
	}, nil
}

// FetchHistory fetches forward-adjusted historical bars
func (e *Eastmoney) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.Bar, error) {
	id, err := secid(symbol)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("secid", id)
	q.Set("klt", toKlineType(interval))
	q.Set("fqt", "1")
	q.Set("beg", start.Format("20060102"))
	q.Set("end", end.Format("20060102"))
	q.Set("fields1", "f1,f2,f3,f4,f5,f6")
	q.Set("fields2", "f51,f52,f53,f54,f55,f56")

	var result historyResponse
	if err := e.getJSON(ctx, e.historyURL+"?"+q.Encode(), &result); err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("history %s: %w", symbol, err))
	}

	if result.Data == nil || len(result.Data.Klines) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no history for symbol: %s", symbol))
	}

	bars := make([]core.Bar, 0, len(result.Data.Klines))
	for _, line := range result.Data.Klines {
		bar, ok := parseKline(line)
		if !ok {
			e.logger.Debug("skipping malformed kline", zap.String("symbol", symbol), zap.String("line", line))
			continue
		}
		bar.Symbol = symbol
		bar.Interval = interval
		bars = append(bars, bar)
	}

	return bars, nil
}

// getJSON performs a GET with the retry policy. Client errors are not
// retried.
func (e *Eastmoney) getJSON(ctx context.Context, rawURL string, out any) error {
	return retry.Do(ctx, e.policy, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("User-Agent", "Mozilla/5.0")

		resp, err := e.client.Do(req)
		if err != nil {
			e.logger.Debug("eastmoney request failed", zap.Error(err))
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return retry.Permanent(fmt.Errorf("eastmoney: server returned %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("eastmoney: server returned %d", resp.StatusCode)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		return nil
	})
}

// parseKline parses "date,open,close,high,low,volume[,...]". Dates are in
// exchange time.
func parseKline(line string) (core.Bar, bool) {
	m := klineRe.FindStringSubmatch(line)
	if len(m) < 7 {
		return core.Bar{}, false
	}

	layout := "2006-01-02"
	if strings.Contains(m[1], " ") {
		layout = "2006-01-02 15:04"
	}
	t, err := time.ParseInLocation(layout, m[1], core.Shanghai)
	if err != nil {
		return core.Bar{}, false
	}

	open, err1 := strconv.ParseFloat(m[2], 64)
	closePrice, err2 := strconv.ParseFloat(m[3], 64)
	high, err3 := strconv.ParseFloat(m[4], 64)
	low, err4 := strconv.ParseFloat(m[5], 64)
	volume, err5 := strconv.ParseFloat(m[6], 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
		return core.Bar{}, false
	}

	return core.Bar{
		Time:   t,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: int64(volume),
	}, true
}

func toKlineType(interval string) string {
	switch interval {
	case "1m":
		return "1"
	case "5m":
		return "5"
	case "15m":
		return "15"
	case "30m":
		return "30"
	case "1h":
		return "60"
	case "1d":
		return "101"
	case "1w":
		return "102"
	default:
		return "101"
	}
}

// apiNumber decodes a numeric field that is "-" while a symbol is suspended.
type apiNumber int64

func (c *apiNumber) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "-" || s == "" || s == "null" {
		*c = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*c = apiNumber(v)
	return nil
}

// Response types
type quoteResponse struct {
	Data *quoteData `json:"data"`
}

type quoteData struct {
	F43 apiNumber  `json:"f43"` // Current price (apiNumber)
	F44 apiNumber  `json:"f44"` // Bid
	F45 apiNumber  `json:"f45"` // Ask
	F46 apiNumber  `json:"f46"` // Open
	F47 apiNumber  `json:"f47"` // Volume
	F48 apiNumber  `json:"f48"` // Amount
	F57 string `json:"f57"` // Code
	F58 string `json:"f58"` // Name
}

type historyResponse struct {
	Data *historyData `json:"data"`
}

type historyData struct {
	Code   string   `json:"code"`
	Name   string   `json:"name"`
	Klines []string `json:"klines"`
}
