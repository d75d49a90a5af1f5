package collector

import (
	"fmt"
	"strings"

	"github.com/newthinker/ashare/internal/core"
)

// ParseSymbol splits an A-share symbol into its six-digit code and exchange.
// Accepted forms are "600519", "600519.SH" and "sh600519". Bare codes starting
// with 6 are Shanghai listings, all others Shenzhen.
func ParseSymbol(symbol string) (code string, exchange core.Exchange, err error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))

	switch {
	case strings.HasSuffix(s, ".SH"):
		code, exchange = strings.TrimSuffix(s, ".SH"), core.ExchangeShanghai
	case strings.HasSuffix(s, ".SZ"):
		code, exchange = strings.TrimSuffix(s, ".SZ"), core.ExchangeShenzhen
	case strings.HasPrefix(s, "SH"):
		code, exchange = strings.TrimPrefix(s, "SH"), core.ExchangeShanghai
	case strings.HasPrefix(s, "SZ"):
		code, exchange = strings.TrimPrefix(s, "SZ"), core.ExchangeShenzhen
	default:
		code = s
		if strings.HasPrefix(s, "6") {
			exchange = core.ExchangeShanghai
		} else {
			exchange = core.ExchangeShenzhen
		}
	}

	if len(code) != 6 || strings.Trim(code, "0123456789") != "" {
		return "", "", core.WrapError(core.ErrInvalidSymbol, fmt.Errorf("%q", symbol))
	}
	return code, exchange, nil
}
