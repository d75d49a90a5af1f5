package collector

import (
	"errors"
	"testing"

	"github.com/newthinker/ashare/internal/core"
)

func TestParseSymbol(t *testing.T) {
	tests := []struct {
		input    string
		code     string
		exchange core.Exchange
	}{
		{"600519", "600519", core.ExchangeShanghai},
		{"000001", "000001", core.ExchangeShenzhen},
		{"300750", "300750", core.ExchangeShenzhen},
		{"688981", "688981", core.ExchangeShanghai},
		{"600519.SH", "600519", core.ExchangeShanghai},
		{"000001.sz", "000001", core.ExchangeShenzhen},
		{"sh601318", "601318", core.ExchangeShanghai},
		{"SZ002594", "002594", core.ExchangeShenzhen},
		{" 600036 ", "600036", core.ExchangeShanghai},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			code, ex, err := ParseSymbol(tt.input)
			if err != nil {
				t.Fatalf("ParseSymbol(%q) error: %v", tt.input, err)
			}
			if code != tt.code || ex != tt.exchange {
				t.Errorf("ParseSymbol(%q) = (%s, %s), want (%s, %s)", tt.input, code, ex, tt.code, tt.exchange)
			}
		})
	}
}

func TestParseSymbol_Invalid(t *testing.T) {
	for _, in := range []string{"", "AAPL", "60051", "6005199", "60051X.SH"} {
		if _, _, err := ParseSymbol(in); !errors.Is(err, core.ErrInvalidSymbol) {
			t.Errorf("ParseSymbol(%q) error = %v, want ErrInvalidSymbol", in, err)
		}
	}
}
