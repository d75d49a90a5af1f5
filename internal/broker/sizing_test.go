package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLotQuantity(t *testing.T) {
	tests := []struct {
		name   string
		budget float64
		price  float64
		lot    int64
		want   int64
	}{
		{"exact lots", 10000, 10, 100, 1000},
		{"rounds down", 10999, 10, 100, 1000},
		{"below one lot", 999, 10, 100, 0},
		{"zero price", 10000, 0, 100, 0},
		{"zero lot", 10000, 10, 0, 0},
		{"negative budget", -5, 10, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LotQuantity(tt.budget, tt.price, tt.lot))
		})
	}
}

func TestSizer(t *testing.T) {
	s := Sizer{MaxPositionPct: DefaultMaxPositionPct, LotSize: 100}

	// 1,000,000 * 0.3 / 11.5 = 26086.9 -> 26000
	assert.Equal(t, int64(26000), s.BuyQuantity(Balance{Cash: 1_000_000}, 11.5))
	assert.Equal(t, int64(0), s.BuyQuantity(Balance{Cash: 100}, 11.5))

	assert.Equal(t, int64(2600), s.SellQuantity(2600))
	assert.Equal(t, int64(0), s.SellQuantity(-1))
}
