package indicator

// SMA calculates Simple Moving Average
// Returns slice of length: len(prices) - period + 1
//
// Each window is summed independently so equal windows yield bit-identical
// averages; callers comparing averages for crossovers rely on this.
func SMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return []float64{}
	}

	result := make([]float64, 0, len(prices)-period+1)
	for end := period; end <= len(prices); end++ {
		result = append(result, Mean(prices[end-period:end]))
	}
	return result
}

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
