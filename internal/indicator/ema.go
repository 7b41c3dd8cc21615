package indicator

import "math"

// EMA calculates an Exponential Moving Average with α = 2/(period+1).
// It is seeded with the first observed value, so there is no SMA warm-up and
// a constant input yields that constant from the first sample on.
// O(1) per update.
type EMA struct {
	multiplier float64
	current    float64
	count      int
}

// NewEMA creates a new EMA indicator with the given period.
func NewEMA(period int) *EMA {
	if period < 1 {
		period = 1
	}
	return &EMA{
		multiplier: 2.0 / float64(period+1),
		current:    math.NaN(),
	}
}

func (e *EMA) Update(price float64) float64 {
	e.count++
	if e.count == 1 {
		e.current = price
		return e.current
	}
	// EMA = (Price * multiplier) + (EMA_prev * (1 - multiplier))
	e.current = (price * e.multiplier) + (e.current * (1 - e.multiplier))
	return e.current
}

func (e *EMA) Value() float64 { return e.current }
