package indicator

import "math"

// lossFloor replaces a smoothed loss of exactly zero, driving RSI toward 100
// instead of dividing by zero.
const lossFloor = 1e-10

// RSI calculates the Relative Strength Index with EMA-smoothed gains and
// losses. The first update only records the close, so Value is NaN until
// the second candle.
type RSI struct {
	count     int
	prevClose float64
	gain      *EMA
	loss      *EMA
	current   float64
}

// NewRSI creates a new RSI indicator with the given period (typically 14).
func NewRSI(period int) *RSI {
	return &RSI{
		gain:    NewEMA(period),
		loss:    NewEMA(period),
		current: math.NaN(),
	}
}

func (r *RSI) Update(price float64) float64 {
	r.count++
	if r.count == 1 {
		r.prevClose = price
		return r.current
	}

	up, down := split(price - r.prevClose)
	r.prevClose = price
	r.current = rsiFrom(r.gain.Update(up), r.loss.Update(down))
	return r.current
}

func (r *RSI) Value() float64 { return r.current }

func split(delta float64) (up, down float64) {
	if delta > 0 {
		return delta, 0
	}
	return 0, -delta
}

func rsiFrom(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		avgLoss = lossFloor
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}
