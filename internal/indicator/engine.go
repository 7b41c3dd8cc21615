// Package indicator computes RSI and MACD over candle sequences. The
// single-value indicators are fed one close at a time and keep O(1) state;
// Engine runs them over a whole sequence.
package indicator

import (
	"signalbot/internal/model"
)

// Params configures the indicator set computed by Engine.
type Params struct {
	RSIPeriod  int
	MACDFast   int
	MACDSlow   int
	MACDSignal int

	// WarmUpBuffer is added to slow+signal to get the minimum sequence length.
	WarmUpBuffer int
	// MinCandles is the absolute floor on sequence length.
	MinCandles int
}

// DefaultParams returns RSI(14) and MACD(12,26,9) with a 60-candle floor.
func DefaultParams() Params {
	return Params{
		RSIPeriod:    14,
		MACDFast:     12,
		MACDSlow:     26,
		MACDSignal:   9,
		WarmUpBuffer: 5,
		MinCandles:   60,
	}
}

// MinLength is the shortest sequence Compute accepts.
func (p Params) MinLength() int {
	n := p.MACDSlow + p.MACDSignal + p.WarmUpBuffer
	if n < p.MinCandles {
		n = p.MinCandles
	}
	return n
}

// Engine computes RSI and MACD over whole candle sequences.
// It is stateless between calls and safe for concurrent use.
type Engine struct {
	params Params
}

// NewEngine creates an indicator engine with the given params.
func NewEngine(p Params) *Engine {
	return &Engine{params: p}
}

// Compute returns the candles augmented with RSI and MACD values. Leading
// rows with an undefined value are dropped. A sequence shorter than
// MinLength returns *model.InsufficientHistoryError and no values.
func (e *Engine) Compute(candles []model.Candle) ([]model.IndicatedCandle, error) {
	need := e.params.MinLength()
	if len(candles) < need {
		return nil, &model.InsufficientHistoryError{Have: len(candles), Need: need}
	}

	rsi := NewRSI(e.params.RSIPeriod)
	macd := NewMACD(e.params.MACDFast, e.params.MACDSlow, e.params.MACDSignal)

	out := make([]model.IndicatedCandle, 0, len(candles))
	for _, c := range candles {
		ic := model.IndicatedCandle{
			Candle: c,
			RSI:    rsi.Update(c.Close),
			MACD:   macd.Update(c.Close),
		}
		ic.MACDSignal = macd.Signal()
		ic.MACDHist = macd.Hist()
		out = append(out, ic)
	}

	first := 0
	for first < len(out) && !out[first].Ready() {
		first++
	}
	return out[first:], nil
}
