package indicator

import "math"

// MACD computes the MACD line (fast EMA - slow EMA), its signal EMA and the
// histogram (line - signal). Value returns the line.
type MACD struct {
	fast   *EMA
	slow   *EMA
	signal *EMA

	line float64
	sig  float64
	hist float64
}

// NewMACD creates a MACD with the given periods (typically 12, 26, 9).
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fast:   NewEMA(fast),
		slow:   NewEMA(slow),
		signal: NewEMA(signal),
		line:   math.NaN(),
		sig:    math.NaN(),
		hist:   math.NaN(),
	}
}

func (m *MACD) Update(price float64) float64 {
	m.line = m.fast.Update(price) - m.slow.Update(price)
	m.sig = m.signal.Update(m.line)
	m.hist = m.line - m.sig
	return m.line
}

func (m *MACD) Value() float64 { return m.line }

// Signal returns the signal line value.
func (m *MACD) Signal() float64 { return m.sig }

// Hist returns the histogram value.
func (m *MACD) Hist() float64 { return m.hist }
