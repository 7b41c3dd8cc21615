package indicator

import (
	"math"
	"math/rand"
	"testing"
)

// ────────────────────────────────────────────────────────────
// Helper
// ────────────────────────────────────────────────────────────

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f, diff=%.6f)", label, got, want, tol, math.Abs(got-want))
	}
}

// randomWalk returns n positive closes starting at 100.
func randomWalk(seed int64, n int) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	p := 100.0
	for i := range out {
		p *= 1 + (rng.Float64()-0.5)*0.04
		out[i] = p
	}
	return out
}

// emaSeries returns the EMA of values at every index.
func emaSeries(values []float64, period int) []float64 {
	e := NewEMA(period)
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = e.Update(v)
	}
	return out
}

// ────────────────────────────────────────────────────────────
// EMA Correctness
// ────────────────────────────────────────────────────────────

func TestEMA_Correctness_Period3(t *testing.T) {
	// EMA(3): multiplier = 2/(3+1) = 0.5, seeded with the first price.
	// Prices: 100, 102, 104, 103, 105
	//
	// Candle 1: 100
	// Candle 2: 102*0.5 + 100*0.5    = 101
	// Candle 3: 104*0.5 + 101*0.5    = 102.5
	// Candle 4: 103*0.5 + 102.5*0.5  = 102.75
	// Candle 5: 105*0.5 + 102.75*0.5 = 103.875

	ema := NewEMA(3)
	prices := []float64{100, 102, 104, 103, 105}
	expected := []float64{100, 101, 102.5, 102.75, 103.875}

	for i, p := range prices {
		got := ema.Update(p)
		if math.IsNaN(got) {
			t.Fatalf("candle %d: expected a value", i)
		}
		assertClose(t, "EMA(3)", got, expected[i], 1e-9)
	}
}

func TestEMA_NaNBeforeFirstSample(t *testing.T) {
	ema := NewEMA(9)
	if !math.IsNaN(ema.Value()) {
		t.Errorf("expected NaN value, got %v", ema.Value())
	}
}

func TestEMA_ConstantSeries(t *testing.T) {
	for _, period := range []int{1, 2, 9, 26, 200} {
		for _, n := range []int{1, 2, 50} {
			values := make([]float64, n)
			for i := range values {
				values[i] = 42.5
			}
			for i, v := range emaSeries(values, period) {
				if v != 42.5 {
					t.Fatalf("period=%d n=%d idx=%d: expected 42.5, got %v", period, n, i, v)
				}
			}
		}
	}
}

// ────────────────────────────────────────────────────────────
// RSI Correctness
// ────────────────────────────────────────────────────────────

func TestRSI_Correctness_Period3(t *testing.T) {
	// Closes: 10, 11, 10, 12  →  deltas +1, -1, +2
	// gain EMA(3): 1, 0.5, 1.25      loss EMA(3): 0, 0.5, 0.25
	// RSI: loss floor → ~100, rs=1 → 50, rs=5 → 83.3333
	rsi := NewRSI(3)

	if v := rsi.Update(10); !math.IsNaN(v) {
		t.Fatalf("first update: expected NaN, got %v", v)
	}
	if v := rsi.Update(11); v < 99.999 {
		t.Errorf("second update: expected ~100, got %v", v)
	}
	assertClose(t, "RSI t2", rsi.Update(10), 50, 1e-9)
	assertClose(t, "RSI t3", rsi.Update(12), 100-100.0/6.0, 1e-9)
}

func TestRSI_AllUp_Near100(t *testing.T) {
	rsi := NewRSI(14)
	for i := 0; i < 30; i++ {
		rsi.Update(float64(100 + i))
	}
	if rsi.Value() < 99.99 {
		t.Errorf("expected RSI ~100 for monotonic rise, got %v", rsi.Value())
	}
}

func TestRSI_AllDown_Is0(t *testing.T) {
	rsi := NewRSI(14)
	for i := 0; i < 30; i++ {
		rsi.Update(float64(200 - i))
	}
	assertClose(t, "RSI all down", rsi.Value(), 0, 1e-9)
}

func TestRSI_Flat_Is0(t *testing.T) {
	// No gains and no losses: RS = 0 / floor = 0.
	rsi := NewRSI(14)
	for i := 0; i < 30; i++ {
		rsi.Update(100)
	}
	assertClose(t, "RSI flat", rsi.Value(), 0, 1e-9)
}

func TestRSI_Range(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		rsi := NewRSI(14)
		for i, p := range randomWalk(seed, 500) {
			v := rsi.Update(p)
			if i == 0 {
				continue
			}
			if v < 0 || v > 100 || math.IsNaN(v) {
				t.Fatalf("seed=%d idx=%d: RSI out of range: %v", seed, i, v)
			}
		}
	}
}

// ────────────────────────────────────────────────────────────
// MACD Correctness
// ────────────────────────────────────────────────────────────

func TestMACD_HistogramIsLineMinusSignal(t *testing.T) {
	for seed := int64(1); seed <= 10; seed++ {
		m := NewMACD(12, 26, 9)
		for i, p := range randomWalk(seed, 300) {
			m.Update(p)
			if m.Hist() != m.Value()-m.Signal() {
				t.Fatalf("seed=%d idx=%d: hist %v != line-signal %v", seed, i, m.Hist(), m.Value()-m.Signal())
			}
		}
	}
}

func TestMACD_MatchesEMALines(t *testing.T) {
	closes := randomWalk(7, 120)
	fast := emaSeries(closes, 12)
	slow := emaSeries(closes, 26)

	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = fast[i] - slow[i]
	}
	signal := emaSeries(line, 9)

	m := NewMACD(12, 26, 9)
	for i, p := range closes {
		m.Update(p)
		assertClose(t, "MACD line", m.Value(), line[i], 1e-12)
		assertClose(t, "MACD signal", m.Signal(), signal[i], 1e-12)
	}
}

func TestMACD_ConstantSeriesIsZero(t *testing.T) {
	m := NewMACD(12, 26, 9)
	for i := 0; i < 50; i++ {
		m.Update(3.5)
	}
	assertClose(t, "MACD line", m.Value(), 0, 0)
	assertClose(t, "MACD hist", m.Hist(), 0, 0)
}

// ────────────────────────────────────────────────────────────
// Ordering sanity
// ────────────────────────────────────────────────────────────

func TestIndicators_TrendingUp_Ordering(t *testing.T) {
	rsi := NewRSI(14)
	m := NewMACD(12, 26, 9)
	for i := 0; i < 80; i++ {
		p := 100 + float64(i)*0.5
		rsi.Update(p)
		m.Update(p)
	}
	if rsi.Value() <= 50 {
		t.Errorf("expected RSI > 50 in uptrend, got %.2f", rsi.Value())
	}
	if m.Value() <= 0 {
		t.Errorf("expected MACD line > 0 in uptrend, got %.4f", m.Value())
	}
}

func TestIndicators_TrendingDown_Ordering(t *testing.T) {
	rsi := NewRSI(14)
	m := NewMACD(12, 26, 9)
	for i := 0; i < 80; i++ {
		p := 200 - float64(i)*0.5
		rsi.Update(p)
		m.Update(p)
	}
	if rsi.Value() >= 50 {
		t.Errorf("expected RSI < 50 in downtrend, got %.2f", rsi.Value())
	}
	if m.Value() >= 0 {
		t.Errorf("expected MACD line < 0 in downtrend, got %.4f", m.Value())
	}
}
