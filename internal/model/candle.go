package model

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Candle represents one OHLCV bar for a single symbol and timeframe.
// TS is the bar open time in UTC.
type Candle struct {
	TS     time.Time `json:"ts"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Validate reports whether every field is finite and non-negative.
func (c *Candle) Validate() error {
	for _, v := range [...]float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("candle %s: non-finite field", c.TS.Format(time.RFC3339))
		}
		if v < 0 {
			return fmt.Errorf("candle %s: negative field %v", c.TS.Format(time.RFC3339), v)
		}
	}
	if c.TS.IsZero() {
		return fmt.Errorf("candle: zero timestamp")
	}
	return nil
}

// Normalize returns the candles sorted ascending by TS in UTC, with duplicate
// timestamps collapsed (the later row wins). It fails on the first invalid row.
func Normalize(candles []Candle) ([]Candle, error) {
	out := make([]Candle, 0, len(candles))
	for _, c := range candles {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		c.TS = c.TS.UTC()
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TS.Before(out[j].TS) })

	dedup := out[:0]
	for _, c := range out {
		if n := len(dedup); n > 0 && dedup[n-1].TS.Equal(c.TS) {
			dedup[n-1] = c
			continue
		}
		dedup = append(dedup, c)
	}
	return dedup, nil
}

// ClosedOnly drops trailing bars whose period has not ended at now.
// Exchanges return the forming bar as the newest row.
func ClosedOnly(candles []Candle, dur time.Duration, now time.Time) []Candle {
	end := len(candles)
	for end > 0 && candles[end-1].TS.Add(dur).After(now) {
		end--
	}
	return candles[:end]
}

// IndicatedCandle is a Candle with the indicator values computed at that bar.
// An undefined value is NaN.
type IndicatedCandle struct {
	Candle
	RSI        float64 `json:"rsi"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	MACDHist   float64 `json:"macd_hist"`
}

// Ready returns true when every indicator value is defined.
func (c *IndicatedCandle) Ready() bool {
	return Defined(c.RSI) && Defined(c.MACD) && Defined(c.MACDSignal) && Defined(c.MACDHist)
}

// Defined reports whether v carries a computed value.
func Defined(v float64) bool {
	return !math.IsNaN(v)
}
