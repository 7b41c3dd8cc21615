// Package signal decides whether a BUY or OPPORTUNITY condition holds for a
// symbol, given its indicated daily sequence and its indicated intraday
// (4h, or 1h fallback) sequence.
//
// BUY: RSI at or below the buy threshold and a fresh MACD cross up.
// OPPORTUNITY: RSI at or below the opportunity threshold with MACD above its
// signal line, or an improving histogram; rate limited by a per-symbol
// cooldown. Both are gated by the daily trend according to TrendFilter.
package signal

import (
	"fmt"
	"strings"
	"time"

	"signalbot/internal/model"
)

// TrendFilter selects how the daily trend gates intraday conditions.
type TrendFilter string

const (
	FilterOff       TrendFilter = "off"
	FilterBuyOnlyUp TrendFilter = "buy_only_up"
	FilterAllUp     TrendFilter = "all_up"
)

// ParseTrendFilter accepts off, buy_only_up and all_up.
func ParseTrendFilter(s string) (TrendFilter, error) {
	switch f := TrendFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case FilterOff, FilterBuyOnlyUp, FilterAllUp:
		return f, nil
	default:
		return "", fmt.Errorf("unknown trend filter %q", s)
	}
}

// wideningPoints is subtracted from both RSI thresholds when Wide is set.
const wideningPoints = 5

// Config holds the evaluator thresholds and toggles.
type Config struct {
	RSIBuy            float64
	RSIOpp            float64
	Wide              bool
	EnableOpportunity bool
	TrendFilter       TrendFilter
}

// DefaultConfig returns RSI 30/40, opportunity enabled and no trend filter.
func DefaultConfig() Config {
	return Config{
		RSIBuy:            30,
		RSIOpp:            40,
		EnableOpportunity: true,
		TrendFilter:       FilterOff,
	}
}

// Cooldowns is the part of the cooldown store the evaluator needs.
type Cooldowns interface {
	IsInCooldown(symbol string, kind model.SignalKind, now time.Time) bool
	MarkFired(symbol string, kind model.SignalKind, now time.Time)
}

// Evaluator runs the decision state machine. It holds no per-symbol state of
// its own; cooldowns live in the injected store.
type Evaluator struct {
	cfg       Config
	cooldowns Cooldowns
}

// NewEvaluator creates an evaluator backed by the given cooldown store.
func NewEvaluator(cfg Config, cooldowns Cooldowns) *Evaluator {
	if cfg.TrendFilter == "" {
		cfg.TrendFilter = FilterOff
	}
	return &Evaluator{cfg: cfg, cooldowns: cooldowns}
}

// lastTwo returns the last bar and the one before it. A single bar is its own
// predecessor.
func lastTwo(seq []model.IndicatedCandle) (last, prev model.IndicatedCandle) {
	last = seq[len(seq)-1]
	prev = last
	if len(seq) > 1 {
		prev = seq[len(seq)-2]
	}
	return last, prev
}

// ClassifyTrend compares the two most recent daily bars. An empty sequence is
// UNKNOWN. NaN values make both comparisons false, which yields FLAT.
func ClassifyTrend(daily []model.IndicatedCandle) model.TrendState {
	if len(daily) == 0 {
		return model.TrendUnknown
	}
	last, prev := lastTwo(daily)
	switch {
	case last.MACD > last.MACDSignal && last.MACDHist > prev.MACDHist:
		return model.TrendUp
	case last.MACD < last.MACDSignal && last.MACDHist < prev.MACDHist:
		return model.TrendDown
	default:
		return model.TrendFlat
	}
}

// Conditions are the intraday sub-conditions at the last bar, before gating.
type Conditions struct {
	RSI           float64
	RSIBuy        float64
	RSIOpp        float64
	CrossUp       bool
	HistImproving bool
	Buy           bool
	OppCore       bool
	Opp           bool
}

// Intraday evaluates the intraday conditions on the last two bars of seq.
// seq must not be empty.
func (e *Evaluator) Intraday(seq []model.IndicatedCandle) Conditions {
	last, prev := lastTwo(seq)

	c := Conditions{
		RSI:    last.RSI,
		RSIBuy: e.cfg.RSIBuy,
		RSIOpp: e.cfg.RSIOpp,
	}
	if e.cfg.Wide {
		c.RSIBuy -= wideningPoints
		c.RSIOpp -= wideningPoints
	}

	c.CrossUp = last.MACD >= last.MACDSignal && prev.MACD < prev.MACDSignal
	c.HistImproving = last.MACDHist > prev.MACDHist
	c.Buy = last.RSI <= c.RSIBuy && c.CrossUp
	c.OppCore = last.RSI <= c.RSIOpp && last.MACD > last.MACDSignal
	c.Opp = c.OppCore || c.HistImproving
	return c
}

// Evaluate resolves the decision for one symbol. intraday must hold at least
// one bar; daily may be empty (trend UNKNOWN). An OPPORTUNITY decision marks
// the cooldown at now.
func (e *Evaluator) Evaluate(symbol string, daily, intraday []model.IndicatedCandle, frame model.Timeframe, now time.Time) model.Decision {
	trend := ClassifyTrend(daily)
	last, _ := lastTwo(intraday)

	d := model.Decision{
		Symbol:    symbol,
		Kind:      model.SignalNone,
		Price:     last.Close,
		Trend:     trend,
		FrameUsed: frame,
	}

	c := e.Intraday(intraday)
	buy, opp := c.Buy, c.Opp

	switch e.cfg.TrendFilter {
	case FilterBuyOnlyUp:
		if trend != model.TrendUp {
			buy = false
		}
	case FilterAllUp:
		if trend != model.TrendUp {
			buy = false
			opp = false
		}
	case FilterOff:
		// A clear daily downtrend blocks everything unless the opportunity
		// condition holds. BUY is blocked with it.
		if trend == model.TrendDown && !opp {
			d.Reason = fmt.Sprintf("blocked-by-1D-trend(%s)", trend)
			return d
		}
	}

	if buy {
		d.Kind = model.SignalBuy
		d.Reason = "BUY"
		return d
	}

	if e.cfg.EnableOpportunity && opp && !e.cooldowns.IsInCooldown(symbol, model.SignalOpportunity, now) {
		e.cooldowns.MarkFired(symbol, model.SignalOpportunity, now)
		d.Kind = model.SignalOpportunity
		d.Reason = "OPPORTUNITY"
		return d
	}

	d.Reason = noSignalReason(c, buy)
	return d
}

// noSignalReason lists the failed sub-conditions, e.g.
// "no-signal(RSI>40, no MACD cross↑, hist not improving)".
func noSignalReason(c Conditions, buy bool) string {
	var details []string
	if c.RSI > c.RSIOpp {
		details = append(details, fmt.Sprintf("RSI>%.0f", c.RSIOpp))
	}
	if !c.CrossUp && !buy {
		details = append(details, "no MACD cross↑")
	}
	if !c.HistImproving && !c.CrossUp {
		details = append(details, "hist not improving")
	}
	return "no-signal(" + strings.Join(details, ", ") + ")"
}

// Summarize builds the report row for a symbol. Price change comes from the
// raw daily candles (at least two); MACD delta and bias need at least two
// indicated daily bars, otherwise HasDaily is false.
func Summarize(symbol string, candles []model.Candle, daily []model.IndicatedCandle) model.Summary {
	s := model.Summary{Symbol: symbol, Trend: ClassifyTrend(daily)}
	if n := len(candles); n >= 2 {
		s.LastClose = candles[n-1].Close
		s.PrevClose = candles[n-2].Close
		s.ChangePct = model.PctChange(s.LastClose, s.PrevClose)
	}
	if len(daily) < 2 {
		return s
	}
	last, prev := lastTwo(daily)
	s.HasDaily = true
	s.MACDDelta = (last.MACD - last.MACDSignal) - (prev.MACD - prev.MACDSignal)
	s.Bias = model.TrendDown
	if last.MACD >= last.MACDSignal {
		s.Bias = model.TrendUp
	}
	return s
}
