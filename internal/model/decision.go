package model

// TrendState classifies the higher-timeframe (daily) MACD trend.
type TrendState string

const (
	TrendUp      TrendState = "UP"
	TrendDown    TrendState = "DOWN"
	TrendFlat    TrendState = "FLAT"
	TrendUnknown TrendState = "UNKNOWN"
)

// SignalKind is the outcome class of one evaluation. NEWS is only used as a
// cooldown key by the news collaborator.
type SignalKind string

const (
	SignalNone        SignalKind = "NONE"
	SignalBuy         SignalKind = "BUY"
	SignalOpportunity SignalKind = "OPPORTUNITY"
	SignalNews        SignalKind = "NEWS"
)

// Decision is the result of evaluating one symbol in one cycle.
type Decision struct {
	Symbol    string     `json:"symbol"`
	Kind      SignalKind `json:"kind"`
	Price     float64    `json:"price"`
	Trend     TrendState `json:"trend"`
	FrameUsed Timeframe  `json:"frame_used"`
	Reason    string     `json:"reason"`
}

// Fired returns true for BUY and OPPORTUNITY decisions.
func (d *Decision) Fired() bool {
	return d.Kind == SignalBuy || d.Kind == SignalOpportunity
}

// Summary carries the per-symbol daily figures the periodic report needs.
// It is produced for every symbol whose daily candles were fetched, whatever
// the decision outcome.
type Summary struct {
	Symbol    string     `json:"symbol"`
	LastClose float64    `json:"last_close"`
	PrevClose float64    `json:"prev_close"`
	ChangePct float64    `json:"change_pct"`
	MACDDelta float64    `json:"macd_delta"` // change of (macd - signal) over the last daily bar
	Bias      TrendState `json:"bias"`       // UP if macd >= signal on the last daily bar, else DOWN
	Trend     TrendState `json:"trend"`
	HasDaily  bool       `json:"has_daily"` // false when daily indicators were not available
}

// PctChange returns (a/b - 1) * 100, or 0 when b is zero.
func PctChange(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return (a/b - 1.0) * 100.0
}

// Headline is one news item attached to a large daily move.
type Headline struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Important bool   `json:"important"`
	Positive  bool   `json:"positive"`
	Negative  bool   `json:"negative"`
}
