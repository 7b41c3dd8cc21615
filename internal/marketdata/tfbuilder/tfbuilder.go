// Package tfbuilder resamples a fine candle sequence into a coarser timeframe.
// Buckets are right-closed and right-labeled: the bucket labeled L holds the
// fine bars with L-B < ts <= L, where B is the coarse duration and L is a
// multiple of B since the Unix epoch. Only buckets that are complete at both
// edges are emitted.
package tfbuilder

import (
	"log/slog"
	"time"

	"signalbot/internal/model"
)

// DefaultMinBars is the minimum coarse bar count before frame fallback.
const DefaultMinBars = 60

// Config controls the resample policy.
type Config struct {
	// MinBars is the coarse bar count below which the aggregate is too short.
	MinBars int
	// AllowFallback returns the fine sequence instead of failing when the
	// aggregate is too short.
	AllowFallback bool
}

// bucketState holds the candle being merged for one bucket.
type bucketState struct {
	label   int64 // bucket end (Unix seconds)
	candle  model.Candle
	first   int64 // first member ts
	last    int64 // last member ts
	started bool
}

// Resampler aggregates fine candles into coarse ones and applies the
// fallback policy. Stateless between calls.
type Resampler struct {
	cfg    Config
	logger *slog.Logger

	// Metrics hooks
	OnFallback func(fine, coarse model.Timeframe) // called when the fine frame is substituted (optional)
}

// New creates a resampler.
func New(cfg Config, logger *slog.Logger) *Resampler {
	if cfg.MinBars <= 0 {
		cfg.MinBars = DefaultMinBars
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resampler{cfg: cfg, logger: logger}
}

// ToCoarser aggregates fine into coarseTF. When the aggregate has fewer than
// MinBars candles it returns the fine sequence labeled fineTF if fallback is
// allowed, or *model.AggregationInsufficientError otherwise.
func (r *Resampler) ToCoarser(fine []model.Candle, fineTF, coarseTF model.Timeframe) ([]model.Candle, model.Timeframe, error) {
	coarse := Aggregate(fine, fineTF, coarseTF)
	if len(coarse) >= r.cfg.MinBars {
		return coarse, coarseTF, nil
	}

	if !r.cfg.AllowFallback {
		r.logger.Info("coarse frame too short, no fallback",
			slog.String("tf", coarseTF.String()), slog.Int("bars", len(coarse)), slog.Int("min_bars", r.cfg.MinBars))
		return nil, "", &model.AggregationInsufficientError{Timeframe: coarseTF, Have: len(coarse), Need: r.cfg.MinBars}
	}

	r.logger.Info("coarse frame too short, falling back",
		slog.String("tf", coarseTF.String()), slog.String("fallback_tf", fineTF.String()),
		slog.Int("bars", len(coarse)), slog.Int("min_bars", r.cfg.MinBars))
	if r.OnFallback != nil {
		r.OnFallback(fineTF, coarseTF)
	}
	return fine, fineTF, nil
}

// Aggregate merges ascending fine candles into right-closed, right-labeled
// coarse buckets. The emitted TS is the bucket label (its end boundary).
// A leading bucket missing its first expected bar and a trailing bucket
// missing its right-edge bar are dropped.
func Aggregate(fine []model.Candle, fineTF, coarseTF model.Timeframe) []model.Candle {
	f := int64(fineTF.Duration().Seconds())
	b := int64(coarseTF.Duration().Seconds())
	if f <= 0 || b <= 0 || b < f || len(fine) == 0 {
		return nil
	}

	out := make([]model.Candle, 0, len(fine)*int(f)/int(b)+1)
	var st bucketState

	finalize := func() {
		if !st.started {
			return
		}
		complete := st.first == st.label-b+f && st.last == st.label
		if complete {
			out = append(out, st.candle)
		}
		st.started = false
	}

	for _, c := range fine {
		ts := c.TS.Unix()
		label := bucketLabel(ts, b)

		if st.started && label != st.label {
			finalize()
		}

		if !st.started {
			st = bucketState{
				label:   label,
				first:   ts,
				last:    ts,
				started: true,
				candle: model.Candle{
					TS:     time.Unix(label, 0).UTC(),
					Open:   c.Open,
					High:   c.High,
					Low:    c.Low,
					Close:  c.Close,
					Volume: c.Volume,
				},
			}
			continue
		}

		// Same bucket — merge OHLCV
		cc := &st.candle
		if c.High > cc.High {
			cc.High = c.High
		}
		if c.Low < cc.Low {
			cc.Low = c.Low
		}
		cc.Close = c.Close
		cc.Volume += c.Volume
		st.last = ts
	}
	finalize()

	return out
}

// bucketLabel returns the right edge of the (L-b, L] bucket holding ts.
func bucketLabel(ts, b int64) int64 {
	rem := ts % b
	if rem < 0 {
		rem += b
	}
	if rem == 0 {
		return ts
	}
	return ts - rem + b
}
