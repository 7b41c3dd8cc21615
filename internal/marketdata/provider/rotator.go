package provider

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"signalbot/internal/logger"
	"signalbot/internal/model"
)

// RotatorConfig configures the ordered-fallback fetcher.
type RotatorConfig struct {
	// Lookback is the requested row count per timeframe. Sources cap it to
	// their own maximum; a shorter answer is accepted.
	Lookback map[model.Timeframe]int
	// Timeout bounds each provider attempt.
	Timeout time.Duration
}

// Rotator fetches candles for a symbol by trying its bindings in order and
// returning the first successful non-empty parse. A failing binding is
// logged and skipped, never retried.
type Rotator struct {
	cfg      RotatorConfig
	bindings map[string][]Binding
	logger   *slog.Logger

	// Metrics hook
	OnAttempt func(provider string, tf model.Timeframe, err error) // called after every attempt (optional)
}

// NewRotator creates a rotator over the given per-symbol bindings.
func NewRotator(cfg RotatorConfig, bindings map[string][]Binding, logger *slog.Logger) *Rotator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Rotator{cfg: cfg, bindings: bindings, logger: logger}
}

// attempt is one fallible fetch in the rotation.
type attempt struct {
	provider string
	run      func(ctx context.Context) ([]model.Candle, error)
}

// Fetch returns the ascending candle sequence for symbol/tf from the first
// binding that answers with at least one valid row. When every binding fails
// it returns *model.NoDataError.
func (r *Rotator) Fetch(ctx context.Context, symbol string, tf model.Timeframe) ([]model.Candle, error) {
	limit := r.cfg.Lookback[tf]
	if limit <= 0 {
		limit = 500
	}

	bindings := r.bindings[symbol]
	attempts := make([]attempt, 0, len(bindings))
	for _, b := range bindings {
		b := b
		attempts = append(attempts, attempt{
			provider: b.Source.Name(),
			run: func(ctx context.Context) ([]model.Candle, error) {
				return b.Source.FetchCandles(ctx, b.Instrument, tf, limit)
			},
		})
	}

	var failures []error
	for _, a := range attempts {
		candles, err := r.try(ctx, a)
		if err == nil && len(candles) == 0 {
			err = model.ErrEmptyPayload
		}
		if r.OnAttempt != nil {
			r.OnAttempt(a.provider, tf, err)
		}
		if err == nil {
			r.logger.Debug("provider fetch ok",
				append(logger.LogWithRun(ctx),
					slog.String("symbol", symbol), slog.String("tf", tf.String()),
					slog.String("provider", a.provider), slog.Int("rows", len(candles)))...)
			return candles, nil
		}

		perr := &model.ProviderError{Provider: a.provider, Symbol: symbol, Timeframe: tf, Err: err}
		r.logger.Warn("provider fetch failed",
			append(logger.LogWithRun(ctx),
				slog.String("symbol", symbol), slog.String("tf", tf.String()),
				slog.String("provider", a.provider), slog.String("error", err.Error()))...)
		failures = append(failures, perr)

		if ctx.Err() != nil {
			break
		}
	}

	return nil, &model.NoDataError{Symbol: symbol, Timeframe: tf, Attempts: failures}
}

// try runs one attempt under its own deadline. A panic is not recovered.
func (r *Rotator) try(ctx context.Context, a attempt) ([]model.Candle, error) {
	actx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	candles, err := a.run(actx)
	if err != nil {
		if actx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return nil, fmt.Errorf("timeout after %v: %w", r.cfg.Timeout, err)
		}
		return nil, err
	}
	return candles, nil
}
