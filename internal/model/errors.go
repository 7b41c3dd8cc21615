package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyPayload is returned by a provider that answered with zero rows.
var ErrEmptyPayload = errors.New("empty payload")

// ProviderError is a single binding failure. It is non-fatal: the rotator
// logs it and moves to the next binding.
type ProviderError struct {
	Provider  string
	Symbol    string
	Timeframe Timeframe
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s %s/%s: %v", e.Provider, e.Symbol, e.Timeframe, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NoDataError means every binding for a symbol/timeframe failed.
type NoDataError struct {
	Symbol    string
	Timeframe Timeframe
	Attempts  []error
}

func (e *NoDataError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.Error())
	}
	return fmt.Sprintf("no data for %s/%s after %d attempt(s): [%s]",
		e.Symbol, e.Timeframe, len(e.Attempts), strings.Join(parts, "; "))
}

// Unwrap exposes the per-attempt errors to errors.Is/As.
func (e *NoDataError) Unwrap() []error { return e.Attempts }

// InsufficientHistoryError means a sequence is shorter than the indicator warm-up floor.
type InsufficientHistoryError struct {
	Have int
	Need int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient history: have %d candles, need %d", e.Have, e.Need)
}

// AggregationInsufficientError means the coarse resample is too short and
// frame fallback is disabled.
type AggregationInsufficientError struct {
	Timeframe Timeframe
	Have      int
	Need      int
}

func (e *AggregationInsufficientError) Error() string {
	return fmt.Sprintf("insufficient %s bars: have %d, need %d (fallback disabled)", e.Timeframe, e.Have, e.Need)
}

// StateLoadError means the persisted cooldown state could not be read.
// Callers treat it as an empty initial state.
type StateLoadError struct {
	Err error
}

func (e *StateLoadError) Error() string { return "state load: " + e.Err.Error() }

func (e *StateLoadError) Unwrap() error { return e.Err }

// SkipReason maps a per-symbol failure to a short structured reason string.
func SkipReason(err error) string {
	var (
		noData *NoDataError
		hist   *InsufficientHistoryError
		agg    *AggregationInsufficientError
	)
	switch {
	case errors.As(err, &noData):
		return "no-" + noData.Timeframe.String() + "-data"
	case errors.As(err, &agg):
		return "insufficient-" + agg.Timeframe.String() + "-no-fallback"
	case errors.As(err, &hist):
		return "insufficient-history"
	default:
		return "error"
	}
}
