package model

import "time"

// Timeframe is a bar size label.
type Timeframe string

const (
	TF1H Timeframe = "1h"
	TF4H Timeframe = "4h"
	TF1D Timeframe = "1d"
)

// Duration returns the bar length.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case TF1H:
		return time.Hour
	case TF4H:
		return 4 * time.Hour
	case TF1D:
		return 24 * time.Hour
	default:
		return 0
	}
}

func (tf Timeframe) String() string { return string(tf) }
