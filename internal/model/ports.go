package model

import (
	"context"
	"time"
)

// ── Ports ──
// These interfaces decouple the evaluation pipeline from concrete data
// sources and storage (HTTP exchanges, file, SQLite, Redis).

// CandleFetcher returns an ascending candle sequence for a symbol/timeframe.
type CandleFetcher interface {
	Fetch(ctx context.Context, symbol string, tf Timeframe) ([]Candle, error)
}

// StateBackend loads and saves the whole cooldown record in one piece.
type StateBackend interface {
	// Load returns the persisted record. A missing record returns an empty
	// record and nil error.
	Load(ctx context.Context) (*CooldownRecord, error)

	// Save replaces the persisted record.
	Save(ctx context.Context, rec *CooldownRecord) error

	// Close releases underlying resources.
	Close() error
}

// JournalEntry is one evaluated symbol in one cycle.
type JournalEntry struct {
	RunID     string
	Symbol    string
	Kind      SignalKind
	Price     float64
	Trend     TrendState
	FrameUsed Timeframe
	Reason    string
	At        time.Time
}

// DecisionJournal records every cycle outcome for audit.
type DecisionJournal interface {
	Record(ctx context.Context, entries []JournalEntry) error
	Close() error
}
