package sqlite

import (
	"context"
	"fmt"
	"time"

	"signalbot/internal/model"
)

// Record appends one cycle's outcomes to the decisions table in a single
// transaction.
func (s *Store) Record(ctx context.Context, entries []model.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO decisions (run_id, symbol, kind, price, trend, frame_used, reason, decided_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		_, err := stmt.ExecContext(ctx, e.RunID, e.Symbol, string(e.Kind), e.Price,
			string(e.Trend), string(e.FrameUsed), e.Reason, e.At.UTC().Format(time.RFC3339))
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite insert decision: %w", err)
		}
	}
	return tx.Commit()
}

// DecisionRecord is a row from the decisions table.
type DecisionRecord struct {
	ID        int64   `json:"id"`
	RunID     string  `json:"run_id"`
	Symbol    string  `json:"symbol"`
	Kind      string  `json:"kind"`
	Price     float64 `json:"price"`
	Trend     string  `json:"trend"`
	FrameUsed string  `json:"frame_used"`
	Reason    string  `json:"reason"`
	DecidedAt string  `json:"decided_at"`
}

// Decisions returns the last N decisions, newest first. An empty symbol
// matches every symbol.
func (s *Store) Decisions(ctx context.Context, symbol string, limit int) ([]DecisionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, symbol, kind, price, trend, frame_used, reason, decided_at
		FROM decisions
		WHERE (? = '' OR symbol = ?)
		ORDER BY id DESC LIMIT ?
	`, symbol, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query decisions: %w", err)
	}
	defer rows.Close()

	var out []DecisionRecord
	for rows.Next() {
		var d DecisionRecord
		if err := rows.Scan(&d.ID, &d.RunID, &d.Symbol, &d.Kind, &d.Price,
			&d.Trend, &d.FrameUsed, &d.Reason, &d.DecidedAt); err != nil {
			return nil, fmt.Errorf("sqlite scan decision: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
