// Package cooldown tracks per-symbol signal cooldowns and the once-per-day
// report and heartbeat stamps. The whole record is loaded at the start of a
// cycle and saved at its end through a model.StateBackend.
//
// The store is not crash-safe: a crash between firing a signal and Save can
// fire the same signal again on the next cycle.
package cooldown

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"signalbot/internal/model"
)

const dayLayout = "2006-01-02"

// Config sets the cooldown windows and the daily schedule.
type Config struct {
	// Windows is the cooldown length per signal kind. A kind without a
	// window (or a zero window) is never in cooldown.
	Windows map[model.SignalKind]time.Duration

	// Location is the timezone for calendar-day stamps. nil = UTC.
	Location *time.Location

	// DailyReportHour and HeartbeatHour are the earliest local hours (0-23)
	// at which the daily report and the heartbeat become due.
	DailyReportHour int
	HeartbeatHour   int
}

// Store is the in-memory cooldown record for one cycle. It is safe for
// concurrent use.
type Store struct {
	mu      sync.Mutex
	cfg     Config
	rec     *model.CooldownRecord
	backend model.StateBackend
	logger  *slog.Logger
}

// New returns a store over rec without a backend. Save is a no-op.
func New(cfg Config, rec *model.CooldownRecord) *Store {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if rec == nil {
		rec = model.NewCooldownRecord()
	}
	if rec.Cooldowns == nil {
		rec.Cooldowns = make(map[string]map[model.SignalKind]time.Time)
	}
	for sym, kinds := range rec.Cooldowns {
		if kinds == nil {
			delete(rec.Cooldowns, sym)
		}
	}
	return &Store{cfg: cfg, rec: rec, logger: slog.Default()}
}

// Open loads the record from backend. Missing or unreadable state yields an
// empty record; the failure is logged as a StateLoadError, not returned.
func Open(ctx context.Context, cfg Config, backend model.StateBackend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	rec, err := backend.Load(ctx)
	if err != nil {
		lerr := &model.StateLoadError{Err: err}
		logger.Warn("state unreadable, starting empty", slog.String("error", lerr.Error()))
		rec = nil
	}
	s := New(cfg, rec)
	s.backend = backend
	s.logger = logger
	return s
}

// Save persists the whole record. A failure here is fatal for the run.
func (s *Store) Save(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}
	snap := s.Snapshot()
	if err := s.backend.Save(ctx, snap); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// Snapshot returns a deep copy of the current record.
func (s *Store) Snapshot() *model.CooldownRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Clone()
}

// IsInCooldown reports whether now < lastFiredAt + window(kind).
func (s *Store) IsInCooldown(symbol string, kind model.SignalKind, now time.Time) bool {
	window := s.cfg.Windows[kind]
	if window <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.rec.Cooldowns[symbol][kind]
	if !ok {
		return false
	}
	return now.Before(at.Add(window))
}

// MarkFired records that kind fired for symbol at now.
func (s *Store) MarkFired(symbol string, kind model.SignalKind, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kinds := s.rec.Cooldowns[symbol]
	if kinds == nil {
		kinds = make(map[model.SignalKind]time.Time)
		s.rec.Cooldowns[symbol] = kinds
	}
	kinds[kind] = now.UTC()
}

// localDay returns the calendar date of now in the report timezone and
// whether the local hour has reached minHour.
func (s *Store) localDay(now time.Time, minHour int) (string, bool) {
	local := now.In(s.cfg.Location)
	return local.Format(dayLayout), local.Hour() >= minHour
}

// IsDailyReportDue is true at most once per local calendar date, from
// DailyReportHour on.
func (s *Store) IsDailyReportDue(now time.Time) bool {
	day, reached := s.localDay(now, s.cfg.DailyReportHour)
	s.mu.Lock()
	defer s.mu.Unlock()
	return reached && s.rec.LastDailyReport != day
}

// MarkDailyReportSent stamps today's local date.
func (s *Store) MarkDailyReportSent(now time.Time) {
	day, _ := s.localDay(now, 0)
	s.mu.Lock()
	s.rec.LastDailyReport = day
	s.mu.Unlock()
}

// IsHeartbeatDue is true at most once per local calendar date, from
// HeartbeatHour on.
func (s *Store) IsHeartbeatDue(now time.Time) bool {
	day, reached := s.localDay(now, s.cfg.HeartbeatHour)
	s.mu.Lock()
	defer s.mu.Unlock()
	return reached && s.rec.LastHeartbeat != day
}

// MarkHeartbeatSent stamps today's local date.
func (s *Store) MarkHeartbeatSent(now time.Time) {
	day, _ := s.localDay(now, 0)
	s.mu.Lock()
	s.rec.LastHeartbeat = day
	s.mu.Unlock()
}
