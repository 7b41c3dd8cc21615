package cooldown

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"signalbot/internal/model"
	filestore "signalbot/internal/store/file"
)

type memBackend struct {
	rec     *model.CooldownRecord
	loadErr error
	saveErr error
	saved   *model.CooldownRecord
}

func (m *memBackend) Load(ctx context.Context) (*model.CooldownRecord, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.rec == nil {
		return model.NewCooldownRecord(), nil
	}
	return m.rec, nil
}

func (m *memBackend) Save(ctx context.Context, rec *model.CooldownRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = rec
	return nil
}

func (m *memBackend) Close() error { return nil }

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func testConfig() Config {
	return Config{
		Windows: map[model.SignalKind]time.Duration{
			model.SignalOpportunity: 6 * time.Hour,
			model.SignalNews:        6 * time.Hour,
		},
		Location: time.FixedZone("CET", 3600),
	}
}

func TestCooldownWindowBoundary(t *testing.T) {
	s := New(testConfig(), nil)
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	eps := time.Second

	if s.IsInCooldown("BTC", model.SignalOpportunity, t0) {
		t.Fatal("fresh store should not be in cooldown")
	}
	s.MarkFired("BTC", model.SignalOpportunity, t0)

	if !s.IsInCooldown("BTC", model.SignalOpportunity, t0.Add(6*time.Hour-eps)) {
		t.Error("expected cooldown just before the window ends")
	}
	if s.IsInCooldown("BTC", model.SignalOpportunity, t0.Add(6*time.Hour+eps)) {
		t.Error("expected no cooldown just after the window ends")
	}
	if s.IsInCooldown("BTC", model.SignalOpportunity, t0.Add(6*time.Hour)) {
		t.Error("window end is exclusive")
	}
	if s.IsInCooldown("ETH", model.SignalOpportunity, t0.Add(time.Minute)) {
		t.Error("cooldown is per symbol")
	}
}

func TestCooldown_KindsIndependent(t *testing.T) {
	s := New(testConfig(), nil)
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	s.MarkFired("BTC", model.SignalNews, t0)
	if s.IsInCooldown("BTC", model.SignalOpportunity, t0) {
		t.Error("NEWS cooldown must not gate OPPORTUNITY")
	}
	s.MarkFired("BTC", model.SignalBuy, t0)
	if s.IsInCooldown("BTC", model.SignalBuy, t0) {
		t.Error("BUY has no window")
	}
}

func TestDailyReportDue(t *testing.T) {
	cfg := testConfig()
	cfg.DailyReportHour = 8
	s := New(cfg, nil)

	// 06:30 UTC = 07:30 local: before the hour.
	early := time.Date(2024, 3, 1, 6, 30, 0, 0, time.UTC)
	if s.IsDailyReportDue(early) {
		t.Error("not due before the configured local hour")
	}
	// 07:00 UTC = 08:00 local.
	onTime := time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC)
	if !s.IsDailyReportDue(onTime) {
		t.Fatal("due at the configured local hour")
	}
	s.MarkDailyReportSent(onTime)
	if s.IsDailyReportDue(onTime.Add(10 * time.Hour)) {
		t.Error("sent once per local date")
	}
	// 23:30 UTC on the 1st is 00:30 on the 2nd locally, still before 08:00.
	if s.IsDailyReportDue(time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC)) {
		t.Error("not due before the hour on the next local date")
	}
	if !s.IsDailyReportDue(time.Date(2024, 3, 2, 7, 0, 0, 0, time.UTC)) {
		t.Error("due again on the next local date")
	}
	if got := s.Snapshot().LastDailyReport; got != "2024-03-01" {
		t.Errorf("stamp = %q", got)
	}
}

func TestHeartbeatUsesLocalDate(t *testing.T) {
	s := New(testConfig(), nil)
	// 23:30 UTC is already the next day in CET.
	late := time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC)
	if !s.IsHeartbeatDue(late) {
		t.Fatal("heartbeat should be due")
	}
	s.MarkHeartbeatSent(late)
	if got := s.Snapshot().LastHeartbeat; got != "2024-03-02" {
		t.Errorf("heartbeat stamp = %q, want local date 2024-03-02", got)
	}
	if s.IsHeartbeatDue(time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)) {
		t.Error("heartbeat already sent for 2024-03-02")
	}
}

func TestOpen_LoadFailureStartsEmpty(t *testing.T) {
	b := &memBackend{loadErr: errors.New("corrupt json")}
	s := Open(context.Background(), testConfig(), b, quiet())
	if s.IsInCooldown("BTC", model.SignalOpportunity, time.Now()) {
		t.Error("expected empty record")
	}
	if !s.IsHeartbeatDue(time.Now()) {
		t.Error("empty record should make the heartbeat due")
	}
}

func TestOpenSave_RoundTrip(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := model.NewCooldownRecord()
	rec.Cooldowns["ETH"] = map[model.SignalKind]time.Time{model.SignalOpportunity: t0}
	b := &memBackend{rec: rec}

	s := Open(context.Background(), testConfig(), b, quiet())
	if !s.IsInCooldown("ETH", model.SignalOpportunity, t0.Add(time.Hour)) {
		t.Error("loaded cooldown should be active")
	}
	s.MarkFired("BTC", model.SignalOpportunity, t0)
	if err := s.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, ok := b.saved.Cooldowns["BTC"][model.SignalOpportunity]; !ok {
		t.Error("saved record missing BTC cooldown")
	}

	// Snapshot is a copy.
	b.saved.Cooldowns["BTC"][model.SignalOpportunity] = time.Time{}
	if at := s.Snapshot().Cooldowns["BTC"][model.SignalOpportunity]; !at.Equal(t0) {
		t.Error("store mutated through saved snapshot")
	}
}

func TestOpen_NullSymbolEntry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	if err := os.WriteFile(path, []byte(`{"cooldowns":{"BTC":null,"ETH":{}}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	s := Open(context.Background(), testConfig(), filestore.New(path), quiet())
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	if s.IsInCooldown("BTC", model.SignalOpportunity, t0) {
		t.Error("null entry should not be in cooldown")
	}
	s.MarkFired("BTC", model.SignalOpportunity, t0)
	s.MarkFired("ETH", model.SignalNews, t0)
	if !s.IsInCooldown("BTC", model.SignalOpportunity, t0.Add(time.Hour)) {
		t.Error("BTC mark lost")
	}
	if err := s.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}

	reopened := Open(context.Background(), testConfig(), filestore.New(path), quiet())
	if !reopened.IsInCooldown("ETH", model.SignalNews, t0.Add(time.Hour)) {
		t.Error("ETH mark not persisted")
	}
}

func TestMarkFired_NilInnerMap(t *testing.T) {
	rec := model.NewCooldownRecord()
	s := New(testConfig(), rec)
	rec.Cooldowns["SOL"] = nil
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	s.MarkFired("SOL", model.SignalOpportunity, t0)
	if !s.IsInCooldown("SOL", model.SignalOpportunity, t0) {
		t.Error("SOL should be in cooldown")
	}
}

func TestSave_Error(t *testing.T) {
	b := &memBackend{saveErr: errors.New("disk full")}
	s := Open(context.Background(), testConfig(), b, quiet())
	if err := s.Save(context.Background()); err == nil {
		t.Fatal("expected save error")
	}
}

func TestConcurrentMarks(t *testing.T) {
	s := New(testConfig(), nil)
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	syms := []string{"BTC", "ETH", "BNB", "SOL", "BGB"}

	var wg sync.WaitGroup
	for _, sym := range syms {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				s.MarkFired(sym, model.SignalOpportunity, t0)
				_ = s.IsInCooldown(sym, model.SignalOpportunity, t0)
			}
		}(sym)
	}
	wg.Wait()

	for _, sym := range syms {
		if !s.IsInCooldown(sym, model.SignalOpportunity, t0) {
			t.Errorf("%s not in cooldown", sym)
		}
	}
}
