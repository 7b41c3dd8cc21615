package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"signalbot/internal/model"
)

func TestLoad_MissingFile(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "state.json"))
	rec, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if rec.Cooldowns == nil || len(rec.Cooldowns) != 0 {
		t.Errorf("expected empty record, got %+v", rec)
	}
}

func TestSaveLoad_WireFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "state.json")
	s := New(path)
	ctx := context.Background()
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	rec := model.NewCooldownRecord()
	rec.Cooldowns["ETH"] = map[model.SignalKind]time.Time{model.SignalOpportunity: t0}
	rec.LastDailyReport = "2024-03-01"
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, want := range []string{`"cooldowns"`, `"OPPORTUNITY": "2024-03-01T10:00:00Z"`, `"last_daily": "2024-03-01"`, `"last_heartbeat": ""`} {
		if !strings.Contains(string(raw), want) {
			t.Errorf("state file missing %s:\n%s", want, raw)
		}
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !got.Cooldowns["ETH"][model.SignalOpportunity].Equal(t0) {
		t.Errorf("cooldown = %v", got.Cooldowns)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestLoad_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(path).Load(context.Background()); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_NullCooldowns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte(`{"cooldowns":null,"last_daily":"2024-01-01"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	rec, err := New(path).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if rec.Cooldowns == nil {
		t.Error("cooldowns map should be initialised")
	}
	if rec.LastDailyReport != "2024-01-01" {
		t.Errorf("last_daily = %q", rec.LastDailyReport)
	}
}

func TestDefaultPath(t *testing.T) {
	if New("").Path() != DefaultPath {
		t.Error("empty path should use the default")
	}
}
