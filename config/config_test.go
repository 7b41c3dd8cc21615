package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"signalbot/internal/marketdata/provider"
	"signalbot/internal/model"
	"signalbot/internal/signal"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if strings.Join(cfg.Coins, ",") != "BTC,ETH,BNB,SOL,BGB" || cfg.Quote != "USDT" {
		t.Errorf("universe = %v/%s", cfg.Coins, cfg.Quote)
	}
	if cfg.RSILen != 14 || cfg.RSIBuy != 30 || cfg.RSIOpp != 40 || cfg.RSIWide {
		t.Errorf("rsi = %d/%v/%v/%v", cfg.RSILen, cfg.RSIBuy, cfg.RSIOpp, cfg.RSIWide)
	}
	if cfg.MACDFast != 12 || cfg.MACDSlow != 26 || cfg.MACDSignal != 9 {
		t.Errorf("macd = %d/%d/%d", cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)
	}
	if !cfg.EnableOpportunity || cfg.OppCooldown() != 6*time.Hour || cfg.TrendFilter != "off" {
		t.Errorf("opportunity = %v/%v/%s", cfg.EnableOpportunity, cfg.OppCooldown(), cfg.TrendFilter)
	}
	if !cfg.Allow1HFallback || cfg.Min4HBars != 60 || cfg.Lookback1H != 900 || cfg.Lookback1D != 500 {
		t.Errorf("acquisition = %+v", cfg)
	}
	if cfg.ProviderTimeout != 20*time.Second {
		t.Errorf("timeout = %v", cfg.ProviderTimeout)
	}
	if cfg.Location == nil || cfg.Location.String() != "Europe/Rome" {
		t.Errorf("location = %v", cfg.Location)
	}
	if cfg.StateBackend != "file" || cfg.StateFile != ".state/state.json" || cfg.JournalBackend != "none" {
		t.Errorf("persistence = %s/%s/%s", cfg.StateBackend, cfg.StateFile, cfg.JournalBackend)
	}
	if cfg.NewsMovePct != 3 || cfg.NewsCooldown() != 6*time.Hour || cfg.Workers != 1 {
		t.Errorf("news/workers = %v/%v/%d", cfg.NewsMovePct, cfg.NewsCooldown(), cfg.Workers)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("COINS", " btc , sol ,")
	t.Setenv("RSI_WIDE", "true")
	t.Setenv("TREND_FILTER", "ALL_UP")
	t.Setenv("PROVIDER_TIMEOUT_SEC", "2.5")
	t.Setenv("WORKERS", "4")
	t.Setenv("LOCAL_TZ", "UTC")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if strings.Join(cfg.Coins, ",") != "BTC,SOL" {
		t.Errorf("coins = %v", cfg.Coins)
	}
	if !cfg.RSIWide || cfg.TrendFilter != "all_up" || cfg.Workers != 4 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.ProviderTimeout != 2500*time.Millisecond {
		t.Errorf("timeout = %v", cfg.ProviderTimeout)
	}
	if len(cfg.Bindings) != 2 {
		t.Errorf("bindings = %v", cfg.Bindings)
	}
}

func TestSubConfigs(t *testing.T) {
	t.Setenv("RSI_LEN", "10")
	t.Setenv("MACD_SLOW", "30")
	t.Setenv("TREND_FILTER", "buy_only_up")
	t.Setenv("NEWS_COOLDOWN_HOURS", "12")
	t.Setenv("HEARTBEAT_HOUR", "8")
	t.Setenv("MIN_4H_BARS", "40")
	t.Setenv("ALLOW_1H_FALLBACK", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	p := cfg.IndicatorParams()
	if p.RSIPeriod != 10 || p.MACDSlow != 30 || p.MinLength() != 60 {
		t.Errorf("indicator params = %+v", p)
	}
	if sc := cfg.SignalConfig(); sc.TrendFilter != signal.FilterBuyOnlyUp || sc.RSIBuy != 30 {
		t.Errorf("signal config = %+v", sc)
	}
	cc := cfg.CooldownConfig()
	if cc.Windows[model.SignalNews] != 12*time.Hour || cc.Windows[model.SignalOpportunity] != 6*time.Hour {
		t.Errorf("windows = %v", cc.Windows)
	}
	if cc.HeartbeatHour != 8 || cc.Location != cfg.Location {
		t.Errorf("cooldown config = %+v", cc)
	}
	if rc := cfg.RotatorConfig(); rc.Lookback[model.TF1H] != 900 || rc.Timeout != 20*time.Second {
		t.Errorf("rotator config = %+v", rc)
	}
	if rs := cfg.ResamplerConfig(); rs.MinBars != 40 || rs.AllowFallback {
		t.Errorf("resampler config = %+v", rs)
	}
}

func TestLoad_ParseErrors(t *testing.T) {
	t.Setenv("RSI_LEN", "fourteen")
	t.Setenv("RSI_WIDE", "maybe")
	_, err := Load()
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "RSI_LEN") || !strings.Contains(err.Error(), "RSI_WIDE") {
		t.Errorf("all parse errors should be reported: %v", err)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := map[string][2]string{
		"trend filter": {"TREND_FILTER", "strict"},
		"backend":      {"STATE_BACKEND", "postgres"},
		"hour":         {"DAILY_REPORT_HOUR", "24"},
		"macd":         {"MACD_SLOW", "10"},
		"timezone":     {"LOCAL_TZ", "Mars/Olympus"},
		"webhook":      {"WEBHOOK_URL", "not a url"},
		"workers":      {"WORKERS", "0"},
		"journal":      {"JOURNAL_BACKEND", "kafka"},
		"empty coins":  {"COINS", ","},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			if _, err := Load(); err == nil {
				t.Errorf("%s=%s should fail", kv[0], kv[1])
			}
		})
	}
}

func TestLoad_TelegramNeedsChat(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	if _, err := Load(); err == nil {
		t.Fatal("token without chat id should fail")
	}
	t.Setenv("TELEGRAM_CHAT_ID", "-100")
	if _, err := Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
}

func TestDefaultBindings(t *testing.T) {
	b := DefaultBindings([]string{"BTC", "BGB"}, "USDT")

	btc := b["BTC"]
	want := []provider.BindingSpec{
		{Provider: "okx", Instrument: "BTC-USDT"},
		{Provider: "bybit", Instrument: "BTCUSDT"},
		{Provider: "binance", Instrument: "BTCUSDT"},
	}
	if len(btc) != len(want) {
		t.Fatalf("btc = %v", btc)
	}
	for i := range want {
		if btc[i] != want[i] {
			t.Errorf("btc[%d] = %v, want %v", i, btc[i], want[i])
		}
	}

	bgb := b["BGB"]
	if len(bgb) != 2 || bgb[0].Provider != "bitget" || bgb[1].Provider != "bitget-history" || bgb[0].Instrument != "BGBUSDT" {
		t.Errorf("bgb = %v", bgb)
	}
}

func TestLoadBindingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bindings.yaml")
	data := `
bindings:
  btc:
    - provider: Binance
      instrument: BTCUSDT
    - provider: okx
      instrument: BTC-USDT
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BINDINGS_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	btc := cfg.Bindings["BTC"]
	if len(btc) != 2 || btc[0].Provider != "binance" || btc[1].Instrument != "BTC-USDT" {
		t.Errorf("btc = %v", btc)
	}
	if len(cfg.Bindings["ETH"]) != 3 {
		t.Error("symbols absent from the file keep their defaults")
	}
}

func TestLoadBindingsFile_Errors(t *testing.T) {
	if _, err := LoadBindingsFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected missing file error")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("bindings: [unterminated"), 0o644)
	if _, err := LoadBindingsFile(path); err == nil {
		t.Error("expected yaml error")
	}
}
