// Package config loads the bot configuration from the environment (and an
// optional .env file) into an immutable struct.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // LOCAL_TZ must resolve on hosts without a zoneinfo database

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"signalbot/internal/cooldown"
	"signalbot/internal/indicator"
	"signalbot/internal/marketdata/provider"
	"signalbot/internal/marketdata/tfbuilder"
	"signalbot/internal/model"
	"signalbot/internal/signal"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Universe
	Coins []string `validate:"min=1,dive,required"`
	Quote string   `validate:"required"`

	// Indicators and signal thresholds
	RSILen            int     `validate:"min=2"`
	RSIBuy            float64 `validate:"gte=0,lte=100"`
	RSIOpp            float64 `validate:"gte=0,lte=100"`
	RSIWide           bool
	MACDFast          int `validate:"min=1"`
	MACDSlow          int `validate:"gtfield=MACDFast"`
	MACDSignal        int `validate:"min=1"`
	EnableOpportunity bool
	OppCooldownHours  float64 `validate:"gte=0"`
	TrendFilter       string  `validate:"oneof=off buy_only_up all_up"`

	// Data acquisition
	Allow1HFallback bool
	Min4HBars       int           `validate:"min=1"`
	Lookback1H      int           `validate:"min=1"`
	Lookback1D      int           `validate:"min=1"`
	ProviderTimeout time.Duration `validate:"gt=0"`
	BindingsFile    string
	Bindings        map[string][]provider.BindingSpec `validate:"-"`

	// Schedule
	LocalTZ         string         `validate:"required"`
	Location        *time.Location `validate:"-"`
	DailyReportHour int            `validate:"min=0,max=23"`
	HeartbeatHour   int            `validate:"min=0,max=23"`

	// Persistence
	StateBackend   string `validate:"oneof=file sqlite redis"`
	StateFile      string
	SQLitePath     string
	RedisAddr      string
	RedisPassword  string
	RedisStateKey  string
	JournalBackend string `validate:"omitempty,oneof=none sqlite redis"`

	// Delivery
	TelegramBotToken string
	TelegramChatID   string `validate:"required_with=TelegramBotToken"`
	WebhookURL       string `validate:"omitempty,url"`

	// News
	CryptoPanicToken  string
	NewsMovePct       float64 `validate:"gte=0"`
	NewsCooldownHours float64 `validate:"gte=0"`

	// Observability
	PushgatewayURL string `validate:"omitempty,url"`
	LogLevel       string

	// Concurrency
	Workers int `validate:"min=1,max=64"`
}

// envReader collects parse errors so Load can report all of them at once.
type envReader struct {
	errs []error
}

func (r *envReader) str(key, fallback string) string {
	return getEnv(key, fallback)
}

func (r *envReader) int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func (r *envReader) float(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return f
}

func (r *envReader) bool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

// Load reads configuration from environment variables with sensible
// defaults. A .env file in the working directory is loaded first if present;
// variables already set in the environment win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	r := &envReader{}
	cfg := &Config{
		Coins: splitList(r.str("COINS", "BTC,ETH,BNB,SOL,BGB")),
		Quote: strings.ToUpper(r.str("QUOTE", "USDT")),

		RSILen:            r.int("RSI_LEN", 14),
		RSIBuy:            r.float("RSI_BUY", 30),
		RSIOpp:            r.float("RSI_OPP", 40),
		RSIWide:           r.bool("RSI_WIDE", false),
		MACDFast:          r.int("MACD_FAST", 12),
		MACDSlow:          r.int("MACD_SLOW", 26),
		MACDSignal:        r.int("MACD_SIGNAL", 9),
		EnableOpportunity: r.bool("ENABLE_OPPORTUNITY", true),
		OppCooldownHours:  r.float("OPPORTUNITY_COOLDOWN_HOURS", 6),
		TrendFilter:       strings.ToLower(r.str("TREND_FILTER", "off")),

		Allow1HFallback: r.bool("ALLOW_1H_FALLBACK", true),
		Min4HBars:       r.int("MIN_4H_BARS", 60),
		Lookback1H:      r.int("LOOKBACK_1H", 900),
		Lookback1D:      r.int("LOOKBACK_1D", 500),
		ProviderTimeout: time.Duration(r.float("PROVIDER_TIMEOUT_SEC", 20) * float64(time.Second)),
		BindingsFile:    r.str("BINDINGS_FILE", ""),

		LocalTZ:         r.str("LOCAL_TZ", "Europe/Rome"),
		DailyReportHour: r.int("DAILY_REPORT_HOUR", 0),
		HeartbeatHour:   r.int("HEARTBEAT_HOUR", 0),

		StateBackend:   strings.ToLower(r.str("STATE_BACKEND", "file")),
		StateFile:      r.str("STATE_FILE", ".state/state.json"),
		SQLitePath:     r.str("SQLITE_PATH", "data/signalbot.db"),
		RedisAddr:      r.str("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  r.str("REDIS_PASSWORD", ""),
		RedisStateKey:  r.str("REDIS_STATE_KEY", "signalbot:state"),
		JournalBackend: strings.ToLower(r.str("JOURNAL_BACKEND", "none")),

		TelegramBotToken: r.str("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   r.str("TELEGRAM_CHAT_ID", ""),
		WebhookURL:       r.str("WEBHOOK_URL", ""),

		CryptoPanicToken:  r.str("CRYPTOPANIC_TOKEN", ""),
		NewsMovePct:       r.float("NEWS_MOVE_PCT", 3.0),
		NewsCooldownHours: r.float("NEWS_COOLDOWN_HOURS", 6),

		PushgatewayURL: r.str("PUSHGATEWAY_URL", ""),
		LogLevel:       r.str("LOG_LEVEL", "info"),

		Workers: r.int("WORKERS", 1),
	}
	if len(r.errs) > 0 {
		return nil, fmt.Errorf("config: %w", errors.Join(r.errs...))
	}

	loc, err := time.LoadLocation(cfg.LocalTZ)
	if err != nil {
		return nil, fmt.Errorf("config: LOCAL_TZ: %w", err)
	}
	cfg.Location = loc

	cfg.Bindings = DefaultBindings(cfg.Coins, cfg.Quote)
	if cfg.BindingsFile != "" {
		override, err := LoadBindingsFile(cfg.BindingsFile)
		if err != nil {
			return nil, err
		}
		for sym, specs := range override {
			cfg.Bindings[sym] = specs
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	for _, coin := range c.Coins {
		if len(c.Bindings[coin]) == 0 {
			return fmt.Errorf("config: symbol %s has no provider bindings", coin)
		}
	}
	return nil
}

// OppCooldown is the opportunity cooldown window.
func (c *Config) OppCooldown() time.Duration {
	return time.Duration(c.OppCooldownHours * float64(time.Hour))
}

// NewsCooldown is the per-symbol news cooldown window.
func (c *Config) NewsCooldown() time.Duration {
	return time.Duration(c.NewsCooldownHours * float64(time.Hour))
}

// IndicatorParams is the indicator engine configuration.
func (c *Config) IndicatorParams() indicator.Params {
	p := indicator.DefaultParams()
	p.RSIPeriod = c.RSILen
	p.MACDFast = c.MACDFast
	p.MACDSlow = c.MACDSlow
	p.MACDSignal = c.MACDSignal
	return p
}

// SignalConfig is the evaluator configuration. TrendFilter has already been
// validated by Load.
func (c *Config) SignalConfig() signal.Config {
	tf, _ := signal.ParseTrendFilter(c.TrendFilter)
	return signal.Config{
		RSIBuy:            c.RSIBuy,
		RSIOpp:            c.RSIOpp,
		Wide:              c.RSIWide,
		EnableOpportunity: c.EnableOpportunity,
		TrendFilter:       tf,
	}
}

// CooldownConfig is the cooldown store configuration.
func (c *Config) CooldownConfig() cooldown.Config {
	return cooldown.Config{
		Windows: map[model.SignalKind]time.Duration{
			model.SignalOpportunity: c.OppCooldown(),
			model.SignalNews:        c.NewsCooldown(),
		},
		Location:        c.Location,
		DailyReportHour: c.DailyReportHour,
		HeartbeatHour:   c.HeartbeatHour,
	}
}

// RotatorConfig is the provider rotator configuration.
func (c *Config) RotatorConfig() provider.RotatorConfig {
	return provider.RotatorConfig{
		Lookback: map[model.Timeframe]int{
			model.TF1H: c.Lookback1H,
			model.TF1D: c.Lookback1D,
		},
		Timeout: c.ProviderTimeout,
	}
}

// ResamplerConfig is the 1h to 4h resample policy.
func (c *Config) ResamplerConfig() tfbuilder.Config {
	return tfbuilder.Config{MinBars: c.Min4HBars, AllowFallback: c.Allow1HFallback}
}

// DefaultBindings returns the built-in provider order for each coin: BGB is
// only listed on Bitget, everything else tries OKX, Bybit then Binance.
func DefaultBindings(coins []string, quote string) map[string][]provider.BindingSpec {
	out := make(map[string][]provider.BindingSpec, len(coins))
	for _, coin := range coins {
		pair := coin + quote
		if coin == "BGB" {
			out[coin] = []provider.BindingSpec{
				{Provider: provider.NameBitget, Instrument: pair},
				{Provider: provider.NameBitgetHistory, Instrument: pair},
			}
			continue
		}
		out[coin] = []provider.BindingSpec{
			{Provider: provider.NameOKX, Instrument: coin + "-" + quote},
			{Provider: provider.NameBybit, Instrument: pair},
			{Provider: provider.NameBinance, Instrument: pair},
		}
	}
	return out
}

type bindingsFile struct {
	Bindings map[string][]struct {
		Provider   string `yaml:"provider"`
		Instrument string `yaml:"instrument"`
	} `yaml:"bindings"`
}

// LoadBindingsFile reads per-symbol provider bindings from a YAML file:
//
//	bindings:
//	  BTC:
//	    - provider: okx
//	      instrument: BTC-USDT
func LoadBindingsFile(path string) (map[string][]provider.BindingSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bindings file: %w", err)
	}
	var f bindingsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("bindings file %s: %w", path, err)
	}

	out := make(map[string][]provider.BindingSpec, len(f.Bindings))
	for sym, list := range f.Bindings {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		specs := make([]provider.BindingSpec, 0, len(list))
		for _, b := range list {
			specs = append(specs, provider.BindingSpec{
				Provider:   strings.ToLower(strings.TrimSpace(b.Provider)),
				Instrument: strings.TrimSpace(b.Instrument),
			})
		}
		out[sym] = specs
	}
	return out, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
