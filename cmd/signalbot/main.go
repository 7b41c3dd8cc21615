// cmd/signalbot runs one evaluation cycle over the configured coins and exits.
// It is meant to be triggered by an external scheduler (cron, CI); a non-zero
// exit means the cycle could not save its state.
//
// Usage:
//
//	go run ./cmd/signalbot
//	go run ./cmd/signalbot --history=20 --symbol=BTC   # print the decision journal
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"signalbot/config"
	"signalbot/internal/cooldown"
	"signalbot/internal/indicator"
	"signalbot/internal/logger"
	"signalbot/internal/marketdata/provider"
	"signalbot/internal/marketdata/tfbuilder"
	"signalbot/internal/metrics"
	"signalbot/internal/model"
	"signalbot/internal/news"
	"signalbot/internal/notification"
	"signalbot/internal/runner"
	sig "signalbot/internal/signal"
	filestore "signalbot/internal/store/file"
	redisstore "signalbot/internal/store/redis"
	sqlitestore "signalbot/internal/store/sqlite"
)

func main() {
	history := flag.Int("history", 0, "Print the last N journal entries (sqlite journal) and exit")
	symbol := flag.String("symbol", "", "Filter --history by symbol")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.Init("signalbot", logger.ParseLevel(cfg.LogLevel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	if *history > 0 {
		if err := printHistory(ctx, cfg, log, strings.ToUpper(*symbol), *history); err != nil {
			log.Error("history", slog.String("error", err.Error()))
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error("fatal", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	prom := metrics.NewMetrics()

	// ---- Providers ----
	registry := provider.NewRegistry(provider.ClientConfig{Timeout: cfg.ProviderTimeout})
	bindings, err := provider.ResolveBindings(cfg.Bindings, registry)
	if err != nil {
		return fmt.Errorf("bindings: %w", err)
	}
	rotator := provider.NewRotator(cfg.RotatorConfig(), bindings, log)
	rotator.OnAttempt = prom.ObserveAttempt

	resampler := tfbuilder.New(cfg.ResamplerConfig(), log)
	resampler.OnFallback = prom.ObserveFallback

	// ---- State ----
	backend, err := openBackend(ctx, cfg, log, prom)
	if err != nil {
		return err
	}
	defer backend.Close()
	store := cooldown.Open(ctx, cfg.CooldownConfig(), backend, log)

	journal, err := openJournal(cfg, log, backend)
	if err != nil {
		log.Warn("journal disabled", slog.String("error", err.Error()))
	}
	if journal != nil && any(journal) != any(backend) {
		defer journal.Close()
	}

	// ---- Delivery ----
	deps := runner.Deps{
		Fetcher:   rotator,
		Resampler: resampler,
		Engine:    indicator.NewEngine(cfg.IndicatorParams()),
		Evaluator: sig.NewEvaluator(cfg.SignalConfig(), store),
		Store:     store,
		Notifier:  buildNotifier(cfg, log),
		Journal:   journal,
		Metrics:   prom,
		Logger:    log,
	}
	if cfg.CryptoPanicToken != "" {
		deps.News = news.NewClient(cfg.CryptoPanicToken, "")
	}
	if cfg.PushgatewayURL != "" {
		deps.Pusher = metrics.NewPusher(cfg.PushgatewayURL)
	}

	coord := runner.New(runner.Config{
		Symbols:     cfg.Coins,
		Quote:       cfg.Quote,
		Location:    cfg.Location,
		NewsMovePct: cfg.NewsMovePct,
		Workers:     cfg.Workers,
	}, deps)

	_, err = coord.RunCycle(ctx)
	return err
}

// openBackend opens the cooldown state backend and records its reachability.
func openBackend(ctx context.Context, cfg *config.Config, log *slog.Logger, prom *metrics.Metrics) (model.StateBackend, error) {
	switch cfg.StateBackend {
	case "sqlite":
		s, err := sqlitestore.New(sqlitestore.Config{DBPath: cfg.SQLitePath}, log)
		if err != nil {
			return nil, fmt.Errorf("state backend: %w", err)
		}
		prom.CheckBackend(ctx, "sqlite", s.DB().PingContext)
		return s, nil
	case "redis":
		// An unreachable server is not fatal here: the state loads empty and
		// the end-of-cycle Save decides.
		s := redisstore.New(redisConfig(cfg), log)
		if err := prom.CheckBackend(ctx, "redis", s.Ping); err != nil {
			log.Warn("redis unreachable at startup", slog.String("addr", cfg.RedisAddr), slog.String("error", err.Error()))
		} else {
			log.Info("redis connected", slog.String("addr", cfg.RedisAddr))
		}
		return s, nil
	default:
		s := filestore.New(cfg.StateFile)
		log.Info("state backend", slog.String("backend", "file"), slog.String("path", s.Path()))
		return s, nil
	}
}

// openJournal returns nil when the journal is disabled. A journal on the
// same backend as the state reuses its connection.
func openJournal(cfg *config.Config, log *slog.Logger, state model.StateBackend) (model.DecisionJournal, error) {
	switch cfg.JournalBackend {
	case "sqlite":
		if s, ok := state.(*sqlitestore.Store); ok {
			return s, nil
		}
		s, err := sqlitestore.New(sqlitestore.Config{DBPath: cfg.SQLitePath}, log)
		if err != nil {
			return nil, fmt.Errorf("sqlite journal: %w", err)
		}
		return s, nil
	case "redis":
		if s, ok := state.(*redisstore.Store); ok {
			return s, nil
		}
		return redisstore.New(redisConfig(cfg), log), nil
	default:
		return nil, nil
	}
}

func redisConfig(cfg *config.Config) redisstore.Config {
	return redisstore.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		StateKey: cfg.RedisStateKey,
	}
}

// buildNotifier fans out to every configured channel, each with retries.
// Without a channel alerts only go to the log.
func buildNotifier(cfg *config.Config, log *slog.Logger) notification.Notifier {
	var out notification.Multi
	retry := notification.RetryConfig{}
	if cfg.TelegramBotToken != "" {
		tg := notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID, log)
		out = append(out, notification.NewRetrying(tg, retry, log))
	}
	if cfg.WebhookURL != "" {
		wh := notification.NewWebhookNotifier(cfg.WebhookURL, log)
		out = append(out, notification.NewRetrying(wh, retry, log))
	}
	if len(out) == 0 {
		log.Warn("no delivery channel configured, alerts go to the log")
		return notification.NewLogNotifier(log)
	}
	return out
}

func printHistory(ctx context.Context, cfg *config.Config, log *slog.Logger, symbol string, limit int) error {
	s, err := sqlitestore.New(sqlitestore.Config{DBPath: cfg.SQLitePath}, log)
	if err != nil {
		return err
	}
	defer s.Close()

	recs, err := s.Decisions(ctx, symbol, limit)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}
