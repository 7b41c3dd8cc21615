// Package runner drives one evaluation cycle: fetch, resample, indicate and
// evaluate every symbol, then deliver alerts and persist the cooldown state.
// Per-symbol failures are logged as skips and never abort the cycle.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"signalbot/internal/cooldown"
	"signalbot/internal/indicator"
	"signalbot/internal/logger"
	"signalbot/internal/marketdata/tfbuilder"
	"signalbot/internal/metrics"
	"signalbot/internal/model"
	"signalbot/internal/notification"
	"signalbot/internal/signal"
)

// Evaluator resolves a decision from indicated daily and intraday sequences.
type Evaluator interface {
	Evaluate(symbol string, daily, intraday []model.IndicatedCandle, frame model.Timeframe, now time.Time) model.Decision
}

// NewsSource returns recent headlines for a symbol.
type NewsSource interface {
	Enabled() bool
	Headlines(ctx context.Context, symbol string) ([]model.Headline, error)
}

// Config holds the cycle-level settings.
type Config struct {
	Symbols     []string
	Quote       string
	Location    *time.Location // report timezone for the heartbeat text
	NewsMovePct float64        // minimum |1D change| in percent that triggers a news lookup
	Workers     int            // concurrent symbol evaluations; <=1 is sequential
}

// Deps are the collaborators of a Coordinator. News, Journal, Metrics and
// Pusher are optional.
type Deps struct {
	Fetcher   model.CandleFetcher
	Resampler *tfbuilder.Resampler
	Engine    *indicator.Engine
	Evaluator Evaluator
	Store     *cooldown.Store
	Notifier  notification.Notifier

	News    NewsSource
	Journal model.DecisionJournal
	Metrics *metrics.Metrics
	Pusher  *metrics.Pusher

	Logger *slog.Logger
}

// Outcome is the result for one symbol. Exactly one of Decision and
// SkipReason is set. Summary is set whenever daily candles were fetched.
type Outcome struct {
	Symbol     string
	Decision   *model.Decision
	Summary    *model.Summary
	SkipReason string
	Err        error

	// DayMovePct is the change of the latest daily bar, still-forming bar
	// included, against the one before it. HasDayMove is false with fewer
	// than two daily bars or a zero previous close.
	DayMovePct float64
	HasDayMove bool
}

// Skipped returns true when the symbol produced no decision.
func (o *Outcome) Skipped() bool { return o.Decision == nil }

// CycleReport describes a completed cycle.
type CycleReport struct {
	RunID         string
	StartedAt     time.Time
	Duration      time.Duration
	Outcomes      []Outcome
	DailySent     bool
	HeartbeatSent bool
	NewsSent      []string
}

// Fired returns the BUY and OPPORTUNITY decisions in symbol order.
func (r *CycleReport) Fired() []model.Decision {
	var out []model.Decision
	for _, o := range r.Outcomes {
		if o.Decision != nil && o.Decision.Fired() {
			out = append(out, *o.Decision)
		}
	}
	return out
}

// Coordinator runs evaluation cycles.
type Coordinator struct {
	cfg Config
	Deps

	now func() time.Time
}

// New creates a coordinator.
func New(cfg Config, deps Deps) *Coordinator {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Coordinator{cfg: cfg, Deps: deps, now: time.Now}
}

// RunCycle evaluates every symbol once, sends the resulting alerts and saves
// the cooldown state. Only a cancelled context or a failed state save is
// returned as an error.
func (c *Coordinator) RunCycle(ctx context.Context) (*CycleReport, error) {
	runID := logger.NewRunID()
	ctx = logger.WithRunID(ctx, runID)
	now := c.now().UTC()

	report := &CycleReport{RunID: runID, StartedAt: now}
	c.Logger.Info("cycle started",
		append(logger.LogWithRun(ctx), slog.Int("symbols", len(c.cfg.Symbols)), slog.Int("workers", c.cfg.Workers))...)

	report.Outcomes = c.evaluateAll(ctx, now)
	if err := ctx.Err(); err != nil {
		c.Logger.Warn("cycle cancelled, state not saved", append(logger.LogWithRun(ctx), slog.String("error", err.Error()))...)
		return report, err
	}

	c.notifyDecisions(ctx, report)
	c.sendDailyReport(ctx, report, now)
	c.sendHeartbeat(ctx, report, now)
	c.sendNews(ctx, report, now)
	c.recordJournal(ctx, report, now)

	if err := c.Store.Save(ctx); err != nil {
		c.Logger.Error("cycle failed", append(logger.LogWithRun(ctx), slog.String("error", err.Error()))...)
		return report, err
	}

	report.Duration = c.now().Sub(report.StartedAt)
	if c.Metrics != nil {
		c.Metrics.CycleDuration.Set(report.Duration.Seconds())
		c.Metrics.LastSuccess.Set(float64(c.now().Unix()))
		if c.Pusher != nil {
			if err := c.Pusher.Push(ctx, c.Metrics); err != nil {
				c.Logger.Warn("metrics push failed", append(logger.LogWithRun(ctx), slog.String("error", err.Error()))...)
			}
		}
	}

	c.Logger.Info("cycle finished",
		append(logger.LogWithRun(ctx),
			slog.Int("fired", len(report.Fired())),
			slog.Bool("daily_sent", report.DailySent),
			slog.Bool("heartbeat_sent", report.HeartbeatSent),
			slog.Duration("duration", report.Duration))...)
	return report, nil
}

// evaluateAll runs evaluateSymbol over a bounded worker pool. Outcomes keep
// the configured symbol order.
func (c *Coordinator) evaluateAll(ctx context.Context, now time.Time) []Outcome {
	symbols := c.cfg.Symbols
	outcomes := make([]Outcome, len(symbols))

	workers := c.cfg.Workers
	if workers > len(symbols) {
		workers = len(symbols)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = c.evaluateSymbol(ctx, symbols[i], now)
			}
		}()
	}
	for i := range symbols {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return outcomes
}

// evaluateSymbol is the per-symbol failure boundary.
func (c *Coordinator) evaluateSymbol(ctx context.Context, symbol string, now time.Time) Outcome {
	out := Outcome{Symbol: symbol}
	skip := func(err error) Outcome {
		out.Err = err
		out.SkipReason = model.SkipReason(err)
		c.Logger.Warn("symbol skipped",
			append(logger.LogWithRun(ctx),
				slog.String("symbol", symbol), slog.String("reason", out.SkipReason), slog.String("error", err.Error()))...)
		if c.Metrics != nil {
			c.Metrics.SymbolSkips.WithLabelValues(out.SkipReason).Inc()
		}
		return out
	}

	raw, err := c.Fetcher.Fetch(ctx, symbol, model.TF1D)
	if err != nil {
		return skip(err)
	}
	if n := len(raw); n >= 2 && raw[n-2].Close != 0 {
		out.DayMovePct = model.PctChange(raw[n-1].Close, raw[n-2].Close)
		out.HasDayMove = true
	}
	d1, err := closedOnly(symbol, model.TF1D, raw, now)
	if err != nil {
		return skip(err)
	}
	dInd, err := c.Engine.Compute(d1)
	if err != nil {
		// Daily history too short: evaluate with trend UNKNOWN.
		c.Logger.Info("daily indicators unavailable",
			append(logger.LogWithRun(ctx), slog.String("symbol", symbol), slog.String("error", err.Error()))...)
		dInd = nil
	}
	summary := signal.Summarize(symbol, d1, dInd)
	out.Summary = &summary

	h1, err := c.fetchClosed(ctx, symbol, model.TF1H, now)
	if err != nil {
		return skip(err)
	}
	frame, frameTF, err := c.Resampler.ToCoarser(h1, model.TF1H, model.TF4H)
	if err != nil {
		return skip(err)
	}
	intraday, err := c.Engine.Compute(frame)
	if err != nil {
		return skip(err)
	}

	d := c.Evaluator.Evaluate(symbol, dInd, intraday, frameTF, now)
	out.Decision = &d
	if c.Metrics != nil {
		c.Metrics.Decisions.WithLabelValues(string(d.Kind)).Inc()
	}
	c.Logger.Info("symbol evaluated",
		append(logger.LogWithRun(ctx),
			slog.String("symbol", symbol), slog.String("kind", string(d.Kind)),
			slog.String("trend", string(d.Trend)), slog.String("frame", d.FrameUsed.String()),
			slog.Float64("price", d.Price), slog.String("reason", d.Reason))...)
	return out
}

// fetchClosed fetches candles and drops the still-forming bar. A sequence
// left empty is reported as NoDataError.
func (c *Coordinator) fetchClosed(ctx context.Context, symbol string, tf model.Timeframe, now time.Time) ([]model.Candle, error) {
	candles, err := c.Fetcher.Fetch(ctx, symbol, tf)
	if err != nil {
		return nil, err
	}
	return closedOnly(symbol, tf, candles, now)
}

func closedOnly(symbol string, tf model.Timeframe, candles []model.Candle, now time.Time) ([]model.Candle, error) {
	closed := model.ClosedOnly(candles, tf.Duration(), now)
	if len(closed) == 0 {
		return nil, &model.NoDataError{Symbol: symbol, Timeframe: tf}
	}
	return closed, nil
}

func (c *Coordinator) send(ctx context.Context, kind string, alert notification.Alert) error {
	err := c.Notifier.Send(ctx, alert)
	if err != nil {
		c.Logger.Error("notification failed",
			append(logger.LogWithRun(ctx), slog.String("kind", kind), slog.String("title", alert.Title), slog.String("error", err.Error()))...)
		if c.Metrics != nil {
			c.Metrics.NotifyFailures.WithLabelValues(kind).Inc()
		}
	}
	return err
}

func (c *Coordinator) notifyDecisions(ctx context.Context, report *CycleReport) {
	for _, d := range report.Fired() {
		c.send(ctx, string(d.Kind), notification.SignalAlert(d, c.cfg.Quote))
	}
}

// sendDailyReport marks the day only after a successful send, so a failed
// report is retried on the next cycle.
func (c *Coordinator) sendDailyReport(ctx context.Context, report *CycleReport, now time.Time) {
	if !c.Store.IsDailyReportDue(now) {
		return
	}
	summaries := make([]model.Summary, 0, len(report.Outcomes))
	for _, o := range report.Outcomes {
		if o.Summary != nil {
			summaries = append(summaries, *o.Summary)
			continue
		}
		summaries = append(summaries, model.Summary{Symbol: o.Symbol, Trend: model.TrendUnknown})
	}
	if c.send(ctx, "daily", notification.DailyReportAlert(summaries)) == nil {
		c.Store.MarkDailyReportSent(now)
		report.DailySent = true
	}
}

func (c *Coordinator) sendHeartbeat(ctx context.Context, report *CycleReport, now time.Time) {
	if !c.Store.IsHeartbeatDue(now) {
		return
	}
	if c.send(ctx, "heartbeat", notification.HeartbeatAlert(now, c.cfg.Location)) == nil {
		c.Store.MarkHeartbeatSent(now)
		report.HeartbeatSent = true
	}
}

// sendNews looks up headlines for symbols whose move on the current daily
// bar reached the news threshold and that are not in NEWS cooldown.
func (c *Coordinator) sendNews(ctx context.Context, report *CycleReport, now time.Time) {
	if c.News == nil || !c.News.Enabled() {
		return
	}
	for _, o := range report.Outcomes {
		if !o.HasDayMove || math.Abs(o.DayMovePct) < c.cfg.NewsMovePct {
			continue
		}
		if c.Store.IsInCooldown(o.Symbol, model.SignalNews, now) {
			continue
		}

		headlines, err := c.News.Headlines(ctx, o.Symbol)
		if err != nil {
			c.Logger.Warn("news lookup failed",
				append(logger.LogWithRun(ctx), slog.String("symbol", o.Symbol), slog.String("error", err.Error()))...)
			continue
		}
		if len(headlines) == 0 {
			c.Logger.Info("no headlines for move",
				append(logger.LogWithRun(ctx), slog.String("symbol", o.Symbol), slog.Float64("change_pct", o.DayMovePct))...)
			continue
		}
		if c.send(ctx, "news", notification.NewsAlert(o.Symbol, o.DayMovePct, headlines)) == nil {
			c.Store.MarkFired(o.Symbol, model.SignalNews, now)
			report.NewsSent = append(report.NewsSent, o.Symbol)
		}
	}
}

func (c *Coordinator) recordJournal(ctx context.Context, report *CycleReport, now time.Time) {
	if c.Journal == nil {
		return
	}
	entries := make([]model.JournalEntry, 0, len(report.Outcomes))
	for _, o := range report.Outcomes {
		e := model.JournalEntry{RunID: report.RunID, Symbol: o.Symbol, Kind: model.SignalNone, Trend: model.TrendUnknown, At: now}
		if o.Skipped() {
			e.Reason = fmt.Sprintf("skipped(%s)", o.SkipReason)
			if o.Summary != nil {
				e.Price, e.Trend = o.Summary.LastClose, o.Summary.Trend
			}
		} else {
			d := o.Decision
			e.Kind, e.Price, e.Trend, e.FrameUsed, e.Reason = d.Kind, d.Price, d.Trend, d.FrameUsed, d.Reason
		}
		entries = append(entries, e)
	}
	if err := c.Journal.Record(ctx, entries); err != nil {
		c.Logger.Warn("journal write failed", append(logger.LogWithRun(ctx), slog.String("error", err.Error()))...)
	}
}
