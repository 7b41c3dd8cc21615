package notification

import (
	"fmt"
	"html"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"signalbot/internal/model"
)

const maxHeadlineLen = 120

// price renders a quote with four decimals.
func price(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(4)
}

// signedPct renders a percentage with an explicit sign and two decimals.
func signedPct(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	if d.IsNegative() {
		return d.StringFixed(2)
	}
	return "+" + d.StringFixed(2)
}

// SignalAlert formats a BUY or OPPORTUNITY decision.
func SignalAlert(d model.Decision, quote string) Alert {
	marker, level := "🟢", AlertCritical
	if d.Kind == model.SignalOpportunity {
		marker, level = "🟡", AlertWarning
	}
	pair := html.EscapeString(d.Symbol + "/" + quote)
	return Alert{
		Level: level,
		Title: fmt.Sprintf("%s %s/%s", d.Kind, d.Symbol, quote),
		Message: fmt.Sprintf("%s <b>%s</b> %s (%s, 1D %s)\nPrice: %s",
			marker, d.Kind, pair, d.FrameUsed, d.Trend, price(d.Price)),
	}
}

// DailyReportAlert formats the cross-symbol daily table. Symbols without
// daily indicators get an n/a row.
func DailyReportAlert(summaries []model.Summary) Alert {
	var b strings.Builder
	b.WriteString("🗞️ <b>Daily Trend 1D</b>\n<pre>")
	b.WriteString("SYMB   1D Δ%   MACDΔ   TREND\n")
	b.WriteString("-----  ------  ------  -----")
	for _, s := range summaries {
		b.WriteByte('\n')
		sym := html.EscapeString(s.Symbol)
		if !s.HasDaily || !finite(s.ChangePct) || !finite(s.MACDDelta) {
			fmt.Fprintf(&b, "%-5s  %6s  %6s  %5s", sym, "n/a", "n/a", "n/a")
			continue
		}
		chg := decimal.NewFromFloat(s.ChangePct).StringFixed(2) + "%"
		delta := decimal.NewFromFloat(s.MACDDelta).StringFixed(3)
		fmt.Fprintf(&b, "%-5s  %6s  %6s  %5s", sym, chg, delta, s.Bias)
	}
	b.WriteString("</pre>")
	return Alert{Level: AlertInfo, Title: "Daily Trend 1D", Message: b.String()}
}

// HeartbeatAlert formats the daily liveness message.
func HeartbeatAlert(now time.Time, loc *time.Location) Alert {
	if loc == nil {
		loc = time.UTC
	}
	return Alert{
		Level: AlertInfo,
		Title: "Heartbeat",
		Message: fmt.Sprintf("✅ Heartbeat: bot running and in sync (%s)",
			now.In(loc).Format("2006-01-02 15:04 MST")),
	}
}

// NewsAlert formats up to five headlines for a symbol's daily move.
func NewsAlert(symbol string, movePct float64, headlines []model.Headline) Alert {
	var b strings.Builder
	fmt.Fprintf(&b, "🗞️ <b>%s news</b> (Δ24h %s%%)", html.EscapeString(symbol), signedPct(movePct))
	for i, h := range headlines {
		if i == 5 {
			break
		}
		var tags string
		if h.Important {
			tags += "⭐"
		}
		if h.Positive {
			tags += "🟢"
		}
		if h.Negative {
			tags += "🔴"
		}
		title := truncate(h.Title, maxHeadlineLen)
		fmt.Fprintf(&b, "\n• %s<a href=\"%s\">%s</a>", tags, html.EscapeString(h.URL), html.EscapeString(title))
	}
	return Alert{Level: AlertInfo, Title: symbol + " news", Message: b.String()}
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// finite guards decimal conversion, which panics on NaN and Inf.
func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
