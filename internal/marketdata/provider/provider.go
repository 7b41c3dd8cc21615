// Package provider fetches OHLCV candles from public exchange REST APIs and
// rotates through an ordered list of per-symbol bindings until one succeeds.
//
// Every exchange payload is normalized at this boundary into ascending UTC
// model.Candle sequences; each exchange contributes one pure row parser.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"signalbot/internal/model"
)

// DefaultTimeout bounds a single provider request.
const DefaultTimeout = 20 * time.Second

// Source is one exchange endpoint able to return candles.
type Source interface {
	// Name returns the provider id used in bindings and logs (e.g. "okx").
	Name() string

	// FetchCandles requests up to limit bars for instrument (in the
	// provider's own vocabulary) and returns them normalized.
	FetchCandles(ctx context.Context, instrument string, tf model.Timeframe, limit int) ([]model.Candle, error)
}

// Binding ties a symbol to one source and the instrument id it uses there.
type Binding struct {
	Source     Source
	Instrument string
}

// ClientConfig configures an exchange client.
type ClientConfig struct {
	BaseURL string        // empty = production endpoint
	Timeout time.Duration // HTTP client timeout, 0 = DefaultTimeout
}

func (c ClientConfig) httpClient() *http.Client {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func (c ClientConfig) baseURL(fallback string) string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return fallback
}

// Names of the built-in sources.
const (
	NameOKX           = "okx"
	NameBybit         = "bybit"
	NameBinance       = "binance"
	NameBitget        = "bitget"
	NameBitgetHistory = "bitget-history"
)

// NewRegistry returns every built-in source keyed by name.
func NewRegistry(cfg ClientConfig) map[string]Source {
	srcs := []Source{
		NewOKX(cfg),
		NewBybit(cfg),
		NewBinance(cfg),
		NewBitget(cfg),
		NewBitgetHistory(cfg),
	}
	reg := make(map[string]Source, len(srcs))
	for _, s := range srcs {
		reg[s.Name()] = s
	}
	return reg
}

// BindingSpec names a provider and instrument for one symbol.
type BindingSpec struct {
	Provider   string
	Instrument string
}

// ResolveBindings maps per-symbol specs onto sources from the registry.
// Every symbol must end up with at least one binding.
func ResolveBindings(specs map[string][]BindingSpec, registry map[string]Source) (map[string][]Binding, error) {
	out := make(map[string][]Binding, len(specs))
	for sym, list := range specs {
		if len(list) == 0 {
			return nil, fmt.Errorf("symbol %s: no provider bindings", sym)
		}
		bs := make([]Binding, 0, len(list))
		for _, spec := range list {
			src, ok := registry[spec.Provider]
			if !ok {
				return nil, fmt.Errorf("symbol %s: unknown provider %q", sym, spec.Provider)
			}
			if spec.Instrument == "" {
				return nil, fmt.Errorf("symbol %s: provider %s has no instrument", sym, spec.Provider)
			}
			bs = append(bs, Binding{Source: src, Instrument: spec.Instrument})
		}
		out[sym] = bs
	}
	return out, nil
}

func capLimit(limit, max int) int {
	if limit < 1 {
		return 1
	}
	if limit > max {
		return max
	}
	return limit
}
