package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"signalbot/internal/model"
)

const (
	binanceBaseURL  = "https://api.binance.com"
	binanceMaxLimit = 1000
)

// Binance reads /api/v3/klines. Rows are oldest-first mixed arrays:
// [openTime(num), "o", "h", "l", "c", "v", closeTime, ...].
type Binance struct {
	baseURL string
	client  *http.Client
}

// NewBinance creates a Binance candle source.
func NewBinance(cfg ClientConfig) *Binance {
	return &Binance{baseURL: cfg.baseURL(binanceBaseURL), client: cfg.httpClient()}
}

func (b *Binance) Name() string { return NameBinance }

func (b *Binance) FetchCandles(ctx context.Context, instrument string, tf model.Timeframe, limit int) ([]model.Candle, error) {
	params := url.Values{}
	params.Set("symbol", instrument)
	params.Set("interval", tf.String())
	params.Set("limit", strconv.Itoa(capLimit(limit, binanceMaxLimit)))

	var rows [][]any
	if err := getJSON(ctx, b.client, b.baseURL+"/api/v3/klines", params, &rows); err != nil {
		return nil, fmt.Errorf("binance: %w", err)
	}
	return parseRows(rows, parseBinanceRow)
}

func parseBinanceRow(row []any) (model.Candle, error) { return parseKlineRow(row, 6) }
