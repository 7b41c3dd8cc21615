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
	bybitBaseURL  = "https://api.bybit.com"
	bybitMaxLimit = 1000
)

// Bybit reads the v5 spot kline endpoint. Rows are newest-first string
// arrays: [startTime, open, high, low, close, volume, turnover].
type Bybit struct {
	baseURL string
	client  *http.Client
}

// NewBybit creates a Bybit candle source.
func NewBybit(cfg ClientConfig) *Bybit {
	return &Bybit{baseURL: cfg.baseURL(bybitBaseURL), client: cfg.httpClient()}
}

func (b *Bybit) Name() string { return NameBybit }

type bybitResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		Symbol string  `json:"symbol"`
		List   [][]any `json:"list"`
	} `json:"result"`
}

func (b *Bybit) FetchCandles(ctx context.Context, instrument string, tf model.Timeframe, limit int) ([]model.Candle, error) {
	interval, err := bybitInterval(tf)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("category", "spot")
	params.Set("symbol", instrument)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(capLimit(limit, bybitMaxLimit)))

	var resp bybitResponse
	if err := getJSON(ctx, b.client, b.baseURL+"/v5/market/kline", params, &resp); err != nil {
		return nil, fmt.Errorf("bybit: %w", err)
	}
	if resp.RetCode != 0 {
		return nil, fmt.Errorf("bybit: retCode %d: %s", resp.RetCode, resp.RetMsg)
	}
	return parseRows(resp.Result.List, parseBybitRow)
}

func parseBybitRow(row []any) (model.Candle, error) { return parseKlineRow(row, 5) }

func bybitInterval(tf model.Timeframe) (string, error) {
	switch tf {
	case model.TF1H:
		return "60", nil
	case model.TF1D:
		return "D", nil
	}
	return "", fmt.Errorf("bybit: unsupported timeframe %s", tf)
}
