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
	okxBaseURL  = "https://www.okx.com"
	okxMaxLimit = 300
)

// OKX reads /api/v5/market/candles. Rows are newest-first string arrays:
// [ts, o, h, l, c, vol, volCcy, volCcyQuote, confirm].
type OKX struct {
	baseURL string
	client  *http.Client
}

// NewOKX creates an OKX candle source.
func NewOKX(cfg ClientConfig) *OKX {
	return &OKX{baseURL: cfg.baseURL(okxBaseURL), client: cfg.httpClient()}
}

func (o *OKX) Name() string { return NameOKX }

type okxResponse struct {
	Code string  `json:"code"`
	Msg  string  `json:"msg"`
	Data [][]any `json:"data"`
}

func (o *OKX) FetchCandles(ctx context.Context, instrument string, tf model.Timeframe, limit int) ([]model.Candle, error) {
	bar, err := okxBar(tf)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("instId", instrument)
	params.Set("bar", bar)
	params.Set("limit", strconv.Itoa(capLimit(limit, okxMaxLimit)))

	var resp okxResponse
	if err := getJSON(ctx, o.client, o.baseURL+"/api/v5/market/candles", params, &resp); err != nil {
		return nil, fmt.Errorf("okx: %w", err)
	}
	if resp.Code != "0" {
		return nil, fmt.Errorf("okx: code %s: %s", resp.Code, resp.Msg)
	}
	return parseRows(resp.Data, parseOKXRow)
}

func parseOKXRow(row []any) (model.Candle, error) { return parseKlineRow(row, 5) }

func okxBar(tf model.Timeframe) (string, error) {
	switch tf {
	case model.TF1H:
		return "1H", nil
	case model.TF1D:
		return "1D", nil
	}
	return "", fmt.Errorf("okx: unsupported timeframe %s", tf)
}
