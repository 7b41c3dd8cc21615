package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"signalbot/internal/model"
)

const (
	bitgetBaseURL  = "https://api.bitget.com"
	bitgetMaxLimit = 200
	bitgetOK       = "00000"
)

// Bitget reads the v2 spot candles endpoints. Rows are string arrays with
// six or more fields: [ts, o, h, l, c, baseVol, quoteVol, ...].
// With history set it queries history-candles anchored at endTime=now.
type Bitget struct {
	baseURL string
	client  *http.Client
	history bool
	now     func() time.Time
}

// NewBitget creates a source for /api/v2/spot/market/candles.
func NewBitget(cfg ClientConfig) *Bitget {
	return &Bitget{baseURL: cfg.baseURL(bitgetBaseURL), client: cfg.httpClient(), now: time.Now}
}

// NewBitgetHistory creates a source for /api/v2/spot/market/history-candles.
func NewBitgetHistory(cfg ClientConfig) *Bitget {
	b := NewBitget(cfg)
	b.history = true
	return b
}

func (b *Bitget) Name() string {
	if b.history {
		return NameBitgetHistory
	}
	return NameBitget
}

type bitgetResponse struct {
	Code string  `json:"code"`
	Msg  string  `json:"msg"`
	Data [][]any `json:"data"`
}

func (b *Bitget) FetchCandles(ctx context.Context, instrument string, tf model.Timeframe, limit int) ([]model.Candle, error) {
	gran, err := bitgetGranularity(tf)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("symbol", instrument)
	params.Set("granularity", gran)
	params.Set("limit", strconv.Itoa(capLimit(limit, bitgetMaxLimit)))

	path := "/api/v2/spot/market/candles"
	if b.history {
		path = "/api/v2/spot/market/history-candles"
		params.Set("endTime", strconv.FormatInt(b.now().UnixMilli(), 10))
	}

	var resp bitgetResponse
	if err := getJSON(ctx, b.client, b.baseURL+path, params, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	if resp.Code != bitgetOK {
		return nil, fmt.Errorf("%s: code %s: %s", b.Name(), resp.Code, resp.Msg)
	}
	return parseRows(resp.Data, parseBitgetRow)
}

func parseBitgetRow(row []any) (model.Candle, error) { return parseKlineRow(row, 5) }

func bitgetGranularity(tf model.Timeframe) (string, error) {
	switch tf {
	case model.TF1H:
		return "1h", nil
	case model.TF1D:
		return "1day", nil
	}
	return "", fmt.Errorf("bitget: unsupported timeframe %s", tf)
}
