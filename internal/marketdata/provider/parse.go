package provider

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"signalbot/internal/model"
)

// parseKlineRow maps [ts_ms, open, high, low, close, volume, ...] onto a
// Candle. Fields may be strings or numbers. Rows with exactly minFields == 5
// fields get volume 0.
func parseKlineRow(row []any, minFields int) (model.Candle, error) {
	if len(row) < minFields {
		return model.Candle{}, fmt.Errorf("row has %d fields, need %d", len(row), minFields)
	}

	tsMs, err := fieldInt(row[0])
	if err != nil {
		return model.Candle{}, fmt.Errorf("ts: %w", err)
	}
	if tsMs <= 0 {
		return model.Candle{}, fmt.Errorf("ts: non-positive %d", tsMs)
	}

	var vals [5]float64
	for i := 1; i <= 5; i++ {
		if i >= len(row) {
			break // missing volume
		}
		v, err := fieldFloat(row[i])
		if err != nil {
			return model.Candle{}, fmt.Errorf("field %d: %w", i, err)
		}
		vals[i-1] = v
	}

	c := model.Candle{
		TS:     time.UnixMilli(tsMs).UTC(),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}
	return c, c.Validate()
}

// parseRows applies parse to every row and normalizes the result into
// ascending order. Zero rows is model.ErrEmptyPayload.
func parseRows(rows [][]any, parse func([]any) (model.Candle, error)) ([]model.Candle, error) {
	if len(rows) == 0 {
		return nil, model.ErrEmptyPayload
	}
	out := make([]model.Candle, 0, len(rows))
	for i, row := range rows {
		c, err := parse(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, c)
	}
	return model.Normalize(out)
}

func fieldFloat(v any) (float64, error) {
	switch x := v.(type) {
	case string:
		return strconv.ParseFloat(x, 64)
	case json.Number:
		return x.Float64()
	case float64:
		return x, nil
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

func fieldInt(v any) (int64, error) {
	switch x := v.(type) {
	case string:
		return strconv.ParseInt(x, 10, 64)
	case json.Number:
		return x.Int64()
	case float64:
		return int64(x), nil
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}
