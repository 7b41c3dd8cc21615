// Package redis keeps the cooldown record under a single Redis key and can
// append cycle decisions to a Redis Stream, publishing fired signals on a
// PubSub channel.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"signalbot/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	defaultStateKey     = "signalbot:state"
	defaultStream       = "signalbot:decisions"
	defaultChannel      = "pub:signalbot:signals"
	defaultStreamMaxLen = 5000
)

// Config configures the Redis store.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
	StateKey string // key holding the JSON state record
}

// Store reads and writes the bot state in Redis.
type Store struct {
	client   *goredis.Client
	stateKey string
	logger   *slog.Logger
}

// New creates a Redis store. The client connects lazily, so an unreachable
// server surfaces on the first Load or Save.
func New(cfg Config, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	key := cfg.StateKey
	if key == "" {
		key = defaultStateKey
	}
	return &Store{client: client, stateKey: key, logger: logger}
}

// Ping checks the server within a 5s bound.
func (s *Store) Ping(ctx context.Context) error {
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.client.Ping(pctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Load returns the stored record, or an empty one when the key is absent.
func (s *Store) Load(ctx context.Context) (*model.CooldownRecord, error) {
	data, err := s.client.Get(ctx, s.stateKey).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return model.NewCooldownRecord(), nil
		}
		return nil, fmt.Errorf("redis GET %s: %w", s.stateKey, err)
	}

	rec := model.NewCooldownRecord()
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	if rec.Cooldowns == nil {
		rec.Cooldowns = model.NewCooldownRecord().Cooldowns
	}
	return rec, nil
}

// Save replaces the stored record. The key has no TTL.
func (s *Store) Save(ctx context.Context, rec *model.CooldownRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := s.client.Set(ctx, s.stateKey, data, 0).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", s.stateKey, err)
	}
	return nil
}

// Record appends every entry to the decisions stream and publishes fired
// signals, all in one pipeline.
func (s *Store) Record(ctx context.Context, entries []model.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, e := range entries {
		jsonData, err := json.Marshal(journalPayload(e))
		if err != nil {
			return fmt.Errorf("marshal decision: %w", err)
		}
		pipe.XAdd(ctx, &goredis.XAddArgs{
			Stream: defaultStream,
			MaxLen: defaultStreamMaxLen,
			Approx: true,
			Values: map[string]interface{}{"data": string(jsonData)},
		})
		if e.Kind == model.SignalBuy || e.Kind == model.SignalOpportunity {
			pipe.Publish(ctx, defaultChannel, string(jsonData))
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis decisions pipeline (%d entries): %w", len(entries), err)
	}
	return nil
}

type decisionPayload struct {
	RunID     string  `json:"run_id"`
	Symbol    string  `json:"symbol"`
	Kind      string  `json:"kind"`
	Price     float64 `json:"price"`
	Trend     string  `json:"trend"`
	FrameUsed string  `json:"frame_used"`
	Reason    string  `json:"reason"`
	At        string  `json:"at"`
}

func journalPayload(e model.JournalEntry) decisionPayload {
	return decisionPayload{
		RunID:     e.RunID,
		Symbol:    e.Symbol,
		Kind:      string(e.Kind),
		Price:     e.Price,
		Trend:     string(e.Trend),
		FrameUsed: string(e.FrameUsed),
		Reason:    e.Reason,
		At:        e.At.UTC().Format(time.RFC3339),
	}
}

// Close closes the Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
