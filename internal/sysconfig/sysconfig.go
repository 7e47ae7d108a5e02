// Package sysconfig serves the tenant-wide tunable limits (message quotas,
// window periods) stored in the relational store and cached for fast access.
package sysconfig

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/brainwave-ai/gateway/internal/supabase"
)

const (
	KeyFreeMessageLimit  = "free_tier_message_limit"
	KeyFreeLimitPeriod   = "free_tier_message_limit_period"
	KeyTier1MessageLimit = "tier1_message_limit"
)

const cacheKey = "system_config"

var ErrEntryMissing = errors.New("system config entry missing")

// Defaults seeded on cold start when neither the cache nor the table has
// config rows.
var defaults = []supabase.ConfigRow{
	{Key: KeyFreeMessageLimit, Value: "20"},
	{Key: KeyFreeLimitPeriod, Value: "86400"},
	{Key: KeyTier1MessageLimit, Value: "200"},
}

// Source is the slice of the supabase client this service needs.
type Source interface {
	GetConfigRows(ctx context.Context) ([]supabase.ConfigRow, error)
	InsertConfigRows(ctx context.Context, rows []supabase.ConfigRow) error
}

// Cache is the slice of the redis store this service needs.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
}

// Config is the parsed view of the key/value rows.
type Config struct {
	entries map[string]string
}

// FromEntries builds a Config directly from key/value pairs.
func FromEntries(entries map[string]string) Config {
	return Config{entries: entries}
}

func (c Config) Int(key string) (int, error) {
	raw, ok := c.entries[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrEntryMissing, key)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("system config entry %s is not an integer: %w", key, err)
	}
	return n, nil
}

func (c Config) FreeMessageLimit() (int, error)  { return c.Int(KeyFreeMessageLimit) }
func (c Config) Tier1MessageLimit() (int, error) { return c.Int(KeyTier1MessageLimit) }

// FreeLimitPeriod is the counter window length. The free-tier period is used
// for every tier's window.
func (c Config) FreeLimitPeriod() (time.Duration, error) {
	n, err := c.Int(KeyFreeLimitPeriod)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}

type Service struct {
	source Source
	cache  Cache
}

func NewService(source Source, cache Cache) *Service {
	return &Service{source: source, cache: cache}
}

// Load returns the system configuration, cache first. The cached entry has no
// TTL; it is refreshed only when absent (manual invalidation, last writer
// wins).
func (s *Service) Load(ctx context.Context) (Config, error) {
	var entries map[string]string
	if s.cache != nil {
		ok, err := s.cache.GetJSON(ctx, cacheKey, &entries)
		if err == nil && ok && len(entries) > 0 {
			return Config{entries: entries}, nil
		}
	}

	rows, err := s.source.GetConfigRows(ctx)
	if err != nil {
		return Config{}, err
	}
	if len(rows) == 0 {
		if err := s.source.InsertConfigRows(ctx, defaults); err != nil {
			return Config{}, err
		}
		rows = defaults
	}

	entries = make(map[string]string, len(rows))
	for _, row := range rows {
		entries[row.Key] = row.Value
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cacheKey, entries, 0); err != nil {
			return Config{}, fmt.Errorf("failed to cache system config: %w", err)
		}
	}
	return Config{entries: entries}, nil
}
