package sysconfig

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brainwave-ai/gateway/internal/supabase"
)

type fakeSource struct {
	rows     []supabase.ConfigRow
	getErr   error
	inserted []supabase.ConfigRow
	getCalls int
}

func (f *fakeSource) GetConfigRows(ctx context.Context) ([]supabase.ConfigRow, error) {
	f.getCalls++
	return f.rows, f.getErr
}

func (f *fakeSource) InsertConfigRows(ctx context.Context, rows []supabase.ConfigRow) error {
	f.inserted = rows
	return nil
}

type fakeCache struct {
	entries map[string]string
	ttl     time.Duration
	hasTTL  bool
}

func (f *fakeCache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if f.entries == nil {
		return false, nil
	}
	*dest.(*map[string]string) = f.entries
	return true, nil
}

func (f *fakeCache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	f.entries = v.(map[string]string)
	f.ttl = ttl
	f.hasTTL = true
	return nil
}

func TestLoadCacheHitSkipsSource(t *testing.T) {
	src := &fakeSource{}
	cache := &fakeCache{entries: map[string]string{
		KeyFreeMessageLimit: "7",
	}}

	cfg, err := NewService(src, cache).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if n, _ := cfg.FreeMessageLimit(); n != 7 {
		t.Fatalf("free limit = %d, want 7", n)
	}
	if src.getCalls != 0 {
		t.Fatalf("source queried %d times on cache hit, want 0", src.getCalls)
	}
}

func TestLoadFromSourceAndCachesWithoutTTL(t *testing.T) {
	src := &fakeSource{rows: []supabase.ConfigRow{
		{Key: KeyFreeMessageLimit, Value: "5"},
		{Key: KeyFreeLimitPeriod, Value: "3600"},
		{Key: KeyTier1MessageLimit, Value: "50"},
	}}
	cache := &fakeCache{}

	cfg, err := NewService(src, cache).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if n, _ := cfg.Tier1MessageLimit(); n != 50 {
		t.Fatalf("tier1 limit = %d, want 50", n)
	}
	if period, _ := cfg.FreeLimitPeriod(); period != time.Hour {
		t.Fatalf("period = %v, want 1h", period)
	}
	if !cache.hasTTL || cache.ttl != 0 {
		t.Fatalf("config cache ttl = %v, want 0 (no expiry)", cache.ttl)
	}
}

func TestLoadSeedsDefaultsOnEmptyTable(t *testing.T) {
	src := &fakeSource{}
	cfg, err := NewService(src, &fakeCache{}).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(src.inserted) != 3 {
		t.Fatalf("seeded %d rows, want 3", len(src.inserted))
	}
	if n, _ := cfg.FreeMessageLimit(); n != 20 {
		t.Fatalf("default free limit = %d, want 20", n)
	}
	if period, _ := cfg.FreeLimitPeriod(); period != 24*time.Hour {
		t.Fatalf("default period = %v, want 24h", period)
	}
}

func TestLoadSourceErrorPropagates(t *testing.T) {
	src := &fakeSource{getErr: errors.New("postgrest down")}
	if _, err := NewService(src, &fakeCache{}).Load(context.Background()); err == nil {
		t.Fatal("expected error from source")
	}
}

func TestConfigMissingEntry(t *testing.T) {
	cfg := FromEntries(map[string]string{KeyFreeMessageLimit: "20"})
	if _, err := cfg.Tier1MessageLimit(); !errors.Is(err, ErrEntryMissing) {
		t.Fatalf("err = %v, want ErrEntryMissing", err)
	}
}

func TestConfigNonIntegerEntry(t *testing.T) {
	cfg := FromEntries(map[string]string{KeyFreeMessageLimit: "lots"})
	if _, err := cfg.FreeMessageLimit(); err == nil {
		t.Fatal("expected parse error for non-integer value")
	}
}
