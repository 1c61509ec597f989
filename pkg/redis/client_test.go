package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dividify/dividify-backend/pkg/config"
	"github.com/redis/go-redis/v9"
)

func TestSetNXAndDelIfValue(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	ok, err := client.SetNX(ctx, "k", "owner-a", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first setnx to succeed, ok=%v err=%v", ok, err)
	}
	ok, err = client.SetNX(ctx, "k", "owner-b", time.Minute)
	if err != nil || ok {
		t.Fatalf("expected second setnx to fail, ok=%v err=%v", ok, err)
	}

	removed, err := client.DelIfValue(ctx, "k", "owner-b")
	if err != nil {
		t.Fatalf("DelIfValue: %v", err)
	}
	if removed {
		t.Fatal("non-owner must not remove the key")
	}
	if v, _ := client.Get(ctx, "k"); v != "owner-a" {
		t.Fatalf("expected key intact, got %q", v)
	}

	removed, err = client.DelIfValue(ctx, "k", "owner-a")
	if err != nil || !removed {
		t.Fatalf("owner should remove key, removed=%v err=%v", removed, err)
	}
	if _, err := client.Get(ctx, "k"); err != redis.Nil {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
}

func TestSetOverwrites(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	if _, err := client.SetNX(ctx, "idem", "pending", time.Minute); err != nil {
		t.Fatalf("SetNX: %v", err)
	}
	if err := client.Set(ctx, "idem", "done", time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, _ := client.Get(ctx, "idem"); v != "done" {
		t.Fatalf("expected overwrite, got %q", v)
	}
	if mock.expires["idem"] != time.Hour {
		t.Fatalf("expected ttl refreshed, got %v", mock.expires["idem"])
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.LockKey("scheduled-dividends:prod"); got != "dividify:lock:scheduled-dividends:prod" {
		t.Fatalf("unexpected lock key %s", got)
	}
	if got := client.LeaseKey("schedule", "abc"); got != "dividify:lease:schedule:abc" {
		t.Fatalf("unexpected lease key %s", got)
	}
	if got := client.LeaseKey(" ", "abc"); got != "dividify:lease:abc" {
		t.Fatalf("empty parts should be skipped, got %s", got)
	}
	if got := client.IdempotencyKey("user|POST|/api/v1/schedules", "k1"); got != "dividify:idem:user|POST|/api/v1/schedules:k1" {
		t.Fatalf("unexpected idempotency key %s", got)
	}
	if got := client.RateLimitKey("cron", "1.2.3.4"); got != "dividify:rl:cron:1.2.3.4" {
		t.Fatalf("unexpected rate limit key %s", got)
	}
}

func TestIncrWithTTLSetsExpiryOnFirstHit(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	for want := int64(1); want <= 3; want++ {
		got, err := client.IncrWithTTL(ctx, "counter", time.Minute)
		if err != nil {
			t.Fatalf("IncrWithTTL: %v", err)
		}
		if got != want {
			t.Fatalf("expected count %d got %d", want, got)
		}
	}
	if ttl := mock.expires["counter"]; ttl != time.Minute {
		t.Fatalf("expected expiry of 1m, got %v", ttl)
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error")
	}
	if _, err := client.SetNX(context.Background(), "k", "v", time.Second); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	if _, err := client.IncrWithTTL(context.Background(), "k", time.Second); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	var nilClient *Client
	if err := nilClient.Close(); err != nil {
		t.Fatalf("close on nil client should be a no-op, got %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close on nil raw should be a no-op, got %v", err)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error without url or address")
	}
	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6379/2", PoolSize: 7, DialTimeout: time.Second})
	if err != nil {
		t.Fatalf("optionsFromConfig: %v", err)
	}
	if opts.DB != 2 || opts.PoolSize != 7 || opts.DialTimeout != time.Second {
		t.Fatalf("unexpected options %+v", opts)
	}
	opts, err = optionsFromConfig(config.RedisConfig{Address: "cache:6379", DB: 3})
	if err != nil {
		t.Fatalf("optionsFromConfig address: %v", err)
	}
	if opts.Addr != "cache:6379" || opts.DB != 3 {
		t.Fatalf("unexpected address options %+v", opts)
	}
}

type mockCmdable struct {
	data    map[string]string
	expires map[string]time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{data: make(map[string]string), expires: make(map[string]time.Duration)}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	m.expires[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (m *mockCmdable) Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	key := keys[0]
	switch script {
	case incrWindow:
		var n int64
		if v, ok := m.data[key]; ok {
			fmt.Sscan(v, &n)
		}
		n++
		m.data[key] = fmt.Sprint(n)
		if n == 1 {
			m.expires[key] = time.Duration(args[0].(int64)) * time.Millisecond
		}
		return redis.NewCmdResult(n, nil)
	case compareAndDelete:
		if v, ok := m.data[key]; ok && v == fmt.Sprint(args[0]) {
			delete(m.data, key)
			return redis.NewCmdResult(int64(1), nil)
		}
		return redis.NewCmdResult(int64(0), nil)
	}
	return redis.NewCmdResult(nil, fmt.Errorf("unexpected script %q", script))
}
