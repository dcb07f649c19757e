package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/redis/go-redis/v9"
)

func newTestClient(mock *mockCmdable) *Client {
	return &Client{Keyspace: NewKeyspace(DefaultNamespace), store: mock}
}

func TestIncrWithTTLStartsWindowOnFirstHit(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := newTestClient(mock)
	key := client.RateLimitKey("ip:login:10.0.0.1")

	count, err := client.IncrWithTTL(ctx, key, time.Minute)
	if err != nil || count != 1 {
		t.Fatalf("expected first hit 1, got %d (%v)", count, err)
	}
	if len(mock.expireCalls) != 1 || mock.expireCalls[0].ttl != time.Minute {
		t.Fatalf("expected one 1m expire, got %+v", mock.expireCalls)
	}

	count, err = client.IncrWithTTL(ctx, key, time.Minute)
	if err != nil || count != 2 {
		t.Fatalf("expected second hit 2, got %d (%v)", count, err)
	}
	if len(mock.expireCalls) != 1 {
		t.Fatalf("window must not be extended, got %+v", mock.expireCalls)
	}
}

func TestIncrWithTTLRepairsCounterWithoutExpiry(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := newTestClient(mock)
	key := client.RateLimitKey("ip:login:10.0.0.2")

	mock.incr[key] = 5 // left behind without a TTL

	count, err := client.IncrWithTTL(ctx, key, time.Minute)
	if err != nil || count != 6 {
		t.Fatalf("expected 6, got %d (%v)", count, err)
	}
	if len(mock.expireCalls) != 1 {
		t.Fatalf("expected expiry repaired, got %+v", mock.expireCalls)
	}
}

func TestIncrWithTTLZeroWindow(t *testing.T) {
	mock := newMockCmdable()
	client := newTestClient(mock)

	if _, err := client.IncrWithTTL(context.Background(), "k", 0); err != nil {
		t.Fatalf("incr: %v", err)
	}
	if len(mock.expireCalls) != 0 {
		t.Fatalf("zero window must not expire, got %+v", mock.expireCalls)
	}
}

func TestSetGetDelLifecycle(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := newTestClient(mock)

	key := client.SessionKey("abc")
	if err := client.Set(ctx, key, []byte(`{"user":"johnd"}`), time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := client.Get(ctx, key)
	if err != nil || got != `{"user":"johnd"}` {
		t.Fatalf("unexpected get %q (%v)", got, err)
	}
	if mock.ttl[key] != time.Hour {
		t.Fatalf("expected 1h ttl, got %s", mock.ttl[key])
	}

	if err := client.Del(ctx, key); err != nil {
		t.Fatalf("del: %v", err)
	}
	if _, err := client.Get(ctx, key); !IsNil(err) {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
	if err := client.Del(ctx); err != nil {
		t.Fatalf("del without keys: %v", err)
	}
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error")
	}
	if _, err := client.Get(context.Background(), "k"); err == nil {
		t.Fatal("expected get error")
	}
	if _, err := client.IncrWithTTL(context.Background(), "k", time.Second); err == nil {
		t.Fatal("expected incr error")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestKeyspace(t *testing.T) {
	keys := NewKeyspace("")
	staging := NewKeyspace(" staging: ")

	cases := map[string]string{
		keys.CartKey("cart:johnd"):              "sf:cart:cart:johnd",
		keys.SessionKey("tok"):                  "sf:session:tok",
		keys.CatalogKey("products", "7"):        "sf:catalog:products:7",
		keys.CatalogKey("categories", ""):       "sf:catalog:categories",
		keys.RateLimitKey("ip:login:127.0.0.1"): "sf:rate_limit:ip:login:127.0.0.1",
		staging.CartKey("cart"):                 "staging:cart:cart",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	}
}

func TestOptionsFromConfig(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error without url or address")
	}

	opts, err := optionsFromConfig(config.RedisConfig{
		URL:         "redis://localhost:6379/2",
		PoolSize:    7,
		DialTimeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("url options: %v", err)
	}
	if opts.DB != 2 || opts.PoolSize != 7 || opts.DialTimeout != 2*time.Second {
		t.Fatalf("unexpected url options %+v", opts)
	}

	opts, err = optionsFromConfig(config.RedisConfig{Address: "cache:6379", DB: 3, Password: "pw"})
	if err != nil {
		t.Fatalf("address options: %v", err)
	}
	if opts.Addr != "cache:6379" || opts.DB != 3 || opts.Password != "pw" {
		t.Fatalf("unexpected address options %+v", opts)
	}

	if _, err := optionsFromConfig(config.RedisConfig{URL: "://bad"}); err == nil {
		t.Fatal("expected error for malformed url")
	}
}

func TestIsNil(t *testing.T) {
	if !IsNil(fmt.Errorf("wrapped: %w", redis.Nil)) {
		t.Fatal("expected wrapped redis.Nil to match")
	}
	if IsNil(errors.New("other")) {
		t.Fatal("unexpected match for other error")
	}
}

type mockCmdable struct {
	data        map[string]string
	ttl         map[string]time.Duration
	incr        map[string]int64
	expireCalls []expireCall
}

type expireCall struct {
	key string
	ttl time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data: make(map[string]string),
		ttl:  make(map[string]time.Duration),
		incr: make(map[string]int64),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	default:
		m.data[key] = fmt.Sprint(v)
	}
	m.ttl[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) Incr(_ context.Context, key string) *redis.IntCmd {
	m.incr[key]++
	return redis.NewIntResult(m.incr[key], nil)
}

func (m *mockCmdable) Expire(_ context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	m.expireCalls = append(m.expireCalls, expireCall{key: key, ttl: expiration})
	m.ttl[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) TTL(_ context.Context, key string) *redis.DurationCmd {
	if ttl, ok := m.ttl[key]; ok && ttl > 0 {
		return redis.NewDurationResult(ttl, nil)
	}
	return redis.NewDurationResult(-1, nil)
}

func (m *mockCmdable) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
