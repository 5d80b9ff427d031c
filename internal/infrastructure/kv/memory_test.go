package kv

import (
	"context"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()

	if _, ok, err := s.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}

	_ = s.Set(ctx, "tts_cache_hello", `{"url":"u","timestamp":1}`)
	_ = s.Set(ctx, "learning:u1:a1", "{}")

	v, ok, err := s.Get(ctx, "tts_cache_hello")
	if !ok || err != nil || v != `{"url":"u","timestamp":1}` {
		t.Fatalf("get: %q ok=%v err=%v", v, ok, err)
	}

	if _, ok, _ := s.Get(ctx, "learning:u1:a1"); !ok {
		t.Fatal("second key lost")
	}

	_ = s.Remove(ctx, "tts_cache_hello")
	if _, ok, _ := s.Get(ctx, "tts_cache_hello"); ok {
		t.Fatal("key still present after Remove")
	}
}

func TestNewRedisStoreRequiresAddr(t *testing.T) {
	t.Parallel()

	if _, err := NewRedisStore(context.Background(), RedisOptions{}); err == nil {
		t.Fatal("expected error for empty address")
	}
}
