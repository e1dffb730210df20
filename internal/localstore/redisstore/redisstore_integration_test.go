package redisstore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"
)

func TestRedisStoreRoundTrip(t *testing.T) {
	addr := os.Getenv("BACKOFFICE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set BACKOFFICE_TEST_REDIS_ADDR to run redis integration test")
	}

	ctx := context.Background()
	base := New(addr, "", 0)
	t.Cleanup(func() {
		_ = base.Close()
	})
	if err := base.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	s := base.WithPrefix(fmt.Sprintf("backoffice:it:%d:", time.Now().UnixNano()))

	if err := s.Set(ctx, "barbershop_users", []byte(`[]`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, ok, err := s.Get(ctx, "barbershop_users")
	if err != nil || !ok || string(value) != "[]" {
		t.Fatalf("unexpected get: %q ok=%v err=%v", value, ok, err)
	}
	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != "barbershop_users" {
		t.Fatalf("unexpected keys %v", keys)
	}
	if err := s.Delete(ctx, "barbershop_users"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "barbershop_users"); ok {
		t.Fatalf("expected key to be deleted")
	}
}
