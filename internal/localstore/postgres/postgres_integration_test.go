package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	databaseURL := os.Getenv("BACKOFFICE_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set BACKOFFICE_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	key := fmt.Sprintf("it_local_%d", time.Now().UnixNano())
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM local_storage WHERE key = $1`, key)
	})

	if err := s.Set(ctx, key, []byte(`[{"id":"1"}]`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, key, []byte(`[{"id":"1"},{"id":"2"}]`)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	value, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if string(value) != `[{"id": "1"}, {"id": "2"}]` {
		t.Fatalf("unexpected stored value %s", value)
	}

	if err := s.Set(ctx, key, []byte(`{broken`)); err == nil {
		t.Fatalf("expected invalid JSON to be rejected")
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, key); ok {
		t.Fatalf("expected key to be gone after delete")
	}
}
