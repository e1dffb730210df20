package file

import (
	"context"
	"testing"
)

func TestSetGetDeleteRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	if _, ok, err := s.Get(ctx, "barbershop_sales"); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}
	if err := s.Set(ctx, "barbershop_sales", []byte(`[]`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, ok, err := s.Get(ctx, "barbershop_sales")
	if err != nil || !ok || string(value) != "[]" {
		t.Fatalf("unexpected get result: %q ok=%v err=%v", value, ok, err)
	}

	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != "barbershop_sales" {
		t.Fatalf("unexpected keys: %v", keys)
	}

	if err := s.Delete(ctx, "barbershop_sales"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "barbershop_sales"); err != nil {
		t.Fatalf("second delete should be a no-op, got %v", err)
	}
}

func TestRejectsPathTraversalKeys(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := s.Set(context.Background(), "../escape", []byte(`{}`)); err == nil {
		t.Fatalf("expected invalid key to be rejected")
	}
}
