package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryExpiry(t *testing.T) {
	m := NewMemory()
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	if err := m.Set(ctx, "dashboard:2025-03", []byte(`{"headcount":3}`), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := m.Get(ctx, "dashboard:2025-03")
	if err != nil || string(got) != `{"headcount":3}` {
		t.Fatalf("unexpected get %q, %v", got, err)
	}

	now = now.Add(time.Minute)
	if _, err := m.Get(ctx, "dashboard:2025-03"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestMemoryDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_ = m.Set(ctx, "a", []byte("1"), 0)
	_ = m.Set(ctx, "b", []byte("2"), 0)
	if err := m.Delete(ctx, "a", "missing"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.Get(ctx, "a"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected miss for deleted key, got %v", err)
	}
	if v, err := m.Get(ctx, "b"); err != nil || string(v) != "2" {
		t.Fatalf("expected b to survive, got %q, %v", v, err)
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	value := []byte("abc")
	_ = m.Set(ctx, "k", value, 0)
	value[0] = 'z'
	got, _ := m.Get(ctx, "k")
	if string(got) != "abc" {
		t.Fatalf("cache aliased caller slice: %q", got)
	}
}
