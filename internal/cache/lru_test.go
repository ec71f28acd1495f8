package cache

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func TestLRUCache_GetSet(t *testing.T) {
	c := NewLRUCache[string, int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("expected a=1, got %v %v", v, ok)
	}

	// "b" is now least recently used.
	c.Set("c", 3)
	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b to be evicted")
	}
	if c.Len() != 2 {
		t.Fatalf("expected len 2, got %d", c.Len())
	}

	c.Set("a", 10)
	if v, _ := c.Get("a"); v != 10 {
		t.Fatalf("expected overwrite to 10, got %d", v)
	}

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected a to be deleted")
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int64, string](10, time.Minute).WithClock(clock.now)

	c.Set(1, "x")
	c.Set(2, "y")
	clock.t = clock.t.Add(30 * time.Second)
	c.Set(3, "z")

	clock.t = clock.t.Add(31 * time.Second)
	if _, ok := c.Get(1); ok {
		t.Fatal("expected entry 1 to expire")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("expected 1 cleaned (entry 2), got %d", n)
	}
	if v, ok := c.Get(3); !ok || v != "z" {
		t.Fatalf("expected entry 3 to survive, got %q %v", v, ok)
	}
}

func TestLRUCache_Disabled(t *testing.T) {
	c := NewLRUCache[string, int](0, time.Minute)
	c.Set("a", 1)
	if _, ok := c.Get("a"); ok {
		t.Fatal("zero-size cache should store nothing")
	}
}

func TestJanitor_Sweep(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c := NewLRUCache[string, int](10, time.Second).WithClock(clock.now)
	c.Set("a", 1)
	c.Set("b", 2)

	j := NewJanitor()
	j.Register("test", c)

	if n := j.Sweep(context.Background()); n != 0 {
		t.Fatalf("expected nothing to sweep, got %d", n)
	}
	clock.t = clock.t.Add(2 * time.Second)
	if n := j.Sweep(context.Background()); n != 2 {
		t.Fatalf("expected 2 swept, got %d", n)
	}
}

func TestJanitor_RunStopsOnCancel(t *testing.T) {
	j := NewJanitor()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
