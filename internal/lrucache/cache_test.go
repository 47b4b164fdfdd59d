package lrucache

import "testing"

func TestGetOrCreateDeduplicates(t *testing.T) {
	c := New[string, int](0)
	calls := 0
	create := func() int { calls++; return 42 }

	if v := c.GetOrCreate("a", create); v != 42 {
		t.Fatalf("got %d, want 42", v)
	}
	if v := c.GetOrCreate("a", create); v != 42 {
		t.Fatalf("got %d, want 42", v)
	}
	if calls != 1 {
		t.Fatalf("create called %d times, want 1", calls)
	}
}

func TestSoftLimitEviction(t *testing.T) {
	c := New[int, int](4)
	for i := 0; i < 10; i++ {
		c.Set(i, i)
		// Touch a low key to keep it recently used.
		c.Get(0)
	}
	if c.Len() > 4 {
		t.Fatalf("len = %d, want <= 4", c.Len())
	}
	if _, ok := c.Get(0); !ok {
		t.Fatal("expected frequently accessed key 0 to survive eviction")
	}
}

func TestDeleteAndClear(t *testing.T) {
	c := New[string, int](0)
	c.Set("x", 1)
	if !c.Delete("x") {
		t.Fatal("expected Delete to report true")
	}
	if _, ok := c.Get("x"); ok {
		t.Fatal("expected x to be gone")
	}
	c.Set("y", 2)
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("len after Clear = %d, want 0", c.Len())
	}
}
