package cache

import (
	"errors"
	"testing"
	"time"
)

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[string](2, time.Minute)
	c.Set("a", "A")
	c.Set("b", "B")
	c.Get("a")
	c.Set("c", "C")

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != "A" {
		t.Fatalf("a should survive, got %q %v", v, ok)
	}
	if c.Stats().Size != 2 {
		t.Fatalf("expected size 2, got %d", c.Stats().Size)
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](10, time.Minute)
	c.now = func() time.Time { return now }
	c.Set("x", 1)
	c.Set("y", 2)

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("x"); ok {
		t.Fatal("x should be expired")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("expected 1 cleaned entry, got %d", n)
	}
	if c.Stats().Size != 0 {
		t.Fatal("cache should be empty")
	}
}

func TestLRUCache_DisabledWithZeroTTL(t *testing.T) {
	c := NewLRUCache[int](10, 0)
	c.Set("x", 1)
	if _, ok := c.Get("x"); ok {
		t.Fatal("zero TTL should disable caching")
	}
}

func TestLRUCache_GetOrLoad(t *testing.T) {
	c := NewLRUCache[[]byte](4, time.Minute)
	loads := 0
	load := func() ([]byte, error) {
		loads++
		return []byte("xlsx"), nil
	}
	for i := 0; i < 3; i++ {
		v, err := c.GetOrLoad("xlsx:1", load)
		if err != nil || string(v) != "xlsx" {
			t.Fatalf("unexpected load result %q %v", v, err)
		}
	}
	if loads != 1 {
		t.Fatalf("expected a single load, got %d", loads)
	}
	st := c.Stats()
	if st.Hits != 2 || st.Misses != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}

	boom := errors.New("boom")
	if _, err := c.GetOrLoad("pdf:1", func() ([]byte, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}
	if _, ok := c.Get("pdf:1"); ok {
		t.Fatal("errors must not be cached")
	}

	c.Purge()
	if c.Stats().Size != 0 {
		t.Fatal("purge should empty the cache")
	}
}

func TestManager_CleanNow(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](10, time.Second)
	c.now = func() time.Time { return now }
	c.Set("a", 1)
	now = now.Add(time.Hour)

	m := NewManager()
	m.Register(c)
	m.StartCleanup(time.Hour)
	defer m.Stop()

	if n := m.CleanNow(); n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}
}

func TestManager_StopWithoutStart(t *testing.T) {
	NewManager().Stop()
}
