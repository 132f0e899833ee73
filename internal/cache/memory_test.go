package cache

import (
	"testing"
	"time"
)

func TestMemoryCache_GetSet(t *testing.T) {
	c, err := New("memory", ProviderConfig{Size: 10, TTL: time.Hour})
	if err != nil {
		t.Fatalf("New memory cache: %v", err)
	}
	defer c.Close()

	// Miss
	val, ok := c.Get("do_1")
	if ok {
		t.Fatal("Expected miss for do_1")
	}
	if val != nil {
		t.Fatalf("Expected nil value on miss, got %v", val)
	}

	// Set + hit
	c.Set("do_1", []byte(`{"identifier":"do_1"}`))
	val, ok = c.Get("do_1")
	if !ok {
		t.Fatal("Expected hit for do_1")
	}
	if string(val) != `{"identifier":"do_1"}` {
		t.Fatalf("Unexpected cached value: %s", string(val))
	}
}

func TestMemoryCache_EvictsOldest(t *testing.T) {
	evicted := make(map[string]bool)
	c, err := New("memory", ProviderConfig{
		Size: 2,
		TTL:  time.Hour,
		OnEvict: func(key string, _ []byte) {
			evicted[key] = true
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))
	c.Set("c", []byte("3"))

	if !evicted["a"] {
		t.Error("Expected oldest entry to be evicted")
	}
	if c.Len() != 2 {
		t.Errorf("Expected 2 entries, got %d", c.Len())
	}
}

func TestMemoryCache_DefaultSize(t *testing.T) {
	c, err := New("memory", ProviderConfig{TTL: time.Hour})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	// With Size unset the cache still bounds itself instead of panicking or
	// evicting on every insert.
	for i := 0; i < defaultMemoryEntries; i++ {
		c.Set(string(rune('a'+i%26))+string(rune('0'+i/26)), []byte("v"))
	}
	if c.Len() == 0 {
		t.Error("Expected entries to be retained under the default bound")
	}
}

func TestMemoryCache_Contains(t *testing.T) {
	c, err := New("memory", ProviderConfig{Size: 10, TTL: time.Hour})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if c.Contains("absent") {
		t.Fatal("Expected absent key to not be contained")
	}

	c.Set("present", []byte("data"))
	if !c.Contains("present") {
		t.Fatal("Expected present key to be contained")
	}
}
