package cache

import (
	"testing"
	"time"
)

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if _, found := c.Get("missing"); found {
		t.Error("expected miss for unknown key")
	}

	if err := c.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	val, found := c.Get("k")
	if !found || string(val) != "v" {
		t.Errorf("expected v, got %q (found=%v)", val, found)
	}

	_ = c.Delete("k")
	if _, found := c.Get("k"); found {
		t.Error("expected miss after delete")
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	_ = c.Set("short", []byte("v"), 10*time.Millisecond)

	time.Sleep(30 * time.Millisecond)

	if _, found := c.Get("short"); found {
		t.Error("expected entry to expire")
	}
}

func TestMemoryCache_Clear(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	_ = c.Set("a", []byte("1"), 0)
	_ = c.Set("b", []byte("2"), 0)

	_ = c.Clear()

	for _, key := range []string{"a", "b"} {
		if _, found := c.Get(key); found {
			t.Errorf("expected %s cleared", key)
		}
	}
}

func TestKey(t *testing.T) {
	a := Key("classify", "model", "text")
	b := Key("classify", "model", "text")
	c := Key("classify", "model", "other text")
	d := Key("entities", "model", "text")

	if a != b {
		t.Error("expected identical keys for identical parts")
	}
	if a == c || a == d {
		t.Error("expected different keys for different parts or namespaces")
	}
	// Part boundaries matter
	if Key("x", "ab", "c") == Key("x", "a", "bc") {
		t.Error("expected part boundaries to change the key")
	}
}

func TestJSONHelpers(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	type entry struct {
		Label string  `json:"label"`
		Score float64 `json:"score"`
	}

	if err := SetJSON(c, "k", []entry{{"bribery", 0.8}}, 0); err != nil {
		t.Fatalf("SetJSON failed: %v", err)
	}

	var got []entry
	if !GetJSON(c, "k", &got) {
		t.Fatal("expected cached JSON value")
	}
	if len(got) != 1 || got[0].Label != "bribery" {
		t.Errorf("unexpected value: %+v", got)
	}

	_ = c.Set("bad", []byte("{not json"), 0)
	if GetJSON(c, "bad", &got) {
		t.Error("expected undecodable entry to be a miss")
	}
}
