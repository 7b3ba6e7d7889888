package nhl

import (
	"testing"
	"time"
)

func TestCacheTTLPerTier(t *testing.T) {
	t.Parallel()
	c := NewCache(time.Hour, 2*time.Second)
	base := time.Now()
	now := base
	c.now = func() time.Time { return now }

	c.Put("schedule:TOR", TierStatic, "week")
	c.Put("landing:1", TierLive, "snap")

	if _, ok := c.Get("schedule:TOR"); !ok {
		t.Fatal("static entry missing immediately after Put")
	}
	if _, ok := c.Get("landing:1"); !ok {
		t.Fatal("live entry missing immediately after Put")
	}

	// Past the live TTL but inside the static TTL.
	now = base.Add(3 * time.Second)
	if _, ok := c.Get("landing:1"); ok {
		t.Fatal("live entry survived past its TTL")
	}
	if _, ok := c.Get("schedule:TOR"); !ok {
		t.Fatal("static entry expired with the live tier")
	}

	now = base.Add(2 * time.Hour)
	if _, ok := c.Get("schedule:TOR"); ok {
		t.Fatal("static entry survived past its TTL")
	}
}

func TestCacheInvalidate(t *testing.T) {
	t.Parallel()
	c := NewCache(time.Hour, time.Hour)

	c.Put("landing:1", TierLive, "a")
	c.Invalidate("landing:1")
	if _, ok := c.Get("landing:1"); ok {
		t.Fatal("entry survived Invalidate")
	}
}

func TestCacheInvalidateGame(t *testing.T) {
	t.Parallel()
	c := NewCache(time.Hour, time.Hour)

	c.Put("landing:2024020500", TierLive, "a")
	c.Put("pbp:2024020500", TierLive, "b")
	c.Put("box:2024020500", TierLive, "c")
	c.Put("landing:2024020501", TierLive, "other")
	c.Put("schedule:TOR", TierStatic, "week")

	c.InvalidateGame(2024020500)

	for _, key := range []string{"landing:2024020500", "pbp:2024020500", "box:2024020500"} {
		if _, ok := c.Get(key); ok {
			t.Fatalf("%q survived InvalidateGame", key)
		}
	}
	if _, ok := c.Get("landing:2024020501"); !ok {
		t.Fatal("unrelated game was invalidated")
	}
	if _, ok := c.Get("schedule:TOR"); !ok {
		t.Fatal("schedule key was invalidated")
	}
}

func TestCacheOverwrite(t *testing.T) {
	t.Parallel()
	c := NewCache(time.Hour, time.Hour)

	c.Put("landing:1", TierLive, "old")
	c.Put("landing:1", TierLive, "new")
	v, ok := c.Get("landing:1")
	if !ok || v != "new" {
		t.Fatalf("Get = %v, %v; want new", v, ok)
	}
}
