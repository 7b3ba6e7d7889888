package live

import (
	"testing"
	"time"

	"pucktrack/internal/nhl"
)

func TestWatchUnwatchLifecycle(t *testing.T) {
	t.Parallel()
	h := NewHolder()

	if _, ok := h.Watched(); ok {
		t.Fatal("fresh holder should not report a watched game")
	}

	h.Watch(100)
	h.Watch(100)
	if id, ok := h.Watched(); !ok || id != 100 {
		t.Fatalf("Watched = %d, %v", id, ok)
	}
	if h.Viewers() != 2 {
		t.Fatalf("viewers = %d, want 2", h.Viewers())
	}

	h.Unwatch()
	if _, ok := h.Watched(); !ok {
		t.Fatal("one viewer remaining should keep the game watched")
	}
	h.Unwatch()
	if _, ok := h.Watched(); ok {
		t.Fatal("zero viewers should clear the watched game")
	}
	// Extra Unwatch must not underflow.
	h.Unwatch()
	if h.Viewers() != 0 {
		t.Fatalf("viewers = %d, want 0", h.Viewers())
	}
}

func TestWatchSwitchDropsSnapshot(t *testing.T) {
	t.Parallel()
	h := NewHolder()

	h.Watch(100)
	h.Publish(&nhl.Snapshot{GameID: 100})
	if h.Snapshot() == nil {
		t.Fatal("snapshot missing after publish")
	}

	h.Watch(200)
	if h.Snapshot() != nil {
		t.Fatal("stale snapshot survived a game switch")
	}
}

func TestPublishIgnoresMismatchedGame(t *testing.T) {
	t.Parallel()
	h := NewHolder()

	h.Watch(100)
	h.Publish(&nhl.Snapshot{GameID: 999})
	if h.Snapshot() != nil {
		t.Fatal("snapshot for a different game was accepted")
	}
}

func TestSubscribeNewestWins(t *testing.T) {
	t.Parallel()
	h := NewHolder()
	h.Watch(100)

	ch, unsub := h.Subscribe(1)
	defer unsub()

	// Publish twice without draining: the subscriber must see the newest.
	h.Publish(&nhl.Snapshot{GameID: 100, Landing: &nhl.Landing{ID: 100, GameState: nhl.GameStateLive}})
	newer := &nhl.Snapshot{GameID: 100, Landing: &nhl.Landing{ID: 100, GameState: nhl.GameStateFinal}}
	h.Publish(newer)

	select {
	case got := <-ch:
		if got != newer {
			t.Fatalf("subscriber got stale snapshot %+v", got.Landing)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber never notified")
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	t.Parallel()
	h := NewHolder()
	h.Watch(100)

	_, unsub := h.Subscribe(1)
	unsub()
	unsub()

	// Publishing after unsubscribe must not panic or block.
	h.Publish(&nhl.Snapshot{GameID: 100})
}
