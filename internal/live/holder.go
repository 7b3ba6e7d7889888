// Package live holds the latest snapshot of the single watched game.
package live

import (
	"sync"

	"pucktrack/internal/nhl"
)

// Holder is the process-wide record of the currently observed game.
//
// Mutations happen under one mutex with copy-on-write semantics: readers get
// the published *nhl.Snapshot pointer and never hold the lock while using it.
// Change notification is via subscriber channels (non-blocking,
// newest-wins), not callbacks.
type Holder struct {
	mu       sync.RWMutex
	gameID   int64
	snapshot *nhl.Snapshot
	viewers  int

	subsMu sync.Mutex
	subs   []chan *nhl.Snapshot
}

func NewHolder() *Holder {
	return &Holder{}
}

// Watch sets the observed game and bumps the viewer count.
// Switching games drops the previous snapshot.
func (h *Holder) Watch(gameID int64) {
	h.mu.Lock()
	if h.gameID != gameID {
		h.gameID = gameID
		h.snapshot = nil
	}
	h.viewers++
	h.mu.Unlock()
}

// Unwatch decrements the viewer count; at zero the game stays set but the
// poller treats it as unobserved.
func (h *Holder) Unwatch() {
	h.mu.Lock()
	if h.viewers > 0 {
		h.viewers--
	}
	if h.viewers == 0 {
		h.gameID = 0
		h.snapshot = nil
	}
	h.mu.Unlock()
}

// Watched returns the observed game id and whether any viewer is present.
func (h *Holder) Watched() (gameID int64, ok bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.gameID, h.viewers > 0 && h.gameID != 0
}

func (h *Holder) Viewers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.viewers
}

// Snapshot returns the currently published snapshot (possibly nil).
// The returned value is immutable; it is replaced wholesale, never mutated.
func (h *Holder) Snapshot() *nhl.Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snapshot
}

// Publish replaces the snapshot for the watched game and notifies
// subscribers. A snapshot for a different game than the one watched is
// ignored (the viewer switched mid-fetch).
func (h *Holder) Publish(s *nhl.Snapshot) {
	if s == nil {
		return
	}
	h.mu.Lock()
	if h.gameID != 0 && h.gameID != s.GameID {
		h.mu.Unlock()
		return
	}
	h.snapshot = s
	h.mu.Unlock()

	h.subsMu.Lock()
	defer h.subsMu.Unlock()
	for _, ch := range h.subs {
		// Newest wins: drop one stale snapshot if the subscriber is behind.
		select {
		case ch <- s:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}

// Subscribe registers a change listener. The returned unsubscribe func is
// idempotent.
func (h *Holder) Subscribe(buffer int) (<-chan *nhl.Snapshot, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan *nhl.Snapshot, buffer)
	h.subsMu.Lock()
	h.subs = append(h.subs, ch)
	h.subsMu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			h.subsMu.Lock()
			defer h.subsMu.Unlock()
			for i, s := range h.subs {
				if s == ch {
					last := len(h.subs) - 1
					h.subs[i] = h.subs[last]
					h.subs[last] = nil
					h.subs = h.subs[:last]
					close(ch)
					return
				}
			}
		})
	}
	return ch, unsub
}
