// Package audit fans delivery outcomes out to live observers.
package audit

import (
	"sync"
	"sync/atomic"
	"time"
)

// Entry summarizes one webhook delivery attempt sequence.
//
// Contract:
//   - Publish MUST be non-blocking.
//   - Subscribers MUST use buffered channels.
//   - Slow subscribers may drop entries (bounded backpressure).
type Entry struct {
	At          time.Time
	RuleID      int64
	RuleName    string
	EventType   string
	GameID      int64
	Success     bool
	HTTPStatus  int
	Error       string
	Attempts    int
	Description string
}

type Bus interface {
	Publish(e Entry)
	Subscribe(buffer int) (ch <-chan Entry, unsubscribe func())
}

// New returns a simple in-memory fanout bus.
//
// It intentionally does not own any background goroutines.
func New() Bus {
	return &memBus{subs: map[uint64]chan Entry{}}
}

type memBus struct {
	mu   sync.RWMutex
	subs map[uint64]chan Entry
	seq  atomic.Uint64
}

func (b *memBus) Publish(e Entry) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	// Snapshot subscribers so Publish doesn't hold locks while attempting sends.
	b.mu.RLock()
	chs := make([]chan Entry, 0, len(b.subs))
	for _, ch := range b.subs {
		chs = append(chs, ch)
	}
	b.mu.RUnlock()

	for _, ch := range chs {
		// Non-blocking delivery. If a subscriber unsubscribes concurrently and
		// the channel closes, recover from the send panic.
		func() {
			defer func() { _ = recover() }()
			select {
			case ch <- e:
			default:
			}
		}()
	}
}

func (b *memBus) Subscribe(buffer int) (<-chan Entry, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan Entry, buffer)
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			// Closing is safe because Publish recovers from send panics.
			close(ch)
		})
	}
	return ch, unsub
}
