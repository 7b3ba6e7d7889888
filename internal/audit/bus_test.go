package audit

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	t.Parallel()
	b := New()

	ch, unsub := b.Subscribe(4)
	defer unsub()

	b.Publish(Entry{RuleID: 7, EventType: "GoalScored", Success: true, HTTPStatus: 200})

	select {
	case e := <-ch:
		if e.RuleID != 7 || !e.Success {
			t.Fatalf("entry = %+v", e)
		}
		if e.At.IsZero() {
			t.Fatal("Publish did not stamp At")
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the entry")
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	t.Parallel()
	b := New()

	_, unsub := b.Subscribe(1)
	defer unsub()

	// Full buffer must not block the publisher.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish(Entry{RuleID: int64(i)})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestPublishAfterUnsubscribe(t *testing.T) {
	t.Parallel()
	b := New()

	_, unsub := b.Subscribe(1)
	unsub()
	unsub() // idempotent

	// Must not panic on the closed channel.
	b.Publish(Entry{RuleID: 1})
}

func TestFanout(t *testing.T) {
	t.Parallel()
	b := New()

	ch1, unsub1 := b.Subscribe(1)
	defer unsub1()
	ch2, unsub2 := b.Subscribe(1)
	defer unsub2()

	b.Publish(Entry{RuleID: 42})

	for i, ch := range []<-chan Entry{ch1, ch2} {
		select {
		case e := <-ch:
			if e.RuleID != 42 {
				t.Fatalf("subscriber %d got %+v", i, e)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d never notified", i)
		}
	}
}
