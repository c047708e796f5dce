// AngelaMos | 2026
// notify_test.go

package notify

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newFakeQueue() (*Queue, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}
	q := NewQueue(WithClock(clock.Now), WithTTL(DefaultTTL))
	return q, clock
}

func TestEntryExpiresAfterFourSeconds(t *testing.T) {
	q, clock := newFakeQueue()
	defer q.Close()

	e := q.Notify("Order created successfully!", "")
	if e.Severity != Success {
		t.Errorf("default severity = %q, want success", e.Severity)
	}

	clock.Advance(3990 * time.Millisecond)
	if got := q.List(); len(got) != 1 {
		t.Fatalf("at T+3.99s List() = %d entries, want 1", len(got))
	}

	clock.Advance(20 * time.Millisecond)
	if got := q.List(); len(got) != 0 {
		t.Errorf("at T+4.01s List() = %+v, want empty", got)
	}
}

func TestDismissLeavesOthersAlone(t *testing.T) {
	q, clock := newFakeQueue()
	defer q.Close()

	first := q.Notify("Status updated to: Cutting", Success)
	clock.Advance(time.Second)
	second := q.Notify("Failed to update status", Error)
	clock.Advance(time.Second)
	third := q.Notify("New order received!", Info)

	if !q.Dismiss(second.ID) {
		t.Fatal("dismiss returned false")
	}
	if q.Dismiss(second.ID) {
		t.Error("second dismiss of same id should be a no-op")
	}

	got := q.List()
	if len(got) != 2 || got[0].ID != first.ID || got[1].ID != third.ID {
		t.Fatalf("List() = %+v, want first and third in order", got)
	}

	clock.Advance(2500 * time.Millisecond)
	got = q.List()
	if len(got) != 1 || got[0].ID != third.ID {
		t.Errorf("after first expired List() = %+v, want only third", got)
	}
}

func TestIDsIncrease(t *testing.T) {
	q, _ := newFakeQueue()
	defer q.Close()

	var last uint64
	for range 5 {
		e := q.Notify("x", Info)
		if e.ID <= last {
			t.Fatalf("id %d not greater than %d", e.ID, last)
		}
		last = e.ID
	}
}

func TestTimerPrunesAndNotifies(t *testing.T) {
	q := NewQueue(WithTTL(20 * time.Millisecond))
	defer q.Close()

	changed := make(chan struct{}, 4)
	q.OnChange(func() { changed <- struct{}{} })

	q.Notify("Welcome back!", Success)
	<-changed

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("expiry never fired")
	}

	q.mu.Lock()
	n := len(q.entries)
	q.mu.Unlock()
	if n != 0 {
		t.Errorf("entries = %d after expiry, want 0", n)
	}
}
