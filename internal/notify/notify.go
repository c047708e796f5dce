// AngelaMos | 2026
// notify.go

package notify

import (
	"sync"
	"time"
)

type Severity string

const (
	Success Severity = "success"
	Error   Severity = "error"
	Info    Severity = "info"
)

const DefaultTTL = 4 * time.Second

type Entry struct {
	ID        uint64    `json:"id"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	CreatedAt time.Time `json:"created_at"`
}

// Queue holds one browser's transient notifications. Entries leave on
// their own after the TTL or when dismissed; neither affects any other
// entry.
type Queue struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	nextID   uint64
	entries  []Entry
	timers   map[uint64]*time.Timer
	onChange func()
	closed   bool
}

type Option func(*Queue)

func WithTTL(d time.Duration) Option {
	return func(q *Queue) { q.ttl = d }
}

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

func NewQueue(opts ...Option) *Queue {
	q := &Queue{
		ttl:    DefaultTTL,
		now:    time.Now,
		timers: make(map[uint64]*time.Timer),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// OnChange registers fn to run after any entry is added or removed. It is
// called without the queue lock held.
func (q *Queue) OnChange(fn func()) {
	q.mu.Lock()
	q.onChange = fn
	q.mu.Unlock()
}

func (q *Queue) Notify(message string, severity Severity) Entry {
	if severity == "" {
		severity = Success
	}

	q.mu.Lock()
	q.nextID++
	e := Entry{
		ID:        q.nextID,
		Message:   message,
		Severity:  severity,
		CreatedAt: q.now(),
	}
	q.entries = append(q.entries, e)
	if !q.closed {
		id := e.ID
		q.timers[id] = time.AfterFunc(q.ttl, func() { q.remove(id) })
	}
	fn := q.onChange
	q.mu.Unlock()

	if fn != nil {
		fn()
	}
	return e
}

// List returns live entries in arrival order.
func (q *Queue) List() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	cutoff := q.now().Add(-q.ttl)
	out := make([]Entry, 0, len(q.entries))
	for _, e := range q.entries {
		if e.CreatedAt.After(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

func (q *Queue) Dismiss(id uint64) bool {
	return q.remove(id)
}

func (q *Queue) remove(id uint64) bool {
	q.mu.Lock()
	if t, ok := q.timers[id]; ok {
		t.Stop()
		delete(q.timers, id)
	}

	found := false
	for i, e := range q.entries {
		if e.ID == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			found = true
			break
		}
	}
	fn := q.onChange
	q.mu.Unlock()

	if found && fn != nil {
		fn()
	}
	return found
}

// Close stops pending expiry timers. Entries stay readable and still
// expire by age in List.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	for id, t := range q.timers {
		t.Stop()
		delete(q.timers, id)
	}
	q.onChange = nil
}
