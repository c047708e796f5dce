// AngelaMos | 2026
// reconcile.go

package reconcile

import (
	"fmt"
	"sync"

	"github.com/carterperez-dev/tailorbook/internal/backend"
)

type Row interface {
	RowID() string
}

// List is an ordered set of rows keyed by RowID.
type List[T Row] []T

type Kind int

const (
	KindInserted Kind = iota + 1
	KindUpdated
	KindDeleted
)

func (k Kind) String() string {
	switch k {
	case KindInserted:
		return "INSERT"
	case KindUpdated:
		return "UPDATE"
	case KindDeleted:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// Event is one change to a live list. Deletes carry only the id.
type Event[T Row] struct {
	Kind Kind
	Row  T
	ID   string
}

func Inserted[T Row](row T) Event[T] {
	return Event[T]{Kind: KindInserted, Row: row, ID: row.RowID()}
}

func Updated[T Row](row T) Event[T] {
	return Event[T]{Kind: KindUpdated, Row: row, ID: row.RowID()}
}

func Deleted[T Row](id string) Event[T] {
	return Event[T]{Kind: KindDeleted, ID: id}
}

// MergeFunc builds the stored row for an update from the current row and
// the incoming one. It lets payloads that lack joined columns keep them.
type MergeFunc[T Row] func(current, incoming T) T

// FromChange converts a realtime change into a list event.
func FromChange[T Row](c backend.Change) (Event[T], error) {
	switch c.Type {
	case backend.EventInsert, backend.EventUpdate:
		row, err := backend.DecodeNew[T](c)
		if err != nil {
			return Event[T]{}, fmt.Errorf("decode %s %s: %w", c.Table, c.Type, err)
		}
		if c.Type == backend.EventInsert {
			return Inserted(row), nil
		}
		return Updated(row), nil

	case backend.EventDelete:
		if id := c.Keys["id"]; id != "" {
			return Deleted[T](id), nil
		}
		row, err := backend.DecodeOld[T](c)
		if err != nil {
			return Event[T]{}, fmt.Errorf("decode %s DELETE: %w", c.Table, err)
		}
		return Deleted[T](row.RowID()), nil

	default:
		return Event[T]{}, fmt.Errorf("unknown change type %q", c.Type)
	}
}

func indexOf[T Row](rows []T, id string) int {
	for i, r := range rows {
		if r.RowID() == id {
			return i
		}
	}
	return -1
}

// Apply returns rows with ev applied. The input slice is never modified.
// Inserts go to the front unless the id is already present; updates and
// deletes of unknown ids change nothing.
func Apply[T Row](rows List[T], ev Event[T], merge MergeFunc[T]) List[T] {
	i := indexOf(rows, ev.ID)

	switch ev.Kind {
	case KindInserted:
		if i >= 0 {
			return rows
		}
		out := make(List[T], 0, len(rows)+1)
		out = append(out, ev.Row)
		return append(out, rows...)

	case KindUpdated:
		if i < 0 {
			return rows
		}
		out := make(List[T], len(rows))
		copy(out, rows)
		if merge != nil {
			out[i] = merge(rows[i], ev.Row)
		} else {
			out[i] = ev.Row
		}
		return out

	case KindDeleted:
		if i < 0 {
			return rows
		}
		out := make(List[T], 0, len(rows)-1)
		out = append(out, rows[:i]...)
		return append(out, rows[i+1:]...)
	}

	return rows
}

// Feed is a live list that may receive events before its initial
// snapshot. Early events are held and replayed on top of the snapshot.
type Feed[T Row] struct {
	merge MergeFunc[T]

	mu      sync.Mutex
	rows    List[T]
	ready   bool
	closed  bool
	pending []Event[T]
}

func NewFeed[T Row](merge MergeFunc[T]) *Feed[T] {
	return &Feed[T]{merge: merge}
}

// Push applies ev, or buffers it until Snapshot. It reports whether the
// visible rows changed.
func (f *Feed[T]) Push(ev Event[T]) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false
	}
	if !f.ready {
		f.pending = append(f.pending, ev)
		return false
	}

	next := Apply(f.rows, ev, f.merge)
	changed := len(next) != len(f.rows) || ev.Kind == KindUpdated && indexOf(f.rows, ev.ID) >= 0
	f.rows = next
	return changed
}

// Snapshot installs the initial rows. Duplicate ids keep their first
// occurrence, then buffered events replay in arrival order.
func (f *Feed[T]) Snapshot(rows []T) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}

	seen := make(map[string]struct{}, len(rows))
	out := make(List[T], 0, len(rows))
	for _, r := range rows {
		if _, dup := seen[r.RowID()]; dup {
			continue
		}
		seen[r.RowID()] = struct{}{}
		out = append(out, r)
	}

	for _, ev := range f.pending {
		out = Apply(out, ev, f.merge)
	}

	f.rows = out
	f.pending = nil
	f.ready = true
}

func (f *Feed[T]) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

// Rows returns a copy of the current rows.
func (f *Feed[T]) Rows() []T {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]T, len(f.rows))
	copy(out, f.rows)
	return out
}

// Find returns the row with id, if present.
func (f *Feed[T]) Find(id string) (T, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if i := indexOf(f.rows, id); i >= 0 {
		return f.rows[i], true
	}
	var zero T
	return zero, false
}

// Close drops any buffered events and ignores everything after.
func (f *Feed[T]) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	f.pending = nil
}
