// AngelaMos | 2026
// reconcile_test.go

package reconcile

import (
	"encoding/json"
	"slices"
	"testing"

	"github.com/carterperez-dev/tailorbook/internal/backend"
)

type row struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Name   string `json:"customer_name,omitempty"`
}

func (r row) RowID() string { return r.ID }

func ids(rows []row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func keepName(current, incoming row) row {
	if incoming.Name == "" {
		incoming.Name = current.Name
	}
	return incoming
}

func TestApply(t *testing.T) {
	base := List[row]{{ID: "a", Status: "Cutting"}, {ID: "b", Status: "Trial"}}

	tests := []struct {
		name string
		ev   Event[row]
		want []string
	}{
		{"insert prepends", Inserted(row{ID: "c"}), []string{"c", "a", "b"}},
		{"insert of present id", Inserted(row{ID: "b"}), []string{"a", "b"}},
		{"update keeps position", Updated(row{ID: "b", Status: "Ready"}), []string{"a", "b"}},
		{"update unknown id", Updated(row{ID: "z"}), []string{"a", "b"}},
		{"delete", Deleted[row]("a"), []string{"b"}},
		{"delete unknown id", Deleted[row]("z"), []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(base, tt.ev, nil)
			if !slices.Equal(ids(got), tt.want) {
				t.Errorf("ids = %v, want %v", ids(got), tt.want)
			}
		})
	}

	if base[0].ID != "a" || len(base) != 2 {
		t.Error("Apply modified its input")
	}
}

func TestApplyMergeKeepsJoinedColumns(t *testing.T) {
	rows := List[row]{{ID: "a", Status: "Cutting", Name: "Lakshmi"}}

	got := Apply(rows, Updated(row{ID: "a", Status: "Trial"}), keepName)
	if got[0].Status != "Trial" || got[0].Name != "Lakshmi" {
		t.Errorf("merged row = %+v", got[0])
	}

	got = Apply(rows, Updated(row{ID: "a", Status: "Trial"}), nil)
	if got[0].Name != "" {
		t.Errorf("without merge the payload replaces the row, got %+v", got[0])
	}
}

func TestFeedBuffersUntilSnapshot(t *testing.T) {
	f := NewFeed[row](nil)

	f.Push(Inserted(row{ID: "c"}))
	f.Push(Inserted(row{ID: "a"}))
	f.Push(Updated(row{ID: "b", Status: "Ready"}))
	f.Push(Deleted[row]("x"))

	if f.Ready() || len(f.Rows()) != 0 {
		t.Fatal("feed should be empty before the snapshot")
	}

	f.Snapshot([]row{{ID: "a"}, {ID: "b", Status: "Trial"}, {ID: "x"}, {ID: "a"}})

	got := f.Rows()
	if !slices.Equal(ids(got), []string{"c", "a", "b"}) {
		t.Fatalf("ids = %v, want [c a b]", ids(got))
	}
	if r, _ := f.Find("b"); r.Status != "Ready" {
		t.Errorf("b status = %q, want Ready", r.Status)
	}

	if !f.Push(Inserted(row{ID: "d"})) {
		t.Error("insert after snapshot should report a change")
	}
	if f.Push(Updated(row{ID: "nope"})) {
		t.Error("unknown update should not report a change")
	}
}

func TestFeedClosedIgnoresEvents(t *testing.T) {
	f := NewFeed[row](nil)
	f.Snapshot([]row{{ID: "a"}})
	f.Close()

	if f.Push(Deleted[row]("a")) {
		t.Error("closed feed accepted an event")
	}
	if len(f.Rows()) != 1 {
		t.Error("closed feed changed")
	}
}

func TestFromChange(t *testing.T) {
	newRow, _ := json.Marshal(row{ID: "o1", Status: "Cutting"}) //nolint:errcheck // static value
	oldRow, _ := json.Marshal(row{ID: "o2"})                     //nolint:errcheck // static value

	tests := []struct {
		name   string
		change backend.Change
		kind   Kind
		id     string
	}{
		{"insert", backend.Change{Type: backend.EventInsert, New: newRow}, KindInserted, "o1"},
		{"update", backend.Change{Type: backend.EventUpdate, New: newRow}, KindUpdated, "o1"},
		{"delete by key", backend.Change{Type: backend.EventDelete, Keys: map[string]string{"id": "o3"}}, KindDeleted, "o3"},
		{"delete by old row", backend.Change{Type: backend.EventDelete, Old: oldRow}, KindDeleted, "o2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := FromChange[row](tt.change)
			if err != nil {
				t.Fatal(err)
			}
			if ev.Kind != tt.kind || ev.ID != tt.id {
				t.Errorf("event = %s %s, want %s %s", ev.Kind, ev.ID, tt.kind, tt.id)
			}
		})
	}

	if _, err := FromChange[row](backend.Change{Type: "TRUNCATE"}); err == nil {
		t.Error("unknown type should fail")
	}
}
