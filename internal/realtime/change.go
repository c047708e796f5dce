// AngelaMos | 2026
// change.go

package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/tailorbook/internal/metrics"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
	EventAll    EventType = "*"
)

func (e EventType) Valid() bool {
	switch e {
	case EventInsert, EventUpdate, EventDelete, EventAll:
		return true
	}
	return false
}

const (
	TableUsers           = "users"
	TableOrders          = "orders"
	TableAppointments    = "appointments"
	TableContactMessages = "contact_messages"
	TableMeasurements    = "measurements"
)

var tables = map[string]struct{}{
	TableUsers:           {},
	TableOrders:          {},
	TableAppointments:    {},
	TableContactMessages: {},
	TableMeasurements:    {},
}

func KnownTable(name string) bool {
	_, ok := tables[name]
	return ok
}

// Change is one committed row mutation. Keys carries the column values a
// subscriber may filter on, so filtering never needs to decode New or Old.
type Change struct {
	ID              string            `json:"id"`
	Table           string            `json:"table"`
	Type            EventType         `json:"type"`
	New             json.RawMessage   `json:"new,omitempty"`
	Old             json.RawMessage   `json:"old,omitempty"`
	Keys            map[string]string `json:"keys"`
	CommitTimestamp time.Time         `json:"commit_timestamp"`
}

func NewChange(
	table string,
	typ EventType,
	newRow, oldRow any,
	keys map[string]string,
) (Change, error) {
	c := Change{
		ID:              uuid.New().String(),
		Table:           table,
		Type:            typ,
		Keys:            keys,
		CommitTimestamp: time.Now().UTC(),
	}

	if newRow != nil {
		b, err := json.Marshal(newRow)
		if err != nil {
			return Change{}, fmt.Errorf("marshal new row: %w", err)
		}
		c.New = b
	}

	if oldRow != nil {
		b, err := json.Marshal(oldRow)
		if err != nil {
			return Change{}, fmt.Errorf("marshal old row: %w", err)
		}
		c.Old = b
	}

	return c, nil
}

type Publisher interface {
	Publish(ctx context.Context, c Change) error
}

// Notify publishes a change after its row is committed. A publish failure
// is logged and swallowed: the write already succeeded and subscribers
// converge on their next fetch.
func Notify(
	ctx context.Context,
	pub Publisher,
	table string,
	typ EventType,
	newRow, oldRow any,
	keys map[string]string,
) {
	metrics.RecordMutation(table, string(typ))

	if pub == nil {
		return
	}

	c, err := NewChange(table, typ, newRow, oldRow, keys)
	if err != nil {
		slog.ErrorContext(ctx, "build change event", "table", table, "error", err)
		return
	}

	if err := pub.Publish(ctx, c); err != nil {
		slog.WarnContext(ctx, "publish change event",
			"table", table,
			"type", typ,
			"error", err,
		)
	}
}
