// AngelaMos | 2026
// handler.go

package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/tailorbook/internal/core"
	"github.com/carterperez-dev/tailorbook/internal/middleware"
)

type Handler struct {
	hub       *Hub
	heartbeat time.Duration
}

func NewHandler(hub *Hub, heartbeat time.Duration) *Handler {
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}
	return &Handler{hub: hub, heartbeat: heartbeat}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.With(authenticator).Get("/realtime", h.Stream)
}

// ownerColumns names, per table, the column a customer must filter on to
// see only their own rows. Tables absent here are staff only.
var ownerColumns = map[string]string{
	TableOrders:       "user_id",
	TableAppointments: "user_id",
	TableMeasurements: "user_id",
	TableUsers:        "id",
}

// Authorize applies row-level read rules to a subscription request.
func Authorize(role, userID string, req Subscription) error {
	if middleware.IsStaffRole(role) {
		return nil
	}

	column, ok := ownerColumns[req.Table]
	if !ok {
		return fmt.Errorf("subscribe to %s: %w", req.Table, core.ErrForbidden)
	}

	if req.Filter == nil || req.Filter.Column != column || req.Filter.Value != userID {
		return fmt.Errorf(
			"subscribe to %s requires filter %s=eq.<your id>: %w",
			req.Table,
			column,
			core.ErrForbidden,
		)
	}

	return nil
}

func ParseSubscription(r *http.Request) (Subscription, error) {
	q := r.URL.Query()

	table := q.Get("table")
	if !KnownTable(table) {
		return Subscription{}, fmt.Errorf("unknown table %q", table)
	}

	event := EventType(q.Get("event"))
	if event == "" {
		event = EventAll
	}
	if !event.Valid() {
		return Subscription{}, fmt.Errorf("unknown event %q", event)
	}

	filter, err := ParseFilter(q.Get("filter"))
	if err != nil {
		return Subscription{}, err
	}

	return Subscription{Table: table, Event: event, Filter: filter}, nil
}

func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	req, err := ParseSubscription(r)
	if err != nil {
		core.BadRequest(w, err.Error())
		return
	}

	ctx := r.Context()
	if err := Authorize(middleware.GetUserRole(ctx), middleware.GetUserID(ctx), req); err != nil {
		core.Forbidden(w, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		core.InternalServerError(w, fmt.Errorf("response writer does not support streaming"))
		return
	}

	// Streams outlive the server's write timeout.
	//nolint:errcheck // unsupported writers keep the server deadline
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	sub, err := h.hub.Subscribe(req)
	if err != nil {
		core.JSONError(w, core.NewAppError(err, "realtime unavailable", http.StatusServiceUnavailable, "UNAVAILABLE"))
		return
	}
	defer h.hub.Unsubscribe(sub)

	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	writeEvent(w, "", "subscribed", map[string]string{
		"table":  req.Table,
		"event":  string(req.Event),
		"filter": req.Filter.String(),
	})
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done():
			if sub.Lagged() {
				writeEvent(w, "", "error", map[string]string{"message": "subscriber lagged"})
				flusher.Flush()
			}
			return
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n") //nolint:errcheck // broken pipes end the loop via ctx
			flusher.Flush()
		case c := <-sub.C():
			writeEvent(w, c.ID, "change", c)
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, id, event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	if id != "" {
		fmt.Fprintf(w, "id: %s\n", id) //nolint:errcheck // see Stream
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload) //nolint:errcheck // see Stream
}
