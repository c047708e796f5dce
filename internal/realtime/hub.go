// AngelaMos | 2026
// hub.go

package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/tailorbook/internal/core"
	"github.com/carterperez-dev/tailorbook/internal/metrics"
)

const tracerName = "tailorbook/realtime"

var ErrHubClosed = errors.New("realtime hub closed")

// Subscriber receives matching changes on C until Done is closed. Done
// closes on Unsubscribe, hub shutdown, or when the subscriber falls a full
// buffer behind.
type Subscriber struct {
	id     uint64
	spec   Subscription
	ch     chan Change
	done   chan struct{}
	once   sync.Once
	lagged bool
}

func (s *Subscriber) C() <-chan Change           { return s.ch }
func (s *Subscriber) Done() <-chan struct{}      { return s.done }
func (s *Subscriber) Subscription() Subscription { return s.spec }

// Lagged reports whether the subscriber was dropped for falling behind.
// Only meaningful after Done is closed.
func (s *Subscriber) Lagged() bool { return s.lagged }

func (s *Subscriber) close(lagged bool) {
	s.once.Do(func() {
		s.lagged = lagged
		close(s.done)
	})
}

type Hub struct {
	broker Broker
	buffer int
	logger *slog.Logger

	mu     sync.RWMutex
	subs   map[uint64]*Subscriber
	nextID uint64
	closed bool

	published uint64
	delivered uint64
	dropped   uint64
}

func NewHub(broker Broker, buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		broker: broker,
		buffer: buffer,
		logger: logger,
		subs:   make(map[uint64]*Subscriber),
	}
}

func (h *Hub) Publish(ctx context.Context, c Change) error {
	ctx, span := core.StartSpan(ctx, tracerName, "realtime.publish",
		attribute.String("realtime.table", c.Table),
		attribute.String("realtime.type", string(c.Type)),
	)
	defer span.End()

	payload, err := json.Marshal(c)
	if err != nil {
		core.SetSpanError(ctx, err)
		return fmt.Errorf("encode change: %w", err)
	}

	core.AddSpanEvent(ctx, "change.encoded", attribute.Int("realtime.bytes", len(payload)))

	if err := h.broker.Publish(ctx, payload); err != nil {
		core.SetSpanError(ctx, err)
		return fmt.Errorf("publish change: %w", err)
	}

	h.mu.Lock()
	h.published++
	h.mu.Unlock()

	return nil
}

// Run pumps the broker into local subscribers until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	h.logger.Info("realtime hub started")
	defer h.logger.Info("realtime hub stopped")

	return h.broker.Listen(ctx, func(payload []byte) {
		var c Change
		if err := json.Unmarshal(payload, &c); err != nil {
			h.logger.Warn("discarding malformed change", "error", err)
			return
		}
		h.dispatch(c)
	})
}

func (h *Hub) Subscribe(spec Subscription) (*Subscriber, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}

	h.nextID++
	s := &Subscriber{
		id:   h.nextID,
		spec: spec,
		ch:   make(chan Change, h.buffer),
		done: make(chan struct{}),
	}
	h.subs[s.id] = s
	metrics.RealtimeSubscribers.Inc()

	return s, nil
}

func (h *Hub) Unsubscribe(s *Subscriber) {
	h.remove(s, false)
}

func (h *Hub) remove(s *Subscriber, lagged bool) {
	h.mu.Lock()
	if _, ok := h.subs[s.id]; ok {
		delete(h.subs, s.id)
		metrics.RealtimeSubscribers.Dec()
	}
	h.mu.Unlock()

	s.close(lagged)
}

func (h *Hub) dispatch(c Change) {
	var laggards []*Subscriber
	delivered := uint64(0)

	h.mu.RLock()
	for _, s := range h.subs {
		if !s.spec.Matches(c) {
			continue
		}
		select {
		case s.ch <- c:
			delivered++
		default:
			laggards = append(laggards, s)
		}
	}
	h.mu.RUnlock()

	metrics.RealtimeChanges.WithLabelValues(c.Table, string(c.Type)).Inc()

	for _, s := range laggards {
		h.logger.Warn("dropping lagging subscriber",
			"subscription", s.spec.String(),
		)
		metrics.RealtimeDropped.Inc()
		h.remove(s, true)
	}

	h.mu.Lock()
	h.delivered += delivered
	h.dropped += uint64(len(laggards))
	h.mu.Unlock()
}

// Close ends every open subscription and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	subs := make([]*Subscriber, 0, len(h.subs))
	for id, s := range h.subs {
		subs = append(subs, s)
		delete(h.subs, id)
		metrics.RealtimeSubscribers.Dec()
	}
	h.mu.Unlock()

	for _, s := range subs {
		s.close(false)
	}
}

type Stats struct {
	Subscribers int    `json:"subscribers"`
	Published   uint64 `json:"published"`
	Delivered   uint64 `json:"delivered"`
	Dropped     uint64 `json:"dropped"`
}

func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return Stats{
		Subscribers: len(h.subs),
		Published:   h.published,
		Delivered:   h.delivered,
		Dropped:     h.dropped,
	}
}

// Ping reports whether the hub still accepts subscriptions.
func (h *Hub) Ping(context.Context) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrHubClosed
	}
	return nil
}
