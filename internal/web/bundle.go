// AngelaMos | 2026
// bundle.go

package web

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/tailorbook/internal/backend"
	"github.com/carterperez-dev/tailorbook/internal/dashboard"
	"github.com/carterperez-dev/tailorbook/internal/forms"
	"github.com/carterperez-dev/tailorbook/internal/metrics"
	"github.com/carterperez-dev/tailorbook/internal/notify"
	"github.com/carterperez-dev/tailorbook/internal/session"
)

// Bundle is everything the server keeps for one browser: its identity, its
// notifications, the submitting state of its forms and whichever
// dashboard it has open.
type Bundle struct {
	ID      string
	Session *session.Provider
	Notes   *notify.Queue

	LoginForm        forms.Guard
	RegisterForm     forms.Guard
	ContactForm      forms.Guard
	BookingForm      forms.Guard
	AppointmentForm  forms.Guard
	MeasurementsForm forms.Guard
	OrderForm        forms.Guard

	source dashboard.Source
	logger *slog.Logger
	toasts chan struct{}

	// mountMu serializes mount and unmount so at most one view is open.
	mountMu sync.Mutex

	mu       sync.Mutex
	lastSeen time.Time
	admin    *dashboard.Admin
	customer *dashboard.Customer
}

func newBundle(id string, client *backend.Client, logger *slog.Logger) *Bundle {
	conn := client.Connect()
	b := &Bundle{
		ID:      id,
		Session: session.NewProvider(conn, logger),
		Notes:   notify.NewQueue(),
		source:  dashboard.FromConn(conn),
		logger:  logger,
		toasts:  make(chan struct{}, 1),
	}
	b.Notes.OnChange(func() {
		select {
		case b.toasts <- struct{}{}:
		default:
		}
	})
	return b
}

func (b *Bundle) Source() dashboard.Source { return b.source }

// Toasts fires, coalesced, when the notification list changes.
func (b *Bundle) Toasts() <-chan struct{} { return b.toasts }

func (b *Bundle) touch(now time.Time) {
	b.mu.Lock()
	b.lastSeen = now
	b.mu.Unlock()
}

func (b *Bundle) idleSince() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastSeen
}

// MountAdmin replaces any open dashboard with a fresh staff board.
func (b *Bundle) MountAdmin(ctx context.Context) *dashboard.Admin {
	b.mountMu.Lock()
	defer b.mountMu.Unlock()

	b.unmount()
	a := dashboard.MountAdmin(ctx, b.source, b.Notes, b.logger)

	b.mu.Lock()
	b.admin = a
	b.mu.Unlock()
	return a
}

// MountCustomer replaces any open dashboard with the customer's own.
func (b *Bundle) MountCustomer(ctx context.Context, userID string) *dashboard.Customer {
	b.mountMu.Lock()
	defer b.mountMu.Unlock()

	b.unmount()
	c := dashboard.MountCustomer(ctx, b.source, b.Notes, userID, b.logger)

	b.mu.Lock()
	b.customer = c
	b.mu.Unlock()
	return c
}

func (b *Bundle) Admin() *dashboard.Admin {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.admin
}

func (b *Bundle) Customer() *dashboard.Customer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.customer
}

// Unmount closes whichever dashboard is open. It waits for a mount in
// progress so that view is closed too.
func (b *Bundle) Unmount() {
	b.mountMu.Lock()
	defer b.mountMu.Unlock()
	b.unmount()
}

func (b *Bundle) unmount() {
	b.mu.Lock()
	a, c := b.admin, b.customer
	b.admin, b.customer = nil, nil
	b.mu.Unlock()

	if a != nil {
		a.Close()
	}
	if c != nil {
		c.Close()
	}
}

func (b *Bundle) Close() {
	b.Unmount()
	b.Notes.Close()
	b.Session.Close()
}

// Registry maps bundle ids from the browser cookie to live bundles.
type Registry struct {
	client *backend.Client
	idle   time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	bundles map[string]*Bundle
}

func NewRegistry(client *backend.Client, idle time.Duration, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		client:  client,
		idle:    idle,
		logger:  logger,
		now:     time.Now,
		bundles: make(map[string]*Bundle),
	}
}

// Open returns the bundle for id, creating it when the id is empty or
// unknown. A new bundle restores its session from refreshToken before it
// is returned.
func (r *Registry) Open(ctx context.Context, id, refreshToken string) *Bundle {
	if id == "" {
		id = uuid.NewString()
	}

	r.mu.Lock()
	b, ok := r.bundles[id]
	if !ok {
		b = newBundle(id, r.client, r.logger.With("bundle", shortID(id)))
		r.bundles[id] = b
		metrics.WebBundles.Inc()
	}
	r.mu.Unlock()

	b.touch(r.now())
	b.Session.Init(ctx, refreshToken)
	return b
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Forget closes and drops a bundle, e.g. on sign-out.
func (r *Registry) Forget(id string) {
	r.mu.Lock()
	b, ok := r.bundles[id]
	delete(r.bundles, id)
	r.mu.Unlock()

	if ok {
		metrics.WebBundles.Dec()
		b.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bundles)
}

// Sweep closes bundles idle for longer than the idle timeout.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idle)

	r.mu.Lock()
	var stale []*Bundle
	for id, b := range r.bundles {
		if b.idleSince().Before(cutoff) {
			stale = append(stale, b)
			delete(r.bundles, id)
		}
	}
	r.mu.Unlock()

	for _, b := range stale {
		metrics.WebBundles.Dec()
		b.Close()
	}
	return len(stale)
}

// Run sweeps until ctx ends, then closes every bundle.
func (r *Registry) Run(ctx context.Context) {
	interval := r.idle / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Debug("swept idle browser bundles", "count", n)
			}
		}
	}
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	all := r.bundles
	r.bundles = make(map[string]*Bundle)
	r.mu.Unlock()

	for _, b := range all {
		b.Close()
	}
	metrics.WebBundles.Set(0)
}
