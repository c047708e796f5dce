// AngelaMos | 2026
// customer.go

package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/carterperez-dev/tailorbook/internal/backend"
	"github.com/carterperez-dev/tailorbook/internal/catalog"
	"github.com/carterperez-dev/tailorbook/internal/forms"
	"github.com/carterperez-dev/tailorbook/internal/notify"
	"github.com/carterperez-dev/tailorbook/internal/reconcile"
)

type CustomerMetrics struct {
	Active    int
	Completed int
}

// OrderProgress is an order with its completion percentage.
type OrderProgress struct {
	backend.Order
	Progress int
}

// Customer is one customer's own orders, appointments and measurements,
// kept live while mounted.
type Customer struct {
	*view

	userID       string
	orders       *reconcile.Feed[backend.Order]
	appointments *reconcile.Feed[backend.Appointment]

	measureMu    sync.Mutex
	measurements *backend.Measurement
}

func ownerFilter(userID string) string {
	return "user_id=eq." + userID
}

// MountCustomer opens the owner-filtered channels, then loads the
// initial rows.
func MountCustomer(ctx context.Context, src Source, notes *notify.Queue, userID string, logger *slog.Logger) *Customer {
	c := &Customer{
		view:         newView(src, notes, logger),
		userID:       userID,
		orders:       reconcile.NewFeed[backend.Order](nil),
		appointments: reconcile.NewFeed[backend.Appointment](nil),
	}

	c.watch(backend.Channel{Table: "orders", Event: backend.EventAll, Filter: ownerFilter(userID)}, c.onOrder)
	c.watch(backend.Channel{Table: "appointments", Event: backend.EventUpdate, Filter: ownerFilter(userID)}, c.onAppointment)

	c.orders.Snapshot(c.loadOrders(ctx))
	c.appointments.Snapshot(c.loadAppointments(ctx))
	c.loadMeasurements(ctx)

	return c
}

func (c *Customer) loadOrders(ctx context.Context) []backend.Order {
	rows, err := c.src.ListOrders(ctx, backend.OrderQuery{Basic: true})
	if err != nil {
		c.logger.Error("load own orders", "error", err)
		return nil
	}
	return rows
}

func (c *Customer) loadAppointments(ctx context.Context) []backend.Appointment {
	rows, err := c.src.ListAppointments(ctx)
	if err != nil {
		c.logger.Error("load own appointments", "error", err)
		return nil
	}
	return rows
}

func (c *Customer) loadMeasurements(ctx context.Context) {
	m, err := c.src.MyMeasurements(ctx)
	if err != nil {
		c.logger.Error("load measurements", "error", err)
		return
	}
	c.measureMu.Lock()
	c.measurements = m
	c.measureMu.Unlock()
}

func (c *Customer) onOrder(ch backend.Change) {
	ev, err := reconcile.FromChange[backend.Order](ch)
	if err != nil {
		c.logger.Warn("order change", "error", err)
		return
	}

	if !c.orders.Push(ev) {
		return
	}

	switch ev.Kind {
	case reconcile.KindInserted:
		c.notify("New order placed: "+ev.Row.DressType, notify.Info)
	case reconcile.KindUpdated:
		c.notify(fmt.Sprintf("Order %q updated to: %s", ev.Row.DressType, ev.Row.Status), notify.Success)
	case reconcile.KindDeleted:
		c.notify("An order was removed.", notify.Info)
	}
}

func (c *Customer) onAppointment(ch backend.Change) {
	ev, err := reconcile.FromChange[backend.Appointment](ch)
	if err != nil {
		c.logger.Warn("appointment change", "error", err)
		return
	}

	if c.appointments.Push(ev) && ev.Kind == reconcile.KindUpdated {
		c.notify(fmt.Sprintf("Appointment %s: %s", ev.Row.Status, ev.Row.ServiceType), notify.Success)
	}
}

func (c *Customer) Orders() []OrderProgress {
	rows := c.orders.Rows()
	out := make([]OrderProgress, len(rows))
	for i, o := range rows {
		out[i] = OrderProgress{Order: o, Progress: catalog.Progress(o.Status)}
	}
	return out
}

func (c *Customer) Appointments() []backend.Appointment { return c.appointments.Rows() }

// Measurements is nil until the customer first saves them.
func (c *Customer) Measurements() *backend.Measurement {
	c.measureMu.Lock()
	defer c.measureMu.Unlock()
	return c.measurements
}

func (c *Customer) Metrics() CustomerMetrics {
	var m CustomerMetrics
	for _, o := range c.orders.Rows() {
		if o.Status == catalog.StatusDelivered {
			m.Completed++
		} else {
			m.Active++
		}
	}
	return m
}

// SaveMeasurements updates the stored row or creates the first one.
func (c *Customer) SaveMeasurements(ctx context.Context, f forms.Measurements) error {
	existed := c.Measurements() != nil

	saved, err := c.src.SaveMeasurements(ctx, f.Payload())
	if !c.live() {
		return err
	}
	if err != nil {
		if existed {
			c.notify("Failed to update measurements", notify.Error)
		} else {
			c.notify("Failed to save measurements", notify.Error)
		}
		return err
	}

	c.measureMu.Lock()
	c.measurements = saved
	c.measureMu.Unlock()

	if existed {
		c.notify("Measurements updated successfully!", notify.Success)
	} else {
		c.notify("Measurements saved successfully!", notify.Success)
	}
	c.changed()
	return nil
}

// BookAppointment books from the dashboard with the customer's contact
// details.
func (c *Customer) BookAppointment(ctx context.Context, f forms.Booking, p *backend.Profile, email string) error {
	created, err := c.src.CreateAppointment(ctx, f.Appointment(p, email))
	if !c.live() {
		return err
	}
	if err != nil {
		c.notify("Failed to book appointment: "+err.Error(), notify.Error)
		return err
	}

	if created != nil {
		c.appointments.Push(reconcile.Inserted(*created))
	} else {
		c.appointments.Snapshot(c.loadAppointments(ctx))
	}
	c.notify("Appointment booked! We'll confirm soon.", notify.Success)
	c.changed()
	return nil
}

func (c *Customer) Close() {
	c.close()
	c.orders.Close()
	c.appointments.Close()
}
