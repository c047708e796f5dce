// AngelaMos | 2026
// admin.go

package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/carterperez-dev/tailorbook/internal/backend"
	"github.com/carterperez-dev/tailorbook/internal/catalog"
	"github.com/carterperez-dev/tailorbook/internal/forms"
	"github.com/carterperez-dev/tailorbook/internal/notify"
	"github.com/carterperez-dev/tailorbook/internal/reconcile"
)

const (
	FilterAll       = "All"
	unknownCustomer = "Unknown"
)

var ErrCustomerNotFound = &forms.Error{Message: "Customer not found."}

type AdminMetrics struct {
	Total               int
	Pending             int
	InProgress          int
	Completed           int
	Revenue             float64
	PendingAppointments int
}

func (m AdminMetrics) RevenueLabel() string { return catalog.FormatRupees(m.Revenue) }

// Admin is the staff board: every order, appointment and contact message,
// kept live while mounted.
type Admin struct {
	*view

	orders       *reconcile.Feed[backend.Order]
	appointments *reconcile.Feed[backend.Appointment]
	messages     *reconcile.Feed[backend.ContactMessage]
}

// keepCustomerName carries the joined name across updates, whose payload
// is the bare orders row.
func keepCustomerName(current, incoming backend.Order) backend.Order {
	if incoming.CustomerName == nil {
		incoming.CustomerName = current.CustomerName
	}
	return incoming
}

// MountAdmin opens the live channels, then loads the initial rows.
func MountAdmin(ctx context.Context, src Source, notes *notify.Queue, logger *slog.Logger) *Admin {
	a := &Admin{
		view:         newView(src, notes, logger),
		orders:       reconcile.NewFeed(keepCustomerName),
		appointments: reconcile.NewFeed[backend.Appointment](nil),
		messages:     reconcile.NewFeed[backend.ContactMessage](nil),
	}

	a.watch(backend.Channel{Table: "orders", Event: backend.EventAll}, a.onOrder)
	a.watch(backend.Channel{Table: "appointments", Event: backend.EventAll}, a.onAppointment)

	a.orders.Snapshot(a.loadOrders(ctx))
	a.appointments.Snapshot(a.loadAppointments(ctx))
	a.messages.Snapshot(a.loadMessages(ctx))

	return a
}

// loadOrders falls back to the unjoined query when the join fails, and
// to an empty list when both do.
func (a *Admin) loadOrders(ctx context.Context) []backend.Order {
	rows, err := a.src.ListOrders(ctx, backend.OrderQuery{})
	if err != nil {
		a.logger.Warn("load orders with customer names", "error", err)
		if rows, err = a.src.ListOrders(ctx, backend.OrderQuery{Basic: true}); err != nil {
			a.logger.Error("load orders", "error", err)
			return nil
		}
		for i := range rows {
			rows[i].CustomerName = nil
		}
	}

	name := unknownCustomer
	for i := range rows {
		if rows[i].CustomerName == nil || *rows[i].CustomerName == "" {
			rows[i].CustomerName = &name
		}
	}
	return rows
}

func (a *Admin) loadAppointments(ctx context.Context) []backend.Appointment {
	rows, err := a.src.ListAppointments(ctx)
	if err != nil {
		a.logger.Error("load appointments", "error", err)
		return nil
	}
	return rows
}

func (a *Admin) loadMessages(ctx context.Context) []backend.ContactMessage {
	rows, err := a.src.ListContactMessages(ctx)
	if err != nil {
		a.logger.Error("load contact messages", "error", err)
		return nil
	}
	return rows
}

// onOrder refetches on insert so the new row arrives with its customer
// name.
func (a *Admin) onOrder(c backend.Change) {
	ev, err := reconcile.FromChange[backend.Order](c)
	if err != nil {
		a.logger.Warn("order change", "error", err)
		return
	}

	if ev.Kind == reconcile.KindInserted {
		a.notify("New order received!", notify.Info)
		a.orders.Snapshot(a.loadOrders(a.ctx))
		return
	}
	a.orders.Push(ev)
}

func (a *Admin) onAppointment(c backend.Change) {
	ev, err := reconcile.FromChange[backend.Appointment](c)
	if err != nil {
		a.logger.Warn("appointment change", "error", err)
		return
	}

	if a.appointments.Push(ev) && ev.Kind == reconcile.KindInserted {
		a.notify(fmt.Sprintf("New appointment from %s!", ev.Row.Name), notify.Info)
	}
}

// Orders returns the board's orders, optionally narrowed to one status.
func (a *Admin) Orders(status string) []backend.Order {
	rows := a.orders.Rows()
	if status == "" || status == FilterAll {
		return rows
	}

	out := rows[:0]
	for _, o := range rows {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out
}

func (a *Admin) Appointments() []backend.Appointment { return a.appointments.Rows() }

func (a *Admin) Messages() []backend.ContactMessage { return a.messages.Rows() }

func (a *Admin) Metrics() AdminMetrics {
	var m AdminMetrics
	for _, o := range a.orders.Rows() {
		m.Total++
		switch {
		case o.Status == catalog.StatusConfirmed:
			m.Pending++
		case catalog.InProgress(o.Status):
			m.InProgress++
		case catalog.Finished(o.Status):
			m.Completed++
		}
		if o.Price != nil {
			m.Revenue += *o.Price
		}
	}
	for _, ap := range a.appointments.Rows() {
		if ap.Status == catalog.AppointmentPending {
			m.PendingAppointments++
		}
	}
	return m
}

func (a *Admin) UpdateOrderStatus(ctx context.Context, id, status string) error {
	updated, err := a.src.UpdateOrderStatus(ctx, id, status)
	if !a.live() {
		return err
	}
	if err != nil {
		a.logger.Warn("update order status", "order_id", id, "error", err)
		a.notify("Failed to update status", notify.Error)
		return err
	}

	row, ok := a.orders.Find(id)
	if !ok && updated != nil {
		row = *updated
	}
	row.Status = status
	a.orders.Push(reconcile.Updated(row))

	a.notify("Status updated to: "+status, notify.Success)
	a.changed()
	return nil
}

func (a *Admin) DeleteOrder(ctx context.Context, id string) error {
	row, _ := a.orders.Find(id)

	err := a.src.DeleteOrder(ctx, id)
	if !a.live() {
		return err
	}
	if err != nil {
		a.notify("Failed to delete order: "+err.Error(), notify.Error)
		return err
	}

	a.orders.Push(reconcile.Deleted[backend.Order](id))
	a.notify(fmt.Sprintf("Order %q deleted.", row.DressType), notify.Success)
	a.changed()
	return nil
}

func (a *Admin) UpdateAppointmentStatus(ctx context.Context, id, status string) error {
	updated, err := a.src.UpdateAppointmentStatus(ctx, id, status)
	if !a.live() {
		return err
	}
	if err != nil {
		a.notify("Failed to update appointment", notify.Error)
		return err
	}

	row, ok := a.appointments.Find(id)
	if !ok && updated != nil {
		row = *updated
	}
	row.Status = status
	a.appointments.Push(reconcile.Updated(row))

	a.notify("Appointment "+status, notify.Success)
	a.changed()
	return nil
}

// CreateOrder resolves the customer by email first and creates nothing
// when no profile has that address. Errors are for the form's error slot.
func (a *Admin) CreateOrder(ctx context.Context, f forms.NewOrder) error {
	customer, err := a.src.FindProfileByEmail(ctx, f.CustomerEmail)
	if err != nil {
		return err
	}
	if customer == nil {
		return ErrCustomerNotFound
	}

	if _, err := a.src.CreateOrder(ctx, f.Payload()); err != nil {
		if backend.IsStatus(err, http.StatusNotFound) {
			return ErrCustomerNotFound
		}
		return err
	}
	if !a.live() {
		return nil
	}

	a.notify("Order created successfully!", notify.Success)
	a.orders.Snapshot(a.loadOrders(ctx))
	a.changed()
	return nil
}

// Close unmounts the board. Later events and action results are dropped.
func (a *Admin) Close() {
	a.close()
	a.orders.Close()
	a.appointments.Close()
	a.messages.Close()
}

// IsCustomerNotFound reports whether err is the missing-customer rejection.
func IsCustomerNotFound(err error) bool {
	return errors.Is(err, ErrCustomerNotFound)
}
