// AngelaMos | 2026
// dashboards.go

package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/tailorbook/internal/backend"
	"github.com/carterperez-dev/tailorbook/internal/catalog"
	"github.com/carterperez-dev/tailorbook/internal/dashboard"
	"github.com/carterperez-dev/tailorbook/internal/forms"
)

type customerView struct {
	Metrics      dashboard.CustomerMetrics
	Orders       []dashboard.OrderProgress
	Appointments []backend.Appointment
	Measurements *backend.Measurement
	Tab          string

	MeasurementsError string
	AppointmentError  string
}

func customerData(c *dashboard.Customer, tab string) customerView {
	return customerView{
		Metrics:      c.Metrics(),
		Orders:       c.Orders(),
		Appointments: c.Appointments(),
		Measurements: c.Measurements(),
		Tab:          tab,
	}
}

func tabOf(r *http.Request, fallback string, allowed ...string) string {
	t := r.URL.Query().Get("tab")
	for _, a := range allowed {
		if t == a {
			return t
		}
	}
	return fallback
}

// Dashboard mounts a fresh customer view on every load.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	b := bundleFrom(r)
	s := b.Session.Snapshot()
	c := b.MountCustomer(r.Context(), s.User.ID)

	data := h.page(r, b, "My dashboard")
	view := customerData(c, tabOf(r, "orders", "orders", "appointments", "measurements"))
	view.MeasurementsError = b.MeasurementsForm.Message()
	view.AppointmentError = b.AppointmentForm.Message()
	data.View = view
	h.render(w, "dashboard", data)
}

func (h *Handler) SaveMeasurements(w http.ResponseWriter, r *http.Request) {
	b := bundleFrom(r)
	back := "/dashboard?tab=measurements"

	c := b.Customer()
	if c == nil || !b.MeasurementsForm.TryBegin() {
		redirect(w, r, back)
		return
	}

	f, err := forms.ParseMeasurements(postForm(r))
	if err != nil {
		b.MeasurementsForm.End(err)
		redirect(w, r, back)
		return
	}

	_ = c.SaveMeasurements(r.Context(), f) //nolint:errcheck // surfaced via notifications
	b.MeasurementsForm.End(nil)
	redirect(w, r, back)
}

func (h *Handler) BookFromDashboard(w http.ResponseWriter, r *http.Request) {
	b := bundleFrom(r)
	back := "/dashboard?tab=appointments"

	c := b.Customer()
	if c == nil || !b.AppointmentForm.TryBegin() {
		redirect(w, r, back)
		return
	}

	f, err := forms.ParseBooking(postForm(r))
	if err != nil {
		b.AppointmentForm.End(err)
		redirect(w, r, back)
		return
	}

	s := b.Session.Snapshot()
	_ = c.BookAppointment(r.Context(), f, s.Profile, userEmail(s)) //nolint:errcheck // surfaced via notifications
	b.AppointmentForm.End(nil)
	redirect(w, r, back)
}

type adminView struct {
	Metrics      dashboard.AdminMetrics
	Filter       string
	Filters      []string
	Orders       []backend.Order
	Appointments []backend.Appointment
	Messages     []backend.ContactMessage
	Tab          string
	OrderError   string
}

func adminData(a *dashboard.Admin, filter, tab string) adminView {
	return adminView{
		Metrics:      a.Metrics(),
		Filter:       filter,
		Filters:      append([]string{dashboard.FilterAll}, catalog.OrderStatuses...),
		Orders:       a.Orders(filter),
		Appointments: a.Appointments(),
		Messages:     a.Messages(),
		Tab:          tab,
	}
}

func statusFilter(r *http.Request) string {
	if s := r.URL.Query().Get("status"); catalog.ValidOrderStatus(s) {
		return s
	}
	return dashboard.FilterAll
}

// Admin mounts a fresh staff board on every load.
func (h *Handler) Admin(w http.ResponseWriter, r *http.Request) {
	b := bundleFrom(r)
	a := b.MountAdmin(r.Context())

	data := h.page(r, b, "Studio admin")
	view := adminData(a, statusFilter(r), tabOf(r, "orders", "orders", "appointments", "messages", "new"))
	view.OrderError = b.OrderForm.Message()
	data.View = view
	h.render(w, "admin", data)
}

func adminBack(r *http.Request) string {
	return localPath(r.PostForm.Get("return"), "/admin")
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	b := bundleFrom(r)
	back := "/admin?tab=new"

	a := b.Admin()
	if a == nil || !b.OrderForm.TryBegin() {
		redirect(w, r, back)
		return
	}

	f, err := forms.ParseNewOrder(postForm(r))
	if err != nil {
		b.OrderForm.End(err)
		redirect(w, r, back)
		return
	}

	err = a.CreateOrder(r.Context(), f)
	b.OrderForm.End(err)
	if err == nil {
		back = "/admin"
	} else if !dashboard.IsCustomerNotFound(err) {
		h.logger.Warn("create order", "error", err)
	}
	redirect(w, r, back)
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	b := bundleFrom(r)
	form := postForm(r)

	status := form.Get("status")
	if a := b.Admin(); a != nil && catalog.ValidOrderStatus(status) {
		_ = a.UpdateOrderStatus(r.Context(), chi.URLParam(r, "orderID"), status) //nolint:errcheck // surfaced via notifications
	}
	redirect(w, r, adminBack(r))
}

func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	b := bundleFrom(r)
	postForm(r)

	if a := b.Admin(); a != nil {
		_ = a.DeleteOrder(r.Context(), chi.URLParam(r, "orderID")) //nolint:errcheck // surfaced via notifications
	}
	redirect(w, r, adminBack(r))
}

func (h *Handler) UpdateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	b := bundleFrom(r)
	form := postForm(r)

	status := form.Get("status")
	if a := b.Admin(); a != nil && catalog.ValidAppointmentStatus(status) {
		//nolint:errcheck // surfaced via notifications
		_ = a.UpdateAppointmentStatus(r.Context(), chi.URLParam(r, "appointmentID"), status)
	}
	redirect(w, r, localPath(form.Get("return"), "/admin?tab=appointments"))
}
