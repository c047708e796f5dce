// AngelaMos | 2026
// dashboard_test.go

package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/carterperez-dev/tailorbook/internal/backend"
	"github.com/carterperez-dev/tailorbook/internal/catalog"
	"github.com/carterperez-dev/tailorbook/internal/forms"
	"github.com/carterperez-dev/tailorbook/internal/notify"
)

type fakeStream struct {
	ch chan backend.Change
}

func (s *fakeStream) C() <-chan backend.Change { return s.ch }
func (s *fakeStream) Err() error               { return nil }
func (s *fakeStream) Close()                   {}

type fakeSource struct {
	mu sync.Mutex

	orders       []backend.Order
	appointments []backend.Appointment
	messages     []backend.ContactMessage
	profiles     map[string]backend.Profile
	measurements *backend.Measurement

	joinErr     error
	basicErr    error
	updateErr   error
	subErr      map[string]error
	streams     map[string]*fakeStream
	channels    []backend.Channel
	createCalls int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		profiles: map[string]backend.Profile{},
		subErr:   map[string]error{},
		streams:  map[string]*fakeStream{},
	}
}

func (f *fakeSource) ListOrders(_ context.Context, q backend.OrderQuery) ([]backend.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !q.Basic && f.joinErr != nil {
		return nil, f.joinErr
	}
	if q.Basic && f.basicErr != nil {
		return nil, f.basicErr
	}
	return slices.Clone(f.orders), nil
}

func (f *fakeSource) CreateOrder(_ context.Context, in backend.NewOrder) (*backend.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	o := backend.Order{ID: "new", DressType: in.DressType, Status: catalog.StatusConfirmed}
	f.orders = append([]backend.Order{o}, f.orders...)
	return &o, nil
}

func (f *fakeSource) UpdateOrderStatus(_ context.Context, id, status string) (*backend.Order, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &backend.Order{ID: id, Status: status}, nil
}

func (f *fakeSource) DeleteOrder(context.Context, string) error { return nil }

func (f *fakeSource) ListAppointments(context.Context) ([]backend.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.appointments), nil
}

func (f *fakeSource) CreateAppointment(_ context.Context, in backend.NewAppointment) (*backend.Appointment, error) {
	return &backend.Appointment{ID: "ap-new", Name: in.Name, ServiceType: in.ServiceType, Status: catalog.AppointmentPending}, nil
}

func (f *fakeSource) UpdateAppointmentStatus(_ context.Context, id, status string) (*backend.Appointment, error) {
	return &backend.Appointment{ID: id, Status: status}, nil
}

func (f *fakeSource) ListContactMessages(context.Context) ([]backend.ContactMessage, error) {
	return f.messages, nil
}

func (f *fakeSource) SendContactMessage(_ context.Context, in backend.NewContactMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, backend.ContactMessage{Name: in.Name, Email: in.Email, Message: in.Message})
	return nil
}

func (f *fakeSource) FindProfileByEmail(_ context.Context, email string) (*backend.Profile, error) {
	if p, ok := f.profiles[email]; ok {
		return &p, nil
	}
	return nil, nil
}

func (f *fakeSource) MyMeasurements(context.Context) (*backend.Measurement, error) {
	return f.measurements, nil
}

func (f *fakeSource) SaveMeasurements(_ context.Context, in backend.Measurement) (*backend.Measurement, error) {
	in.ID = "m-1"
	return &in, nil
}

func (f *fakeSource) Subscribe(_ context.Context, ch backend.Channel) (Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels = append(f.channels, ch)
	if err := f.subErr[ch.Table]; err != nil {
		return nil, err
	}
	s := &fakeStream{ch: make(chan backend.Change, 8)}
	f.streams[ch.Table] = s
	return s, nil
}

func (f *fakeSource) emit(t *testing.T, table, typ string, row any) {
	t.Helper()
	raw, err := json.Marshal(row)
	if err != nil {
		t.Fatal(err)
	}
	c := backend.Change{Table: table, Type: typ}
	if typ == backend.EventDelete {
		c.Old = raw
	} else {
		c.New = raw
	}

	f.mu.Lock()
	s := f.streams[table]
	f.mu.Unlock()
	s.ch <- c
}

func waitChange(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("view never changed")
	}
}

func messages(q *notify.Queue) []string {
	var out []string
	for _, e := range q.List() {
		out = append(out, e.Message)
	}
	return out
}

func TestCustomerMetrics(t *testing.T) {
	src := newFakeSource()
	src.orders = []backend.Order{
		{ID: "o1", Status: catalog.StatusCutting},
		{ID: "o2", Status: catalog.StatusTrial},
		{ID: "o3", Status: catalog.StatusDelivered},
	}
	q := notify.NewQueue()
	defer q.Close()

	c := MountCustomer(context.Background(), src, q, "cust-1", nil)
	defer c.Close()

	if m := c.Metrics(); m.Active != 2 || m.Completed != 1 {
		t.Errorf("metrics = %+v, want active 2 completed 1", m)
	}

	want := []backend.Channel{
		{Table: "orders", Event: backend.EventAll, Filter: "user_id=eq.cust-1"},
		{Table: "appointments", Event: backend.EventUpdate, Filter: "user_id=eq.cust-1"},
	}
	if !slices.Equal(src.channels, want) {
		t.Errorf("channels = %+v", src.channels)
	}
}

func TestCustomerOrderUpdateMovesProgressInPlace(t *testing.T) {
	src := newFakeSource()
	src.orders = []backend.Order{
		{ID: "o0", DressType: "Lehenga", Status: catalog.StatusStitching},
		{ID: "o1", DressType: "Kurti", Status: catalog.StatusCutting},
	}
	q := notify.NewQueue()
	defer q.Close()

	c := MountCustomer(context.Background(), src, q, "cust-1", nil)
	defer c.Close()

	if got := c.Orders()[1].Progress; got != 30 {
		t.Fatalf("progress before = %d, want 30", got)
	}

	src.emit(t, "orders", backend.EventUpdate, backend.Order{ID: "o1", DressType: "Kurti", Status: catalog.StatusTrial})
	waitChange(t, c.Changes())

	orders := c.Orders()
	if len(orders) != 2 || orders[1].ID != "o1" || orders[1].Progress != 75 {
		t.Fatalf("orders after = %+v", orders)
	}
	if !slices.Contains(messages(q), `Order "Kurti" updated to: Trial`) {
		t.Errorf("notes = %v", messages(q))
	}

	src.emit(t, "orders", backend.EventDelete, backend.Order{ID: "o0"})
	waitChange(t, c.Changes())
	if len(c.Orders()) != 1 || !slices.Contains(messages(q), "An order was removed.") {
		t.Errorf("after delete orders=%d notes=%v", len(c.Orders()), messages(q))
	}
}

func TestCustomerIgnoresUnknownRows(t *testing.T) {
	src := newFakeSource()
	src.orders = []backend.Order{{ID: "o1", DressType: "Kurti", Status: catalog.StatusCutting}}
	src.appointments = []backend.Appointment{{ID: "ap1", ServiceType: "Bridal Wear", Status: catalog.AppointmentPending}}
	q := notify.NewQueue()
	defer q.Close()

	c := MountCustomer(context.Background(), src, q, "cust-1", nil)
	defer c.Close()

	tests := []struct {
		name  string
		table string
		typ   string
		row   any
	}{
		{"order update", "orders", backend.EventUpdate, backend.Order{ID: "o9", DressType: "Saree", Status: catalog.StatusTrial}},
		{"order delete", "orders", backend.EventDelete, backend.Order{ID: "o9"}},
		{"appointment update", "appointments", backend.EventUpdate, backend.Appointment{ID: "ap9", Status: catalog.AppointmentPending}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src.emit(t, tt.table, tt.typ, tt.row)
			waitChange(t, c.Changes())

			if notes := messages(q); len(notes) != 0 {
				t.Errorf("notes = %v, want none", notes)
			}
		})
	}

	if len(c.Orders()) != 1 || len(c.Appointments()) != 1 {
		t.Errorf("orders=%d appointments=%d, want 1 and 1", len(c.Orders()), len(c.Appointments()))
	}
}

func TestCustomerSaveMeasurementsThenUpdate(t *testing.T) {
	src := newFakeSource()
	q := notify.NewQueue()
	defer q.Close()

	c := MountCustomer(context.Background(), src, q, "cust-1", nil)
	defer c.Close()

	f, err := forms.ParseMeasurements(url.Values{"bust": {"34"}})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.SaveMeasurements(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	if err := c.SaveMeasurements(context.Background(), f); err != nil {
		t.Fatal(err)
	}

	got := messages(q)
	want := []string{"Measurements saved successfully!", "Measurements updated successfully!"}
	if !slices.Equal(got, want) {
		t.Errorf("notes = %v, want %v", got, want)
	}
}

func TestCustomerBookAppointment(t *testing.T) {
	src := newFakeSource()
	q := notify.NewQueue()
	defer q.Close()

	c := MountCustomer(context.Background(), src, q, "cust-1", nil)
	defer c.Close()

	b, err := forms.ParseBooking(url.Values{"service_type": {"Designer Kurti"}})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.BookAppointment(context.Background(), b, &backend.Profile{Name: "Meera", Email: "m@example.com"}, ""); err != nil {
		t.Fatal(err)
	}

	if len(c.Appointments()) != 1 || c.Appointments()[0].Name != "Meera" {
		t.Errorf("appointments = %+v", c.Appointments())
	}
	if !slices.Contains(messages(q), "Appointment booked! We'll confirm soon.") {
		t.Errorf("notes = %v", messages(q))
	}
}

func TestAdminCreateOrderForUnknownEmail(t *testing.T) {
	src := newFakeSource()
	q := notify.NewQueue()
	defer q.Close()

	a := MountAdmin(context.Background(), src, q, nil)
	defer a.Close()

	f, err := forms.ParseNewOrder(url.Values{"customer_email": {"ghost@example.com"}, "dress_type": {"Kurti"}})
	if err != nil {
		t.Fatal(err)
	}

	err = a.CreateOrder(context.Background(), f)
	if !IsCustomerNotFound(err) || err.Error() != "Customer not found." {
		t.Fatalf("err = %v", err)
	}
	if src.createCalls != 0 {
		t.Errorf("create called %d times", src.createCalls)
	}

	src.profiles["ghost@example.com"] = backend.Profile{ID: "c-9"}
	if err := a.CreateOrder(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	if len(a.Orders(FilterAll)) != 1 || !slices.Contains(messages(q), "Order created successfully!") {
		t.Errorf("orders=%d notes=%v", len(a.Orders(FilterAll)), messages(q))
	}
}

func TestAdminOrdersFallBackToUnknownNames(t *testing.T) {
	name := "Lakshmi"
	src := newFakeSource()
	src.orders = []backend.Order{{ID: "o1", Status: catalog.StatusCutting, CustomerName: &name}}
	src.joinErr = errors.New("relationship not found")

	a := MountAdmin(context.Background(), src, nil, nil)
	defer a.Close()

	got := a.Orders("")
	if len(got) != 1 || got[0].CustomerName == nil || *got[0].CustomerName != "Unknown" {
		t.Fatalf("orders = %+v", got)
	}

	src.basicErr = errors.New("down")
	b := MountAdmin(context.Background(), src, nil, nil)
	defer b.Close()
	if len(b.Orders("")) != 0 {
		t.Error("both queries failing should leave an empty list")
	}
}

func TestAdminMetricsAndFilter(t *testing.T) {
	price := func(v float64) *float64 { return &v }
	src := newFakeSource()
	src.orders = []backend.Order{
		{ID: "a", Status: catalog.StatusConfirmed, Price: price(1500)},
		{ID: "b", Status: catalog.StatusStitching, Price: price(255000)},
		{ID: "c", Status: catalog.StatusReady},
		{ID: "d", Status: catalog.StatusDelivered, Price: price(3500)},
	}
	src.appointments = []backend.Appointment{
		{ID: "p1", Status: catalog.AppointmentPending},
		{ID: "p2", Status: catalog.AppointmentConfirmed},
	}

	a := MountAdmin(context.Background(), src, nil, nil)
	defer a.Close()

	m := a.Metrics()
	if m.Pending != 1 || m.InProgress != 1 || m.Completed != 2 || m.PendingAppointments != 1 {
		t.Errorf("metrics = %+v", m)
	}
	if m.RevenueLabel() != "₹2.6L" {
		t.Errorf("revenue = %s", m.RevenueLabel())
	}
	if got := a.Orders(catalog.StatusReady); len(got) != 1 || got[0].ID != "c" {
		t.Errorf("filtered = %+v", got)
	}
}

func TestAdminLiveEvents(t *testing.T) {
	name := "Lakshmi"
	src := newFakeSource()
	src.orders = []backend.Order{{ID: "o1", DressType: "Kurti", Status: catalog.StatusCutting, CustomerName: &name}}
	q := notify.NewQueue()
	defer q.Close()

	a := MountAdmin(context.Background(), src, q, nil)
	defer a.Close()

	src.emit(t, "orders", backend.EventUpdate, backend.Order{ID: "o1", DressType: "Kurti", Status: catalog.StatusTrial})
	waitChange(t, a.Changes())

	o := a.Orders("")[0]
	if o.Status != catalog.StatusTrial || o.CustomerName == nil || *o.CustomerName != "Lakshmi" {
		t.Errorf("updated order = %+v", o)
	}

	src.emit(t, "appointments", backend.EventInsert, backend.Appointment{ID: "ap1", Name: "Divya", Status: catalog.AppointmentPending})
	waitChange(t, a.Changes())
	if !slices.Contains(messages(q), "New appointment from Divya!") {
		t.Errorf("notes = %v", messages(q))
	}

	src.mu.Lock()
	src.orders = append(src.orders, backend.Order{ID: "o2", DressType: "Blouse", Status: catalog.StatusConfirmed})
	src.mu.Unlock()
	src.emit(t, "orders", backend.EventInsert, backend.Order{ID: "o2", DressType: "Blouse"})
	waitChange(t, a.Changes())

	if len(a.Orders("")) != 2 || !slices.Contains(messages(q), "New order received!") {
		t.Errorf("orders=%d notes=%v", len(a.Orders("")), messages(q))
	}
}

func TestAdminActions(t *testing.T) {
	src := newFakeSource()
	src.orders = []backend.Order{{ID: "o1", DressType: "Kurti", Status: catalog.StatusCutting}}
	q := notify.NewQueue()
	defer q.Close()

	a := MountAdmin(context.Background(), src, q, nil)
	defer a.Close()
	ctx := context.Background()

	if err := a.UpdateOrderStatus(ctx, "o1", catalog.StatusStitching); err != nil {
		t.Fatal(err)
	}
	src.updateErr = errors.New("boom")
	if err := a.UpdateOrderStatus(ctx, "o1", catalog.StatusTrial); err == nil {
		t.Fatal("expected failure")
	}
	if a.Orders("")[0].Status != catalog.StatusStitching {
		t.Errorf("failed update changed local state: %+v", a.Orders(""))
	}
	if err := a.DeleteOrder(ctx, "o1"); err != nil {
		t.Fatal(err)
	}

	want := []string{"Status updated to: Stitching", "Failed to update status", `Order "Kurti" deleted.`}
	if got := messages(q); !slices.Equal(got, want) {
		t.Errorf("notes = %v, want %v", got, want)
	}
}

func TestOneSubscriptionFailingLeavesOtherLive(t *testing.T) {
	src := newFakeSource()
	src.subErr["appointments"] = errors.New("forbidden")
	src.orders = []backend.Order{{ID: "o1", DressType: "Kurti", Status: catalog.StatusCutting}}

	c := MountCustomer(context.Background(), src, nil, "cust-1", nil)
	defer c.Close()

	src.emit(t, "orders", backend.EventUpdate, backend.Order{ID: "o1", DressType: "Kurti", Status: catalog.StatusReady})
	waitChange(t, c.Changes())
	if c.Orders()[0].Status != catalog.StatusReady {
		t.Errorf("orders = %+v", c.Orders())
	}
}

func TestClosedViewDropsResults(t *testing.T) {
	src := newFakeSource()
	src.orders = []backend.Order{{ID: "o1", DressType: "Kurti", Status: catalog.StatusCutting}}
	q := notify.NewQueue()
	defer q.Close()

	a := MountAdmin(context.Background(), src, q, nil)
	a.Close()

	if err := a.UpdateOrderStatus(context.Background(), "o1", catalog.StatusTrial); err != nil {
		t.Fatal(err)
	}
	if len(q.List()) != 0 {
		t.Errorf("closed view notified: %v", messages(q))
	}
	if a.Orders("")[0].Status != catalog.StatusCutting {
		t.Error("closed view changed state")
	}

	select {
	case <-a.Done():
	default:
		t.Error("Done not closed after Close")
	}
}
