// AngelaMos | 2026
// conn.go

package backend

import (
	"context"
	"net/http"
	"net/url"
)

// Conn is one browser's view of the backend: its Auth plus the table calls
// made with that session's token.
type Conn struct {
	Auth   *Auth
	client *Client
}

func (c *Client) Connect() *Conn {
	return &Conn{Auth: c.NewAuth(), client: c}
}

func (c *Conn) Configured() bool { return c.client.Configured() }

func (c *Conn) call(ctx context.Context, method, path string, q url.Values, body, out any) error {
	if !c.client.Configured() {
		return ErrNotConfigured
	}
	token, err := c.Auth.AccessToken(ctx)
	if err != nil {
		return err
	}
	return c.client.do(ctx, method, path, q, token, body, out)
}

// MyProfile returns nil without error when the row does not exist.
func (c *Conn) MyProfile(ctx context.Context) (*Profile, error) {
	var p Profile
	err := c.call(ctx, http.MethodGet, "/profiles/me", nil, nil, &p)
	if IsStatus(err, http.StatusNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Conn) UpsertProfile(ctx context.Context, in ProfileInput) (*Profile, error) {
	var p Profile
	if err := c.call(ctx, http.MethodPut, "/profiles/me", nil, in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// FindProfileByEmail returns nil without error when no profile has that
// email.
func (c *Conn) FindProfileByEmail(ctx context.Context, email string) (*Profile, error) {
	var out []Profile
	err := c.call(ctx, http.MethodGet, "/profiles", url.Values{"email": {email}}, nil, &out)
	if IsStatus(err, http.StatusNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

type OrderQuery struct {
	Status string
	// Basic skips the customer name join.
	Basic bool
}

func (c *Conn) ListOrders(ctx context.Context, q OrderQuery) ([]Order, error) {
	params := url.Values{}
	if q.Status != "" {
		params.Set("status", q.Status)
	}
	if q.Basic {
		params.Set("select", "basic")
	}

	out := []Order{}
	if err := c.call(ctx, http.MethodGet, "/orders", params, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Conn) CreateOrder(ctx context.Context, in NewOrder) (*Order, error) {
	var o Order
	if err := c.call(ctx, http.MethodPost, "/orders", nil, in, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Conn) UpdateOrderStatus(ctx context.Context, id, status string) (*Order, error) {
	var o Order
	if err := c.call(ctx, http.MethodPatch, "/orders/"+url.PathEscape(id), nil,
		map[string]string{"status": status}, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Conn) DeleteOrder(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/orders/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Conn) ListAppointments(ctx context.Context) ([]Appointment, error) {
	out := []Appointment{}
	if err := c.call(ctx, http.MethodGet, "/appointments", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Conn) CreateAppointment(ctx context.Context, in NewAppointment) (*Appointment, error) {
	var a Appointment
	if err := c.call(ctx, http.MethodPost, "/appointments", nil, in, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Conn) UpdateAppointmentStatus(ctx context.Context, id, status string) (*Appointment, error) {
	var a Appointment
	if err := c.call(ctx, http.MethodPatch, "/appointments/"+url.PathEscape(id), nil,
		map[string]string{"status": status}, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Conn) SendContactMessage(ctx context.Context, in NewContactMessage) error {
	return c.call(ctx, http.MethodPost, "/contact-messages", nil, in, nil)
}

func (c *Conn) ListContactMessages(ctx context.Context) ([]ContactMessage, error) {
	out := []ContactMessage{}
	if err := c.call(ctx, http.MethodGet, "/contact-messages", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MyMeasurements returns nil when nothing has been saved yet.
func (c *Conn) MyMeasurements(ctx context.Context) (*Measurement, error) {
	var m *Measurement
	if err := c.call(ctx, http.MethodGet, "/measurements/me", nil, nil, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *Conn) SaveMeasurements(ctx context.Context, in Measurement) (*Measurement, error) {
	var m Measurement
	if err := c.call(ctx, http.MethodPut, "/measurements/me", nil, in, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
