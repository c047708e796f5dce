// AngelaMos | 2026
// source.go

package dashboard

import (
	"context"

	"github.com/carterperez-dev/tailorbook/internal/backend"
)

// Stream is a live change feed for one channel.
type Stream interface {
	C() <-chan backend.Change
	Err() error
	Close()
}

// Source is the slice of the backend the dashboards use.
type Source interface {
	ListOrders(ctx context.Context, q backend.OrderQuery) ([]backend.Order, error)
	CreateOrder(ctx context.Context, in backend.NewOrder) (*backend.Order, error)
	UpdateOrderStatus(ctx context.Context, id, status string) (*backend.Order, error)
	DeleteOrder(ctx context.Context, id string) error

	ListAppointments(ctx context.Context) ([]backend.Appointment, error)
	CreateAppointment(ctx context.Context, in backend.NewAppointment) (*backend.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id, status string) (*backend.Appointment, error)

	ListContactMessages(ctx context.Context) ([]backend.ContactMessage, error)
	SendContactMessage(ctx context.Context, in backend.NewContactMessage) error
	FindProfileByEmail(ctx context.Context, email string) (*backend.Profile, error)

	MyMeasurements(ctx context.Context) (*backend.Measurement, error)
	SaveMeasurements(ctx context.Context, in backend.Measurement) (*backend.Measurement, error)

	Subscribe(ctx context.Context, ch backend.Channel) (Stream, error)
}

type connSource struct {
	*backend.Conn
}

// FromConn adapts an SDK connection to Source.
func FromConn(c *backend.Conn) Source {
	return connSource{Conn: c}
}

func (s connSource) Subscribe(ctx context.Context, ch backend.Channel) (Stream, error) {
	st, err := s.Conn.Subscribe(ctx, ch)
	if err != nil {
		return nil, err
	}
	return st, nil
}
