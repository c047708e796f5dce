// AngelaMos | 2026
// service.go

package appointment

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/tailorbook/internal/catalog"
	"github.com/carterperez-dev/tailorbook/internal/core"
	"github.com/carterperez-dev/tailorbook/internal/middleware"
	"github.com/carterperez-dev/tailorbook/internal/realtime"
)

type Service struct {
	repo      Repository
	publisher realtime.Publisher
}

func NewService(repo Repository, publisher realtime.Publisher) *Service {
	return &Service{repo: repo, publisher: publisher}
}

func (s *Service) List(ctx context.Context, caller middleware.Caller, status string) ([]Appointment, error) {
	if status != "" && !catalog.ValidAppointmentStatus(status) {
		return nil, fmt.Errorf("list appointments: unknown status %q: %w", status, core.ErrInvalidInput)
	}

	params := ListParams{Status: status}
	if !caller.IsStaff() {
		params.OwnerID = caller.ID
	}
	return s.repo.List(ctx, params)
}

// Create books an appointment. Customers always book for themselves and
// every booking starts Pending.
func (s *Service) Create(ctx context.Context, caller middleware.Caller, req CreateRequest) (*Appointment, error) {
	if !catalog.ValidService(req.ServiceType) {
		return nil, fmt.Errorf("create appointment: unknown service %q: %w", req.ServiceType, core.ErrInvalidInput)
	}

	var owner *string
	switch {
	case !caller.IsStaff():
		id := caller.ID
		owner = &id
	case req.UserID != "":
		id := req.UserID
		owner = &id
	}

	a := &Appointment{
		ID:            uuid.New().String(),
		UserID:        owner,
		Name:          strings.TrimSpace(req.Name),
		Email:         strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:         trimmed(req.Phone),
		ServiceType:   req.ServiceType,
		PreferredDate: trimmed(req.PreferredDate),
		Message:       trimmed(req.Message),
		Status:        catalog.AppointmentPending,
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}

	realtime.Notify(ctx, s.publisher, realtime.TableAppointments, realtime.EventInsert, a, nil, a.keys())
	return a, nil
}

func (s *Service) UpdateStatus(ctx context.Context, caller middleware.Caller, id, status string) (*Appointment, error) {
	if !caller.IsStaff() {
		return nil, fmt.Errorf("update appointment: %w", core.ErrForbidden)
	}
	if !catalog.ValidAppointmentStatus(status) {
		return nil, fmt.Errorf("update appointment: unknown status %q: %w", status, core.ErrInvalidInput)
	}

	old, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	a, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	realtime.Notify(ctx, s.publisher, realtime.TableAppointments, realtime.EventUpdate, a, old, a.keys())
	return a, nil
}

// PendingCount feeds the admin stats endpoint.
func (s *Service) PendingCount(ctx context.Context) (int, error) {
	return s.repo.CountByStatus(ctx, catalog.AppointmentPending)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
