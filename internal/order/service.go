// AngelaMos | 2026
// service.go

package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/tailorbook/internal/catalog"
	"github.com/carterperez-dev/tailorbook/internal/core"
	"github.com/carterperez-dev/tailorbook/internal/middleware"
	"github.com/carterperez-dev/tailorbook/internal/realtime"
	"github.com/carterperez-dev/tailorbook/internal/user"
)

var ErrCustomerNotFound = errors.New("customer not found")

// Directory resolves customer and staff profiles.
type Directory interface {
	Get(ctx context.Context, id string) (*user.Profile, error)
	FindByEmail(ctx context.Context, email string) (*user.Profile, error)
}

type Service struct {
	repo      Repository
	directory Directory
	publisher realtime.Publisher
}

func NewService(repo Repository, directory Directory, publisher realtime.Publisher) *Service {
	return &Service{repo: repo, directory: directory, publisher: publisher}
}

// List returns the caller's own orders, or every order for staff. Staff
// listings carry the customer name unless basic is set.
func (s *Service) List(ctx context.Context, caller middleware.Caller, status string, basic bool) ([]Order, error) {
	if status != "" && !catalog.ValidOrderStatus(status) {
		return nil, fmt.Errorf("list orders: unknown status %q: %w", status, core.ErrInvalidInput)
	}

	params := ListParams{Status: status}
	if caller.IsStaff() {
		params.WithCustomer = !basic
	} else {
		params.OwnerID = caller.ID
	}

	return s.repo.List(ctx, params)
}

func (s *Service) Get(ctx context.Context, caller middleware.Caller, id string) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsStaff() && o.UserID != caller.ID {
		return nil, fmt.Errorf("get order: %w", core.ErrNotFound)
	}
	return o, nil
}

func (s *Service) Create(ctx context.Context, caller middleware.Caller, req CreateRequest) (*Order, error) {
	if !caller.IsStaff() {
		return nil, fmt.Errorf("create order: %w", core.ErrForbidden)
	}

	customerID, err := s.resolveCustomer(ctx, req)
	if err != nil {
		return nil, err
	}

	urgency := req.UrgencyLevel
	if urgency == "" {
		urgency = catalog.UrgencyNormal
	}

	o := &Order{
		ID:           uuid.New().String(),
		UserID:       customerID,
		BusinessID:   s.businessOf(ctx, caller.ID),
		DressType:    strings.TrimSpace(req.DressType),
		FabricType:   blankToNil(req.FabricType),
		Price:        req.Price,
		Status:       catalog.StatusConfirmed,
		UrgencyLevel: urgency,
		DeliveryDate: blankToNil(req.DeliveryDate),
		Notes:        blankToNil(req.Notes),
	}

	if err := s.repo.Create(ctx, o); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}

	realtime.Notify(ctx, s.publisher, realtime.TableOrders, realtime.EventInsert, o, nil, o.keys())
	return o, nil
}

func (s *Service) resolveCustomer(ctx context.Context, req CreateRequest) (string, error) {
	switch {
	case req.UserID != "":
		return req.UserID, nil
	case strings.TrimSpace(req.CustomerEmail) != "":
		p, err := s.directory.FindByEmail(ctx, req.CustomerEmail)
		if errors.Is(err, core.ErrNotFound) {
			return "", ErrCustomerNotFound
		}
		if err != nil {
			return "", fmt.Errorf("find customer: %w", err)
		}
		return p.ID, nil
	default:
		return "", fmt.Errorf("create order: user_id or customer_email is required: %w", core.ErrInvalidInput)
	}
}

// businessOf copies the staff member's business onto new orders. A lookup
// failure leaves it unset.
func (s *Service) businessOf(ctx context.Context, staffID string) *string {
	p, err := s.directory.Get(ctx, staffID)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			slog.WarnContext(ctx, "look up staff business", "user_id", staffID, "error", err)
		}
		return nil
	}
	return p.BusinessID
}

func (s *Service) UpdateStatus(ctx context.Context, caller middleware.Caller, id, status string) (*Order, error) {
	if !caller.IsStaff() {
		return nil, fmt.Errorf("update order: %w", core.ErrForbidden)
	}
	if !catalog.ValidOrderStatus(status) {
		return nil, fmt.Errorf("update order: unknown status %q: %w", status, core.ErrInvalidInput)
	}

	old, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	o, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	realtime.Notify(ctx, s.publisher, realtime.TableOrders, realtime.EventUpdate, o, old, o.keys())
	return o, nil
}

func (s *Service) Delete(ctx context.Context, caller middleware.Caller, id string) error {
	if !caller.IsStaff() {
		return fmt.Errorf("delete order: %w", core.ErrForbidden)
	}

	o, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}

	realtime.Notify(ctx, s.publisher, realtime.TableOrders, realtime.EventDelete, nil, o, o.keys())
	return nil
}

func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	sum := &Summary{ByStatus: make(map[string]int, len(catalog.OrderStatuses))}
	for _, c := range counts {
		sum.Total += c.Count
		sum.Revenue += c.Revenue
		sum.ByStatus[c.Status] = c.Count

		switch {
		case c.Status == catalog.StatusConfirmed:
			sum.Pending += c.Count
		case catalog.InProgress(c.Status):
			sum.InProgress += c.Count
		case catalog.Finished(c.Status):
			sum.Completed += c.Count
		}
	}
	return sum, nil
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
