// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/carterperez-dev/tailorbook/internal/auth"
	"github.com/carterperez-dev/tailorbook/internal/core"
	"github.com/carterperez-dev/tailorbook/internal/realtime"
)

type Service struct {
	repo      Repository
	publisher realtime.Publisher
}

func NewService(repo Repository, publisher realtime.Publisher) *Service {
	return &Service{repo: repo, publisher: publisher}
}

func keys(p *Profile) map[string]string {
	return map[string]string{"id": p.ID}
}

// CreateMinimal satisfies auth.ProfileStore.
func (s *Service) CreateMinimal(ctx context.Context, db core.DBTX, np auth.NewProfile) error {
	return s.repo.Insert(ctx, db, &Profile{
		ID:    np.ID,
		Name:  np.Name,
		Email: np.Email,
		Phone: np.Phone,
		Role:  np.Role,
	})
}

// RoleOf satisfies auth.ProfileStore.
func (s *Service) RoleOf(ctx context.Context, id string) (string, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return p.Role, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Profile, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) FindByEmail(ctx context.Context, email string) (*Profile, error) {
	if strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("find profile: empty email: %w", core.ErrInvalidInput)
	}
	return s.repo.GetByEmail(ctx, email)
}

func (s *Service) List(ctx context.Context, params ListParams) ([]Profile, int, error) {
	return s.repo.List(ctx, params)
}

// UpsertMe writes the caller's own profile.
func (s *Service) UpsertMe(
	ctx context.Context,
	userID string,
	req UpsertProfileRequest,
) (*Profile, error) {
	if userID == "" {
		return nil, fmt.Errorf("upsert profile: %w", core.ErrUnauthorized)
	}

	var phone *string
	if req.Phone != nil && strings.TrimSpace(*req.Phone) != "" {
		trimmed := strings.TrimSpace(*req.Phone)
		phone = &trimmed
	}

	p := &Profile{
		ID:    userID,
		Name:  strings.TrimSpace(req.Name),
		Email: strings.TrimSpace(req.Email),
		Phone: phone,
	}

	inserted, err := s.repo.Upsert(ctx, p)
	if err != nil {
		return nil, err
	}

	event := realtime.EventUpdate
	if inserted {
		event = realtime.EventInsert
	}
	realtime.Notify(ctx, s.publisher, realtime.TableUsers, event, p, nil, keys(p))

	return p, nil
}

func (s *Service) UpdateRole(ctx context.Context, actorID, id, role string) (*Profile, error) {
	if !ValidRole(role) {
		return nil, fmt.Errorf("update role: invalid role %q: %w", role, core.ErrInvalidInput)
	}
	if actorID == id && role != RoleSuperAdmin {
		return nil, fmt.Errorf("update role: cannot demote yourself: %w", core.ErrForbidden)
	}

	p, err := s.repo.UpdateRole(ctx, id, role)
	if err != nil {
		return nil, err
	}

	realtime.Notify(ctx, s.publisher, realtime.TableUsers, realtime.EventUpdate, p, nil, keys(p))
	return p, nil
}
