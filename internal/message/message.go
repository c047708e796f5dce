// AngelaMos | 2026
// message.go

package message

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/tailorbook/internal/core"
	"github.com/carterperez-dev/tailorbook/internal/realtime"
)

// ContactMessage is written once from the public contact form and never
// edited.
type ContactMessage struct {
	ID        string    `db:"id"         json:"id"`
	Name      string    `db:"name"       json:"name"`
	Email     string    `db:"email"      json:"email"`
	Phone     *string   `db:"phone"      json:"phone"`
	Message   string    `db:"message"    json:"message"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type CreateRequest struct {
	Name    string  `json:"name"    validate:"required,min=1,max=100"`
	Email   string  `json:"email"   validate:"required,email"`
	Phone   *string `json:"phone"   validate:"omitempty,max=30"`
	Message string  `json:"message" validate:"required,min=1,max=5000"`
}

type Repository interface {
	Create(ctx context.Context, m *ContactMessage) error
	List(ctx context.Context, limit int) ([]ContactMessage, error)
	Count(ctx context.Context) (int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, m *ContactMessage) error {
	query := `
		INSERT INTO contact_messages (id, name, email, phone, message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, email, phone, message, created_at`

	if err := r.db.GetContext(ctx, m, query, m.ID, m.Name, m.Email, m.Phone, m.Message); err != nil {
		return fmt.Errorf("create contact message: %w", err)
	}
	return nil
}

func (r *repository) List(ctx context.Context, limit int) ([]ContactMessage, error) {
	out := []ContactMessage{}
	query := `
		SELECT id, name, email, phone, message, created_at
		FROM contact_messages
		ORDER BY created_at DESC
		LIMIT $1`

	if err := r.db.SelectContext(ctx, &out, query, limit); err != nil {
		return nil, fmt.Errorf("list contact messages: %w", err)
	}
	return out, nil
}

func (r *repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM contact_messages"); err != nil {
		return 0, fmt.Errorf("count contact messages: %w", err)
	}
	return n, nil
}

const (
	defaultLimit = 100
	maxLimit     = 500
)

type Service struct {
	repo      Repository
	publisher realtime.Publisher
}

func NewService(repo Repository, publisher realtime.Publisher) *Service {
	return &Service{repo: repo, publisher: publisher}
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*ContactMessage, error) {
	m := &ContactMessage{
		ID:      uuid.New().String(),
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Message: strings.TrimSpace(req.Message),
	}
	if req.Phone != nil {
		if p := strings.TrimSpace(*req.Phone); p != "" {
			m.Phone = &p
		}
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}

	realtime.Notify(ctx, s.publisher, realtime.TableContactMessages, realtime.EventInsert,
		m, nil, map[string]string{"id": m.ID})
	return m, nil
}

func (s *Service) List(ctx context.Context, limit int) ([]ContactMessage, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return s.repo.List(ctx, limit)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
