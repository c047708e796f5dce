// AngelaMos | 2026
// measurement.go

package measurement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/tailorbook/internal/core"
	"github.com/carterperez-dev/tailorbook/internal/realtime"
)

// Measurement holds one customer's body measurements in inches. Any field
// may be unset.
type Measurement struct {
	ID           string    `db:"id"            json:"id"`
	UserID       string    `db:"user_id"       json:"user_id"`
	Bust         *float64  `db:"bust"          json:"bust"`
	Waist        *float64  `db:"waist"         json:"waist"`
	Hip          *float64  `db:"hip"           json:"hip"`
	Shoulder     *float64  `db:"shoulder"      json:"shoulder"`
	SleeveLength *float64  `db:"sleeve_length" json:"sleeve_length"`
	CreatedAt    time.Time `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"    json:"updated_at"`
}

type UpsertRequest struct {
	Bust         *float64 `json:"bust"          validate:"omitempty,gt=0,lt=200"`
	Waist        *float64 `json:"waist"         validate:"omitempty,gt=0,lt=200"`
	Hip          *float64 `json:"hip"           validate:"omitempty,gt=0,lt=200"`
	Shoulder     *float64 `json:"shoulder"      validate:"omitempty,gt=0,lt=100"`
	SleeveLength *float64 `json:"sleeve_length" validate:"omitempty,gt=0,lt=100"`
}

type Repository interface {
	GetByUser(ctx context.Context, userID string) (*Measurement, error)
	// Upsert writes the row keyed by user_id and reports whether it was
	// newly inserted.
	Upsert(ctx context.Context, m *Measurement) (bool, error)
}

const measurementColumns = `
	id, user_id, bust::float8 AS bust, waist::float8 AS waist, hip::float8 AS hip,
	shoulder::float8 AS shoulder, sleeve_length::float8 AS sleeve_length,
	created_at, updated_at`

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) GetByUser(ctx context.Context, userID string) (*Measurement, error) {
	var m Measurement
	err := r.db.GetContext(ctx, &m, "SELECT "+measurementColumns+" FROM measurements WHERE user_id = $1", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get measurements: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get measurements: %w", err)
	}
	return &m, nil
}

func (r *repository) Upsert(ctx context.Context, m *Measurement) (bool, error) {
	query := `
		WITH m AS (
			INSERT INTO measurements (id, user_id, bust, waist, hip, shoulder, sleeve_length)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (user_id) DO UPDATE SET
				bust = EXCLUDED.bust,
				waist = EXCLUDED.waist,
				hip = EXCLUDED.hip,
				shoulder = EXCLUDED.shoulder,
				sleeve_length = EXCLUDED.sleeve_length,
				updated_at = NOW()
			RETURNING *, (xmax = 0) AS inserted
		)
		SELECT ` + measurementColumns + `, inserted FROM m`

	var row struct {
		Measurement
		Inserted bool `db:"inserted"`
	}
	err := r.db.GetContext(ctx, &row, query,
		m.ID, m.UserID, m.Bust, m.Waist, m.Hip, m.Shoulder, m.SleeveLength,
	)
	if err != nil {
		if core.IsForeignKeyError(err) {
			return false, fmt.Errorf("upsert measurements: user: %w", core.ErrNotFound)
		}
		return false, fmt.Errorf("upsert measurements: %w", err)
	}

	*m = row.Measurement
	return row.Inserted, nil
}

type Service struct {
	repo      Repository
	publisher realtime.Publisher
}

func NewService(repo Repository, publisher realtime.Publisher) *Service {
	return &Service{repo: repo, publisher: publisher}
}

// ForUser returns nil without error when nothing has been saved yet.
func (s *Service) ForUser(ctx context.Context, userID string) (*Measurement, error) {
	m, err := s.repo.GetByUser(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil
	}
	return m, err
}

// Save updates the caller's row or inserts it on first use.
func (s *Service) Save(ctx context.Context, userID string, req UpsertRequest) (*Measurement, bool, error) {
	if userID == "" {
		return nil, false, fmt.Errorf("save measurements: %w", core.ErrUnauthorized)
	}

	m := &Measurement{
		ID:           uuid.New().String(),
		UserID:       userID,
		Bust:         req.Bust,
		Waist:        req.Waist,
		Hip:          req.Hip,
		Shoulder:     req.Shoulder,
		SleeveLength: req.SleeveLength,
	}

	inserted, err := s.repo.Upsert(ctx, m)
	if err != nil {
		return nil, false, err
	}

	event := realtime.EventUpdate
	if inserted {
		event = realtime.EventInsert
	}
	realtime.Notify(ctx, s.publisher, realtime.TableMeasurements, event, m, nil,
		map[string]string{"id": m.ID, "user_id": m.UserID})

	return m, inserted, nil
}
