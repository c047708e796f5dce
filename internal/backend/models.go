// AngelaMos | 2026
// models.go

package backend

import (
	"encoding/json"
	"time"
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Provider  string    `json:"provider"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

type Profile struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Phone      *string `json:"phone"`
	Role       string  `json:"role"`
	BusinessID *string `json:"business_id"`
}

type Order struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	BusinessID   *string   `json:"business_id,omitempty"`
	DressType    string    `json:"dress_type"`
	FabricType   *string   `json:"fabric_type,omitempty"`
	Price        *float64  `json:"price,omitempty"`
	Status       string    `json:"status"`
	UrgencyLevel string    `json:"urgency_level,omitempty"`
	DeliveryDate *string   `json:"delivery_date"`
	Notes        *string   `json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
	CustomerName *string   `json:"customer_name,omitempty"`
}

func (o Order) RowID() string { return o.ID }

type Appointment struct {
	ID            string    `json:"id"`
	UserID        *string   `json:"user_id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         *string   `json:"phone"`
	ServiceType   string    `json:"service_type"`
	PreferredDate *string   `json:"preferred_date"`
	Message       *string   `json:"message"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

func (a Appointment) RowID() string { return a.ID }

type ContactMessage struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

func (m ContactMessage) RowID() string { return m.ID }

type Measurement struct {
	ID           string   `json:"id,omitempty"`
	UserID       string   `json:"user_id,omitempty"`
	Bust         *float64 `json:"bust"`
	Waist        *float64 `json:"waist"`
	Hip          *float64 `json:"hip"`
	Shoulder     *float64 `json:"shoulder"`
	SleeveLength *float64 `json:"sleeve_length"`
}

// NewOrder is the staff form's payload. The customer is named by email.
type NewOrder struct {
	CustomerEmail string   `json:"customer_email"`
	DressType     string   `json:"dress_type"`
	FabricType    *string  `json:"fabric_type,omitempty"`
	Price         *float64 `json:"price,omitempty"`
	UrgencyLevel  string   `json:"urgency_level,omitempty"`
	DeliveryDate  *string  `json:"delivery_date,omitempty"`
	Notes         *string  `json:"notes,omitempty"`
}

type NewAppointment struct {
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	Phone         *string `json:"phone,omitempty"`
	ServiceType   string  `json:"service_type"`
	PreferredDate *string `json:"preferred_date,omitempty"`
	Message       *string `json:"message,omitempty"`
}

type NewContactMessage struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Phone   *string `json:"phone,omitempty"`
	Message string  `json:"message"`
}

type ProfileInput struct {
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Phone *string `json:"phone"`
}

type SignUpParams struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     string  `json:"name"`
	Phone    *string `json:"phone,omitempty"`
}

// Change is one row event from the realtime stream.
type Change struct {
	ID              string            `json:"id"`
	Table           string            `json:"table"`
	Type            string            `json:"type"`
	New             json.RawMessage   `json:"new,omitempty"`
	Old             json.RawMessage   `json:"old,omitempty"`
	Keys            map[string]string `json:"keys"`
	CommitTimestamp time.Time         `json:"commit_timestamp"`
}

const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
	EventAll    = "*"
)

// DecodeNew unmarshals the post-change row.
func DecodeNew[T any](c Change) (T, error) {
	var row T
	err := json.Unmarshal(c.New, &row)
	return row, err
}

// DecodeOld unmarshals the pre-change row.
func DecodeOld[T any](c Change) (T, error) {
	var row T
	err := json.Unmarshal(c.Old, &row)
	return row, err
}
