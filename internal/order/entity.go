// AngelaMos | 2026
// entity.go

package order

import (
	"time"
)

type Order struct {
	ID           string    `db:"id"            json:"id"`
	UserID       string    `db:"user_id"       json:"user_id"`
	BusinessID   *string   `db:"business_id"   json:"business_id"`
	DressType    string    `db:"dress_type"    json:"dress_type"`
	FabricType   *string   `db:"fabric_type"   json:"fabric_type"`
	Price        *float64  `db:"price"         json:"price"`
	Status       string    `db:"status"        json:"status"`
	UrgencyLevel string    `db:"urgency_level" json:"urgency_level"`
	DeliveryDate *string   `db:"delivery_date" json:"delivery_date"`
	Notes        *string   `db:"notes"         json:"notes"`
	CreatedAt    time.Time `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"    json:"updated_at"`

	// CustomerName is filled only by the staff listing join.
	CustomerName *string `db:"customer_name" json:"customer_name,omitempty"`
}

func (o *Order) keys() map[string]string {
	return map[string]string{"id": o.ID, "user_id": o.UserID}
}

type StatusCount struct {
	Status  string  `db:"status"  json:"status"`
	Count   int     `db:"count"   json:"count"`
	Revenue float64 `db:"revenue" json:"revenue"`
}

// Summary buckets order counts the way the admin metrics cards do.
type Summary struct {
	Total      int            `json:"total"`
	Pending    int            `json:"pending"`
	InProgress int            `json:"in_progress"`
	Completed  int            `json:"completed"`
	Revenue    float64        `json:"revenue"`
	ByStatus   map[string]int `json:"by_status"`
}
