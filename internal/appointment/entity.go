// AngelaMos | 2026
// entity.go

package appointment

import (
	"time"
)

type Appointment struct {
	ID            string    `db:"id"             json:"id"`
	UserID        *string   `db:"user_id"        json:"user_id"`
	Name          string    `db:"name"           json:"name"`
	Email         string    `db:"email"          json:"email"`
	Phone         *string   `db:"phone"          json:"phone"`
	ServiceType   string    `db:"service_type"   json:"service_type"`
	PreferredDate *string   `db:"preferred_date" json:"preferred_date"`
	Message       *string   `db:"message"        json:"message"`
	Status        string    `db:"status"         json:"status"`
	CreatedAt     time.Time `db:"created_at"     json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"     json:"updated_at"`
}

func (a *Appointment) keys() map[string]string {
	k := map[string]string{"id": a.ID}
	if a.UserID != nil {
		k["user_id"] = *a.UserID
	}
	return k
}
