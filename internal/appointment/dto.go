// AngelaMos | 2026
// dto.go

package appointment

// CreateRequest carries the booking form. UserID is honoured for staff only;
// a customer's booking is always their own.
type CreateRequest struct {
	UserID        string  `json:"user_id"        validate:"omitempty,uuid"`
	Name          string  `json:"name"           validate:"required,min=1,max=100"`
	Email         string  `json:"email"          validate:"required,email"`
	Phone         *string `json:"phone"          validate:"omitempty,max=30"`
	ServiceType   string  `json:"service_type"   validate:"required"`
	PreferredDate *string `json:"preferred_date" validate:"omitempty,datetime=2006-01-02"`
	Message       *string `json:"message"        validate:"omitempty,max=2000"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=Pending Confirmed Completed Cancelled"`
}

type ListParams struct {
	OwnerID string
	Status  string
}
