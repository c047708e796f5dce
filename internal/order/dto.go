// AngelaMos | 2026
// dto.go

package order

// CreateRequest identifies the customer by id or, as the staff form does,
// by email. One of the two is required.
type CreateRequest struct {
	UserID        string   `json:"user_id"        validate:"omitempty,uuid"`
	CustomerEmail string   `json:"customer_email" validate:"omitempty,email"`
	DressType     string   `json:"dress_type"     validate:"required,min=1,max=120"`
	FabricType    *string  `json:"fabric_type"    validate:"omitempty,max=120"`
	Price         *float64 `json:"price"          validate:"omitempty,gte=0"`
	UrgencyLevel  string   `json:"urgency_level"  validate:"omitempty,oneof=Normal Urgent Express"`
	DeliveryDate  *string  `json:"delivery_date"  validate:"omitempty,datetime=2006-01-02"`
	Notes         *string  `json:"notes"          validate:"omitempty,max=2000"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof='Order Confirmed' Cutting Stitching Trial Ready Delivered"`
}

type ListParams struct {
	// OwnerID restricts the listing to one customer. Empty lists every row.
	OwnerID string
	Status  string
	// WithCustomer joins the customer's name onto each row.
	WithCustomer bool
}
