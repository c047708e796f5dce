// AngelaMos | 2026
// dto.go

package user

// UpsertProfileRequest is what a signed-in user may write about
// themselves. Role is not accepted here.
type UpsertProfileRequest struct {
	Name  string  `json:"name"  validate:"required,min=1,max=100"`
	Email string  `json:"email" validate:"required,email,max=255"`
	Phone *string `json:"phone" validate:"omitempty,max=32"`
}

type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=customer admin super_admin"`
}

type ListParams struct {
	Page     int
	PageSize int
	Search   string
	Role     string
}

func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}
