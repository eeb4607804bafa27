package dto

// SeedAdminRequest describes the administrator provisioned on a fresh
// deployment.
type SeedAdminRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required,max=255"`
}

// SeedAdminResponse reports the seeded administrator.
type SeedAdminResponse struct {
	ID      string `json:"id"`
	Created bool   `json:"created"`
}
