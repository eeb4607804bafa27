package dto

import (
	"time"

	"github.com/noah-isme/school-portal-api/internal/access"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/session"
)

// SignInRequest is the staff sign-in form.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// StudentSignInRequest signs a student in with roll number and date of birth.
type StudentSignInRequest struct {
	RollNumber  string `json:"roll_number" validate:"required"`
	DateOfBirth string `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
}

// RegisterRequest lets a student claim an existing student record.
type RegisterRequest struct {
	RollNumber      string `json:"roll_number" validate:"required"`
	DateOfBirth     string `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// TokenResponse is returned by every successful sign-in.
type TokenResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresAt   time.Time       `json:"expires_at"`
	Session     SessionResponse `json:"session"`
}

// SessionResponse renders a session snapshot and the guard outcome for it.
type SessionResponse struct {
	State     session.State      `json:"state"`
	Principal *session.Principal `json:"principal,omitempty"`
	Role      models.Role        `json:"role,omitempty"`
	Profile   models.Profile     `json:"profile,omitempty"`
	Error     string             `json:"error,omitempty"`
	Shell     *access.Shell      `json:"shell,omitempty"`
}

// NewSessionResponse converts a snapshot into its wire form.
func NewSessionResponse(snapshot session.Snapshot) SessionResponse {
	resp := SessionResponse{
		State:     snapshot.State(),
		Principal: snapshot.Principal,
		Profile:   snapshot.Profile,
	}
	if snapshot.Err != nil {
		resp.Error = "profile service unavailable"
	}
	if snapshot.Profile != nil {
		resp.Role = snapshot.Profile.Role()
		if shell, err := access.ShellFor(resp.Role); err == nil {
			resp.Shell = &shell
		}
	}
	return resp
}

// NavigationResponse is the guard decision for a page path.
type NavigationResponse struct {
	Path     string          `json:"path"`
	Decision access.Decision `json:"decision"`
	Location string          `json:"location,omitempty"`
	Role     models.Role     `json:"required_role,omitempty"`
}

// ShellResponse is the layout frame for the signed-in role.
type ShellResponse struct {
	Shell   access.Shell   `json:"shell"`
	Profile models.Profile `json:"profile"`
}

// SignOutResponse always points the client at the login screen.
type SignOutResponse struct {
	Redirect string `json:"redirect"`
}
