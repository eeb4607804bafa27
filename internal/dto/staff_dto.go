package dto

import (
	"time"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// TeacherCreateRequest provisions a teacher account and profile.
type TeacherCreateRequest struct {
	Name            string `json:"name" form:"name" validate:"required,min=2,max=255"`
	Email           string `json:"email" form:"email" validate:"required,email"`
	Password        string `json:"password" form:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password" validate:"required,eqfield=Password"`
	Phone           string `json:"phone" form:"phone" validate:"omitempty,max=32"`
	Subject         string `json:"subject" form:"subject" validate:"required,max=128"`
	Qualification   string `json:"qualification" form:"qualification" validate:"omitempty,max=255"`
	ClassName       string `json:"class_name" form:"class_name" validate:"omitempty,max=64"`
	Section         string `json:"section" form:"section" validate:"omitempty,max=16"`
}

// TeacherUpdateRequest edits profile fields only. Email and password are not
// editable through this path.
type TeacherUpdateRequest struct {
	Name          string `json:"name" form:"name" validate:"required,min=2,max=255"`
	Phone         string `json:"phone" form:"phone" validate:"omitempty,max=32"`
	Subject       string `json:"subject" form:"subject" validate:"required,max=128"`
	Qualification string `json:"qualification" form:"qualification" validate:"omitempty,max=255"`
	ClassName     string `json:"class_name" form:"class_name" validate:"omitempty,max=64"`
	Section       string `json:"section" form:"section" validate:"omitempty,max=16"`
}

// TeacherResponse is the public shape of a teacher profile.
type TeacherResponse struct {
	ID            string               `json:"id"`
	Name          string               `json:"name"`
	Email         string               `json:"email"`
	Phone         string               `json:"phone"`
	Subject       string               `json:"subject"`
	Qualification string               `json:"qualification"`
	ClassName     string               `json:"class_name"`
	Section       string               `json:"section"`
	PhotoURL      string               `json:"photo_url,omitempty"`
	Photo         *PhotoUploadResponse `json:"photo_upload,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// TeacherListResponse is one page of teachers.
type TeacherListResponse struct {
	Items      []TeacherResponse `json:"items"`
	Pagination PaginationMeta    `json:"pagination"`
}

// NewTeacherResponse converts a teacher model.
func NewTeacherResponse(teacher models.Teacher) TeacherResponse {
	return TeacherResponse{
		ID:            teacher.ID,
		Name:          teacher.Name,
		Email:         teacher.Email,
		Phone:         teacher.Phone,
		Subject:       teacher.Subject,
		Qualification: teacher.Qualification,
		ClassName:     teacher.ClassName,
		Section:       teacher.Section,
		PhotoURL:      teacher.PhotoURL,
		CreatedAt:     teacher.CreatedAt,
		UpdatedAt:     teacher.UpdatedAt,
	}
}

// DataEntryCreateRequest provisions a data-entry operator.
type DataEntryCreateRequest struct {
	Name            string `json:"name" validate:"required,min=2,max=255"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
	Phone           string `json:"phone" validate:"omitempty,max=32"`
}

// DataEntryUpdateRequest edits an operator's profile fields.
type DataEntryUpdateRequest struct {
	Name  string `json:"name" validate:"required,min=2,max=255"`
	Phone string `json:"phone" validate:"omitempty,max=32"`
}

// DataEntryResponse is the public shape of an operator profile.
type DataEntryResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DataEntryListResponse is one page of operators.
type DataEntryListResponse struct {
	Items      []DataEntryResponse `json:"items"`
	Pagination PaginationMeta      `json:"pagination"`
}

// NewDataEntryResponse converts an operator model.
func NewDataEntryResponse(admin models.DataEntryAdmin) DataEntryResponse {
	return DataEntryResponse{
		ID:        admin.ID,
		Name:      admin.Name,
		Email:     admin.Email,
		Phone:     admin.Phone,
		CreatedAt: admin.CreatedAt,
		UpdatedAt: admin.UpdatedAt,
	}
}
