package dto

import (
	"time"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// StudentRequest is the create and edit form of a student.
type StudentRequest struct {
	Name        string `json:"name" form:"name" validate:"required,min=2,max=255"`
	RollNumber  string `json:"roll_number" form:"roll_number" validate:"required,max=64"`
	ClassName   string `json:"class_name" form:"class_name" validate:"required,max=64"`
	Section     string `json:"section" form:"section" validate:"omitempty,max=16"`
	DateOfBirth string `json:"date_of_birth" form:"date_of_birth" validate:"required,datetime=2006-01-02"`
	Gender      string `json:"gender" form:"gender" validate:"omitempty,oneof=male female other"`
	ParentName  string `json:"parent_name" form:"parent_name" validate:"omitempty,max=255"`
	Phone       string `json:"phone" form:"phone" validate:"omitempty,max=32"`
	Address     string `json:"address" form:"address" validate:"omitempty,max=1000"`
}

// StudentResponse is the public shape of a student record.
type StudentResponse struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	RollNumber  string               `json:"roll_number"`
	ClassName   string               `json:"class_name"`
	Section     string               `json:"section"`
	DateOfBirth string               `json:"date_of_birth"`
	Gender      string               `json:"gender"`
	ParentName  string               `json:"parent_name"`
	Phone       string               `json:"phone"`
	Address     string               `json:"address"`
	PhotoURL    string               `json:"photo_url,omitempty"`
	Registered  bool                 `json:"registered"`
	Photo       *PhotoUploadResponse `json:"photo_upload,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// StudentListResponse is one page of students.
type StudentListResponse struct {
	Items      []StudentResponse `json:"items"`
	Pagination PaginationMeta    `json:"pagination"`
}

// NewStudentResponse converts a student model.
func NewStudentResponse(student models.Student) StudentResponse {
	return StudentResponse{
		ID:          student.ID,
		Name:        student.Name,
		RollNumber:  student.RollNumber,
		ClassName:   student.ClassName,
		Section:     student.Section,
		DateOfBirth: student.DateOfBirth,
		Gender:      student.Gender,
		ParentName:  student.ParentName,
		Phone:       student.Phone,
		Address:     student.Address,
		PhotoURL:    student.PhotoURL,
		Registered:  student.IdentityID != nil,
		CreatedAt:   student.CreatedAt,
		UpdatedAt:   student.UpdatedAt,
	}
}
