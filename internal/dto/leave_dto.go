package dto

import (
	"time"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// LeaveCreateRequest files a leave application.
type LeaveCreateRequest struct {
	FromDate string `json:"from_date" validate:"required,datetime=2006-01-02"`
	ToDate   string `json:"to_date" validate:"required,datetime=2006-01-02"`
	Type     string `json:"type" validate:"required,oneof=sick casual family medical other"`
	Reason   string `json:"reason" validate:"required,min=3,max=2000"`
}

// LeaveDecisionRequest approves or rejects a request at the caller's stage.
type LeaveDecisionRequest struct {
	Approve *bool  `json:"approve" validate:"required"`
	Remark  string `json:"remark" validate:"omitempty,max=1000"`
}

// LeaveResponse is one leave request.
type LeaveResponse struct {
	ID               uint               `json:"id"`
	RequesterID      string             `json:"requester_id"`
	RequesterName    string             `json:"requester_name"`
	RequesterRole    string             `json:"requester_role"`
	ClassName        string             `json:"class_name,omitempty"`
	Section          string             `json:"section,omitempty"`
	FromDate         string             `json:"from_date"`
	ToDate           string             `json:"to_date"`
	Type             string             `json:"type"`
	Reason           string             `json:"reason"`
	Status           models.LeaveStatus `json:"status"`
	TeacherRemark    string             `json:"teacher_remark,omitempty"`
	TeacherDecidedAt *time.Time         `json:"teacher_decided_at,omitempty"`
	AdminRemark      string             `json:"admin_remark,omitempty"`
	AdminDecidedAt   *time.Time         `json:"admin_decided_at,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// NewLeaveResponse converts a leave request.
func NewLeaveResponse(model models.LeaveRequest) LeaveResponse {
	return LeaveResponse{
		ID:               model.ID,
		RequesterID:      model.RequesterID,
		RequesterName:    model.RequesterName,
		RequesterRole:    model.RequesterRole,
		ClassName:        model.ClassName,
		Section:          model.Section,
		FromDate:         model.FromDate,
		ToDate:           model.ToDate,
		Type:             model.Type,
		Reason:           model.Reason,
		Status:           model.Status,
		TeacherRemark:    model.TeacherRemark,
		TeacherDecidedAt: model.TeacherDecidedAt,
		AdminRemark:      model.AdminRemark,
		AdminDecidedAt:   model.AdminDecidedAt,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
}

// NewLeaveResponseSlice converts a list of leave requests.
func NewLeaveResponseSlice(items []models.LeaveRequest) []LeaveResponse {
	responses := make([]LeaveResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, NewLeaveResponse(item))
	}
	return responses
}
