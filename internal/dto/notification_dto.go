package dto

import (
	"time"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// NotificationRequest creates or edits a banner.
type NotificationRequest struct {
	Title     string     `json:"title" validate:"required,min=2,max=255"`
	Message   string     `json:"message" validate:"required,max=4000"`
	Audience  string     `json:"audience" validate:"omitempty,oneof=all admin teacher data_entry student"`
	Priority  string     `json:"priority" validate:"omitempty,oneof=low normal high"`
	Active    *bool      `json:"active"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// NotificationResponse is one banner.
type NotificationResponse struct {
	ID        uint       `json:"id"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Audience  string     `json:"audience"`
	Priority  string     `json:"priority"`
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedBy string     `json:"created_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NotificationListResponse is one page of banners.
type NotificationListResponse struct {
	Items      []NotificationResponse `json:"items"`
	Pagination PaginationMeta         `json:"pagination"`
}

// NewNotificationResponse converts a notification model.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        model.ID,
		Title:     model.Title,
		Message:   model.Message,
		Audience:  model.Audience,
		Priority:  model.Priority,
		Active:    model.Active,
		ExpiresAt: model.ExpiresAt,
		CreatedBy: model.CreatedBy,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

// NewNotificationResponseSlice converts a list of notifications.
func NewNotificationResponseSlice(items []models.Notification) []NotificationResponse {
	responses := make([]NotificationResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, NewNotificationResponse(item))
	}
	return responses
}
