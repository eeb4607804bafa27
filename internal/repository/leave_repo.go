package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// LeaveFilter narrows leave request listings.
type LeaveFilter struct {
	RequesterID   string
	RequesterRole string
	ClassName     string
	Status        models.LeaveStatus
}

// LeaveRepository persists leave requests.
type LeaveRepository interface {
	Create(ctx context.Context, request *models.LeaveRequest) error
	GetByID(ctx context.Context, id uint) (models.LeaveRequest, error)
	List(ctx context.Context, filter LeaveFilter) ([]models.LeaveRequest, error)
	// Transition saves request only if its stored status still equals from.
	Transition(ctx context.Context, request *models.LeaveRequest, from models.LeaveStatus) error
}

type leaveRepository struct {
	db *gorm.DB
}

// NewLeaveRepository constructs the leave request repository.
func NewLeaveRepository(db *gorm.DB) LeaveRepository {
	return &leaveRepository{db: db}
}

func (r *leaveRepository) Create(ctx context.Context, request *models.LeaveRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *leaveRepository) GetByID(ctx context.Context, id uint) (models.LeaveRequest, error) {
	var request models.LeaveRequest
	err := r.db.WithContext(ctx).First(&request, id).Error
	return request, err
}

// List returns matching requests, newest first.
func (r *leaveRepository) List(ctx context.Context, filter LeaveFilter) ([]models.LeaveRequest, error) {
	query := r.db.WithContext(ctx).Model(&models.LeaveRequest{})
	if filter.RequesterID != "" {
		query = query.Where("requester_id = ?", filter.RequesterID)
	}
	if filter.RequesterRole != "" {
		query = query.Where("requester_role = ?", filter.RequesterRole)
	}
	if filter.ClassName != "" {
		query = query.Where("class_name = ?", filter.ClassName)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var requests []models.LeaveRequest
	err := query.Order("created_at DESC").Order("id DESC").Find(&requests).Error
	return requests, err
}

func (r *leaveRepository) Transition(ctx context.Context, request *models.LeaveRequest, from models.LeaveStatus) error {
	result := r.db.WithContext(ctx).Model(&models.LeaveRequest{}).
		Where("id = ? AND status = ?", request.ID, from).
		Updates(map[string]interface{}{
			"status":             request.Status,
			"teacher_remark":     request.TeacherRemark,
			"teacher_id":         request.TeacherID,
			"teacher_decided_at": request.TeacherDecidedAt,
			"admin_remark":       request.AdminRemark,
			"admin_id":           request.AdminID,
			"admin_decided_at":   request.AdminDecidedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrInvalidLeaveTransition
	}
	return nil
}
