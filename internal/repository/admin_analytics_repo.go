package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// StatusCount is one grouped count.
type StatusCount struct {
	Label string
	Total int64
}

// AdminAnalyticsRepository supplies data for the administrator overview.
// Payment figures only count settled payments.
type AdminAnalyticsRepository interface {
	CountStudentsByClass(ctx context.Context) ([]StatusCount, error)
	CountTeachers(ctx context.Context) (int64, error)
	CountDataEntryAdmins(ctx context.Context) (int64, error)
	CountLeaveByStatus(ctx context.Context) ([]StatusCount, error)
	ListPaymentsSince(ctx context.Context, since time.Time) ([]models.FeePayment, error)
	SumPayments(ctx context.Context) (int64, error)
}

type adminAnalyticsRepository struct {
	db *gorm.DB
}

// NewAdminAnalyticsRepository constructs the analytics repository.
func NewAdminAnalyticsRepository(db *gorm.DB) AdminAnalyticsRepository {
	return &adminAnalyticsRepository{db: db}
}

func (r *adminAnalyticsRepository) CountStudentsByClass(ctx context.Context) ([]StatusCount, error) {
	var rows []StatusCount
	err := r.db.WithContext(ctx).
		Model(&models.Student{}).
		Select("class_name AS label, COUNT(*) AS total").
		Group("class_name").
		Order("class_name ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *adminAnalyticsRepository) CountTeachers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Teacher{}).Count(&count).Error
	return count, err
}

func (r *adminAnalyticsRepository) CountDataEntryAdmins(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.DataEntryAdmin{}).Count(&count).Error
	return count, err
}

func (r *adminAnalyticsRepository) CountLeaveByStatus(ctx context.Context) ([]StatusCount, error) {
	var rows []StatusCount
	err := r.db.WithContext(ctx).
		Model(&models.LeaveRequest{}).
		Select("status AS label, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	return rows, err
}

func (r *adminAnalyticsRepository) ListPaymentsSince(ctx context.Context, since time.Time) ([]models.FeePayment, error) {
	var payments []models.FeePayment
	err := r.db.WithContext(ctx).
		Where("status = ? AND paid_at >= ?", models.PaymentStatusPaid, since).
		Order("paid_at ASC").
		Find(&payments).Error
	return payments, err
}

func (r *adminAnalyticsRepository) SumPayments(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.FeePayment{}).
		Where("status = ?", models.PaymentStatusPaid).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}
