package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// NotificationRepository handles persistence for notification banners.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	Update(ctx context.Context, notification *models.Notification) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (models.Notification, error)
	ListAll(ctx context.Context) ([]models.Notification, error)
	ListActive(ctx context.Context, audiences []string, now time.Time) ([]models.Notification, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository constructs a repository backed by GORM.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *notificationRepository) Update(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Save(notification).Error
}

func (r *notificationRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Notification{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *notificationRepository) FindByID(ctx context.Context, id uint) (models.Notification, error) {
	var notification models.Notification
	if err := r.db.WithContext(ctx).First(&notification, id).Error; err != nil {
		return models.Notification{}, err
	}
	return notification, nil
}

// ListAll returns every notification, newest first.
func (r *notificationRepository) ListAll(ctx context.Context) ([]models.Notification, error) {
	var notifications []models.Notification
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&notifications).Error
	return notifications, err
}

// ListActive returns unexpired active banners for any of the audiences.
func (r *notificationRepository) ListActive(ctx context.Context, audiences []string, now time.Time) ([]models.Notification, error) {
	query := r.db.WithContext(ctx).
		Where("active = ?", true).
		Where("expires_at IS NULL OR expires_at > ?", now)
	if len(audiences) > 0 {
		query = query.Where("audience IN ?", audiences)
	}

	var notifications []models.Notification
	err := query.Order("created_at DESC").Order("id DESC").Find(&notifications).Error
	return notifications, err
}
