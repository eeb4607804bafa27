package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// UserProfileRepository stores access records. Removing one revokes access.
type UserProfileRepository interface {
	GetByID(ctx context.Context, id string) (models.UserProfile, error)
	Save(ctx context.Context, profile *models.UserProfile) error
	Delete(ctx context.Context, id string) error
}

type userProfileRepository struct {
	db *gorm.DB
}

// NewUserProfileRepository constructs the access record repository.
func NewUserProfileRepository(db *gorm.DB) UserProfileRepository {
	return &userProfileRepository{db: db}
}

func (r *userProfileRepository) GetByID(ctx context.Context, id string) (models.UserProfile, error) {
	var profile models.UserProfile
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error
	return profile, err
}

func (r *userProfileRepository) Save(ctx context.Context, profile *models.UserProfile) error {
	return r.db.WithContext(ctx).Save(profile).Error
}

func (r *userProfileRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.UserProfile{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
