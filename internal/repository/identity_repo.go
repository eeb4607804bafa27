package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// IdentityRepository persists login-capable identities.
type IdentityRepository interface {
	Create(ctx context.Context, identity *models.Identity) error
	GetByID(ctx context.Context, id string) (models.Identity, error)
	GetByIdentifier(ctx context.Context, identifier string) (models.Identity, error)
	TouchSignIn(ctx context.Context, id string, at time.Time) error
	// SetPassword stores a chosen password hash and clears the provisional flag.
	SetPassword(ctx context.Context, id, hash string) error
	Delete(ctx context.Context, id string) error
}

type identityRepository struct {
	db *gorm.DB
}

// NewIdentityRepository constructs the identity repository.
func NewIdentityRepository(db *gorm.DB) IdentityRepository {
	return &identityRepository{db: db}
}

func (r *identityRepository) Create(ctx context.Context, identity *models.Identity) error {
	identity.Identifier = strings.ToLower(strings.TrimSpace(identity.Identifier))
	return r.db.WithContext(ctx).Create(identity).Error
}

func (r *identityRepository) GetByID(ctx context.Context, id string) (models.Identity, error) {
	var identity models.Identity
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&identity).Error
	return identity, err
}

func (r *identityRepository) GetByIdentifier(ctx context.Context, identifier string) (models.Identity, error) {
	var identity models.Identity
	err := r.db.WithContext(ctx).
		Where("identifier = ?", strings.ToLower(strings.TrimSpace(identifier))).
		First(&identity).Error
	return identity, err
}

func (r *identityRepository) TouchSignIn(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Identity{}).
		Where("id = ?", id).
		Update("last_sign_in_at", at).Error
}

func (r *identityRepository) SetPassword(ctx context.Context, id, hash string) error {
	result := r.db.WithContext(ctx).Model(&models.Identity{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"password_hash": hash, "provisional": false})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *identityRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Identity{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
