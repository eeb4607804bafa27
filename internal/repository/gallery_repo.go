package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// GalleryRepository manages albums and their photos.
type GalleryRepository interface {
	ListAlbums(ctx context.Context) ([]models.Album, error)
	GetAlbum(ctx context.Context, id uint) (models.Album, error)
	CreateAlbum(ctx context.Context, album *models.Album) error
	UpdateAlbum(ctx context.Context, album *models.Album) error
	DeleteAlbum(ctx context.Context, id uint) error
	AddPhoto(ctx context.Context, photo *models.Photo) error
	GetPhoto(ctx context.Context, albumID, photoID uint) (models.Photo, error)
	DeletePhoto(ctx context.Context, albumID, photoID uint) error
}

type galleryRepository struct {
	db *gorm.DB
}

// NewGalleryRepository constructs a gallery repository implementation.
func NewGalleryRepository(db *gorm.DB) GalleryRepository {
	return &galleryRepository{db: db}
}

// ListAlbums returns albums ordered by title with their photos, oldest photo first.
func (r *galleryRepository) ListAlbums(ctx context.Context) ([]models.Album, error) {
	var albums []models.Album
	err := r.db.WithContext(ctx).
		Preload("Photos", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at ASC").Order("id ASC") }).
		Order("title ASC").
		Find(&albums).Error
	return albums, err
}

func (r *galleryRepository) GetAlbum(ctx context.Context, id uint) (models.Album, error) {
	var album models.Album
	err := r.db.WithContext(ctx).
		Preload("Photos", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at ASC").Order("id ASC") }).
		First(&album, id).Error
	return album, err
}

func (r *galleryRepository) CreateAlbum(ctx context.Context, album *models.Album) error {
	return r.db.WithContext(ctx).Omit("Photos").Create(album).Error
}

func (r *galleryRepository) UpdateAlbum(ctx context.Context, album *models.Album) error {
	return r.db.WithContext(ctx).Omit("Photos").Save(album).Error
}

// DeleteAlbum removes the album and its photos in one transaction.
func (r *galleryRepository) DeleteAlbum(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("album_id = ?", id).Delete(&models.Photo{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Album{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *galleryRepository) AddPhoto(ctx context.Context, photo *models.Photo) error {
	return r.db.WithContext(ctx).Create(photo).Error
}

func (r *galleryRepository) GetPhoto(ctx context.Context, albumID, photoID uint) (models.Photo, error) {
	var photo models.Photo
	err := r.db.WithContext(ctx).Where("id = ? AND album_id = ?", photoID, albumID).First(&photo).Error
	return photo, err
}

func (r *galleryRepository) DeletePhoto(ctx context.Context, albumID, photoID uint) error {
	result := r.db.WithContext(ctx).Where("id = ? AND album_id = ?", photoID, albumID).Delete(&models.Photo{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
