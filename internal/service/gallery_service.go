package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/repository"
)

var (
	// ErrAlbumNotFound indicates the album does not exist.
	ErrAlbumNotFound = errors.New("album not found")
	// ErrPhotoNotFound indicates the photo does not exist in the album.
	ErrPhotoNotFound = errors.New("photo not found")
)

// GalleryService manages albums and their photos.
type GalleryService interface {
	List(ctx context.Context, query dto.ListQuery) (dto.AlbumListResponse, error)
	Get(ctx context.Context, id uint) (dto.AlbumResponse, error)
	Create(ctx context.Context, req dto.AlbumRequest, actor Actor) (dto.AlbumResponse, error)
	Update(ctx context.Context, id uint, req dto.AlbumRequest, actor Actor) (dto.AlbumResponse, error)
	Delete(ctx context.Context, id uint, actor Actor) error
	// AddPhoto stores the photo. When the asset host is unavailable nothing is
	// saved and the response carries a preview only.
	AddPhoto(ctx context.Context, albumID uint, caption string, file *multipart.FileHeader, actor Actor) (dto.PhotoAddResponse, error)
	RemovePhoto(ctx context.Context, albumID, photoID uint, actor Actor) error
}

type galleryService struct {
	repo      repository.GalleryRepository
	uploads   UploadService
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewGalleryService constructs the gallery service.
func NewGalleryService(repo repository.GalleryRepository, uploads UploadService, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) GalleryService {
	return &galleryService{
		repo:      repo,
		uploads:   uploads,
		validator: validate,
		activity:  activity,
		logger:    logger.With().Str("component", "gallery_service").Logger(),
	}
}

func (s *galleryService) List(ctx context.Context, query dto.ListQuery) (dto.AlbumListResponse, error) {
	albums, err := s.repo.ListAlbums(ctx)
	if err != nil {
		return dto.AlbumListResponse{}, err
	}

	page, meta := listPage(albums, query,
		func(a models.Album) []string { return []string{a.Title, a.Description} },
		func(a models.Album) map[string]string { return map[string]string{} },
	)

	items := make([]dto.AlbumResponse, 0, len(page))
	for _, album := range page {
		items = append(items, dto.NewAlbumResponse(album))
	}
	return dto.AlbumListResponse{Items: items, Pagination: meta}, nil
}

func (s *galleryService) Get(ctx context.Context, id uint) (dto.AlbumResponse, error) {
	album, err := s.load(ctx, id)
	if err != nil {
		return dto.AlbumResponse{}, err
	}
	return dto.NewAlbumResponse(album), nil
}

func (s *galleryService) Create(ctx context.Context, req dto.AlbumRequest, actor Actor) (dto.AlbumResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AlbumResponse{}, err
	}

	album := models.Album{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
	}
	if err := s.repo.CreateAlbum(ctx, &album); err != nil {
		return dto.AlbumResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "album.create",
		EntityType: "album",
		EntityID:   uintID(album.ID),
	})
	return dto.NewAlbumResponse(album), nil
}

func (s *galleryService) Update(ctx context.Context, id uint, req dto.AlbumRequest, actor Actor) (dto.AlbumResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AlbumResponse{}, err
	}

	album, err := s.load(ctx, id)
	if err != nil {
		return dto.AlbumResponse{}, err
	}
	album.Title = strings.TrimSpace(req.Title)
	album.Description = strings.TrimSpace(req.Description)
	if err := s.repo.UpdateAlbum(ctx, &album); err != nil {
		return dto.AlbumResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "album.update",
		EntityType: "album",
		EntityID:   uintID(id),
	})
	return dto.NewAlbumResponse(album), nil
}

func (s *galleryService) Delete(ctx context.Context, id uint, actor Actor) error {
	album, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteAlbum(ctx, id); err != nil {
		if isNotFound(err) {
			return ErrAlbumNotFound
		}
		return err
	}

	for _, photo := range album.Photos {
		if s.uploads != nil {
			s.uploads.Discard(ctx, photo.AssetID)
		}
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "album.delete",
		EntityType: "album",
		EntityID:   uintID(id),
		Metadata:   map[string]interface{}{"photos": len(album.Photos)},
	})
	return nil
}

func (s *galleryService) AddPhoto(ctx context.Context, albumID uint, caption string, file *multipart.FileHeader, actor Actor) (dto.PhotoAddResponse, error) {
	album, err := s.load(ctx, albumID)
	if err != nil {
		return dto.PhotoAddResponse{}, err
	}
	if s.uploads == nil {
		return dto.PhotoAddResponse{}, ErrUploadMissing
	}

	upload, err := s.uploads.UploadImage(ctx, file, "gallery", actor.ID)
	if err != nil {
		return dto.PhotoAddResponse{}, err
	}
	if !upload.Persisted {
		return dto.PhotoAddResponse{Upload: upload}, nil
	}

	photo := models.Photo{
		AlbumID: album.ID,
		Caption: strings.TrimSpace(caption),
		URL:     upload.URL,
		AssetID: upload.AssetID,
		Width:   upload.Width,
		Height:  upload.Height,
	}
	if err := s.repo.AddPhoto(ctx, &photo); err != nil {
		return dto.PhotoAddResponse{}, err
	}

	if album.CoverURL == "" {
		album.CoverURL = photo.URL
		if err := s.repo.UpdateAlbum(ctx, &album); err != nil {
			s.logger.Warn().Err(err).Uint("album_id", album.ID).Msg("failed to set album cover")
		}
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "photo.create",
		EntityType: "album",
		EntityID:   uintID(album.ID),
		Metadata:   map[string]interface{}{"photo_id": photo.ID},
	})

	resp := dto.NewPhotoResponse(photo)
	return dto.PhotoAddResponse{Photo: &resp, Upload: upload}, nil
}

func (s *galleryService) RemovePhoto(ctx context.Context, albumID, photoID uint, actor Actor) error {
	photo, err := s.repo.GetPhoto(ctx, albumID, photoID)
	if err != nil {
		if isNotFound(err) {
			return ErrPhotoNotFound
		}
		return err
	}
	if err := s.repo.DeletePhoto(ctx, albumID, photoID); err != nil {
		if isNotFound(err) {
			return ErrPhotoNotFound
		}
		return err
	}
	if s.uploads != nil {
		s.uploads.Discard(ctx, photo.AssetID)
	}

	album, err := s.load(ctx, albumID)
	if err == nil && album.CoverURL == photo.URL {
		album.CoverURL = ""
		if len(album.Photos) > 0 {
			album.CoverURL = album.Photos[0].URL
		}
		if err := s.repo.UpdateAlbum(ctx, &album); err != nil {
			s.logger.Warn().Err(err).Uint("album_id", albumID).Msg("failed to reset album cover")
		}
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "photo.delete",
		EntityType: "album",
		EntityID:   uintID(albumID),
		Metadata:   map[string]interface{}{"photo_id": photoID},
	})
	return nil
}

func (s *galleryService) load(ctx context.Context, id uint) (models.Album, error) {
	album, err := s.repo.GetAlbum(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return models.Album{}, ErrAlbumNotFound
		}
		return models.Album{}, err
	}
	return album, nil
}
