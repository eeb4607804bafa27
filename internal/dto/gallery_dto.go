package dto

import (
	"time"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// PhotoUploadResponse describes the outcome of a photo upload. When the asset
// host is unavailable Persisted is false and Preview carries a base64 data URL
// that was not stored anywhere.
type PhotoUploadResponse struct {
	URL       string `json:"url,omitempty"`
	AssetID   string `json:"asset_id,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
	FileName  string `json:"file_name"`
	Persisted bool   `json:"persisted"`
	Preview   string `json:"preview,omitempty"`
	Warning   string `json:"warning,omitempty"`
}

// AlbumRequest creates or edits an album.
type AlbumRequest struct {
	Title       string `json:"title" validate:"required,min=2,max=255"`
	Description string `json:"description" validate:"omitempty,max=2000"`
}

// PhotoResponse is one gallery photo.
type PhotoResponse struct {
	ID        uint      `json:"id"`
	AlbumID   uint      `json:"album_id"`
	Caption   string    `json:"caption"`
	URL       string    `json:"url"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	CreatedAt time.Time `json:"created_at"`
}

// AlbumResponse is an album with its photos.
type AlbumResponse struct {
	ID          uint            `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	CoverURL    string          `json:"cover_url,omitempty"`
	PhotoCount  int             `json:"photo_count"`
	Photos      []PhotoResponse `json:"photos"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// AlbumListResponse is one page of albums.
type AlbumListResponse struct {
	Items      []AlbumResponse `json:"items"`
	Pagination PaginationMeta  `json:"pagination"`
}

// PhotoAddResponse is returned after adding a photo. Photo is nil when the
// upload fell back to a preview.
type PhotoAddResponse struct {
	Photo  *PhotoResponse      `json:"photo,omitempty"`
	Upload PhotoUploadResponse `json:"upload"`
}

// NewPhotoResponse converts a photo model.
func NewPhotoResponse(photo models.Photo) PhotoResponse {
	return PhotoResponse{
		ID:        photo.ID,
		AlbumID:   photo.AlbumID,
		Caption:   photo.Caption,
		URL:       photo.URL,
		Width:     photo.Width,
		Height:    photo.Height,
		CreatedAt: photo.CreatedAt,
	}
}

// NewAlbumResponse converts an album and its loaded photos.
func NewAlbumResponse(album models.Album) AlbumResponse {
	photos := make([]PhotoResponse, 0, len(album.Photos))
	for _, photo := range album.Photos {
		photos = append(photos, NewPhotoResponse(photo))
	}
	cover := album.CoverURL
	if cover == "" && len(photos) > 0 {
		cover = photos[0].URL
	}
	return AlbumResponse{
		ID:          album.ID,
		Title:       album.Title,
		Description: album.Description,
		CoverURL:    cover,
		PhotoCount:  len(photos),
		Photos:      photos,
		CreatedAt:   album.CreatedAt,
		UpdatedAt:   album.UpdatedAt,
	}
}
