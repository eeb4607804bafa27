package models

import "time"

// Album groups photos in the public gallery.
type Album struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:255;not null;index" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	CoverURL    string    `gorm:"size:512" json:"cover_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Photos      []Photo   `gorm:"constraint:OnDelete:CASCADE" json:"photos,omitempty"`
}

// Photo is an image stored on the asset host.
type Photo struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AlbumID   uint      `gorm:"not null;index" json:"album_id"`
	Caption   string    `gorm:"size:512" json:"caption"`
	URL       string    `gorm:"size:512;not null" json:"url"`
	AssetID   string    `gorm:"size:255" json:"asset_id"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	CreatedAt time.Time `json:"created_at"`
}

// UploadRecord stores metadata about files accepted by the asset host.
type UploadRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:64;index" json:"user_id"`
	FileName  string    `gorm:"size:255;not null" json:"file_name"`
	URL       string    `gorm:"size:512;not null" json:"url"`
	AssetID   string    `gorm:"size:255" json:"asset_id"`
	MimeType  string    `gorm:"size:128;not null" json:"mime_type"`
	SizeBytes int64     `gorm:"not null" json:"size_bytes"`
	Checksum  string    `gorm:"size:128;index" json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
}
