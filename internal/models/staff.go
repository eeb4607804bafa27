package models

import "time"

// Teacher is the profile document of a teacher. Its ID equals the identity id
// issued when the account was provisioned.
type Teacher struct {
	ID            string    `gorm:"primaryKey;size:64" json:"id"`
	Name          string    `gorm:"size:255;not null;index" json:"name"`
	Email         string    `gorm:"size:255;not null" json:"email"`
	Phone         string    `gorm:"size:32" json:"phone"`
	Subject       string    `gorm:"size:128" json:"subject"`
	Qualification string    `gorm:"size:255" json:"qualification"`
	ClassName     string    `gorm:"size:64;index" json:"class_name"`
	Section       string    `gorm:"size:16" json:"section"`
	PhotoURL      string    `gorm:"size:512" json:"photo_url"`
	PhotoID       string    `gorm:"size:255" json:"photo_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DataEntryAdmin is the profile document of a data-entry operator.
type DataEntryAdmin struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Name      string    `gorm:"size:255;not null;index" json:"name"`
	Email     string    `gorm:"size:255;not null" json:"email"`
	Phone     string    `gorm:"size:32" json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
