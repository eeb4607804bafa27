package models

import "time"

// Student is a pupil record managed by admins and data-entry staff.
type Student struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	Name        string    `gorm:"size:255;not null;index" json:"name"`
	RollNumber  string    `gorm:"size:64;uniqueIndex;not null" json:"roll_number"`
	ClassName   string    `gorm:"size:64;not null;index" json:"class_name"`
	Section     string    `gorm:"size:16" json:"section"`
	DateOfBirth string    `gorm:"size:10;not null" json:"date_of_birth"`
	Gender      string    `gorm:"size:16" json:"gender"`
	ParentName  string    `gorm:"size:255" json:"parent_name"`
	Phone       string    `gorm:"size:32" json:"phone"`
	Address     string    `gorm:"type:text" json:"address"`
	PhotoURL    string    `gorm:"size:512" json:"photo_url"`
	PhotoID     string    `gorm:"size:255" json:"photo_id"`
	IdentityID  *string   `gorm:"size:64;index" json:"identity_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
