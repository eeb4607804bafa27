package models

import "time"

// Identity is a login-capable principal owned by the auth provider.
type Identity struct {
	ID           string     `gorm:"primaryKey;size:64" json:"id"`
	Identifier   string     `gorm:"size:255;uniqueIndex;not null" json:"identifier"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	// Provisional marks a student identity created by date-of-birth sign-in
	// whose password nobody has chosen yet.
	Provisional  bool       `gorm:"not null;default:false" json:"provisional"`
	LastSignInAt *time.Time `json:"last_sign_in_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
