package models

import "time"

// NotificationAudienceAll targets every visitor, signed in or not.
const NotificationAudienceAll = "all"

// Notification is a banner message shown to an audience until it expires.
type Notification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Title     string     `gorm:"size:255;not null;index" json:"title"`
	Message   string     `gorm:"type:text;not null" json:"message"`
	Audience  string     `gorm:"size:32;not null;default:all;index" json:"audience"`
	Priority  string     `gorm:"size:16;not null;default:normal" json:"priority"`
	Active    bool       `gorm:"not null" json:"active"`
	ExpiresAt *time.Time `gorm:"index" json:"expires_at"`
	CreatedBy string     `gorm:"size:64" json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// VisibleAt reports whether the banner should be shown at the given instant.
func (n Notification) VisibleAt(now time.Time) bool {
	if !n.Active {
		return false
	}
	return n.ExpiresAt == nil || n.ExpiresAt.After(now)
}
