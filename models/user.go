package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a registered account. Passwords are stored as bcrypt hashes only;
// OAuth accounts carry provider/provider_id instead.
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Username     string         `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email        string         `gorm:"size:255" json:"email"`
	PasswordHash string         `gorm:"size:255" json:"-"`
	Provider     string         `gorm:"size:32" json:"provider,omitempty"`
	ProviderID   string         `gorm:"size:255" json:"-"`
	AvatarURL    string         `gorm:"size:512" json:"avatarUrl"`
	About        string         `gorm:"size:512" json:"about"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// AuthorSummary is the reduced author shape embedded in post and comment payloads.
type AuthorSummary struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl"`
}

// Summary projects the user into the shape exposed on posts and comments.
func (u *User) Summary() AuthorSummary {
	return AuthorSummary{ID: u.ID, Username: u.Username, AvatarURL: u.AvatarURL}
}

// BeforeCreate ensures timestamps are set even when the row is built by hand.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}
