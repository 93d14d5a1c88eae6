package models

import "time"

// SavedPost is a (post, user) join row marking a bookmarked post.
type SavedPost struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index;uniqueIndex:idx_saved_post_user" json:"postId"`
	UserID    uint      `gorm:"not null;index;uniqueIndex:idx_saved_post_user" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}
