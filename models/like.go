package models

import "time"

// Like is a (post, user) join row. Its existence alone means "liked";
// the composite unique index is the only duplicate guard under concurrent toggles.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index;uniqueIndex:idx_likes_post_user" json:"postId"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_likes_post_user" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}
