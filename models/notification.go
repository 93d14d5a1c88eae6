package models

import "time"

// Notification types.
const (
	NotificationLike          = "LIKE"
	NotificationComment       = "COMMENT"
	NotificationFollow        = "FOLLOW"
	NotificationCommunityPost = "COMMUNITY_POST"
	NotificationMessage       = "MESSAGE"
)

// Notification is a stored event row for a user; there is no push delivery,
// clients poll the list endpoint.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"userId"`
	ActorID   uint      `gorm:"not null" json:"actorId"`
	Type      string    `gorm:"size:32;not null" json:"type"`
	PostID    *uint     `json:"postId,omitempty"`
	Read      bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time `json:"createdAt"`
	Actor     User      `gorm:"foreignKey:ActorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"actor"`
}
