package models

import "time"

// Follow records that follower follows following. Self-follow rows are
// rejected at the handler level; the unique pair index rejects duplicates.
type Follow struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	FollowerID  uint      `gorm:"not null;index;uniqueIndex:idx_follows_pair" json:"followerId"`
	FollowingID uint      `gorm:"not null;index;uniqueIndex:idx_follows_pair" json:"followingId"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (Follow) TableName() string { return "follows" }
