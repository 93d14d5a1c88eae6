package models

import "time"

// Post lifecycle status.
const (
	PostStatusDraft     = "DRAFT"
	PostStatusPublished = "PUBLISHED"
)

// Publication mode: whether a community post displays its author or is
// attributed to the community itself.
const (
	PublicationModeUser      = "USER"
	PublicationModeCommunity = "COMMUNITY"
)

// Moderation status for posts submitted to a community.
const (
	ModerationStatusNew      = "NEW"
	ModerationStatusReviewed = "REVIEWED"
	ModerationStatusRejected = "REJECTED"
)

// Post is a blog entry, optionally submitted to a community. Community
// submissions stay out of public feeds until a moderator reviews them.
type Post struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	AuthorID         uint       `gorm:"index;not null" json:"authorId"`
	CommunityID      *uint      `gorm:"index" json:"communityId,omitempty"`
	Title            string     `gorm:"size:255;not null" json:"title"`
	Content          string     `gorm:"type:text;not null" json:"content"`
	Status           string     `gorm:"size:16;not null;default:'PUBLISHED'" json:"status"`
	PublicationMode  string     `gorm:"size:16;not null;default:'USER'" json:"publicationMode"`
	ModerationStatus string     `gorm:"size:16;index" json:"moderationStatus,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	Author           User       `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Community        *Community `json:"community,omitempty"`
	Tags             []Tag      `gorm:"many2many:post_tags;" json:"tags"`
}

// Tag is a label attached to posts via the post_tags join table.
type Tag struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:64;uniqueIndex;not null" json:"name"`
}
