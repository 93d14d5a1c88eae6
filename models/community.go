package models

import "time"

// Membership roles within a community.
const (
	RoleAdmin     = "ADMIN"
	RoleModerator = "MODERATOR"
	RoleMember    = "MEMBER"
)

// Community is a shared blog that users join and post into.
type Community struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:64;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"size:1024" json:"description"`
	AvatarURL   string    `gorm:"size:512" json:"avatarUrl"`
	CreatorID   uint      `gorm:"index;not null" json:"creatorId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CommunityMember is a (community, user) join row whose existence means
// "is member". Notifications is a mutable attribute of the membership, not a
// presence flag; leaving the community discards it along with the row.
type CommunityMember struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CommunityID   uint      `gorm:"not null;index;uniqueIndex:idx_members_pair" json:"communityId"`
	UserID        uint      `gorm:"not null;index;uniqueIndex:idx_members_pair" json:"userId"`
	Role          string    `gorm:"size:16;not null;default:'MEMBER'" json:"role"`
	Notifications bool      `gorm:"not null;default:false" json:"notifications"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	User          User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
}
