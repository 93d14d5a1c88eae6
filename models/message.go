package models

import "time"

// Message is a direct message between two users. ReadAt stays nil until the
// recipient opens the conversation.
type Message struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	SenderID    uint       `gorm:"index;not null" json:"senderId"`
	RecipientID uint       `gorm:"index;not null" json:"recipientId"`
	Content     string     `gorm:"type:text;not null" json:"content"`
	ReadAt      *time.Time `json:"readAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}
