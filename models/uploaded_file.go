package models

import "time"

// UploadedFile records locally stored uploads (avatars, attachments) so the
// background cleaner can delete orphaned files after their TTL.
type UploadedFile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FilePath  string    `gorm:"size:1024;not null" json:"filePath"`
	URL       string    `gorm:"size:1024;not null" json:"url"`
	ExpireAt  time.Time `gorm:"index" json:"expireAt"`
	CreatedAt time.Time `json:"createdAt"`
}
