package utils

import (
	"os"
	"time"

	"gorm.io/gorm"

	"github.com/killursxlf/livejournal/models"
)

// StartUploadCleaner launches a background goroutine that periodically
// deletes expired uploaded files recorded in the database. Best-effort.
func StartUploadCleaner(db *gorm.DB, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		for {
			time.Sleep(interval)
			var items []models.UploadedFile
			if err := db.Where("expire_at <= ?", time.Now()).Limit(100).Find(&items).Error; err != nil {
				if Sugar != nil {
					Sugar.Warnf("upload cleaner query failed: %v", err)
				}
				continue
			}
			for _, it := range items {
				if it.FilePath != "" {
					_ = os.Remove(it.FilePath)
				}
				if err := db.Delete(&models.UploadedFile{}, it.ID).Error; err != nil && Sugar != nil {
					Sugar.Warnf("upload cleaner delete row failed: %v", err)
				}
			}
		}
	}()
}
