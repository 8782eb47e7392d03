package utils

import (
	"log"
	"os"
	"time"

	"github.com/streakmate/streakmate/config"
	"github.com/streakmate/streakmate/models"
)

// StartImageCleaner launches a background goroutine that periodically deletes
// expired uploaded check-in images recorded in the database. Uploads get an
// expiry when stored and are unexpired once attached to a check-in, so only
// orphans are removed. Best-effort; failures are logged.
func StartImageCleaner(interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		for {
			// Sleep first to avoid racing immediately at startup
			time.Sleep(interval)
			db := config.DB()
			if db == nil {
				continue
			}
			var items []models.UploadedImage
			if err := db.Where("expire_at <= ?", time.Now()).Limit(100).Find(&items).Error; err != nil {
				log.Printf("image cleaner query failed: %v", err)
				continue
			}
			for _, it := range items {
				if it.FilePath != "" {
					_ = os.Remove(it.FilePath)
				}
				// Remove row regardless of file deletion outcome
				if err := db.Delete(&models.UploadedImage{}, it.ID).Error; err != nil {
					log.Printf("image cleaner delete row failed: %v", err)
				}
			}
		}
	}()
}
