package logging

import (
	"log/slog"
	"time"

	"github.com/tusktask/tusktask/internal/models"
	"gorm.io/gorm"
)

// CleanupJob returns a job deleting system_logs older than retentionDays.
func CleanupJob(db *gorm.DB, retentionDays int) func() {
	return func() {
		cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
		result := db.Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
		if result.Error != nil {
			slog.Error("log cleanup failed", "error", result.Error)
		} else if result.RowsAffected > 0 {
			slog.Info("log cleanup completed", "deleted", result.RowsAffected)
		}
	}
}
