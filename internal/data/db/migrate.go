package db

import (
	"fmt"

	"gorm.io/gorm"

	domain "github.com/yungbote/avatar-interview-backend/internal/domain/interview"
)

func AutoMigrateAll(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(
		&domain.InterviewReport{},
	)
}

func EnsureReportIndexes(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_interview_report_percentage
		ON interview_report (percentage);
	`).Error; err != nil {
		return fmt.Errorf("create idx_interview_report_percentage: %w", err)
	}
	return nil
}
