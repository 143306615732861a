package app

import (
	"gorm.io/gorm"

	interviewrepo "github.com/yungbote/avatar-interview-backend/internal/data/repos/interview"
	"github.com/yungbote/avatar-interview-backend/internal/platform/logger"
)

type Repos struct {
	// Report is nil when no archive database is configured.
	Report interviewrepo.ReportRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	if db == nil {
		return Repos{}
	}
	return Repos{
		Report: interviewrepo.NewReportRepo(db, log),
	}
}
