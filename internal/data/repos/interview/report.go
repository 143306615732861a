package interview

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/yungbote/avatar-interview-backend/internal/domain/interview"
	"github.com/yungbote/avatar-interview-backend/internal/platform/dbctx"
	"github.com/yungbote/avatar-interview-backend/internal/platform/logger"
)

type ReportRepo interface {
	Upsert(dbc dbctx.Context, row *domain.InterviewReport) error
	GetBySessionID(dbc dbctx.Context, sessionID string) (*domain.InterviewReport, error)
	Count(dbc dbctx.Context) (int64, error)
}

type reportRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReportRepo(db *gorm.DB, baseLog *logger.Logger) ReportRepo {
	return &reportRepo{db: db, log: baseLog.With("repo", "InterviewReportRepo")}
}

func (r *reportRepo) Upsert(dbc dbctx.Context, row *domain.InterviewReport) error {
	if row == nil || row.SessionID == "" {
		return nil
	}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"job_title", "skills", "scores_by_skill", "total_score", "max_score", "percentage",
				"narrative", "conversation_log", "history", "turn_count", "completed_at", "updated_at",
			}),
		}).
		Create(row).Error
}

// GetBySessionID returns (nil, nil) when nothing was archived for the id.
func (r *reportRepo) GetBySessionID(dbc dbctx.Context, sessionID string) (*domain.InterviewReport, error) {
	if sessionID == "" {
		return nil, nil
	}
	var row domain.InterviewReport
	err := dbc.DB(r.db).
		Where("session_id = ?", sessionID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *reportRepo) Count(dbc dbctx.Context) (int64, error) {
	var n int64
	if err := dbc.DB(r.db).Model(&domain.InterviewReport{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
