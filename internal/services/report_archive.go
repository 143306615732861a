package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	interviewrepo "github.com/yungbote/avatar-interview-backend/internal/data/repos/interview"
	domain "github.com/yungbote/avatar-interview-backend/internal/domain/interview"
	"github.com/yungbote/avatar-interview-backend/internal/modules/interview"
	"github.com/yungbote/avatar-interview-backend/internal/platform/dbctx"
	"github.com/yungbote/avatar-interview-backend/internal/platform/logger"
)

type reportArchive struct {
	log  *logger.Logger
	repo interviewrepo.ReportRepo
}

func NewReportArchive(log *logger.Logger, repo interviewrepo.ReportRepo) interview.ReportArchive {
	if log == nil {
		log = logger.NewNop()
	}
	return &reportArchive{log: log.With("service", "ReportArchive"), repo: repo}
}

func (a *reportArchive) Save(ctx context.Context, rep domain.Report, s *domain.Session) error {
	row, err := reportRow(rep, s)
	if err != nil {
		return err
	}
	if err := a.repo.Upsert(dbctx.New(ctx), row); err != nil {
		return fmt.Errorf("archive report: %w", err)
	}
	a.log.Debug("Report archived", "session_id", rep.SessionID, "percentage", rep.Percentage)
	return nil
}

func (a *reportArchive) Load(ctx context.Context, sessionID string) (*domain.Report, error) {
	row, err := a.repo.GetBySessionID(dbctx.New(ctx), sessionID)
	if err != nil || row == nil {
		return nil, err
	}
	return reportFromRow(row)
}

func reportRow(rep domain.Report, s *domain.Session) (*domain.InterviewReport, error) {
	row := &domain.InterviewReport{
		SessionID:   rep.SessionID,
		JobTitle:    rep.JobTitle,
		TotalScore:  rep.TotalScore,
		MaxScore:    rep.MaxScore,
		Percentage:  rep.Percentage,
		Narrative:   rep.Narrative,
		CompletedAt: time.Now().UTC(),
	}
	var err error
	if row.Skills, err = jsonColumn(rep.Skills); err != nil {
		return nil, err
	}
	if row.ScoresBySkill, err = jsonColumn(rep.ScoresBySkill); err != nil {
		return nil, err
	}
	if row.ConversationLog, err = jsonColumn(rep.ConversationLog); err != nil {
		return nil, err
	}
	if s != nil {
		if row.History, err = jsonColumn(s.History); err != nil {
			return nil, err
		}
		row.TurnCount = s.TurnCount
		if !s.UpdatedAt.IsZero() {
			row.CompletedAt = s.UpdatedAt.UTC()
		}
	}
	return row, nil
}

func reportFromRow(row *domain.InterviewReport) (*domain.Report, error) {
	rep := &domain.Report{
		SessionID:  row.SessionID,
		JobTitle:   row.JobTitle,
		TotalScore: row.TotalScore,
		MaxScore:   row.MaxScore,
		Percentage: row.Percentage,
		Narrative:  row.Narrative,
		Completed:  true,
	}
	if err := fromJSONColumn(row.Skills, &rep.Skills); err != nil {
		return nil, fmt.Errorf("decode skills: %w", err)
	}
	if err := fromJSONColumn(row.ScoresBySkill, &rep.ScoresBySkill); err != nil {
		return nil, fmt.Errorf("decode scores: %w", err)
	}
	if err := fromJSONColumn(row.ConversationLog, &rep.ConversationLog); err != nil {
		return nil, fmt.Errorf("decode conversation log: %w", err)
	}
	return rep, nil
}

func jsonColumn(v any) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func fromJSONColumn(col datatypes.JSON, out any) error {
	if len(col) == 0 {
		return nil
	}
	return json.Unmarshal(col, out)
}
