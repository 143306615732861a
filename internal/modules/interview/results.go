package interview

import (
	"context"
	"errors"
	"strings"

	domain "github.com/yungbote/avatar-interview-backend/internal/domain/interview"
	"github.com/yungbote/avatar-interview-backend/internal/modules/interview/steps"
)

// Results returns the report for a session. Live sessions are scored on the
// spot; evicted ones fall back to the archive. A session with no recorded
// score has nothing to report and is NotFound.
func (u Usecases) Results(ctx context.Context, sessionID string) (domain.Report, error) {
	const op = "results"
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return domain.Report{}, domain.Errorf(domain.KindMissingParameters, op, "session_id required")
	}

	s, err := u.deps.Store.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return domain.Report{}, err
		}
		return u.archived(ctx, id)
	}
	if !s.HasScores() {
		return domain.Report{}, domain.Errorf(domain.KindNotFound, op, "no scores recorded for %q", id)
	}
	if s.Completed {
		if rep, err := u.archived(ctx, id); err == nil {
			return rep, nil
		}
	}
	return steps.BuildReport(ctx, u.genDeps(u.deps.Log.With("session_id", id)), s), nil
}

func (u Usecases) archived(ctx context.Context, id string) (domain.Report, error) {
	if u.deps.Archive == nil {
		return domain.Report{}, domain.Errorf(domain.KindNotFound, "results", "session %q not found", id)
	}
	rep, err := u.deps.Archive.Load(ctx, id)
	if err != nil {
		u.deps.Log.Warn("Report archive lookup failed", "session_id", id, "error", err)
		return domain.Report{}, domain.E(domain.KindNotFound, "results", err)
	}
	if rep == nil {
		return domain.Report{}, domain.Errorf(domain.KindNotFound, "results", "session %q not found", id)
	}
	if !rep.HasScores() {
		return domain.Report{}, domain.Errorf(domain.KindNotFound, "results", "no scores recorded for %q", id)
	}
	return *rep, nil
}

type QuestionOutput struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
	Completed bool   `json:"completed"`
}

// CurrentQuestion returns the last thing the interviewer said.
func (u Usecases) CurrentQuestion(ctx context.Context, sessionID string) (QuestionOutput, error) {
	id := strings.TrimSpace(sessionID)
	out := QuestionOutput{SessionID: id}

	s, err := u.deps.Store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			if _, aerr := u.archived(ctx, id); aerr == nil {
				out.Question = steps.CompletedSentinel
				out.Completed = true
				return out, nil
			}
		}
		return QuestionOutput{}, err
	}
	if s.Completed {
		out.Question = steps.CompletedSentinel
		out.Completed = true
		return out, nil
	}
	last := s.LastAIText()
	if last == "" {
		out.Question = steps.NoQuestionSentinel
		return out, nil
	}
	out.Question = steps.NormalizeQuestion(last)
	return out, nil
}
