package steps

import (
	"context"
	"strings"

	domain "github.com/yungbote/avatar-interview-backend/internal/domain/interview"
)

// ComputeScore folds recorded scores into a total and a maximum. Only skills
// with at least one recorded score count toward the maximum, so answers that
// failed to grade do not drag the percentage down.
func ComputeScore(s *domain.Session) (total int, max int, percentage float64) {
	if s == nil {
		return 0, 0, 0
	}
	for _, sk := range s.Skills {
		for _, v := range s.Scores[sk] {
			total += v
		}
	}
	max = s.ScoredSkills() * domain.StagesDone * domain.MaxScorePerAnswer
	if max == 0 {
		return total, 0, 0
	}
	return total, max, float64(total) / float64(max) * 100
}

// BuildReport computes the numbers and asks for a narrative. A failed
// narrative is replaced by a placeholder; the numbers are always returned.
func BuildReport(ctx context.Context, deps Deps, s *domain.Session) domain.Report {
	total, max, pct := ComputeScore(s)
	rep := domain.Report{
		SessionID:       s.ID,
		JobTitle:        s.JobTitle,
		Skills:          append([]string(nil), s.Skills...),
		ScoresBySkill:   make(map[string][]int, len(s.Skills)),
		TotalScore:      total,
		MaxScore:        max,
		Percentage:      pct,
		ConversationLog: s.ConversationLog(),
		Completed:       s.Completed,
	}
	for _, sk := range s.Skills {
		rep.ScoresBySkill[sk] = append([]int{}, s.Scores[sk]...)
	}

	system, user := promptReport(s, total, max, pct)
	narrative, err := deps.AI.GenerateText(ctx, system, user)
	narrative = strings.TrimSpace(narrative)
	if err != nil || narrative == "" {
		deps.log().Warn("Report narrative generation failed", "session_id", s.ID, "error", err)
		rep.Narrative = NarrativePlaceholder
		rep.NarrativeFailed = true
		return rep
	}
	rep.Narrative = strings.ReplaceAll(narrative, "**", "")
	return rep
}

// ScoreBreakdown is the log line written when an interview completes.
func ScoreBreakdown(s *domain.Session) []any {
	total, max, pct := ComputeScore(s)
	scores := make(map[string][]int, len(s.Skills))
	for _, sk := range s.Skills {
		scores[sk] = s.Scores[sk]
	}
	return []any{"total_score", total, "max_score", max, "percentage", pct, "scores", scores}
}
