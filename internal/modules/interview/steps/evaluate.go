package steps

import (
	"context"
	"strconv"
	"strings"

	domain "github.com/yungbote/avatar-interview-backend/internal/domain/interview"
	"github.com/yungbote/avatar-interview-backend/internal/platform/logger"
)

var scoreMarkers = []string{"оценка:", "score:"}

type EvaluateInput struct {
	Skill    string
	Question string
	Answer   string
	Resume   *domain.ResumeContext
}

// EvaluateAnswer scores one answer 1..10. Callers treat any error as "not
// scored" and carry on with the turn.
func EvaluateAnswer(ctx context.Context, deps Deps, in EvaluateInput) (int, error) {
	const op = "evaluate_answer"
	system, user := promptEvaluate(in.Skill, in.Question, in.Answer, in.Resume)
	raw, err := deps.AI.GenerateText(ctx, system, user)
	if err != nil {
		return 0, domain.E(domain.KindUpstreamGenerationFailure, op, err)
	}
	score, err := ParseScore(raw)
	if err != nil {
		deps.log().Warn("Unparsable evaluation", "skill", in.Skill, "error", err, "response_preview", logger.Preview(raw, 120))
		return 0, err
	}
	return score, nil
}

// ParseScore reads the first line carrying a score marker. The value must be
// an integer 1..10; trailing punctuation, brackets and "/10" are allowed.
func ParseScore(raw string) (int, error) {
	const op = "parse_score"
	for _, line := range strings.Split(raw, "\n") {
		lower := strings.ToLower(line)
		for _, marker := range scoreMarkers {
			i := strings.Index(lower, marker)
			if i < 0 {
				continue
			}
			return parseScoreValue(lower[i+len(marker):])
		}
	}
	return 0, domain.Errorf(domain.KindMalformedUpstreamResponse, op, "no score marker in evaluation")
}

func parseScoreValue(val string) (int, error) {
	const op = "parse_score"
	v := strings.TrimSpace(strings.ReplaceAll(val, "*", ""))
	v = strings.TrimRight(v, ".,;!")
	v = strings.TrimSpace(strings.TrimSuffix(v, "/10"))
	v = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(v, "["), "]"))
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, domain.Errorf(domain.KindMalformedUpstreamResponse, op, "score %q is not an integer", strings.TrimSpace(val))
	}
	if n < 1 || n > domain.MaxScorePerAnswer {
		return 0, domain.Errorf(domain.KindMalformedUpstreamResponse, op, "score %d out of range", n)
	}
	return n, nil
}
