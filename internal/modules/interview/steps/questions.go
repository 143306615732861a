package steps

import (
	"context"
	"regexp"
	"strings"

	domain "github.com/yungbote/avatar-interview-backend/internal/domain/interview"
	"github.com/yungbote/avatar-interview-backend/internal/platform/logger"
)

type BaseQuestionsInput struct {
	JobTitle string
	Skills   []string
	Resume   *domain.ResumeContext
}

// GenerateBaseQuestions asks for all base questions in one call. Every skill
// must come back with a non-empty question.
func GenerateBaseQuestions(ctx context.Context, deps Deps, in BaseQuestionsInput) (map[string]string, error) {
	const op = "generate_base_questions"
	if len(in.Skills) == 0 {
		return nil, domain.Errorf(domain.KindMissingParameters, op, "skills required")
	}
	system, user := promptBaseQuestions(in.JobTitle, in.Skills, in.Resume)
	raw, err := deps.AI.GenerateText(ctx, system, user)
	if err != nil {
		deps.log().Warn("Base question generation failed", "error", err, "skills", len(in.Skills))
		return nil, domain.E(domain.KindUpstreamGenerationFailure, op, err)
	}
	out, err := ParseBaseQuestions(raw, in.Skills)
	if err != nil {
		deps.log().Warn("Base question response rejected", "error", err, "response_preview", logger.Preview(raw, 200))
		return nil, err
	}
	return out, nil
}

var (
	listPrefixRe = regexp.MustCompile(`^\s*(?:[-*•–]+|\d+[.)]|\(\d+\))\s*`)
	bracketsRe   = regexp.MustCompile(`^\[(.*)\]$`)
)

// ParseBaseQuestions reads "skill: question" lines. List markers, markdown
// emphasis, square brackets and skill name case are tolerated; lines for
// skills that were not requested are ignored. A requested skill without a
// question is a MalformedUpstreamResponse.
func ParseBaseQuestions(raw string, skills []string) (map[string]string, error) {
	const op = "parse_base_questions"
	want := make(map[string]string, len(skills))
	for _, sk := range skills {
		want[skillKey(sk)] = sk
	}

	out := make(map[string]string, len(skills))
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(listPrefixRe.ReplaceAllString(line, ""))
		line = strings.ReplaceAll(line, "**", "")
		name, question, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		skill, requested := want[skillKey(name)]
		if !requested {
			continue
		}
		if _, dup := out[skill]; dup {
			continue
		}
		question = unbracket(question)
		if question == "" {
			continue
		}
		out[skill] = question
	}

	var missing []string
	for _, sk := range skills {
		if out[sk] == "" {
			missing = append(missing, sk)
		}
	}
	if len(missing) > 0 {
		return nil, domain.Errorf(domain.KindMalformedUpstreamResponse, op, "no base question for: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

func unbracket(s string) string {
	s = strings.TrimSpace(s)
	if m := bracketsRe.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	return strings.TrimSpace(strings.Trim(s, `"'«»`))
}

func skillKey(s string) string {
	return strings.ToLower(unbracket(s))
}

type ClarifyInput struct {
	Skill        string
	LastQuestion string
	BaseQuestion string
	Answer       string
	Resume       *domain.ResumeContext
}

// GenerateClarifyingQuestion returns one normalized follow-up question.
func GenerateClarifyingQuestion(ctx context.Context, deps Deps, in ClarifyInput) (string, error) {
	const op = "generate_clarifying_question"
	system, user := promptClarifyingQuestion(in.Skill, in.LastQuestion, in.BaseQuestion, in.Answer, in.Resume)
	raw, err := deps.AI.GenerateText(ctx, system, user)
	if err != nil {
		return "", domain.E(domain.KindUpstreamGenerationFailure, op, err)
	}
	q := NormalizeQuestion(firstNonEmptyLine(raw))
	if q == "" {
		return "", domain.Errorf(domain.KindMalformedUpstreamResponse, op, "empty clarifying question")
	}
	return q, nil
}

// BaseQuestionPrompt is what the candidate hears when a skill starts.
func BaseQuestionPrompt(address, baseQuestion string) string {
	return NormalizeQuestion(addressOrDefault(address) + ", " + baseQuestion)
}

func firstNonEmptyLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			return t
		}
	}
	return ""
}
