package steps

import (
	"context"
	"strings"

	domain "github.com/yungbote/avatar-interview-backend/internal/domain/interview"
	"github.com/yungbote/avatar-interview-backend/internal/platform/promptstyle"
)

// JSONGenerator is the structured-output LLM port. openai.Client satisfies it.
type JSONGenerator interface {
	GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error)
}

const maxExperienceYears = 60

var experienceSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"general_experience_number": map[string]any{
			"type":        "number",
			"description": "Total years of professional experience, 0 if unknown",
		},
	},
	"required":             []string{"general_experience_number"},
	"additionalProperties": false,
}

// NeedsExperience reports whether the resume lacks the experience total but
// carries enough free text to estimate it.
func NeedsExperience(r *domain.ResumeContext) bool {
	if r == nil || r.ExperienceYears > 0 {
		return false
	}
	return len(r.WorkExperience) > 0 || strings.TrimSpace(r.Specialization) != ""
}

// EstimateExperience derives the total years of experience from the free-text
// resume lines. It returns 0 when the estimate is unavailable; callers treat
// that as unknown.
func EstimateExperience(ctx context.Context, deps Deps, gen JSONGenerator, r *domain.ResumeContext) float64 {
	if gen == nil || !NeedsExperience(r) {
		return 0
	}
	system, user := promptEstimateExperience(r)
	obj, err := gen.GenerateJSON(ctx, system, user, "resume_summary", experienceSchema)
	if err != nil {
		deps.log().Warn("Experience estimate failed", "error", err)
		return 0
	}
	years, ok := obj["general_experience_number"].(float64)
	if !ok || years <= 0 || years > maxExperienceYears {
		return 0
	}
	return years
}

func promptEstimateExperience(r *domain.ResumeContext) (system string, user string) {
	system = promptstyle.Sandbox(`Ты анализируешь резюме кандидата.
Посчитай общий стаж работы в годах по строкам опыта работы и специализации.
Пересекающиеся периоды не суммируй. Если стаж определить нельзя, верни 0.`, "json")
	var b strings.Builder
	if r.Specialization != "" {
		b.WriteString("Специализация: " + r.Specialization + "\n")
	}
	if len(r.WorkExperience) > 0 {
		b.WriteString("Опыт работы:\n" + strings.Join(r.WorkExperience, "\n"))
	}
	return system, promptstyle.Fence(b.String())
}
