package steps

import (
	"context"
	"strings"
	"unicode/utf8"

	domain "github.com/yungbote/avatar-interview-backend/internal/domain/interview"
)

const maxAddressRunes = 60

// ExtractAddress asks how to address the candidate. It never fails: any
// problem yields the default placeholder.
func ExtractAddress(ctx context.Context, deps Deps, userText string) string {
	if strings.TrimSpace(userText) == "" {
		return domain.DefaultAddressForm
	}
	system, user := promptExtractAddress(userText)
	raw, err := deps.AI.GenerateText(ctx, system, user)
	if err != nil {
		deps.log().Warn("Address extraction failed; using default", "error", err)
		return domain.DefaultAddressForm
	}
	return cleanAddress(raw)
}

func cleanAddress(raw string) string {
	s := firstNonEmptyLine(raw)
	if i := strings.LastIndex(s, "→"); i >= 0 {
		s = s[i+len("→"):]
	}
	s = strings.TrimPrefix(strings.TrimSpace(s), "Ответ:")
	s = quoteReplacer.Replace(s)
	s = strings.Trim(strings.TrimSpace(s), ".,!?;:")
	s = strings.TrimSpace(s)
	if s == "" || utf8.RuneCountInString(s) > maxAddressRunes || len(strings.Fields(s)) > 4 {
		return domain.DefaultAddressForm
	}
	return s
}

func addressOrDefault(a string) string {
	if a = strings.TrimSpace(a); a != "" {
		return a
	}
	return domain.DefaultAddressForm
}
