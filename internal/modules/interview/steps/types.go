package steps

import (
	"context"

	"github.com/yungbote/avatar-interview-backend/internal/platform/logger"
)

// TextGenerator is the LLM port. openai.Client satisfies it.
type TextGenerator interface {
	GenerateText(ctx context.Context, system string, user string) (string, error)
}

type Deps struct {
	Log *logger.Logger
	AI  TextGenerator
}

func (d Deps) log() *logger.Logger {
	if d.Log == nil {
		return logger.NewNop()
	}
	return d.Log
}

const (
	// ClosingMessageSuffix follows the address form in the last message of an interview.
	ClosingMessageSuffix = "благодарю за интервью. Мы свяжемся с вами в ближайшее время."

	// CompletedSentinel is what Peek returns once the interview is over.
	CompletedSentinel = "Интервью завершено"
	// NoQuestionSentinel is what Peek returns before the first AI turn.
	NoQuestionSentinel = "Нет активных вопросов"

	NarrativePlaceholder = "Не удалось сгенерировать отчёт."
)
