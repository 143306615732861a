package interview

import (
	"context"

	domain "github.com/yungbote/avatar-interview-backend/internal/domain/interview"
)

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// Audio is synthesized speech plus the file extension ffmpeg should see.
type Audio struct {
	Data []byte
	Ext  string
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string, voice string) (Audio, error)
}

type Compositor interface {
	Composite(ctx context.Context, templatePath string, audio []byte, audioExt string) ([]byte, error)
}

// TemplateFetcher materializes the interviewer's template video locally.
type TemplateFetcher interface {
	Fetch(ctx context.Context, sessionID string, ref string) (string, error)
	Release(path string)
}

// ReportArchive keeps completed interviews readable after eviction.
type ReportArchive interface {
	Save(ctx context.Context, rep domain.Report, s *domain.Session) error
	Load(ctx context.Context, sessionID string) (*domain.Report, error)
}

type Notifier interface {
	TurnProcessed(ctx context.Context, s *domain.Session, skill string, stage int)
	Completed(ctx context.Context, rep domain.Report)
}

type Voices struct {
	Male   string
	Female string
}

func (v Voices) For(g domain.Gender) string {
	if g == domain.GenderMale {
		return v.Male
	}
	return v.Female
}

// Providers label metrics and spans.
type Providers struct {
	STT string
	TTS string
	LLM string
}
