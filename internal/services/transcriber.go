package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/yungbote/avatar-interview-backend/internal/modules/interview"
	"github.com/yungbote/avatar-interview-backend/internal/platform/gcp"
	"github.com/yungbote/avatar-interview-backend/internal/platform/logger"
	"github.com/yungbote/avatar-interview-backend/internal/platform/openai"
)

// =========================
// OpenAI (Whisper)
// =========================

type openAITranscriber struct {
	log      *logger.Logger
	ai       openai.Client
	language string
}

func NewOpenAITranscriber(log *logger.Logger, ai openai.Client, language string) (interview.Transcriber, error) {
	if ai == nil {
		return nil, fmt.Errorf("openai client required")
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &openAITranscriber{
		log:      log.With("service", "OpenAITranscriber"),
		ai:       ai,
		language: firstNonEmpty(language, "ru"),
	}, nil
}

func (t *openAITranscriber) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if strings.TrimSpace(filename) == "" {
		filename = "answer.wav"
	}
	text, err := t.ai.Transcribe(ctx, audio, filename, t.language)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// =========================
// Google Cloud Speech
// =========================

type gcpTranscriber struct {
	log    *logger.Logger
	speech gcp.Speech
	cfg    gcp.SpeechConfig
}

func NewGCPTranscriber(log *logger.Logger, speech gcp.Speech, language string) (interview.Transcriber, error) {
	if speech == nil {
		return nil, fmt.Errorf("speech client required")
	}
	if log == nil {
		log = logger.NewNop()
	}
	language = strings.TrimSpace(language)
	if language == "" || !strings.Contains(language, "-") {
		language = "ru-RU"
	}
	return &gcpTranscriber{
		log:    log.With("service", "GCPTranscriber"),
		speech: speech,
		cfg: gcp.SpeechConfig{
			LanguageCode:               language,
			EnableAutomaticPunctuation: true,
		},
	}, nil
}

func (t *gcpTranscriber) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	return t.speech.TranscribeAudioBytes(ctx, audio, audioMimeType(filename), t.cfg)
}

func firstNonEmpty(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

func audioMimeType(filename string) string {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(filename))) {
	case ".webm":
		return "audio/webm"
	case ".ogg", ".oga", ".opus":
		return "audio/ogg"
	case ".mp3":
		return "audio/mpeg"
	case ".flac":
		return "audio/flac"
	default:
		return "audio/wav"
	}
}
